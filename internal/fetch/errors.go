package fetch

import "fmt"

// FetchError reports a failed resource fetch. It is fatal only for the
// root document; for dependents the fetcher records the failure in the
// graph and continues.
type FetchError struct {
	// URL is the resource that failed.
	URL string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Cause
}
