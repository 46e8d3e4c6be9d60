package audit

import (
	"fmt"
	"time"
)

// AuditUnavailableError reports that the analyzer could not be
// launched at all, typically because no supported browser exists on
// the host.
type AuditUnavailableError struct {
	URL   string
	Cause error
}

func (e *AuditUnavailableError) Error() string {
	return fmt.Sprintf("audit unavailable for %s: %v", e.URL, e.Cause)
}

func (e *AuditUnavailableError) Unwrap() error {
	return e.Cause
}

// AuditTimeoutError reports that one audit invocation exceeded its
// wall-clock limit.
type AuditTimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *AuditTimeoutError) Error() string {
	return fmt.Sprintf("audit of %s exceeded %s", e.URL, e.Timeout)
}
