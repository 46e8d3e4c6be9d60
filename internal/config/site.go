package config

// SiteConfig holds site-specific overrides for a single domain.
// This allows tuning fetch and audit behavior per site.
type SiteConfig struct {
	// Concurrency overrides the global fetch pool size. Zero means use
	// the global value.
	Concurrency int `yaml:"concurrency,omitempty"`

	// ViewportWidth and ViewportHeight override the reference viewport.
	ViewportWidth  int `yaml:"viewportWidth,omitempty"`
	ViewportHeight int `yaml:"viewportHeight,omitempty"`

	// Browser overrides the analyzer browser preference.
	Browser string `yaml:"browser,omitempty"`

	// Headers are custom HTTP headers to include in fetches to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// FetchTimeoutSeconds overrides the per-resource fetch timeout.
	FetchTimeoutSeconds int `yaml:"fetchTimeoutSeconds,omitempty"`
}

// File represents the structure of the .pagelift configuration file.
type File struct {
	// Sites maps domains to their site-specific configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains site configuration applied to all sites unless
	// overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a domain, merging the
// site-specific entry over the defaults.
func (cf *File) GetSiteConfig(domain string) SiteConfig {
	result := cf.Defaults

	if siteConfig, ok := cf.Sites[domain]; ok {
		if siteConfig.Concurrency != 0 {
			result.Concurrency = siteConfig.Concurrency
		}
		if siteConfig.ViewportWidth != 0 {
			result.ViewportWidth = siteConfig.ViewportWidth
		}
		if siteConfig.ViewportHeight != 0 {
			result.ViewportHeight = siteConfig.ViewportHeight
		}
		if siteConfig.Browser != "" {
			result.Browser = siteConfig.Browser
		}
		if siteConfig.FetchTimeoutSeconds != 0 {
			result.FetchTimeoutSeconds = siteConfig.FetchTimeoutSeconds
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
	}

	return result
}
