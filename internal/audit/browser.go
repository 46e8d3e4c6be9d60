package audit

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pagelift/pagelift/internal/config"
)

// bravePaths lists well-known Brave install locations per OS.
var bravePaths = map[string][]string{
	"darwin": {
		"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
	},
	"linux": {
		"/usr/bin/brave-browser",
		"/usr/bin/brave",
		"/snap/bin/brave",
	},
	"windows": {
		`BraveSoftware\Brave-Browser\Application\brave.exe`,
	},
}

// chromePaths lists well-known Chrome and Chromium install locations
// per OS.
var chromePaths = map[string][]string{
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	},
	"linux": {
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
	},
	"windows": {
		`Google\Chrome\Application\chrome.exe`,
	},
}

// Browser is a discovered browser executable.
type Browser struct {
	// Name is "brave" or "chrome".
	Name string

	// ExecPath is the absolute path to the executable.
	ExecPath string
}

// DiscoverBrowser locates the browser executable for the given
// preference. Brave is checked before Chrome unless the preference
// pins one explicitly; the empty result means no browser was found.
func DiscoverBrowser(preference string) (Browser, bool) {
	return discoverBrowser(preference, runtime.GOOS, fileExists)
}

// discoverBrowser is the testable core of DiscoverBrowser.
func discoverBrowser(preference, goos string, exists func(string) bool) (Browser, bool) {
	tryBrave := preference == config.BrowserAuto || preference == config.BrowserBrave
	tryChrome := preference == config.BrowserAuto || preference == config.BrowserChrome

	if tryBrave {
		for _, p := range expandPaths(bravePaths[goos], goos) {
			if exists(p) {
				return Browser{Name: config.BrowserBrave, ExecPath: p}, true
			}
		}
	}
	if tryChrome {
		for _, p := range expandPaths(chromePaths[goos], goos) {
			if exists(p) {
				return Browser{Name: config.BrowserChrome, ExecPath: p}, true
			}
		}
	}
	return Browser{}, false
}

// expandPaths resolves Windows paths against both Program Files roots.
func expandPaths(paths []string, goos string) []string {
	if goos != "windows" {
		return paths
	}
	roots := []string{
		envDefault("ProgramFiles", `C:\Program Files`),
		envDefault("ProgramFiles(x86)", `C:\Program Files (x86)`),
	}
	out := make([]string, 0, len(paths)*len(roots))
	for _, root := range roots {
		for _, p := range paths {
			out = append(out, filepath.Join(root, p))
		}
	}
	return out
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
