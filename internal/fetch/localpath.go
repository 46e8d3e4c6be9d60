package fetch

import (
	"net/url"
	"path"
	"strings"
)

// localPathFor maps a resource URL to a deterministic relative path
// inside the site mirror. The root document always maps to
// index.html. Same-origin resources keep their URL path; cross-origin
// resources live under ext/<host>/.
func localPathFor(rootURL, resourceURL *url.URL) string {
	if sameResource(rootURL, resourceURL) {
		return "index.html"
	}

	p := path.Clean(resourceURL.EscapedPath())
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		p = "index.html"
	}
	if strings.HasSuffix(resourceURL.EscapedPath(), "/") {
		p = path.Join(p, "index.html")
	}

	if resourceURL.Host != rootURL.Host {
		return path.Join("ext", hostDir(resourceURL.Host), p)
	}
	return p
}

// sameResource reports whether two URLs identify the same document,
// ignoring fragment differences.
func sameResource(a, b *url.URL) bool {
	return a.Host == b.Host && a.EscapedPath() == b.EscapedPath() && a.RawQuery == b.RawQuery
}

// hostDir turns a host into a filesystem-safe directory name.
func hostDir(host string) string {
	return strings.ReplaceAll(strings.ToLower(host), ":", "-")
}
