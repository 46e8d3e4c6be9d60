package audit

import (
	"net"
	"net/http"
)

// ServeDir serves a site mirror on an ephemeral loopback port so the
// analyzer can audit it over HTTP. The returned stop function shuts
// the server down.
func ServeDir(dir string) (baseURL string, stop func() error, err error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: http.FileServer(http.Dir(dir))}
	go func() {
		// Close reports ErrServerClosed here; nothing to do with it.
		_ = srv.Serve(ln)
	}()
	return "http://" + ln.Addr().String() + "/", srv.Close, nil
}
