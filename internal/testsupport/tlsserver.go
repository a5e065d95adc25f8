// Package testsupport hosts local TLS/H2 test servers used by _test.go
// files across the module, so handshake/pool/executor tests can dial a
// real listener instead of mocking net.Conn.
package testsupport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TLSServer starts an httptest TLS server with ALPN negotiation for both
// h2 and http/1.1, calling handler for every request. It returns the
// bare host:port address (no scheme), suitable for handshake.Dial, and
// registers cleanup via t.Cleanup.
func TLSServer(t *testing.T, handler http.Handler) string {
	t.Helper()
	srv := httptest.NewUnstartedServer(handler)
	srv.EnableHTTP2 = true
	srv.StartTLS()
	t.Cleanup(srv.Close)

	return strings.TrimPrefix(strings.TrimPrefix(srv.URL, "https://"), "http://")
}

// EchoHandler replies with the request method and path, useful for
// asserting that a dialed connection actually reached the server.
func EchoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(r.Method + " " + r.URL.Path))
	})
}
