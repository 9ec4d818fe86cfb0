package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server tuned for the registration API: the header
// timeout keeps slow clients from holding connections open while the
// read/write timeouts stay generous enough for multi-megabyte document
// uploads and downloads.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}
}
