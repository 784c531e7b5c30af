// Package site serves the embedded rankings dashboard.
package site

import (
	"context"
	"net/http"
)

// Register attaches the dashboard at the root of mux. Unknown paths fall
// through to the file server and answer 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", http.FileServer(FS()))
}
