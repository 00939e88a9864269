// Package site serves the embedded admin landing page.
package site

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
)

var ErrPageMissing = errors.New("admin page missing from embedded site")

const indexPage = "index.html"

// Register attaches the landing page to mux at GET /. Nothing below / is
// claimed so other admin routes stay authoritative.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /{$}", NewRootHandler())
}

// RootHandler serves the landing page.
type RootHandler struct {
	page []byte
	err  error
}

// NewRootHandler loads the embedded landing page.
func NewRootHandler() *RootHandler {
	page, err := fs.ReadFile(FS(), indexPage)
	if err != nil {
		err = errors.Join(ErrPageMissing, err)
	}
	return &RootHandler{page: page, err: err}
}

// ServeHTTP writes the landing page.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if h.err != nil {
		http.Error(w, h.err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.page)
}
