package api

import "net/http"

// Fixed root response values.
const (
	rootMessage = "Hello from FastAPI via go-asgi!"
	rootServer  = "FastAPI + Uvicorn"
	rootProxy   = "go-asgi reverse proxy"
)

type rootResponse struct {
	Message string `json:"message"`
	Server  string `json:"server"`
	Proxy   string `json:"proxy"`
}

// RootHandler handles root path requests.
type RootHandler struct{}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

// HandleRoot handles GET / requests.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		notFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, rootResponse{
		Message: rootMessage,
		Server:  rootServer,
		Proxy:   rootProxy,
	})
}
