package api

import (
	"net/http"
)

type infoResponse struct {
	Client      string            `json:"client"`
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"query_params"`
}

// InfoHandler handles request introspection.
type InfoHandler struct{}

// NewInfoHandler creates a new info handler.
func NewInfoHandler() *InfoHandler {
	return &InfoHandler{}
}

// HandleInfo handles GET /info requests.
func (h *InfoHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		notFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, infoResponse{
		Client:      clientHost(r.RemoteAddr),
		Method:      r.Method,
		URL:         requestURL(r),
		Headers:     flattenHeaders(r),
		QueryParams: lastValues(r),
	})
}
