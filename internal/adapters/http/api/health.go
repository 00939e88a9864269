package api

import (
	"net/http"

	"github.com/okian/mirrorback/internal/domain/clock"
)

type healthResponse struct {
	Status    string  `json:"status"`
	Timestamp float64 `json:"timestamp"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	clock *clock.Clock
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(c *clock.Clock) *HealthHandler {
	return &HealthHandler{clock: c}
}

// HandleHealth handles GET /health requests. The timestamp is sampled on
// every call.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		notFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: h.clock.Now(),
	})
}
