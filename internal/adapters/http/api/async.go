package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/mirrorback/internal/domain/delay"
	"github.com/okian/mirrorback/pkg/logger"
	"github.com/okian/mirrorback/pkg/metrics"
)

type asyncResponse struct {
	Message string `json:"message"`
	Async   bool   `json:"async"`
}

// delayMetrics reports delay lifecycle events to Prometheus.
type delayMetrics struct{}

func (delayMetrics) Started(seconds uint64) { metrics.DelayStarted(seconds) }
func (delayMetrics) Completed()             { metrics.DelayCompleted() }
func (delayMetrics) Abandoned()             { metrics.DelayAbandoned() }
func (delayMetrics) Rejected()              { metrics.DelayRejected() }

// DelayObserver returns the Prometheus-backed delay observer.
func DelayObserver() delay.Observer { return delayMetrics{} }

// AsyncHandler handles delayed responses.
type AsyncHandler struct {
	sleeper *delay.Sleeper
	log     logger.Logger
}

// NewAsyncHandler creates a new delayed-response handler.
func NewAsyncHandler(s *delay.Sleeper, log logger.Logger) *AsyncHandler {
	return &AsyncHandler{sleeper: s, log: log}
}

// HandleAsync handles GET /async/{delay} requests. The goroutine serving the
// request parks on a timer; other requests keep being served meanwhile.
func (h *AsyncHandler) HandleAsync(w http.ResponseWriter, r *http.Request) {
	const op = "api.async"
	if r.Method != http.MethodGet {
		notFound(w, r)
		return
	}

	seconds, err := delay.Parse(r.PathValue("delay"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_path_param", WrapKind(op, ErrPathParamInvalid, err))
		return
	}

	err = h.sleeper.Sleep(r.Context(), seconds)
	switch {
	case err == nil:
	case errors.Is(err, delay.ErrOutOfRange):
		writeError(w, http.StatusUnprocessableEntity, "invalid_path_param", WrapKind(op, ErrPathParamInvalid, err))
		return
	case errors.Is(err, delay.ErrSaturated):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	default:
		// The client is gone; nobody is left to read a response.
		h.log.Debug(r.Context(), "delay abandoned",
			logger.Int64("delay_seconds", int64(seconds)),
			logger.Error(err),
		)
		return
	}

	writeJSON(w, http.StatusOK, asyncResponse{
		Message: "Completed after " + strconv.FormatUint(seconds, 10) + " seconds",
		Async:   true,
	})
}
