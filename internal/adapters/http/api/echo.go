package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/okian/mirrorback/internal/domain/jsonvalue"
	"github.com/okian/mirrorback/pkg/metrics"
)

type echoResponse struct {
	Echoed  jsonvalue.Value   `json:"echoed"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
}

// EchoHandler handles echo requests.
type EchoHandler struct {
	maxBodyBytes int64
}

// NewEchoHandler creates a new echo handler.
func NewEchoHandler(maxBodyBytes int64) *EchoHandler {
	return &EchoHandler{maxBodyBytes: maxBodyBytes}
}

// HandleEcho handles POST /echo requests. The body must be one JSON value of
// any kind; it is returned unchanged under "echoed".
func (h *EchoHandler) HandleEcho(w http.ResponseWriter, r *http.Request) {
	const op = "api.echo"
	if r.Method != http.MethodPost {
		notFound(w, r)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", WrapKind(op, ErrBodyTooLarge, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	body, err := jsonvalue.Parse(data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed_body", WrapKind(op, ErrMalformedBody, err))
		return
	}
	metrics.RecordEchoBody(len(data))

	writeJSON(w, http.StatusOK, echoResponse{
		Echoed:  body,
		Method:  r.Method,
		Headers: flattenHeaders(r),
	})
}
