// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/mirrorback/internal/domain/clock"
	"github.com/okian/mirrorback/internal/domain/delay"
	"github.com/okian/mirrorback/pkg/logger"
)

// Default limits.
const (
	defaultMaxBodyBytes = 10 << 20
)

// Server wires the fixture routes. Every handler is stateless; the Server
// value is built once and shared by all requests.
type Server struct {
	rootHandler   *RootHandler
	healthHandler *HealthHandler
	asyncHandler  *AsyncHandler
	echoHandler   *EchoHandler
	infoHandler   *InfoHandler

	log logger.Logger
}

type serverOptions struct {
	log          logger.Logger
	sleeper      *delay.Sleeper
	clock        *clock.Clock
	maxBodyBytes int64
}

// Option applies a configuration option to the Server.
type Option func(*serverOptions)

// WithLogger sets the logger used by handlers and middleware.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSleeper sets the delay implementation behind /async/{delay}.
func WithSleeper(s *delay.Sleeper) Option {
	return func(o *serverOptions) {
		if s != nil {
			o.sleeper = s
		}
	}
}

// WithClock sets the timestamp source behind /health.
func WithClock(c *clock.Clock) Option {
	return func(o *serverOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMaxBodyBytes caps the /echo request body.
func WithMaxBodyBytes(n int64) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(opts ...Option) *Server {
	o := serverOptions{maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get()
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.sleeper == nil {
		o.sleeper = delay.NewSleeper(delay.WithObserver(delayMetrics{}))
	}
	log := o.log.Named("api")

	return &Server{
		rootHandler:   NewRootHandler(),
		healthHandler: NewHealthHandler(o.clock),
		asyncHandler:  NewAsyncHandler(o.sleeper, log),
		echoHandler:   NewEchoHandler(o.maxBodyBytes),
		infoHandler:   NewInfoHandler(),
		log:           log,
	}
}

// Register attaches all fixture routes to mux. Wrong methods on known paths
// answer 404 like unknown paths do.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/{$}", MetricsMiddleware(s.rootHandler.HandleRoot, "root"))
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/async/{delay}", MetricsMiddleware(s.asyncHandler.HandleAsync, "async"))
	mux.HandleFunc("/echo", MetricsMiddleware(s.echoHandler.HandleEcho, "echo"))
	mux.HandleFunc("/info", MetricsMiddleware(s.infoHandler.HandleInfo, "info"))
	mux.HandleFunc("/", MetricsMiddleware(notFound, "unmatched"))
}

// Handler returns the complete fixture handler: routes plus request id and
// access logging.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	s.Register(ctx, mux)
	return RequestIDMiddleware(AccessLogMiddleware(s.log, mux))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", NewKind("api.dispatch", ErrRouteNotFound))
}
