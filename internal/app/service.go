// Package service assembles the fixture handler set and the HTTP listeners
// that serve it.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/okian/mirrorback/internal/adapters/http/api"
	"github.com/okian/mirrorback/internal/adapters/http/site"
	"github.com/okian/mirrorback/internal/adapters/http/swagger"
	"github.com/okian/mirrorback/internal/domain/delay"
	"github.com/okian/mirrorback/pkg/logger"
	"github.com/okian/mirrorback/pkg/metrics"
)

// Sentinel kinds for service errors.
var (
	ErrAlreadyStarted = errors.New("service already started")
	ErrListen         = errors.New("listen failed")
)

// Service owns the fixture listener and the optional admin listener.
type Service struct {
	mu sync.Mutex

	// Configuration
	addr              string
	adminAddr         string
	h2c               bool
	maxBodyBytes      int64
	maxDelaySeconds   uint64
	maxPendingDelays  int64
	readHeaderTimeout time.Duration
	idleTimeout       time.Duration
	shutdownTimeout   time.Duration

	// State
	started      bool
	fixture      *http.Server
	admin        *http.Server
	fixtureAddr  net.Addr
	adminBound   net.Addr
	serveErrs    chan error
	serveWorkers sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithAddr sets the fixture listen address.
func WithAddr(addr string) Option {
	return func(s *Service) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithAdminAddr sets the admin listen address. Empty disables the admin listener.
func WithAdminAddr(addr string) Option {
	return func(s *Service) {
		s.adminAddr = addr
	}
}

// WithH2C enables cleartext HTTP/2 on the fixture listener.
func WithH2C(enabled bool) Option {
	return func(s *Service) {
		s.h2c = enabled
	}
}

// WithMaxBodyBytes caps /echo request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithMaxDelaySeconds caps /async/{delay}. Zero disables the cap.
func WithMaxDelaySeconds(n int64) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxDelaySeconds = uint64(n)
		}
	}
}

// WithMaxPendingDelays bounds concurrently suspended delayed requests.
func WithMaxPendingDelays(n int64) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxPendingDelays = n
		}
	}
}

// WithTimeouts sets server timeouts. Non-positive values keep the defaults.
func WithTimeouts(readHeader, idle, shutdown time.Duration) Option {
	return func(s *Service) {
		if readHeader > 0 {
			s.readHeaderTimeout = readHeader
		}
		if idle > 0 {
			s.idleTimeout = idle
		}
		if shutdown > 0 {
			s.shutdownTimeout = shutdown
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		addr:              ":8001",
		adminAddr:         ":9091",
		maxBodyBytes:      10 << 20,
		readHeaderTimeout: 5 * time.Second,
		idleTimeout:       60 * time.Second,
		shutdownTimeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listeners and begins serving in the background. Bind
// errors are returned synchronously.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	sleeper := delay.NewSleeper(
		delay.WithMaxSeconds(s.maxDelaySeconds),
		delay.WithMaxPending(s.maxPendingDelays),
		delay.WithObserver(api.DelayObserver()),
	)
	apiServer := api.NewServer(
		api.WithLogger(s.logger),
		api.WithSleeper(sleeper),
		api.WithMaxBodyBytes(s.maxBodyBytes),
	)

	var handler http.Handler = apiServer.Handler(ctx)
	if s.h2c {
		handler = h2c.NewHandler(handler, &http2.Server{IdleTimeout: s.idleTimeout})
	}

	var lc net.ListenConfig
	fixtureLn, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%w: fixture %s: %w", ErrListen, s.addr, err)
	}

	var adminLn net.Listener
	if s.adminAddr != "" {
		adminLn, err = lc.Listen(ctx, "tcp", s.adminAddr)
		if err != nil {
			_ = fixtureLn.Close()
			return fmt.Errorf("%w: admin %s: %w", ErrListen, s.adminAddr, err)
		}
	}

	// No WriteTimeout: delayed responses may legitimately take arbitrarily long.
	s.fixture = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: s.readHeaderTimeout,
		IdleTimeout:       s.idleTimeout,
	}
	s.fixtureAddr = fixtureLn.Addr()
	s.serveErrs = make(chan error, 2)
	s.serve(ctx, "fixture", s.fixture, fixtureLn)

	if adminLn != nil {
		s.admin = &http.Server{
			Handler:           adminMux(ctx),
			ReadHeaderTimeout: s.readHeaderTimeout,
			IdleTimeout:       s.idleTimeout,
		}
		s.adminBound = adminLn.Addr()
		s.serve(ctx, "admin", s.admin, adminLn)
	}

	s.started = true
	s.logger.Info(ctx, "mirrorback started",
		logger.String("addr", s.fixtureAddr.String()),
		logger.String("admin_addr", s.adminAddrString()),
		logger.Bool("h2c", s.h2c),
		logger.Int64("max_delay_seconds", int64(s.maxDelaySeconds)),
		logger.Int64("max_pending_delays", s.maxPendingDelays),
	)
	return nil
}

func (s *Service) serve(ctx context.Context, name string, srv *http.Server, ln net.Listener) {
	s.serveWorkers.Add(1)
	go func() {
		defer s.serveWorkers.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "HTTP server failed", logger.String("server", name), logger.Error(err))
			s.serveErrs <- fmt.Errorf("%s: %w", name, err)
		}
	}()
}

// adminMux serves operational endpoints that must stay off the fixture port.
func adminMux(ctx context.Context) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// Errors reports fatal serve errors from either listener.
func (s *Service) Errors() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveErrs
}

// Addr returns the bound fixture address, or nil before Start.
func (s *Service) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fixtureAddr
}

// AdminAddr returns the bound admin address, or nil when disabled.
func (s *Service) AdminAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adminBound
}

func (s *Service) adminAddrString() string {
	if s.adminBound == nil {
		return "disabled"
	}
	return s.adminBound.String()
}

// Stop gracefully shuts down both listeners, waiting up to the shutdown
// timeout for in-flight requests (including suspended delays).
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping mirrorback...")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.fixture.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("fixture shutdown: %w", err))
		_ = s.fixture.Close()
	}
	if s.admin != nil {
		if err := s.admin.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("admin shutdown: %w", err))
			_ = s.admin.Close()
		}
	}
	s.serveWorkers.Wait()

	s.started = false
	s.logger.Info(ctx, "mirrorback stopped")
	return errors.Join(errs...)
}
