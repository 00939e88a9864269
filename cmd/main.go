package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/okian/mirrorback/internal/app"
	"github.com/okian/mirrorback/internal/config"
	"github.com/okian/mirrorback/pkg/logger"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info(ctx, "shutdown signal received")
	case err := <-svc.Errors():
		log.Error(ctx, "server failed", logger.Error(err))
		exitCode = 1
	}

	// The signal context is already done; shutdown gets a fresh one.
	if err := svc.Stop(context.Background()); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		exitCode = 1
	}
	if exitCode != 0 {
		_ = logger.Sync()
		os.Exit(exitCode)
	}
}

// newService maps configuration onto service options.
func newService(cfg *config.Config, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log),
		app.WithAddr(cfg.Addr),
		app.WithAdminAddr(cfg.AdminAddr),
		app.WithH2C(cfg.H2C),
		app.WithMaxBodyBytes(cfg.MaxBodyBytes),
		app.WithMaxDelaySeconds(cfg.MaxDelaySeconds),
		app.WithMaxPendingDelays(cfg.MaxPendingDelays),
		app.WithTimeouts(
			time.Duration(cfg.ReadHeaderTimeoutMS)*time.Millisecond,
			time.Duration(cfg.IdleTimeoutMS)*time.Millisecond,
			time.Duration(cfg.ShutdownTimeoutMS)*time.Millisecond,
		),
	)
}
