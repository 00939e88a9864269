package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/okian/mirrorback/internal/probe"
	"github.com/okian/mirrorback/pkg/logger"
)

var app = &cli.App{ //nolint:gochecknoglobals // cli application definition
	Name:            "probe",
	Usage:           "check a mirrorback backend, or a proxy in front of it, against the fixture contract",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Usage:   "base URL of the backend or proxy",
			Aliases: []string{"u"},
			Value:   "http://localhost:8001",
			EnvVars: []string{"PROBE_URL"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "per-request timeout, added on top of the delay for delayed requests",
			Value:   probe.DefaultTimeout,
			EnvVars: []string{"PROBE_TIMEOUT"},
		},
		&cli.Uint64Flag{
			Name:    "delay",
			Usage:   "delay in seconds used by the timing checks",
			Aliases: []string{"d"},
			Value:   probe.DefaultDelaySeconds,
			EnvVars: []string{"PROBE_DELAY"},
		},
		&cli.DurationFlag{
			Name:    "slack",
			Usage:   "accepted overshoot on delayed responses",
			Value:   probe.DefaultSlack,
			EnvVars: []string{"PROBE_SLACK"},
		},
		&cli.BoolFlag{
			Name:    "json",
			Usage:   "print the report as JSON on stdout",
			EnvVars: []string{"PROBE_JSON"},
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "log passing checks too",
			Aliases: []string{"v"},
			EnvVars: []string{"PROBE_VERBOSE"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "set the log level. Options: debug, info, warn, error.",
			Value:   "info",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "set the log format. Options: json, console.",
			Value:   logger.FormatConsole,
			EnvVars: []string{"LOG_FORMAT"},
		},
	},
	Before: func(c *cli.Context) error {
		if err := logger.InitWithFormat(c.String("log-format")); err != nil {
			return err
		}
		return logger.SetLevelString(c.String("log-level"))
	},
	After: func(*cli.Context) error {
		return logger.Sync()
	},
	Action: runProbe,
}

func runProbe(c *cli.Context) error {
	cfg := &probe.Config{
		BaseURL:      c.String("url"),
		Timeout:      c.Duration("timeout"),
		DelaySeconds: c.Uint64("delay"),
		Slack:        c.Duration("slack"),
		Verbose:      c.Bool("verbose"),
	}

	report, err := probe.Run(c.Context, cfg, logger.Named("probe"))
	if report != nil && c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return fmt.Errorf("write report: %w", encErr)
		}
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called above
	}
}
