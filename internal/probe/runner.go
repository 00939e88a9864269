package probe

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/okian/mirrorback/pkg/logger"
)

// Run executes every conformance check against cfg.BaseURL and returns the
// report. The error wraps ErrChecksFailed when any check failed.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Report, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidConfig, cfg.BaseURL)
	}
	c := cfg.withDefaults()
	client := newHTTPClient(c.BaseURL, c.Timeout)

	log.Info(ctx, "starting conformance probe",
		logger.String("baseURL", c.BaseURL),
		logger.Duration("timeout", c.Timeout),
		logger.Int64("delaySeconds", int64(c.DelaySeconds)),
		logger.Duration("slack", c.Slack))

	report := &Report{StartTime: time.Now()}
	for _, chk := range checks() {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("probe interrupted: %w", err)
		}
		res := runCheck(ctx, chk, client, c)
		report.Results = append(report.Results, res)

		switch {
		case !res.Passed:
			log.Error(ctx, "check failed",
				logger.String("check", res.Name),
				logger.String("detail", res.Detail),
				logger.Duration("duration", res.Duration))
		case c.Verbose:
			log.Info(ctx, "check passed",
				logger.String("check", res.Name),
				logger.Duration("duration", res.Duration))
		}
	}
	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)

	failed := len(report.Failed())
	log.Info(ctx, "probe finished",
		logger.Int("checks", len(report.Results)),
		logger.Int("failed", failed),
		logger.Duration("duration", report.Duration))
	if failed > 0 {
		return report, fmt.Errorf("%w: %d of %d", ErrChecksFailed, failed, len(report.Results))
	}
	return report, nil
}

func runCheck(ctx context.Context, chk check, client *HTTPClient, cfg Config) Result {
	start := time.Now()
	err := chk.run(ctx, client, cfg)
	res := Result{Name: chk.name, Passed: err == nil, Duration: time.Since(start)}
	if err != nil {
		res.Detail = err.Error()
	}
	return res
}
