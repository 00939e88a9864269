// Package probe checks a running backend (or a proxy in front of it) for
// conformance with the fixture's HTTP contract.
package probe

import "time"

// Default probe settings.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultDelaySeconds = 2
	DefaultSlack        = time.Second
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL      string        // Base URL of the backend or proxy
	Timeout      time.Duration // Per-request timeout, delayed requests get delay+Timeout
	DelaySeconds uint64        // Delay used by the timing checks
	Slack        time.Duration // Accepted overshoot on delayed responses
	Verbose      bool          // Log every check, not just failures
}

// Result is the outcome of a single check.
type Result struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report collects the results of a probe run.
type Report struct {
	Results   []Result      `json:"results"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
}

// Failed returns the results that did not pass.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.DelaySeconds == 0 {
		out.DelaySeconds = DefaultDelaySeconds
	}
	if out.Slack <= 0 {
		out.Slack = DefaultSlack
	}
	return out
}
