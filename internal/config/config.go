// Package config defines service configuration structures and loading hooks.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoder: json or console.
	LogFormat string `koanf:"log_format"`

	// Addr configures the fixture listen address, e.g. ":8001".
	Addr string `koanf:"addr"`

	// AdminAddr serves /metrics and /openapi.yaml. Empty disables it.
	AdminAddr string `koanf:"admin_addr"`

	// H2C enables cleartext HTTP/2 on the fixture listener.
	H2C bool `koanf:"h2c"`

	// MaxBodyBytes caps POST /echo request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// MaxDelaySeconds caps GET /async/{delay}. Zero means no cap.
	MaxDelaySeconds int64 `koanf:"max_delay_seconds"`

	// MaxPendingDelays bounds concurrently suspended delayed requests. Zero means no bound.
	MaxPendingDelays int64 `koanf:"max_pending_delays"`

	// Server timeouts in milliseconds. There is no write timeout: delayed
	// responses may legitimately take arbitrarily long.
	ReadHeaderTimeoutMS int `koanf:"read_header_timeout_ms"`
	IdleTimeoutMS       int `koanf:"idle_timeout_ms"`
	ShutdownTimeoutMS   int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "json",
		Addr:                ":8001",
		AdminAddr:           ":9091",
		H2C:                 false,
		MaxBodyBytes:        10 << 20,
		MaxDelaySeconds:     0,
		MaxPendingDelays:    0,
		ReadHeaderTimeoutMS: 5_000,
		IdleTimeoutMS:       60_000,
		ShutdownTimeoutMS:   30_000,
	}
}
