// Package config defines relay configuration structures and loading hooks.
//
// Conventions:
// - Configuration is built once at startup and never mutated afterwards.
// - Provide New(ctx) to build a Config with defaults.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Default values applied by New.
const (
	defaultAddr             = ":8080"
	defaultOpsAddr          = ":9091"
	defaultAllowedOrigin    = "*"
	defaultPreflightMaxAge  = 86400
	defaultUpstreamTimeout  = 30 * time.Second
	defaultMaxBodyBytes     = 1 << 20
	defaultMaxResponseBytes = 4 << 20
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, also writes logs to a rotated file.
	LogFile string `koanf:"log_file"`

	// Addr is the relay listen address, e.g. ":8080". Every path on it relays.
	Addr string `koanf:"addr"`

	// OpsAddr serves health, metrics and API docs. Empty disables it.
	OpsAddr string `koanf:"ops_addr"`

	// UpstreamURL is the fixed endpoint every payload is forwarded to.
	UpstreamURL string `koanf:"upstream_url"`

	// AllowedOrigin is returned verbatim in Access-Control-Allow-Origin.
	AllowedOrigin string `koanf:"allowed_origin"`

	// PreflightMaxAge is the Access-Control-Max-Age in seconds; 0 omits it.
	PreflightMaxAge int `koanf:"preflight_max_age"`

	// UpstreamTimeout bounds the outbound call; 0 means no client timeout.
	UpstreamTimeout time.Duration `koanf:"upstream_timeout"`

	// MaxBodyBytes caps the inbound request body.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// MaxResponseBytes caps how much of the upstream body is relayed back.
	MaxResponseBytes int64 `koanf:"max_response_bytes"`
}

// New creates a Config populated with defaults. UpstreamURL has no default
// and must be supplied by a file or the environment.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             defaultAddr,
		OpsAddr:          defaultOpsAddr,
		AllowedOrigin:    defaultAllowedOrigin,
		PreflightMaxAge:  defaultPreflightMaxAge,
		UpstreamTimeout:  defaultUpstreamTimeout,
		MaxBodyBytes:     defaultMaxBodyBytes,
		MaxResponseBytes: defaultMaxResponseBytes,
	}
}

// Validate reports the first invalid field, wrapped with ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case strings.TrimSpace(c.AllowedOrigin) == "":
		return invalid("allowed_origin must not be empty")
	case c.PreflightMaxAge < 0:
		return invalid("preflight_max_age must not be negative")
	case c.UpstreamTimeout < 0:
		return invalid("upstream_timeout must not be negative")
	case c.MaxBodyBytes <= 0:
		return invalid("max_body_bytes must be positive")
	case c.MaxResponseBytes <= 0:
		return invalid("max_response_bytes must be positive")
	}
	return validateUpstreamURL(c.UpstreamURL)
}

func validateUpstreamURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return invalid("upstream_url must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: upstream_url: %w", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("upstream_url must use http or https")
	}
	if u.Host == "" {
		return invalid("upstream_url must include a host")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
