package domain

import (
	"errors"
	"time"

	"go.trai.ch/zerr"
)

// Backend kinds.
const (
	BackendHTTP = "http"
	BackendFile = "file"
)

// Telemetry kinds.
const (
	TelemetryNone     = "none"
	TelemetryOTel     = "otel"
	TelemetryProgrock = "progrock"
)

const (
	// DefaultConfigFile is the config file looked up in the working directory.
	DefaultConfigFile = "claimgraph.yaml"
	// ConfigEnvVar overrides the config file location.
	ConfigEnvVar = "CLAIMGRAPH_CONFIG"
	// DefaultBaseURL is the backend address used when none is configured.
	DefaultBaseURL = "http://localhost:5000"
	// DefaultTimeout bounds a single backend request.
	DefaultTimeout = 30 * time.Second
	// DefaultServerAddr is the listen address of the serve command.
	DefaultServerAddr = ":8080"
)

// Config is the resolved application configuration.
type Config struct {
	Backend    BackendConfig
	Navigation NavigationConfig
	Layout     LayoutConfig
	Log        LogConfig
	Telemetry  TelemetryConfig
	Server     ServerConfig
}

// BackendConfig selects and configures the fetch collaborator.
type BackendConfig struct {
	Kind        string
	BaseURL     string
	FixturesDir string
	Timeout     time.Duration
	StrictEdges bool
}

// NavigationConfig tunes the navigation controller.
type NavigationConfig struct {
	PrefetchAncestors bool
}

// LayoutConfig holds the per-level layout parameters.
type LayoutConfig struct {
	Levels [LevelCount]LayoutParams
}

// For returns the parameters of a level.
func (c LayoutConfig) For(level Level) LayoutParams {
	if !level.Valid() {
		return DefaultLayoutParams(LevelClaims)
	}
	return c.Levels[level]
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string
	JSON  bool
}

// TelemetryConfig selects the tracer.
type TelemetryConfig struct {
	Kind string
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{
		Backend: BackendConfig{
			Kind:    BackendHTTP,
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Navigation: NavigationConfig{PrefetchAncestors: true},
		Log:        LogConfig{Level: "info"},
		Telemetry:  TelemetryConfig{Kind: TelemetryNone},
		Server:     ServerConfig{Addr: DefaultServerAddr},
	}
	for _, level := range Levels {
		cfg.Layout.Levels[level] = DefaultLayoutParams(level)
	}
	return cfg
}

// Validate checks the cross-field constraints of the configuration.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendHTTP:
		if c.Backend.BaseURL == "" {
			return zerr.With(zerr.Wrap(ErrInvalidConfig, "backend.base_url is required"), "kind", c.Backend.Kind)
		}
	case BackendFile:
		if c.Backend.FixturesDir == "" {
			return zerr.With(zerr.Wrap(ErrInvalidConfig, "backend.fixtures_dir is required"), "kind", c.Backend.Kind)
		}
	default:
		return zerr.With(zerr.Wrap(ErrInvalidConfig, "unknown backend kind"), "kind", c.Backend.Kind)
	}

	switch c.Telemetry.Kind {
	case TelemetryNone, TelemetryOTel, TelemetryProgrock:
	default:
		return zerr.With(zerr.Wrap(ErrInvalidConfig, "unknown telemetry kind"), "kind", c.Telemetry.Kind)
	}

	for _, level := range Levels {
		if err := c.Layout.Levels[level].Validate(); err != nil {
			return zerr.With(errors.Join(ErrInvalidConfig, err), "level", level.String())
		}
	}
	return nil
}
