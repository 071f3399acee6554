// Package config loads region-server settings: built-in defaults, then an
// optional YAML file, then REGION_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/skyregion/internal/logging"
	"github.com/signalsfoundry/skyregion/internal/observability"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "REGION_"

// Config is the complete region-server configuration.
type Config struct {
	GRPCAddr    string                      `yaml:"grpc_addr" env:"GRPC_ADDR"`
	MetricsAddr string                      `yaml:"metrics_addr" env:"METRICS_ADDR"`
	Log         logging.Config              `yaml:"log" envPrefix:"LOG_"`
	Tracing     observability.TracingConfig `yaml:"tracing" envPrefix:"TRACING_"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		GRPCAddr:    ":50051",
		MetricsAddr: ":9090",
		Log: logging.Config{
			Level:  "info",
			Format: "text",
		},
		Tracing: observability.DefaultTracingConfig(),
	}
}

// Load builds a Config from defaults, the YAML file at path and the
// environment. An empty path skips the file; a missing file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GRPCAddr) == "" {
		return errors.New("grpc_addr is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}
