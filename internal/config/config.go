// Package config provides configuration loading for the genai-probe CLI.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. Each section is mapped onto the owning package's config by the
// command layer.
package config

import (
	"fmt"
	"time"
)

// Config holds the complete genai-probe configuration.
type Config struct {
	OpenAI    OpenAIConfig    `koanf:"openai"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// OpenAIConfig holds the chat completion target.
type OpenAIConfig struct {
	// BaseURL is the API base URL. Any OpenAI-compatible endpoint works
	// (e.g. a local vLLM or llama.cpp server).
	BaseURL string `koanf:"base_url"`

	// Model is the model requested for chat completions.
	Model string `koanf:"model"`

	// APIKey authenticates against the API. Redacted in logs.
	APIKey Secret `koanf:"api_key"`
}

// LoggingConfig holds diagnostic logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, console
}

// TelemetryConfig holds OTLP export settings.
type TelemetryConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Endpoint string   `koanf:"endpoint"`
	Protocol string   `koanf:"protocol"` // grpc, http/protobuf
	Insecure bool     `koanf:"insecure"`
	Timeout  Duration `koanf:"timeout"`
}

// NewDefaultConfig returns probe defaults: the public OpenAI endpoint and a
// local OTLP collector.
func NewDefaultConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Enabled:  true,
			Endpoint: "localhost:4317",
			Protocol: "grpc",
			Insecure: true,
			Timeout:  Duration(5 * time.Second),
		},
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.OpenAI.BaseURL == "" {
		return fmt.Errorf("openai.base_url is required")
	}
	if c.OpenAI.Model == "" {
		return fmt.Errorf("openai.model is required")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
		}
		switch c.Telemetry.Protocol {
		case "grpc", "http/protobuf":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol)
		}
		if c.Telemetry.Timeout.Duration() <= 0 {
			return fmt.Errorf("telemetry.timeout must be positive")
		}
	}
	return nil
}
