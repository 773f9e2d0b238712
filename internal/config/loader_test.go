package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithFile_Defaults(t *testing.T) {
	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.Timeout.Duration())
}

func TestLoadWithFile_YAML(t *testing.T) {
	content := `
openai:
  base_url: http://localhost:8000/v1
  model: llama-3.1-8b
  api_key: sk-local
logging:
  level: debug
  format: json
telemetry:
  endpoint: localhost:4318
  protocol: http/protobuf
  timeout: 10s
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "llama-3.1-8b", cfg.OpenAI.Model)
	assert.Equal(t, "sk-local", cfg.OpenAI.APIKey.Value())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "http/protobuf", cfg.Telemetry.Protocol)
	assert.Equal(t, 10*time.Second, cfg.Telemetry.Timeout.Duration())
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	content := `
openai:
  model: from-file
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("GENAI_PROBE_OPENAI_MODEL", "from-env")
	t.Setenv("GENAI_PROBE_OPENAI_BASE_URL", "http://localhost:9999/v1")
	t.Setenv("GENAI_PROBE_TELEMETRY_ENDPOINT", "localhost:14317")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.OpenAI.Model)
	assert.Equal(t, "http://localhost:9999/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "localhost:14317", cfg.Telemetry.Endpoint)
}

func TestLoadWithFile_InvalidConfig(t *testing.T) {
	content := `
logging:
  format: xml
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadWithFile_RejectsOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	big := make([]byte, maxConfigFileSize+1)
	require.NoError(t, os.WriteFile(path, big, 0600))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file too large")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.OpenAI.BaseURL = "" },
			wantErr: "openai.base_url",
		},
		{
			name:    "missing model",
			mutate:  func(c *Config) { c.OpenAI.Model = "" },
			wantErr: "openai.model",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "bad telemetry protocol",
			mutate:  func(c *Config) { c.Telemetry.Protocol = "smtp" },
			wantErr: "telemetry.protocol",
		},
		{
			name:    "missing telemetry endpoint",
			mutate:  func(c *Config) { c.Telemetry.Endpoint = "" },
			wantErr: "telemetry.endpoint",
		},
		{
			name:    "non-positive timeout",
			mutate:  func(c *Config) { c.Telemetry.Timeout = 0 },
			wantErr: "telemetry.timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_TelemetryDisabledSkipsTelemetryValidation(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Telemetry.Enabled = false
	cfg.Telemetry.Endpoint = ""
	assert.NoError(t, cfg.Validate())
}
