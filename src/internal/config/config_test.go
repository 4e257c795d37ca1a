// FILE: logtrace/src/internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	cfg := defaults()
	return cfg
}

func TestValidateConfig_Defaults(t *testing.T) {
	assert.NoError(t, validateConfig(validTestConfig()))
}

func TestValidateConfig_Pipelines(t *testing.T) {
	t.Run("NoPipelines", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Pipelines = nil
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("MissingName", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Pipelines[0].Name = ""
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("DuplicateName", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Pipelines = append(cfg.Pipelines, cfg.Pipelines[0])
		err := validateConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate name")
	})

	t.Run("NoSources", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Pipelines[0].Sources = nil
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("UnknownSourceType", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Pipelines[0].Sources = []SourceConfig{{Type: "kafka"}}
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("DirectorySourceRequiresPath", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Pipelines[0].Sources = []SourceConfig{{Type: "directory", Options: map[string]any{}}}
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("DirectoryTraversalRejected", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Pipelines[0].Sources = []SourceConfig{
			{Type: "directory", Options: map[string]any{"path": "../../etc"}},
		}
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("BadFilterRegex", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Pipelines[0].Filters = []FilterConfig{{Patterns: []string{"["}}}
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("FileSinkRequiresDirectoryAndName", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Pipelines[0].Sinks = []SinkConfig{
			{Type: "file", Options: map[string]any{"directory": "/tmp"}},
		}
		assert.Error(t, validateConfig(cfg))
	})
}

func TestValidateConfig_Server(t *testing.T) {
	t.Run("BadPort", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Server.Port = 0
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("DisabledSkipsValidation", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Server.Enabled = false
		cfg.Server.Port = 0
		assert.NoError(t, validateConfig(cfg))
	})

	t.Run("PathMustBeAbsolute", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Server.TracePath = "trace"
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("AuthTypeWithoutConfig", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Server.Auth = &AuthConfig{Type: "basic"}
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("BadIPAccessList", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Server.RateLimit = &RateLimitConfig{IPWhitelist: []string{"not-an-ip"}}
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("CIDRAndBareIPAccepted", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Server.RateLimit = &RateLimitConfig{
			IPWhitelist: []string{"10.0.0.0/8", "192.168.1.1"},
			IPBlacklist: []string{"::1"},
		}
		assert.NoError(t, validateConfig(cfg))
	})
}

func TestValidateConfig_Usage(t *testing.T) {
	t.Run("EmptyEndpointDisabled", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Usage.Endpoint = ""
		assert.NoError(t, validateConfig(cfg))
		assert.False(t, cfg.Usage.Enabled())
	})

	t.Run("ValidEndpoint", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Usage.Endpoint = "http://127.0.0.1:9090"
		assert.NoError(t, validateConfig(cfg))
		assert.True(t, cfg.Usage.Enabled())
	})

	t.Run("BadScheme", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Usage.Endpoint = "ftp://host"
		assert.Error(t, validateConfig(cfg))
	})
}

func TestValidateConfig_Trace(t *testing.T) {
	t.Run("WindowOrdering", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Trace.StrongWindowMS = 20000
		cfg.Trace.WideWindowMS = 10000
		err := validateConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "strong <= wide <= max")
	})

	t.Run("ThresholdOrdering", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Trace.HighThreshold = 30
		cfg.Trace.MediumThreshold = 40
		assert.Error(t, validateConfig(cfg))
	})
}

func TestLoadWithCLI(t *testing.T) {
	t.Run("DefaultsFromEmptyFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logtrace.toml")
		require.NoError(t, os.WriteFile(path, []byte(""), 0644))
		t.Setenv("LOGTRACE_CONFIG_FILE", path)

		cfg, err := LoadWithCLI(nil)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Scanned defaults populate every section
		assert.Equal(t, 10000, cfg.Store.Capacity)
		assert.Equal(t, "/trace", cfg.Server.TracePath)
		assert.Equal(t, 3000, cfg.Trace.StrongWindowMS)
		require.Len(t, cfg.Pipelines, 1)
		assert.Equal(t, "default", cfg.Pipelines[0].Name)
	})

	t.Run("FileOverridesDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logtrace.toml")
		content := `
[store]
capacity = 500

[server]
port = 9000

[trace]
strong_window_ms = 1000
wide_window_ms = 5000
max_window_ms = 15000
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		t.Setenv("LOGTRACE_CONFIG_FILE", path)

		cfg, err := LoadWithCLI(nil)
		require.NoError(t, err)

		assert.Equal(t, 500, cfg.Store.Capacity)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 1000, cfg.Trace.StrongWindowMS)
		// Untouched sections keep their defaults
		assert.Equal(t, "/logs", cfg.Server.LogsPath)
		assert.Equal(t, 8, cfg.Trace.MaxCandidates)
	})
}
