// FILE: logtrace/src/internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

// Config is the root configuration for LogTrace.
type Config struct {
	// Internal logging configuration
	Logging *LogConfig `toml:"logging"`

	// Ingestion pipelines
	Pipelines []PipelineConfig `toml:"pipelines"`

	// Query/stream API server
	Server ServerConfig `toml:"server"`

	// Record buffer
	Store StoreConfig `toml:"store"`

	// Gateway usage telemetry client
	Usage UsageConfig `toml:"usage"`

	// Trace candidate scoring policy
	Trace TraceConfig `toml:"trace"`
}

// StoreConfig bounds the in-memory record buffer.
type StoreConfig struct {
	// Maximum number of parsed records kept in memory
	Capacity int `toml:"capacity"`
}

func defaults() *Config {
	return &Config{
		Logging: DefaultLogConfig(),
		Pipelines: []PipelineConfig{
			{
				Name: "default",
				Sources: []SourceConfig{
					{Type: "stdin", Options: map[string]any{}},
				},
			},
		},
		Server: ServerConfig{
			Enabled:    true,
			Host:       "127.0.0.1",
			Port:       8080,
			StatusPath: "/status",
			LogsPath:   "/logs",
			TracePath:  "/trace",
			StreamPath: "/stream",
		},
		Store: StoreConfig{
			Capacity: 10000,
		},
		Usage: UsageConfig{
			TimeoutMS:            5000,
			UsageTTLSeconds:      15,
			CredentialTTLSeconds: 60,
		},
		Trace: DefaultTraceConfig(),
	}
}

// LoadWithCLI builds the effective configuration from defaults, the TOML
// config file, environment variables and CLI arguments, in ascending
// precedence.
func LoadWithCLI(cliArgs []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix("LOGTRACE_").
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, validateConfig(finalConfig)
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = "LOGTRACE_" + env
	return env
}

// GetConfigPath resolves the config file location from the environment,
// falling back to ~/.config/logtrace.toml.
func GetConfigPath() string {
	if configFile := os.Getenv("LOGTRACE_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("LOGTRACE_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("LOGTRACE_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "logtrace.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "logtrace.toml")
	}

	return "logtrace.toml"
}
