// SPDX-License-Identifier: Apache-2.0
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for an MWA endpoint process: the
// endpoint's call timeout and framing, and its logging policy.
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// EndpointConfig governs a single RpcEndpoint's timing behavior.
type EndpointConfig struct {
	// CallTimeout is the default per-call timeout applied when a caller
	// does not override it.
	CallTimeout time.Duration `yaml:"call_timeout"`
	// Transport selects the framing used over the underlying stream:
	// "length_prefixed" or "line".
	Transport string `yaml:"transport"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputFile string `yaml:"output_file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			CallTimeout: 90 * time.Second,
			Transport:   "length_prefixed",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputFile: "~/.mwa/logs/endpoint.log",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// TestConfig returns a configuration suitable for testing: short timeouts
// and console-formatted debug logging.
func TestConfig() *Config {
	config := DefaultConfig()
	config.Endpoint.CallTimeout = 2 * time.Second
	config.Logging.Level = "debug"
	config.Logging.Format = "console"
	return config
}

func expandHome(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// LoadConfig loads configuration from file, writing a default file first if
// none exists.
func LoadConfig(configPath string) (*Config, error) {
	configPath, err := expandHome(configPath)
	if err != nil {
		return nil, err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// SaveConfig saves configuration to file.
func SaveConfig(config *Config, configPath string) error {
	configPath, err := expandHome(configPath)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default configuration file path.
func GetConfigPath() string {
	if configPath := os.Getenv("MWA_CONFIG"); configPath != "" {
		return configPath
	}
	return "~/.mwa/config.yaml"
}

// LoadConfigWithFallback loads config with a test fallback based on
// RUN_MODE, falling back to defaults on any load error rather than
// failing the process.
func LoadConfigWithFallback(logger *zap.Logger) (*Config, error) {
	runMode := os.Getenv("RUN_MODE")

	if runMode == "test" {
		if logger != nil {
			logger.Info("using test configuration (RUN_MODE=test)")
		}
		return TestConfig(), nil
	}

	configPath := GetConfigPath()
	config, err := LoadConfig(configPath)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to load config, using defaults",
				zap.String("config_path", configPath),
				zap.Error(err))
		}
		return DefaultConfig(), nil
	}

	if logger != nil {
		logger.Info("configuration loaded successfully",
			zap.String("config_path", configPath))
	}

	return config, nil
}
