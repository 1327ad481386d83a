// Package config loads and validates the client configuration from JSON or
// YAML files with environment variable substitution.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the chat client.
type Config struct {
	General GeneralConfig `json:"general" yaml:"general"`
	AI      AIConfig      `json:"ai" yaml:"ai"`
	Connect ConnectConfig `json:"connect" yaml:"connect"`
}

type GeneralConfig struct {
	CustomerID   string `json:"customerId" yaml:"customerId"`
	CustomerName string `json:"customerName" yaml:"customerName"`
	LogLevel     string `json:"logLevel" yaml:"logLevel"`
	LogFile      string `json:"logFile,omitempty" yaml:"logFile,omitempty"`
}

type AIConfig struct {
	ProxyBaseURL     string  `json:"proxyBaseUrl" yaml:"proxyBaseUrl"`
	PrimaryProvider  string  `json:"primaryProvider" yaml:"primaryProvider"`
	FallbackProvider string  `json:"fallbackProvider" yaml:"fallbackProvider"`
	MaxTokens        int     `json:"maxTokens" yaml:"maxTokens"`
	Temperature      float64 `json:"temperature" yaml:"temperature"`
	SystemPrompt     string  `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`
	StreamingEnabled bool    `json:"streamingEnabled" yaml:"streamingEnabled"`
}

type ConnectConfig struct {
	Region                   string `json:"region" yaml:"region"`
	AuthAPIURL               string `json:"authApiUrl" yaml:"authApiUrl"`
	HeartbeatIntervalSeconds int    `json:"heartbeatIntervalSeconds" yaml:"heartbeatIntervalSeconds"`
	ConnectionTimeoutSeconds int    `json:"connectionTimeoutSeconds" yaml:"connectionTimeoutSeconds"`
}

// Defaults returns a configuration with sensible defaults. Fields without a
// usable default (auth API URL, proxy URL) stay empty and fail validation
// until set.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			CustomerID:   "anonymous",
			CustomerName: "Customer",
			LogLevel:     "info",
		},
		AI: AIConfig{
			ProxyBaseURL:     "http://localhost:8787",
			PrimaryProvider:  "claude",
			FallbackProvider: "openai",
			MaxTokens:        1024,
			Temperature:      0.7,
			StreamingEnabled: true,
		},
		Connect: ConnectConfig{
			Region:                   "us-east-1",
			HeartbeatIntervalSeconds: 30,
			ConnectionTimeoutSeconds: 10,
		},
	}
}

// DefaultConfigDir returns the per-user config directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".connectchat"
	}
	return filepath.Join(home, ".connectchat")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads a config file (JSON or YAML by extension), substitutes
// environment variables, applies defaults for missing fields, and validates.
func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

// Save writes the config as indented JSON, creating the directory if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks ranges and required relationships. All problems are
// reported together.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.CustomerName == "" {
		errs = append(errs, "general.customerName must not be empty")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.AI.ProxyBaseURL == "" {
		errs = append(errs, "ai.proxyBaseUrl must not be empty")
	}
	if cfg.AI.PrimaryProvider == "" {
		errs = append(errs, "ai.primaryProvider must not be empty")
	}
	if cfg.AI.PrimaryProvider != "" && cfg.AI.PrimaryProvider == cfg.AI.FallbackProvider {
		errs = append(errs, "ai.fallbackProvider must differ from ai.primaryProvider")
	}
	if cfg.AI.MaxTokens < 1 || cfg.AI.MaxTokens > 32768 {
		errs = append(errs, "ai.maxTokens must be between 1 and 32768")
	}
	if cfg.AI.Temperature < 0 || cfg.AI.Temperature > 2 {
		errs = append(errs, "ai.temperature must be between 0 and 2")
	}

	if cfg.Connect.Region == "" {
		errs = append(errs, "connect.region must not be empty")
	}
	if cfg.Connect.HeartbeatIntervalSeconds < 1 {
		errs = append(errs, "connect.heartbeatIntervalSeconds must be >= 1")
	}
	if cfg.Connect.ConnectionTimeoutSeconds < 1 {
		errs = append(errs, "connect.connectionTimeoutSeconds must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
