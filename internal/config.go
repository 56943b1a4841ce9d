package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	envBaseURL    = "UCP_BASE_URL"
	envAPIKey     = "UCP_API_KEY"
	envTimeout    = "UCP_TIMEOUT"
	envMaxRetries = "UCP_MAX_RETRIES"
	envProject    = "UCP_PROJECT"

	DefaultProject = "default"
)

type Config struct {
	BaseURL    string  `yaml:"base_url" json:"base_url"`
	APIKey     string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	Timeout    int     `yaml:"timeout" json:"timeout"` // seconds
	MaxRetries int     `yaml:"max_retries" json:"max_retries"`
	Project    string  `yaml:"project" json:"project"`
	RateLimit  float64 `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"` // requests per second, 0 = unlimited
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:    DefaultBaseURL,
		Timeout:    int(DefaultTimeout / time.Second),
		MaxRetries: DefaultMaxRetries,
		Project:    DefaultProject,
	}
}

// ClientConfig converts the file representation into connection settings.
func (c *Config) ClientConfig() ClientConfig {
	cc := DefaultClientConfig()
	cc.BaseURL = c.BaseURL
	cc.APIKey = c.APIKey
	cc.Timeout = time.Duration(c.Timeout) * time.Second
	cc.MaxRetries = c.MaxRetries
	return cc
}

func LoadConfig(scope Scope) (*Config, error) {
	path := scope.ConfigPath()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

func SaveConfig(scope Scope, cfg *Config) error {
	path := scope.ConfigPath()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(scope.UcpPath, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// ApplyEnv overrides cfg with any UCP_* environment variables that are set.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(envBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := getenv(envAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := getenv(envProject); v != "" {
		cfg.Project = v
	}
	if v := getenv(envTimeout); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: "timeout", Reason: fmt.Sprintf("%s=%q is not an integer", envTimeout, v)}
		}
		cfg.Timeout = n
	}
	if v := getenv(envMaxRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: "max_retries", Reason: fmt.Sprintf("%s=%q is not an integer", envMaxRetries, v)}
		}
		cfg.MaxRetries = n
	}
	return nil
}
