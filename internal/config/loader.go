package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envTemplateRe = regexp.MustCompile(`\$\{(\w+)\}`)

// Load reads a YAML config file, expands ${ENV_VAR} templates, and
// applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnvTemplates(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config with only the defaults applied, used when no
// config file is present.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// expandEnvTemplates replaces ${VAR} with the environment value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// ApplyDefaults fills zero-value fields with sensible defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model.Model == "" {
		cfg.Model.Model = "gpt-4o-mini"
	}
	if cfg.Model.Temperature == 0 {
		cfg.Model.Temperature = 0.3
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = 1000
	}
	if cfg.Weather.APIKey == "" {
		cfg.Weather.APIKey = os.Getenv("WEATHERAPI_API_KEY")
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 1024
	}
}
