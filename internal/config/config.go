// Package config loads the Wayfarer configuration.
package config

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Model   ModelConfig   `yaml:"model"`
	Weather WeatherConfig `yaml:"weather"`
	Events  EventsConfig  `yaml:"events"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RedisConfig holds the session store settings. With Enabled false the
// server runs on the in-memory store, which is enough for local work but
// loses conversations on restart.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ModelConfig configures the OpenAI-compatible chat model used by both
// recommendation agents.
type ModelConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// WeatherConfig configures the WeatherAPI client.
type WeatherConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `yaml:"buffer_size"`
}
