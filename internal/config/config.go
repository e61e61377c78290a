package config

import "time"

// Config holds client configuration values.
type Config struct {
	APIBaseURL     string        `mapstructure:"api_base_url" yaml:"api_base_url"`
	SocketURL      string        `mapstructure:"socket_url" yaml:"socket_url"`
	SessionPath    string        `mapstructure:"session_path" yaml:"session_path"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	ReconnectBase  time.Duration `mapstructure:"reconnect_base" yaml:"reconnect_base"`
	ReconnectMax   time.Duration `mapstructure:"reconnect_max" yaml:"reconnect_max"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		APIBaseURL:     "http://localhost:5000/api",
		SocketURL:      "ws://localhost:5000/socket",
		SessionPath:    "studiochat.db",
		LogLevel:       "info",
		RequestTimeout: 30 * time.Second,
		ReconnectBase:  time.Second,
		ReconnectMax:   30 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.APIBaseURL != "" {
		c.APIBaseURL = other.APIBaseURL
	}
	if other.SocketURL != "" {
		c.SocketURL = other.SocketURL
	}
	if other.SessionPath != "" {
		c.SessionPath = other.SessionPath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.RequestTimeout != 0 {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.ReconnectBase != 0 {
		c.ReconnectBase = other.ReconnectBase
	}
	if other.ReconnectMax != 0 {
		c.ReconnectMax = other.ReconnectMax
	}
}
