package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	TypingTTL         time.Duration `mapstructure:"typing_ttl" yaml:"typing_ttl"`
	HistoryLimit      int           `mapstructure:"history_limit" yaml:"history_limit"`
	// JWTSecret verifies identity tokens when set. Empty means tokens
	// are read without signature verification.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret,omitempty"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		DatabasePath:      "chatlive.db",
		LogLevel:          "info",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		TypingTTL:         3 * time.Second,
		HistoryLimit:      200,
	}
}
