package logger

import "fmt"

// Config represents logging configuration
type Config struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`    // debug, info, warn, error
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns the logging defaults used when nothing is configured
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// SetDefaults fills zero values and returns a copy
func (cfg *Config) SetDefaults() *Config {
	out := *cfg
	def := DefaultConfig()
	if out.Level == "" {
		out.Level = def.Level
	}
	if out.MaxSize == 0 {
		out.MaxSize = def.MaxSize
	}
	if out.MaxBackups == 0 {
		out.MaxBackups = def.MaxBackups
	}
	if out.MaxAge == 0 {
		out.MaxAge = def.MaxAge
	}
	return &out
}

// Validate validates logging configuration
func (cfg *Config) Validate() error {
	if cfg.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive")
	}
	if cfg.MaxBackups < 0 || cfg.MaxAge < 0 {
		return fmt.Errorf("max_backups and max_age cannot be negative")
	}
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}
	return nil
}
