package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"ipdrop/internal/validator"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config represents the bootstrap configuration. Runtime settings that the
// operator changes through flags (log path, output path, poll interval) are
// kept in the settings store instead.
type Config struct {
	InstanceID string        `mapstructure:"instance_id"`
	Service    ServiceConfig `mapstructure:"service"`
	Store      StoreConfig   `mapstructure:"store"`
	Log        LogConfig     `mapstructure:"log"`

	// File is the config file that was read, empty when running on defaults
	File string `mapstructure:"-"`
}

// ServiceConfig represents host service registration
type ServiceConfig struct {
	Name        string `mapstructure:"name" validate:"required,servicename"`
	DisplayName string `mapstructure:"display_name" validate:"required,max=256"`
	Description string `mapstructure:"description"`
	Executable  string `mapstructure:"executable"`
	AutoStart   bool   `mapstructure:"auto_start"`
}

// StoreConfig represents the settings store
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=registry sqlite memory"`
	Path   string `mapstructure:"path"`
}

// LoadConfig loads the bootstrap configuration. An empty path searches the
// default locations and falls back to defaults when no file is found; an
// explicit path must exist.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("yaml")
		}
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(InDot)
		v.AddConfigPath(InHome)
		v.AddConfigPath(InEtc)
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(ex))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.File = v.ConfigFileUsed()

	setDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration made only of defaults
func Default() *Config {
	var config Config
	setDefaults(&config)
	return &config
}

// setDefaults sets default values if not specified
func setDefaults(config *Config) {
	if config.InstanceID == "" {
		config.InstanceID = uuid.New().String()
	}

	if config.Service.Name == "" {
		config.Service.Name = DefaultServiceName
	}

	if config.Service.DisplayName == "" {
		config.Service.DisplayName = DefaultDisplayName
	}

	if config.Service.Description == "" {
		config.Service.Description = DefaultDescription
	}

	if config.Store.Driver == "" {
		config.Store.Driver = "sqlite"
		if runtime.GOOS == "windows" {
			config.Store.Driver = "registry"
		}
	}

	if config.Store.Driver == "sqlite" && config.Store.Path == "" {
		dir := "."
		if ex, err := os.Executable(); err == nil {
			dir = filepath.Dir(ex)
		}
		config.Store.Path = filepath.Join(dir, config.Service.Name+".settings.db")
	}

	config.Log = *config.Log.SetDefaults()
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return err
	}

	if config.Store.Driver == "registry" && runtime.GOOS != "windows" {
		return fmt.Errorf("store driver registry is only available on windows")
	}

	if err := config.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	return nil
}
