// Package settings reads and writes the runtime configuration of one service
// (log path, address output path, poll interval) in its store namespace.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ipdrop/internal/store"
)

// Value names inside the service namespace. They match the registry value
// names earlier releases wrote under the service key.
const (
	KeyLogPath      = "log"
	KeyOutputPath   = "ip_log"
	KeyPollInterval = "time_delay"
)

// DefaultPollInterval is used when no interval has been stored
const DefaultPollInterval uint64 = 15 * 60

// ErrInvalidInterval is returned when setting a zero poll interval
var ErrInvalidInterval = errors.New("poll interval must be at least one second")

// ServiceConfig is the persisted runtime configuration of a service
type ServiceConfig struct {
	LogPath      string `json:"log_path"`
	OutputPath   string `json:"output_path"`
	PollInterval uint64 `json:"poll_interval"` // seconds
}

// Interval returns the poll interval as a duration
func (c ServiceConfig) Interval() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// Settings accesses the namespace of one service
type Settings struct {
	store   store.Store
	service string
}

// New creates a settings accessor for service
func New(s store.Store, service string) *Settings {
	return &Settings{store: s, service: service}
}

// Service returns the service name used as namespace
func (s *Settings) Service() string {
	return s.service
}

// DefaultLogPath returns the log path used when none is stored
func DefaultLogPath(service string) string {
	return service + ".log.txt"
}

// DefaultOutputPath returns the output path used when none is stored
func DefaultOutputPath(service string) string {
	return service + ".ip_log.txt"
}

// LogPath returns the stored log path, persisting the default if absent
func (s *Settings) LogPath(ctx context.Context) (string, error) {
	return s.stringOrDefault(ctx, KeyLogPath, DefaultLogPath(s.service))
}

// SetLogPath stores the log path
func (s *Settings) SetLogPath(ctx context.Context, path string) error {
	if err := s.store.SetString(ctx, s.service, KeyLogPath, path); err != nil {
		return fmt.Errorf("failed to set log path: %w", err)
	}
	return nil
}

// OutputPath returns the stored output path, persisting the default if absent
func (s *Settings) OutputPath(ctx context.Context) (string, error) {
	return s.stringOrDefault(ctx, KeyOutputPath, DefaultOutputPath(s.service))
}

// SetOutputPath stores the output path
func (s *Settings) SetOutputPath(ctx context.Context, path string) error {
	if err := s.store.SetString(ctx, s.service, KeyOutputPath, path); err != nil {
		return fmt.Errorf("failed to set output path: %w", err)
	}
	return nil
}

// PollInterval returns the stored poll interval in seconds, persisting the
// default if absent
func (s *Settings) PollInterval(ctx context.Context) (uint64, error) {
	v, err := s.store.GetUint64(ctx, s.service, KeyPollInterval)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("failed to get poll interval: %w", err)
	}

	if err := s.store.SetUint64(ctx, s.service, KeyPollInterval, DefaultPollInterval); err != nil {
		return 0, fmt.Errorf("failed to set default poll interval: %w", err)
	}
	return DefaultPollInterval, nil
}

// SetPollInterval stores the poll interval in seconds
func (s *Settings) SetPollInterval(ctx context.Context, seconds uint64) error {
	if seconds == 0 {
		return ErrInvalidInterval
	}
	if err := s.store.SetUint64(ctx, s.service, KeyPollInterval, seconds); err != nil {
		return fmt.Errorf("failed to set poll interval: %w", err)
	}
	return nil
}

// Load returns the full configuration, persisting defaults for absent values
func (s *Settings) Load(ctx context.Context) (ServiceConfig, error) {
	var (
		cfg ServiceConfig
		err error
	)

	if cfg.LogPath, err = s.LogPath(ctx); err != nil {
		return cfg, err
	}
	if cfg.OutputPath, err = s.OutputPath(ctx); err != nil {
		return cfg, err
	}
	if cfg.PollInterval, err = s.PollInterval(ctx); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// EnsureDefaults persists the default for every value not yet stored
func (s *Settings) EnsureDefaults(ctx context.Context) error {
	_, err := s.Load(ctx)
	return err
}

func (s *Settings) stringOrDefault(ctx context.Context, key, def string) (string, error) {
	v, err := s.store.GetString(ctx, s.service, key)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := s.store.SetString(ctx, s.service, key, def); err != nil {
		return "", fmt.Errorf("failed to set default %s: %w", key, err)
	}
	return def, nil
}
