package retry

import (
	"encoding/json"
	"errors"
	"time"
)

// PollConfig defines how often and how long a condition is polled
type PollConfig struct {
	Interval time.Duration `json:"interval"` // Delay between checks
	Timeout  time.Duration `json:"timeout"`  // Give up after this long
}

// UninstallWait is used while waiting for the host to drop a deleted
// service. Deletion is asynchronous and has no completion notification.
var UninstallWait = PollConfig{
	Interval: time.Second,
	Timeout:  5 * time.Second,
}

// StopWait is used while waiting for a service to reach the stopped state
var StopWait = PollConfig{
	Interval: time.Second,
	Timeout:  30 * time.Second,
}

// Validate validates the poll configuration
func (cfg PollConfig) Validate() error {
	if cfg.Interval <= 0 {
		return errors.New("interval must be greater than zero")
	}
	if cfg.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}
	return nil
}

// String returns a JSON string representation of the config
func (cfg PollConfig) String() string {
	data, _ := json.Marshal(cfg)
	return string(data)
}
