// Package service registers the executable with the host service manager
// and runs the polling loop under it.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ipdrop/internal/poller"
)

var (
	// ErrUnsupported is returned on platforms without a supported service manager
	ErrUnsupported = errors.New("service management is not supported on this platform")
	// ErrAlreadyInstalled is returned when installing over an existing service
	ErrAlreadyInstalled = errors.New("service already installed")
	// ErrNotInstalled is returned when the service does not exist
	ErrNotInstalled = errors.New("service not installed")
)

// InstallOptions describes the service to register
type InstallOptions struct {
	Executable  string
	Name        string
	DisplayName string
	Description string
	Args        []string
	AutoStart   bool
}

// Manager performs lifecycle operations against the host service manager.
// Every call is synchronous.
type Manager interface {
	Install(ctx context.Context, opts InstallOptions) error
	Uninstall(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
}

// Runner is the long running work executed under the host
type Runner interface {
	Run(ctx context.Context, stop <-chan struct{}, notifier poller.StatusNotifier) error
}

// resolveExecutable returns exe, or the running executable when exe is empty
func resolveExecutable(exe string) (string, error) {
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return "", fmt.Errorf("resolve executable: %w", err)
		}
	}

	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Abs(exe)
}
