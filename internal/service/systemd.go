//go:build !windows

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"ipdrop/internal/retry"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const systemdUnitDir = "/etc/systemd/system"

// CommandRunner runs an external command and returns its combined output
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %w: %s",
			name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// SystemdManager manages the service as a systemd unit
type SystemdManager struct {
	unitDir string
	runner  CommandRunner
	clock   clock.Clock
	logger  *zap.Logger
}

// NewManager returns the manager for this platform
func NewManager(logger *zap.Logger) (Manager, error) {
	if runtime.GOOS != "linux" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
	}
	return NewSystemdManager(systemdUnitDir, execRunner{}, clock.New(), logger), nil
}

// NewSystemdManager creates a manager writing unit files to unitDir
func NewSystemdManager(unitDir string, runner CommandRunner, clk clock.Clock, logger *zap.Logger) *SystemdManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemdManager{
		unitDir: unitDir,
		runner:  runner,
		clock:   clk,
		logger:  logger.Named("systemd"),
	}
}

func unitName(name string) string {
	return name + ".service"
}

func (m *SystemdManager) unitPath(name string) string {
	return filepath.Join(m.unitDir, unitName(name))
}

func (m *SystemdManager) exists(name string) bool {
	_, err := os.Stat(m.unitPath(name))
	return err == nil
}

func (m *SystemdManager) systemctl(ctx context.Context, args ...string) (string, error) {
	return m.runner.Run(ctx, "systemctl", args...)
}

// Install writes the unit file and reloads systemd. The unit is only enabled
// when opts.AutoStart is set.
func (m *SystemdManager) Install(ctx context.Context, opts InstallOptions) error {
	if m.exists(opts.Name) {
		return fmt.Errorf("%w: %s", ErrAlreadyInstalled, opts.Name)
	}

	exe, err := resolveExecutable(opts.Executable)
	if err != nil {
		return err
	}
	m.logger.Info("Service binary", zap.String("path", exe))

	if err := os.WriteFile(m.unitPath(opts.Name), []byte(renderUnit(exe, opts)), 0644); err != nil {
		return fmt.Errorf("write unit: %w", err)
	}

	if _, err := m.systemctl(ctx, "daemon-reload"); err != nil {
		return err
	}
	if opts.AutoStart {
		if _, err := m.systemctl(ctx, "enable", unitName(opts.Name)); err != nil {
			return err
		}
	}

	m.logger.Info("Service install complete", zap.String("unit", unitName(opts.Name)))
	return nil
}

// Uninstall stops and disables the unit, removes its file and waits for
// systemd to forget it.
func (m *SystemdManager) Uninstall(ctx context.Context, name string) error {
	if !m.exists(name) {
		return fmt.Errorf("%w: %s", ErrNotInstalled, name)
	}
	unit := unitName(name)

	var errs error
	if _, err := m.systemctl(ctx, "stop", unit); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := m.systemctl(ctx, "disable", unit); err != nil {
		errs = multierr.Append(errs, err)
	}

	m.logger.Info("Delete service", zap.String("unit", unit))
	if err := os.Remove(m.unitPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return multierr.Append(errs, fmt.Errorf("remove unit: %w", err))
	}
	if _, err := m.systemctl(ctx, "daemon-reload"); err != nil {
		return multierr.Append(errs, err)
	}

	m.logger.Info("Wait for service deletion")
	err := retry.Poll(ctx, m.clock, retry.UninstallWait, func(ctx context.Context) (bool, error) {
		out, err := m.systemctl(ctx, "show", "-p", "LoadState", "--value", unit)
		if err != nil {
			return false, nil
		}
		return strings.TrimSpace(out) == "not-found", nil
	})
	switch {
	case errors.Is(err, retry.ErrTimeout):
		m.logger.Warn("Service still known to systemd", zap.String("unit", unit))
	case err != nil:
		errs = multierr.Append(errs, err)
	default:
		m.logger.Info("Uninstalled service", zap.String("unit", unit))
	}

	return errs
}

// Restart stops then starts the unit. systemctl waits for each job.
func (m *SystemdManager) Restart(ctx context.Context, name string) error {
	if !m.exists(name) {
		return fmt.Errorf("%w: %s", ErrNotInstalled, name)
	}
	unit := unitName(name)

	m.logger.Info("Restart service", zap.String("unit", unit))
	if _, err := m.systemctl(ctx, "stop", unit); err != nil {
		return err
	}
	if _, err := m.systemctl(ctx, "start", unit); err != nil {
		return err
	}
	return nil
}

func renderUnit(exe string, opts InstallOptions) string {
	execStart := append([]string{exe}, opts.Args...)
	for i, a := range execStart {
		if strings.ContainsAny(a, " \t\"") {
			execStart[i] = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		}
	}

	description := opts.DisplayName
	if opts.Description != "" {
		description = opts.Description
	}

	return fmt.Sprintf(`[Unit]
Description=%s
After=network.target

[Service]
Type=simple
ExecStart=%s
WorkingDirectory=%s
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`, description, strings.Join(execStart, " "), filepath.Dir(exe))
}
