//go:build windows

package service

import (
	"context"
	"errors"
	"fmt"

	"ipdrop/internal/retry"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// SCMManager manages the service through the Windows service control manager
type SCMManager struct {
	clock  clock.Clock
	logger *zap.Logger
}

// NewManager returns the manager for this platform
func NewManager(logger *zap.Logger) (Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SCMManager{clock: clock.New(), logger: logger.Named("scm")}, nil
}

func (m *SCMManager) connect() (*mgr.Mgr, error) {
	m.logger.Info("Connecting to Service Manager")
	sm, err := mgr.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect to service manager: %w", err)
	}
	return sm, nil
}

func openService(sm *mgr.Mgr, name string) (*mgr.Service, error) {
	s, err := sm.OpenService(name)
	if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotInstalled, name, err)
	}
	if err != nil {
		return nil, fmt.Errorf("open service %s: %w", name, err)
	}
	return s, nil
}

// Install creates an own-process service, demand-start unless AutoStart
func (m *SCMManager) Install(_ context.Context, opts InstallOptions) (err error) {
	exe, err := resolveExecutable(opts.Executable)
	if err != nil {
		return err
	}
	m.logger.Info("Service binary", zap.String("path", exe))

	sm, err := m.connect()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sm.Disconnect()) }()

	startType := uint32(mgr.StartManual)
	if opts.AutoStart {
		startType = mgr.StartAutomatic
	}

	m.logger.Info("Create service", zap.String("service", opts.Name))
	s, err := sm.CreateService(opts.Name, exe, mgr.Config{
		ServiceType:  windows.SERVICE_WIN32_OWN_PROCESS,
		StartType:    startType,
		ErrorControl: mgr.ErrorNormal,
		DisplayName:  opts.DisplayName,
		Description:  opts.Description,
	}, opts.Args...)
	if errors.Is(err, windows.ERROR_SERVICE_EXISTS) {
		return fmt.Errorf("%w: %s", ErrAlreadyInstalled, opts.Name)
	}
	if err != nil {
		return fmt.Errorf("create service %s: %w", opts.Name, err)
	}
	defer func() { err = multierr.Append(err, s.Close()) }()

	m.logger.Info("Service install complete")
	return nil
}

// Uninstall marks the service for deletion, stops it when running and
// polls until the SCM has removed it. Deletion completes only after the
// service stopped and every handle to it is closed.
func (m *SCMManager) Uninstall(ctx context.Context, name string) (err error) {
	sm, err := m.connect()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sm.Disconnect()) }()

	s, err := openService(sm, name)
	if err != nil {
		return err
	}

	m.logger.Info("Delete service", zap.String("service", name))
	if err := s.Delete(); err != nil {
		return multierr.Append(fmt.Errorf("delete service %s: %w", name, err), s.Close())
	}

	status, err := s.Query()
	if err != nil {
		return multierr.Append(fmt.Errorf("query service %s: %w", name, err), s.Close())
	}
	if status.State != svc.Stopped {
		if _, err := s.Control(svc.Stop); err != nil {
			return multierr.Append(fmt.Errorf("stop service %s: %w", name, err), s.Close())
		}
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("close service %s: %w", name, err)
	}

	m.logger.Info("Wait for service deletion")
	err = retry.Poll(ctx, m.clock, retry.UninstallWait, func(context.Context) (bool, error) {
		s, err := sm.OpenService(name)
		if err == nil {
			_ = s.Close()
			return false, nil
		}
		return errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST), nil
	})
	switch {
	case errors.Is(err, retry.ErrTimeout):
		m.logger.Warn("Service still registered, it will be removed once released",
			zap.String("service", name))
		return nil
	case err != nil:
		return err
	}

	m.logger.Info("Uninstalled service", zap.String("service", name))
	return nil
}

// Restart stops the service, waits until it reports stopped and starts it
func (m *SCMManager) Restart(ctx context.Context, name string) (err error) {
	sm, err := m.connect()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sm.Disconnect()) }()

	s, err := openService(sm, name)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, s.Close()) }()

	m.logger.Info("Restart service", zap.String("service", name))
	if _, err := s.Control(svc.Stop); err != nil && !errors.Is(err, windows.ERROR_SERVICE_NOT_ACTIVE) {
		return fmt.Errorf("stop service %s: %w", name, err)
	}

	err = retry.Poll(ctx, m.clock, retry.StopWait, func(context.Context) (bool, error) {
		status, err := s.Query()
		if err != nil {
			return false, fmt.Errorf("query service %s: %w", name, err)
		}
		return status.State == svc.Stopped, nil
	})
	if err != nil {
		return fmt.Errorf("wait for service %s to stop: %w", name, err)
	}

	if err := s.Start(); err != nil {
		return fmt.Errorf("start service %s: %w", name, err)
	}
	return nil
}
