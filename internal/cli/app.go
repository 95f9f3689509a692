// Package cli implements the ipdrop command: settings writes, service
// lifecycle operations and the polling loop.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"ipdrop/internal/config"
	"ipdrop/internal/logger"
	"ipdrop/internal/network"
	"ipdrop/internal/poller"
	"ipdrop/internal/service"
	"ipdrop/internal/settings"
	"ipdrop/internal/store"
	"ipdrop/internal/version"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Env holds the collaborators of the command. Zero fields are replaced by
// the real implementations.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer

	OpenStore  func(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.Store, error)
	NewLogger  func(cfg *logger.Config) (*zap.Logger, error)
	NewManager func(logger *zap.Logger) (service.Manager, error)
	RunService func(ctx context.Context, name string, r service.Runner, logger *zap.Logger) error
	Enumerator network.Enumerator
}

func (e *Env) setDefaults() {
	if e.Stdout == nil {
		e.Stdout = io.Discard
	}
	if e.Stderr == nil {
		e.Stderr = io.Discard
	}
	if e.OpenStore == nil {
		e.OpenStore = store.New
	}
	if e.NewLogger == nil {
		e.NewLogger = logger.New
	}
	if e.NewManager == nil {
		e.NewManager = service.NewManager
	}
	if e.RunService == nil {
		e.RunService = service.Run
	}
}

// Main runs the command and returns the process exit code
func Main(ctx context.Context, args []string, env Env) int {
	env.setDefaults()

	opts, err := Parse(args, env.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		_, _ = fmt.Fprintf(env.Stderr, "%v\n", err)
		return 1
	}

	if opts.Version {
		_, _ = fmt.Fprintln(env.Stdout, version.GetInfo().String())
		return 0
	}

	if err := run(ctx, opts, env); err != nil {
		_, _ = fmt.Fprintf(env.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

type app struct {
	opts     *Options
	env      Env
	cfg      *config.Config
	settings *settings.Settings
	logger   *zap.Logger

	// writes refused because the service namespace does not exist yet
	pending []func(context.Context) error
}

func run(ctx context.Context, opts *Options, env Env) (err error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	st, err := env.OpenStore(ctx, cfg.Store, zap.NewNop())
	if err != nil {
		return fmt.Errorf("failed to open settings store: %w", err)
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	a := &app{
		opts:     opts,
		env:      env,
		cfg:      cfg,
		settings: settings.New(st, cfg.Service.Name),
	}

	if err := a.applySettings(ctx); err != nil {
		return err
	}

	if err := a.initLogger(ctx); err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	a.logger.Info("Starting", zap.String("version", version.Version))

	switch {
	case opts.Install:
		return a.install(ctx)
	case opts.Uninstall:
		return a.uninstall(ctx)
	case opts.Restart:
		return a.restart(ctx)
	case opts.Show:
		return a.show(ctx)
	case opts.ConfigOnly():
		a.logger.Info("Settings updated")
		return nil
	default:
		return a.runLoop(ctx)
	}
}

// applySettings writes the values given on the command line. Before the
// service is installed its namespace may not exist; install retries those
// writes once the service is registered.
func (a *app) applySettings(ctx context.Context) error {
	var writes []func(context.Context) error

	if a.opts.IsSet("log") {
		path := a.opts.LogPath
		writes = append(writes, func(ctx context.Context) error { return a.settings.SetLogPath(ctx, path) })
	}
	if a.opts.IsSet("output") {
		path := a.opts.OutputPath
		writes = append(writes, func(ctx context.Context) error { return a.settings.SetOutputPath(ctx, path) })
	}
	if a.opts.IsSet("time") {
		secs := a.opts.PollInterval
		if secs == 0 {
			return settings.ErrInvalidInterval
		}
		writes = append(writes, func(ctx context.Context) error { return a.settings.SetPollInterval(ctx, secs) })
	}

	for _, w := range writes {
		err := w(ctx)
		if err == nil {
			continue
		}
		if a.opts.Install && errors.Is(err, store.ErrNamespaceNotFound) {
			a.pending = append(a.pending, w)
			continue
		}
		return err
	}
	return nil
}

// initLogger resolves the log path from the settings store. When it cannot be
// read the logger writes to the console only.
func (a *app) initLogger(ctx context.Context) error {
	logCfg := a.cfg.Log
	if a.opts.Verbose {
		logCfg.Level = "debug"
	}

	path, pathErr := a.settings.LogPath(ctx)
	if pathErr == nil {
		logCfg.File = path
	}

	l, err := a.env.NewLogger(&logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = l.With(
		zap.String("service", a.cfg.Service.Name),
		zap.String("instance", a.cfg.InstanceID),
	)

	if pathErr != nil {
		a.logger.Warn("Log path unavailable, logging to console only", zap.Error(pathErr))
	}
	return nil
}

func (a *app) manager() (service.Manager, error) {
	m, err := a.env.NewManager(a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open service manager: %w", err)
	}
	return m, nil
}

func (a *app) install(ctx context.Context) error {
	a.logger.Info("Installing service")

	m, err := a.manager()
	if err != nil {
		return err
	}

	var args []string
	if a.cfg.File != "" {
		file, err := filepath.Abs(a.cfg.File)
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
		args = append(args, "--config", file)
	}

	err = m.Install(ctx, service.InstallOptions{
		Executable:  a.cfg.Service.Executable,
		Name:        a.cfg.Service.Name,
		DisplayName: a.cfg.Service.DisplayName,
		Description: a.cfg.Service.Description,
		Args:        args,
		AutoStart:   a.cfg.Service.AutoStart,
	})
	if err != nil {
		return err
	}

	for _, w := range a.pending {
		if err := w(ctx); err != nil {
			return err
		}
	}
	if err := a.settings.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("failed to store default settings: %w", err)
	}
	return nil
}

func (a *app) uninstall(ctx context.Context) error {
	a.logger.Info("Uninstalling service")

	m, err := a.manager()
	if err != nil {
		return err
	}
	return m.Uninstall(ctx, a.cfg.Service.Name)
}

func (a *app) restart(ctx context.Context) error {
	a.logger.Info("Restarting service")

	m, err := a.manager()
	if err != nil {
		return err
	}
	return m.Restart(ctx, a.cfg.Service.Name)
}

func (a *app) show(ctx context.Context) error {
	cfg, err := a.settings.Load(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(struct {
		Service string `json:"service"`
		settings.ServiceConfig
	}{a.cfg.Service.Name, cfg}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.env.Stdout, string(data))
	return err
}

func (a *app) runLoop(ctx context.Context) error {
	a.logger.Info("Running service")

	enumerator := a.env.Enumerator
	if enumerator == nil {
		enumerator = network.NewSystemEnumerator(a.logger)
	}

	p, err := poller.New(poller.Options{
		Instance:   a.cfg.InstanceID,
		Settings:   a.settings,
		Enumerator: enumerator,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}

	err = a.env.RunService(ctx, a.cfg.Service.Name, p, a.logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
