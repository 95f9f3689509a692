// Package poller runs the address polling loop: enumerate adapters, keep a
// bounded history of snapshots, rewrite the output file, wait for the next
// tick or a stop request.
package poller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"ipdrop/internal/history"
	"ipdrop/internal/network"
	"ipdrop/internal/settings"
	"ipdrop/internal/version"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// maxIntervalSeconds keeps the interval representable as a time.Duration
const maxIntervalSeconds = uint64(math.MaxInt64 / int64(time.Second))

// Options configures a Poller
type Options struct {
	Instance    string
	Settings    *settings.Settings
	Enumerator  network.Enumerator
	Clock       clock.Clock
	Logger      *zap.Logger
	HistorySize int
}

// Poller owns the loop state. The output path and poll interval are read
// from the settings store on every tick so they can be changed while the
// service runs; the last good values are used when the store is unreadable.
type Poller struct {
	service    string
	instance   string
	settings   *settings.Settings
	enumerator network.Enumerator
	history    *history.History
	clock      clock.Clock
	logger     *zap.Logger

	state atomic.Int32
	ticks atomic.Uint64

	outputPath string
	interval   time.Duration
}

// New creates a poller
func New(opts Options) (*Poller, error) {
	if opts.Settings == nil {
		return nil, errors.New("poller: settings are required")
	}
	if opts.Enumerator == nil {
		return nil, errors.New("poller: enumerator is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	p := &Poller{
		service:    opts.Settings.Service(),
		instance:   opts.Instance,
		settings:   opts.Settings,
		enumerator: opts.Enumerator,
		history:    history.New(opts.HistorySize),
		clock:      opts.Clock,
		logger:     opts.Logger.Named("poller"),
		outputPath: settings.DefaultOutputPath(opts.Settings.Service()),
		interval:   time.Duration(settings.DefaultPollInterval) * time.Second,
	}
	p.state.Store(int32(StateStarting))
	return p, nil
}

// State returns the current loop state
func (p *Poller) State() State {
	return State(p.state.Load())
}

// Ticks returns the number of completed enumerations
func (p *Poller) Ticks() uint64 {
	return p.ticks.Load()
}

// History returns the snapshot history
func (p *Poller) History() *history.History {
	return p.history
}

func (p *Poller) setState(s State, notifier StatusNotifier) {
	p.state.Store(int32(s))
	p.logger.Info("Service state changed", zap.Stringer("state", s))
	if notifier != nil {
		notifier.Notify(s)
	}
}

// Run polls until stop yields a value or is closed, or ctx is done. The
// in-flight tick always completes first. Errors inside a tick are logged and
// the loop carries on with the next tick.
func (p *Poller) Run(ctx context.Context, stop <-chan struct{}, notifier StatusNotifier) error {
	p.setState(StateStarting, notifier)
	p.setState(StateRunning, notifier)

	var err error
	for {
		if tickErr := p.Tick(ctx); tickErr != nil {
			p.logger.Error("Poll failed", zap.Error(tickErr))
		}

		interval := p.pollInterval(ctx)
		p.logger.Debug("Waiting for next poll", zap.Duration("interval", interval))

		timer := p.clock.Timer(interval)
		select {
		case <-timer.C:
			continue
		case <-stop:
			p.logger.Info("Stop requested")
		case <-ctx.Done():
			err = ctx.Err()
		}
		timer.Stop()
		break
	}

	p.setState(StateStopping, notifier)
	p.setState(StateStopped, notifier)
	return err
}

// Tick performs one poll: enumerate, record the snapshot, rewrite the output
// file. An enumeration failure leaves the history untouched.
func (p *Poller) Tick(ctx context.Context) error {
	raw, err := p.enumerator.Addresses(ctx)
	if err != nil {
		return fmt.Errorf("failed to enumerate adapters: %w", err)
	}
	p.ticks.Add(1)

	snap := network.NewSnapshot(raw)
	if prev, ok := p.history.Latest(); !ok || !prev.Equal(snap) {
		p.logger.Info("Addresses changed",
			zap.Strings("previous", prev.Strings()),
			zap.Strings("current", snap.Strings()))
	}
	p.history.Push(snap)
	p.logger.Info("Addresses polled",
		zap.Strings("ip", snap.Strings()),
		zap.Int("history", p.history.Len()))

	path := p.resolveOutputPath(ctx)
	dump := history.NewDump(p.history, p.service, p.instance, version.Version, p.clock.Now())
	if err := history.WriteFile(path, dump); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	p.logger.Debug("Output written", zap.String("path", path))
	return nil
}

func (p *Poller) resolveOutputPath(ctx context.Context) string {
	path, err := p.settings.OutputPath(ctx)
	if err != nil {
		p.logger.Warn("Failed to read output path, using last known",
			zap.String("path", p.outputPath),
			zap.Error(err))
		return p.outputPath
	}
	p.outputPath = path
	return path
}

func (p *Poller) pollInterval(ctx context.Context) time.Duration {
	secs, err := p.settings.PollInterval(ctx)
	if err != nil {
		p.logger.Warn("Failed to read poll interval, using last known",
			zap.Duration("interval", p.interval),
			zap.Error(err))
		return p.interval
	}
	if secs == 0 {
		p.logger.Warn("Stored poll interval is zero, using default")
		secs = settings.DefaultPollInterval
	}
	if secs > maxIntervalSeconds {
		secs = maxIntervalSeconds
	}
	p.interval = time.Duration(secs) * time.Second
	return p.interval
}
