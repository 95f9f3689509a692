//go:build windows

package service

import (
	"context"
	"errors"
	"fmt"

	"ipdrop/internal/poller"

	"go.uber.org/zap"
	"golang.org/x/sys/windows/svc"
)

// cmdUserStop is the user-defined control code that also stops the service
const cmdUserStop = svc.Cmd(130)

const accepted = svc.AcceptStop | svc.AcceptShutdown

// Run runs r under the service control manager. When the process was not
// started by the SCM it runs in the foreground instead.
func Run(ctx context.Context, name string, r Runner, logger *zap.Logger) error {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return fmt.Errorf("failed to determine session type: %w", err)
	}
	if !isService {
		logger.Info("Not started by the service manager, running in foreground")
		return runInteractive(ctx, r, logger)
	}

	logger.Info("Running service", zap.String("service", name))
	if err := svc.Run(name, &handler{ctx: ctx, runner: r, logger: logger}); err != nil {
		return fmt.Errorf("service %s failed: %w", name, err)
	}
	return nil
}

// handler bridges SCM control requests to the runner's stop channel
type handler struct {
	ctx    context.Context
	runner Runner
	logger *zap.Logger
}

func (h *handler) Execute(_ []string, r <-chan svc.ChangeRequest, s chan<- svc.Status) (bool, uint32) {
	stop := make(chan struct{}, 1)
	done := make(chan error, 1)

	go func() {
		done <- h.runner.Run(h.ctx, stop, scmNotifier{status: s})
	}()

	for {
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				h.logger.Error("Run service failed", zap.Error(err))
				return false, 1
			}
			// The SCM is told Stopped once Execute returns
			return false, 0
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				s <- c.CurrentStatus
			case svc.Stop, svc.Shutdown, cmdUserStop:
				h.logger.Info("Stop control received", zap.Uint32("cmd", uint32(c.Cmd)))
				requestStop(stop)
			default:
				h.logger.Warn("Unexpected control request", zap.Uint32("cmd", uint32(c.Cmd)))
			}
		}
	}
}

// scmNotifier maps loop states onto SCM status updates
type scmNotifier struct {
	status chan<- svc.Status
}

func (n scmNotifier) Notify(st poller.State) {
	switch st {
	case poller.StateStarting:
		n.status <- svc.Status{State: svc.StartPending}
	case poller.StateRunning:
		n.status <- svc.Status{State: svc.Running, Accepts: accepted}
	case poller.StateStopping:
		n.status <- svc.Status{State: svc.StopPending}
	}
}
