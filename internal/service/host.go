package service

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ipdrop/internal/poller"

	"go.uber.org/zap"
)

// requestStop delivers a stop request without blocking. A request already
// pending is not duplicated.
func requestStop(stop chan<- struct{}) {
	select {
	case stop <- struct{}{}:
	default:
	}
}

// logNotifier reports state transitions to the log only
type logNotifier struct {
	logger *zap.Logger
}

func (n logNotifier) Notify(s poller.State) {
	n.logger.Debug("Host notified", zap.Stringer("state", s))
}

// runInteractive runs r in the foreground, turning SIGINT and SIGTERM into
// stop requests.
func runInteractive(ctx context.Context, r Runner, logger *zap.Logger) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	return runWithSignals(ctx, r, sigChan, logger)
}

func runWithSignals(ctx context.Context, r Runner, sigChan <-chan os.Signal, logger *zap.Logger) error {
	stop := make(chan struct{}, 1)
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			select {
			case <-watchCtx.Done():
				return
			case sig := <-sigChan:
				logger.Info("Received signal", zap.String("signal", sig.String()))
				requestStop(stop)
			}
		}
	}()

	return r.Run(ctx, stop, logNotifier{logger: logger})
}
