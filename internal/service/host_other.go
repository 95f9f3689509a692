//go:build !windows

package service

import (
	"context"

	"go.uber.org/zap"
)

// Run runs r until it is asked to stop. Outside windows the host manager
// (systemd) stops the process with SIGTERM.
func Run(ctx context.Context, name string, r Runner, logger *zap.Logger) error {
	logger.Info("Running service", zap.String("service", name))
	return runInteractive(ctx, r, logger)
}
