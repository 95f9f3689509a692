package retry

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
)

// ErrTimeout is returned when the condition did not hold before the timeout
var ErrTimeout = errors.New("timed out waiting for condition")

// Condition reports whether the awaited state has been reached
type Condition func(ctx context.Context) (bool, error)

// Poll evaluates cond immediately and then every cfg.Interval until it
// returns true, returns an error, ctx is done, or cfg.Timeout has elapsed.
func Poll(ctx context.Context, clk clock.Clock, cfg PollConfig, cond Condition) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid poll configuration: %w", err)
	}
	if clk == nil {
		clk = clock.New()
	}

	start := clk.Now()
	for {
		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if clk.Since(start) >= cfg.Timeout {
			return fmt.Errorf("%w after %s", ErrTimeout, cfg.Timeout)
		}

		timer := clk.Timer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
