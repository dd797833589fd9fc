// Package agent drives the monitoring loops. A loop runs until its
// context is cancelled and never exits on a check failure: each tick is
// isolated, and even a panic inside one only costs that tick.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Tick is one iteration of an agent loop. It returns how long to sleep
// before the next iteration, so state machines can vary their cadence
// (normal vs error vs rate-limit backoff).
type Tick func(ctx context.Context) time.Duration

// Run drives tick until ctx is cancelled. A recovered panic is handed to
// recovered (when non-nil) and the loop continues after fallback.
func Run(ctx context.Context, fallback time.Duration, tick Tick, recovered func(v any)) {
	for {
		wait := runIsolated(ctx, fallback, tick, recovered)

		slog.Debug("tick finished", "wait", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func runIsolated(ctx context.Context, fallback time.Duration, tick Tick, recovered func(v any)) (wait time.Duration) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("tick panicked", "panic", fmt.Sprint(v))
			wait = fallback
			if recovered != nil {
				recovered(v)
			}
		}
	}()
	return tick(ctx)
}
