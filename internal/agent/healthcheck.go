package agent

import (
	"context"
	"log/slog"
	"time"

	"seedbox-sentry/internal/check"
)

// CycleRunner produces one check result per invocation.
type CycleRunner interface {
	Run(ctx context.Context) check.Result
}

// Reporter is the dead-man's-switch signalling capability.
type Reporter interface {
	Start(ctx context.Context)
	Success(ctx context.Context, message string)
	Fail(ctx context.Context, message string)
}

// Healthcheck wires one checker to one reporter on a fixed cadence.
type Healthcheck struct {
	Checker  CycleRunner
	Reporter Reporter
	Interval time.Duration
}

// Tick runs one cycle: start signal, checks, exactly one terminal signal.
func (a *Healthcheck) Tick(ctx context.Context) time.Duration {
	a.Reporter.Start(ctx)

	res := a.Checker.Run(ctx)
	if res.OK() {
		slog.Info("check passed", "status", res.FullMessage())
		a.Reporter.Success(ctx, res.Message())
	} else {
		slog.Error("check failed", "diag", res.FullMessage(), "error", res.Err)
		a.Reporter.Fail(ctx, res.Message())
	}

	return a.Interval
}

// Run loops Tick until ctx is cancelled. A panic escaping the cycle (the
// checker already recovers its own) still yields a failure ping, so the
// dead-man's switch view stays truthful.
func (a *Healthcheck) Run(ctx context.Context) {
	Run(ctx, a.Interval, a.Tick, func(v any) {
		res := check.Result{Verdict: check.VerdictInternal, Cause: "panic"}
		a.Reporter.Fail(ctx, res.Message())
	})
}
