// Package ipwatch watches the public IP address and keeps a dynamic-DNS
// style update service in sync with it.
//
// The watcher is a small state machine: Idle -> Authenticating ->
// Watching. It authenticates whenever it has no session token, otherwise
// it resolves the current address each tick and only talks to the update
// service when the address actually changed. Its last-known address is
// updated if and only if the remote service confirms the update.
package ipwatch

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"seedbox-sentry/internal/agent"
	"seedbox-sentry/internal/geoip"
)

// Service is the authenticated update capability of the remote side.
type Service interface {
	Login(ctx context.Context, identifier string) (string, error)
	Update(ctx context.Context, token, ip string) (Reply, error)
}

// AddressResolver finds the current public IPv4 address.
type AddressResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Intervals are the watcher's sleep cadences per outcome class.
type Intervals struct {
	Normal    time.Duration // quiet ticks and confirmed updates
	Error     time.Duration // transport/provider failures, odd replies
	RateLimit time.Duration // long backoff after rate limiting
	Reauth    time.Duration // short pause before re-authenticating
}

// Watcher owns its State exclusively; no locking is needed because a
// single loop drives it.
type Watcher struct {
	resolver   AddressResolver
	service    Service
	store      *Store
	reporter   agent.Reporter
	geo        *geoip.Database
	identifier string
	intervals  Intervals
	state      State
}

func NewWatcher(resolver AddressResolver, service Service, store *Store, reporter agent.Reporter, geo *geoip.Database, identifier string, intervals Intervals) *Watcher {
	if reporter == nil {
		reporter = noopReporter{}
	}
	if intervals.Reauth == 0 {
		intervals.Reauth = 5 * time.Second
	}
	return &Watcher{
		resolver:   resolver,
		service:    service,
		store:      store,
		reporter:   reporter,
		geo:        geo,
		identifier: identifier,
		intervals:  intervals,
		state:      store.Load(),
	}
}

// State exposes the current cross-tick memory (read-only snapshot).
func (w *Watcher) State() State { return w.state }

// Tick runs one iteration and returns how long to sleep before the next.
func (w *Watcher) Tick(ctx context.Context) time.Duration {
	if w.state.SessionToken == "" {
		return w.authenticate(ctx)
	}
	return w.watch(ctx)
}

// Run loops Tick until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	agent.Run(ctx, w.intervals.Error, w.Tick, func(v any) {
		w.reporter.Fail(ctx, "E:INTERNAL(panic)")
	})
}

func (w *Watcher) authenticate(ctx context.Context) time.Duration {
	token, err := w.service.Login(ctx, w.identifier)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			slog.Warn("login rate limited", "backoff", w.intervals.RateLimit)
			w.reporter.Fail(ctx, "E:AUTH_RATE_LIMITED")
			return w.intervals.RateLimit
		}
		slog.Error("login failed", "error", err)
		w.reporter.Fail(ctx, clip("E:AUTH "+err.Error()))
		return w.intervals.Error
	}

	w.state.SessionToken = token
	if err := w.store.SaveToken(token); err != nil {
		slog.Warn("could not persist session token", "error", err)
	}
	slog.Info("authenticated")

	// Straight into a watch pass after a short pause would also work; one
	// normal-speed hop keeps the transition observable in the logs.
	return w.intervals.Reauth
}

func (w *Watcher) watch(ctx context.Context) time.Duration {
	ip, err := w.resolver.Resolve(ctx)
	if err != nil {
		slog.Error("public ip resolution failed", "error", err)
		w.reporter.Fail(ctx, clip("E:RESOLVE "+err.Error()))
		return w.intervals.Error
	}

	if ip == w.state.LastKnownIP {
		slog.Debug("ip unchanged", "ip", ip)
		w.reporter.Success(ctx, "OK | IP:"+ip+" (unchanged)")
		return w.intervals.Normal
	}

	reply, err := w.service.Update(ctx, w.state.SessionToken, ip)
	if err != nil {
		slog.Error("update call failed", "ip", ip, "error", err)
		w.reporter.Fail(ctx, clip("E:UPDATE "+err.Error()))
		return w.intervals.Error
	}

	switch reply.Kind {
	case ReplyUpdated, ReplyNoChange:
		// Confirmed by the remote side; only now does the cache move.
		w.state.LastKnownIP = ip
		if err := w.store.SaveIP(ip); err != nil {
			slog.Warn("could not persist ip", "error", err)
		}
		msg := "OK | IP:" + ip
		if country := w.geo.Country(ip); country != "" {
			msg += " (" + country + ")"
		}
		slog.Info("ip updated", "ip", ip, "reply", reply.Raw)
		w.reporter.Success(ctx, msg)
		return w.intervals.Normal

	case ReplyRateLimited:
		slog.Warn("update rate limited", "backoff", w.intervals.RateLimit)
		w.reporter.Fail(ctx, "E:RATE_LIMITED")
		return w.intervals.RateLimit

	case ReplySessionInvalid:
		// Token is dead; nothing is persisted this tick.
		slog.Warn("session expired, re-authenticating")
		w.state.SessionToken = ""
		if err := w.store.ClearToken(); err != nil {
			slog.Warn("could not clear session token", "error", err)
		}
		return w.intervals.Reauth

	default:
		slog.Error("update rejected", "ip", ip, "reply", reply.Raw)
		w.reporter.Fail(ctx, clip("E:UPDATE "+reply.Raw))
		return w.intervals.Error
	}
}

func clip(s string) string {
	const max = 100
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

type noopReporter struct{}

func (noopReporter) Start(context.Context) {}

func (noopReporter) Success(context.Context, string) {}

func (noopReporter) Fail(context.Context, string) {}
