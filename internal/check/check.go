// Package check runs one healthcheck cycle across the VPN gateway, the
// torrent client and the public port probe, and reconciles the three into
// a single verdict.
package check

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"seedbox-sentry/internal/gluetun"
	"seedbox-sentry/internal/portcheck"
	"seedbox-sentry/internal/transmission"
)

// Gateway is the VPN gateway control-plane capability.
type Gateway interface {
	Fetch(ctx context.Context) (gluetun.Status, error)
}

// TorrentClient is the torrent client RPC capability.
type TorrentClient interface {
	Fetch(ctx context.Context) (transmission.Status, error)
}

// Prober is the external port-probe capability.
type Prober interface {
	Probe(ctx context.Context, port int) (bool, error)
}

// Checker evaluates the checks in a fixed precedence: the first failing
// check wins and nothing after it runs. Higher checks are meaningless
// without the lower ones, and the alert channel can only carry one root
// cause anyway.
type Checker struct {
	gateway Gateway
	client  TorrentClient
	prober  Prober
}

func New(gateway Gateway, client TorrentClient, prober Prober) *Checker {
	return &Checker{gateway: gateway, client: client, prober: prober}
}

// Run performs one cycle. It always returns a Result: adapter failures,
// parse failures and even panics inside an adapter become reportable
// verdicts, never a crashed cycle.
func (c *Checker) Run(ctx context.Context) (res Result) {
	defer func() {
		if v := recover(); v != nil {
			res = Result{Verdict: VerdictInternal, Cause: fmt.Sprint(v)}
		}
	}()

	// 1. Gateway up and tunnel running.
	gw, err := c.gateway.Fetch(ctx)
	if err != nil {
		return gatewayFailure(err)
	}
	if !gw.Running() {
		return Result{Verdict: VerdictVPNNotRunning, Cause: gw.VPNStatus, Gateway: &gw}
	}

	// 2. Client up.
	st, err := c.client.Fetch(ctx)
	if err != nil {
		return clientFailure(err, gw)
	}

	// 3. Forwarded port and peer port agree. On disagreement the probe is
	// skipped entirely: probing a port the client doesn't listen on proves
	// nothing. The snapshots stay off this result so no status context
	// (which would claim a probe outcome that never happened) is rendered.
	if gw.ForwardedPort != st.PeerPort {
		return Result{
			Verdict:     VerdictMismatch,
			GluetunPort: gw.ForwardedPort,
			ClientPort:  st.PeerPort,
		}
	}

	// 4. Port open from the outside.
	open, err := c.prober.Probe(ctx, st.PeerPort)
	if err != nil {
		var malformed *portcheck.MalformedError
		if errors.As(err, &malformed) {
			return Result{Verdict: VerdictProbeMalformed, Raw: malformed.Raw, Err: err, Gateway: &gw, Client: &st}
		}
		return Result{Verdict: VerdictProbeDown, Cause: causeLabel(err), Err: err, Gateway: &gw, Client: &st}
	}
	if !open {
		return Result{Verdict: VerdictClosed, Gateway: &gw, Client: &st}
	}

	// 5. No torrent stuck on a local error.
	if t := st.FirstSystemError(); t != nil {
		return Result{Verdict: VerdictSysErr, Torrent: t, Gateway: &gw, Client: &st, PortOpen: true}
	}

	return Result{Verdict: VerdictOK, Gateway: &gw, Client: &st, PortOpen: true}
}

func gatewayFailure(err error) Result {
	v := VerdictGluetunDown
	cause := causeLabel(err)
	switch {
	case errors.Is(err, gluetun.ErrMalformed):
		v, cause = VerdictGluetunParse, err.Error()
	case errors.Is(err, gluetun.ErrUnauthorized):
		cause = "unauthorized"
	}
	return Result{Verdict: v, Cause: cause, Err: err}
}

func clientFailure(err error, gw gluetun.Status) Result {
	v := VerdictTrDown
	cause := causeLabel(err)
	switch {
	case errors.Is(err, transmission.ErrMalformed):
		v, cause = VerdictTrParse, err.Error()
	case errors.Is(err, transmission.ErrUnauthorized):
		cause = "unauthorized"
	}
	return Result{Verdict: v, Cause: cause, Err: err, Gateway: &gw}
}

// causeLabel compresses a transport error into a short stable token for
// the diagnostic line; the full error stays available on Result.Err.
func causeLabel(err error) string {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return "timeout"
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return "connect"
	}
	return "error"
}
