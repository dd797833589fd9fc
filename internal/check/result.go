package check

import (
	"seedbox-sentry/internal/gluetun"
	"seedbox-sentry/internal/transmission"
)

// Verdict tags a cycle's outcome. The string value doubles as the fixed
// message tag humans pattern-match in alert history, so these are part of
// the alerting contract, not free to rename.
type Verdict string

const (
	VerdictOK Verdict = "OK"

	// Cross-service and probe failures.
	VerdictMismatch       Verdict = "E:MISMATCH"
	VerdictClosed         Verdict = "E:CLOSED"
	VerdictProbeMalformed Verdict = "E:PORTCHECK_UNEXPECTED_RESP"
	VerdictProbeDown      Verdict = "E:PORTCHECK_DOWN"
	VerdictSysErr         Verdict = "E:SYS_ERR"

	// Adapter-level failures.
	VerdictVPNNotRunning Verdict = "E:VPN_NOT_RUNNING"
	VerdictGluetunDown   Verdict = "E:GLUETUN_DOWN"
	VerdictGluetunParse  Verdict = "E:GLUETUN_PARSE"
	VerdictTrDown        Verdict = "E:TR_DOWN"
	VerdictTrParse       Verdict = "E:TR_PARSE"

	// A panic inside the cycle, recovered at the cycle boundary.
	VerdictInternal Verdict = "E:INTERNAL"
)

// Result is the single outcome of one cycle. Exactly one verdict is set;
// the other fields carry whatever context was gathered before the first
// failing check fired (snapshots stay nil past that point).
type Result struct {
	Verdict Verdict

	Gateway *gluetun.Status
	Client  *transmission.Status

	// PortOpen is meaningful only once the probe has run and answered.
	PortOpen bool

	// Mismatch context.
	GluetunPort int
	ClientPort  int

	// First torrent with a local error, for VerdictSysErr.
	Torrent *transmission.Torrent

	// Raw probe body for VerdictProbeMalformed.
	Raw string

	// Short cause token for the *_DOWN / parse / internal verdicts.
	Cause string

	// Err is the underlying error when one exists, for local logging only.
	Err error
}

func (r Result) OK() bool { return r.Verdict == VerdictOK }
