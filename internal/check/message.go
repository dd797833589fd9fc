package check

import (
	"fmt"
	"unicode/utf8"
)

// MaxReportLen is the hard cap the alerting channel enforces on message
// bodies. Message never exceeds it.
const MaxReportLen = 100

// FullMessage is the complete, untruncated diagnostic for local logging.
func (r Result) FullMessage() string {
	core := r.core()
	if ctx := r.statusContext(); ctx != "" {
		if r.Verdict == VerdictOK {
			return "OK | " + ctx
		}
		return core + " | " + ctx
	}
	return core
}

// Message compresses the result to at most MaxReportLen characters.
// Priority when the budget is tight: fixed tag, then structured context
// (ports, torrent id, torrent name), then free text. The trailing status
// context is dropped whole before anything earlier is touched.
func (r Result) Message() string {
	full := r.FullMessage()
	if utf8.RuneCountInString(full) <= MaxReportLen {
		return full
	}
	if r.Verdict == VerdictOK {
		// Success is a fixed-field format; if it ever overflows, a hard
		// cut beats reordering fields humans scan by position.
		return truncate(full, MaxReportLen)
	}

	core := r.core()
	if utf8.RuneCountInString(core) <= MaxReportLen {
		return core
	}
	switch {
	case r.Verdict == VerdictSysErr && r.Torrent != nil:
		return r.compressSysErr()
	case r.Verdict == VerdictProbeMalformed:
		// The raw body is the diagnostic; a hard cut keeps as much of it
		// as the budget allows.
		return truncate(core, MaxReportLen)
	}
	// Catch-all: cut at 97 and mark the cut, so an operator can tell a
	// truncated message from a complete one.
	return truncate(core, MaxReportLen-3) + "..."
}

// core is the tag plus its structured fragments, without the trailing
// status context.
func (r Result) core() string {
	tag := string(r.Verdict)
	switch r.Verdict {
	case VerdictOK:
		return tag
	case VerdictMismatch:
		return fmt.Sprintf("%s(G:%d|T:%d)", tag, r.GluetunPort, r.ClientPort)
	case VerdictClosed:
		return tag
	case VerdictProbeMalformed:
		return tag + "(" + r.Raw + ")"
	case VerdictSysErr:
		if r.Torrent == nil {
			return tag
		}
		return fmt.Sprintf("%s T:%d(%s): %s", tag, r.Torrent.ID, r.Torrent.Name, r.Torrent.ErrorString)
	default:
		// Probe-down, adapter-down, parse, VPN state and internal verdicts
		// all carry a single cause token.
		if r.Cause == "" {
			return tag
		}
		return tag + "(" + r.Cause + ")"
	}
}

// statusContext renders the dense status line appended to messages once
// both snapshots exist: peer port with probe outcome, VPN state, rates,
// active count. Field order is fixed so alert history scans at a glance.
func (r Result) statusContext() string {
	if r.Gateway == nil || r.Client == nil {
		return ""
	}
	open := "CLOSED"
	if r.PortOpen {
		open = "OPEN"
	}
	return fmt.Sprintf("P:%d(%s) VPN:%s | DL/UL:%d/%d | Act:%d",
		r.Client.PeerPort, open, r.Gateway.VPNStatus,
		r.Client.DownloadSpeed, r.Client.UploadSpeed,
		r.Client.ActiveTorrentCount)
}

// compressSysErr shrinks a system-error message in a fixed sacrifice
// order: first the free-text error string is cut with an ellipsis, then
// the torrent name is dropped keeping the id, and only as a last resort
// is the remainder hard-truncated.
func (r Result) compressSysErr() string {
	p1 := string(VerdictSysErr)
	p2 := fmt.Sprintf(" T:%d(%s)", r.Torrent.ID, r.Torrent.Name)
	p3 := ": " + r.Torrent.ErrorString

	if avail := MaxReportLen - utf8.RuneCountInString(p1+p2); avail > 4 {
		return p1 + p2 + truncate(p3, avail-3) + "..."
	}

	p2 = fmt.Sprintf(" T:%d", r.Torrent.ID)
	if avail := MaxReportLen - utf8.RuneCountInString(p1+p2); avail > 4 {
		return p1 + p2 + truncate(p3, avail-3) + "..."
	}

	return truncate(p1+p2, MaxReportLen)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
