// Package healthchecks delivers cycle signals to a Healthchecks.io-style
// dead-man's-switch endpoint. Delivery is best effort: a lost ping is
// itself observable by the receiving service through its own timeout, so
// failures here are logged and never escalated.
package healthchecks

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

// maxBodyLen is the receiving service's hard cap on ping bodies.
const maxBodyLen = 100

type Pinger struct {
	baseURL    string
	client     *http.Client
	limiter    *rate.Limiter
	retries    int
	retryPause time.Duration
}

func New(baseURL string) *Pinger {
	return &Pinger{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		// A tight failure loop must not hammer the endpoint
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
		retries:    2,
		retryPause: 2 * time.Second,
	}
}

// Start signals that a cycle is beginning.
func (p *Pinger) Start(ctx context.Context) {
	p.ping(ctx, "/start", "")
}

// Success signals a passing cycle, carrying the dense status line.
func (p *Pinger) Success(ctx context.Context, message string) {
	p.ping(ctx, "", message)
}

// Fail signals a failing cycle, carrying the compressed diagnostic.
func (p *Pinger) Fail(ctx context.Context, message string) {
	p.ping(ctx, "/fail", message)
}

func (p *Pinger) ping(ctx context.Context, path, body string) {
	// Final guard; callers already compress, but the cap is the endpoint's
	// contract and is enforced here unconditionally.
	if utf8.RuneCountInString(body) > maxBodyLen {
		body = string([]rune(body)[:maxBodyLen])
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return
	}

	url := p.baseURL + path
	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryPause):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
		if err != nil {
			lastErr = err
			break
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 400 {
			return
		}
		lastErr = &statusError{status: resp.Status}
	}

	slog.Warn("could not ping healthchecks", "url", url, "error", lastErr)
}

type statusError struct {
	status string
}

func (e *statusError) Error() string { return "unexpected status " + e.status }
