package portcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MalformedError means the probe service answered outside its "1"/"0"
// vocabulary. It is distinct from a transport failure because the two
// produce different diagnostics downstream.
type MalformedError struct {
	Raw string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("portcheck: unexpected response %q", e.Raw)
}

// Client probes whether a port is reachable from the public internet via
// an external port-checking service.
type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Probe asks the service about one port. The body is literally "1" (open)
// or "0" (closed); anything else is a *MalformedError.
func (c *Client) Probe(ctx context.Context, port int) (bool, error) {
	url := fmt.Sprintf("%s/%d", c.baseURL, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("portcheck: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("portcheck: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("portcheck: unexpected status %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return false, fmt.Errorf("portcheck: read body: %w", err)
	}

	switch body := strings.TrimSpace(string(raw)); body {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, &MalformedError{Raw: body}
	}
}
