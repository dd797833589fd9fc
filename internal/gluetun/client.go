package gluetun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrUnauthorized means the control server rejected the credentials.
	ErrUnauthorized = errors.New("gluetun: authentication rejected")
	// ErrMalformed means the control server answered, but not with the
	// expected shape. Reported distinctly from transport failures so
	// "service is down" and "service changed its contract" stay apart.
	ErrMalformed = errors.New("gluetun: unexpected response")
)

// Status is one consistent snapshot of the gateway: VPN connectivity state
// and the port the provider has forwarded to us.
type Status struct {
	VPNStatus     string
	ForwardedPort int
}

// Running reports whether the tunnel is up from gluetun's point of view.
func (s Status) Running() bool { return s.VPNStatus == "running" }

// Client talks to the gluetun control server over basic-auth HTTP.
type Client struct {
	baseURL string
	user    string
	pass    string
	client  *http.Client
}

func New(host string, port int, user, pass string) *Client {
	return &Client{
		baseURL: "http://" + net.JoinHostPort(host, strconv.Itoa(port)),
		user:    user,
		pass:    pass,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch reads the VPN status and the forwarded port. Both resources must
// answer for the gateway to count as healthy, so a failure on either is a
// failure of the whole fetch. No retries here; the next cycle retries.
func (c *Client) Fetch(ctx context.Context) (Status, error) {
	var vpn struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/v1/vpn/status", &vpn); err != nil {
		return Status{}, err
	}
	if vpn.Status == "" {
		return Status{}, fmt.Errorf("%w: missing 'status' in /v1/vpn/status", ErrMalformed)
	}

	var pf struct {
		Port int `json:"port"`
	}
	if err := c.get(ctx, "/v1/portforward", &pf); err != nil {
		return Status{}, err
	}
	if pf.Port == 0 {
		return Status{}, fmt.Errorf("%w: missing 'port' in /v1/portforward", ErrMalformed)
	}

	return Status{VPNStatus: vpn.Status, ForwardedPort: pf.Port}, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("gluetun: build request: %w", err)
	}
	req.SetBasicAuth(c.user, c.pass)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gluetun: %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("gluetun: %s: unexpected status %s", path, resp.Status)
	}

	// Schemas are an external contract; additive fields must be tolerated,
	// so decode only the fields we use.
	body := io.LimitReader(resp.Body, 1<<20)
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return nil
}
