package transmission

import (
	"bytes"
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

// sessionHeader carries the CSRF token Transmission hands out on a 409.
const sessionHeader = "X-Transmission-Session-Id"

// ErrorLocal is the torrent error classification for local data or
// filesystem problems ("system error" in alert messages).
const ErrorLocal = 3

var (
	ErrUnauthorized = errors.New("transmission: authentication rejected")
	ErrMalformed    = errors.New("transmission: unexpected response")
)

// Torrent is the per-torrent slice of a torrent-get reply that the checks
// care about.
type Torrent struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Error       int    `json:"error"`
	ErrorString string `json:"errorString"`
}

// Status is one consistent snapshot of the client, rebuilt every cycle.
type Status struct {
	PeerPort           int
	ActiveTorrentCount int
	DownloadSpeed      int64
	UploadSpeed        int64
	Torrents           []Torrent
}

// FirstSystemError returns the first torrent flagged with a local error,
// or nil when there is none.
func (s Status) FirstSystemError() *Torrent {
	for i := range s.Torrents {
		if s.Torrents[i].Error == ErrorLocal {
			return &s.Torrents[i]
		}
	}
	return nil
}

// Client speaks the Transmission RPC envelope. The session id is owned by
// the single agent loop, so no locking around it.
type Client struct {
	rpcURL    string
	user      string
	pass      string
	client    *http.Client
	sessionID string
}

func New(host string, port int, user, pass string) *Client {
	return &Client{
		rpcURL: "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/transmission/rpc",
		user:   user,
		pass:   pass,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch gathers peer port, aggregate rates and the full torrent list in one
// logical call (three RPC methods under the hood).
func (c *Client) Fetch(ctx context.Context) (Status, error) {
	var session struct {
		PeerPort *int `json:"peer-port"`
	}
	if err := c.call(ctx, "session-get", map[string]any{"fields": []string{"peer-port"}}, &session); err != nil {
		return Status{}, err
	}
	if session.PeerPort == nil {
		return Status{}, fmt.Errorf("%w: missing 'peer-port' in session-get", ErrMalformed)
	}

	var stats struct {
		ActiveTorrentCount int   `json:"activeTorrentCount"`
		DownloadSpeed      int64 `json:"downloadSpeed"`
		UploadSpeed        int64 `json:"uploadSpeed"`
	}
	if err := c.call(ctx, "session-stats", nil, &stats); err != nil {
		return Status{}, err
	}

	var list struct {
		Torrents []Torrent `json:"torrents"`
	}
	args := map[string]any{"fields": []string{"id", "name", "error", "errorString"}}
	if err := c.call(ctx, "torrent-get", args, &list); err != nil {
		return Status{}, err
	}

	return Status{
		PeerPort:           *session.PeerPort,
		ActiveTorrentCount: stats.ActiveTorrentCount,
		DownloadSpeed:      stats.DownloadSpeed,
		UploadSpeed:        stats.UploadSpeed,
		Torrents:           list.Torrents,
	}, nil
}

func (c *Client) call(ctx context.Context, method string, args any, out any) error {
	payload, err := json.Marshal(struct {
		Method    string `json:"method"`
		Arguments any    `json:"arguments,omitempty"`
	}{Method: method, Arguments: args})
	if err != nil {
		return fmt.Errorf("transmission: marshal %s: %w", method, err)
	}

	resp, err := c.do(ctx, payload)
	if err != nil {
		return fmt.Errorf("transmission: %s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Result    string          `json:"result"`
		Arguments json.RawMessage `json:"arguments"`
	}
	body := io.LimitReader(resp.Body, 8<<20)
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, method, err)
	}
	if envelope.Result != "success" {
		return fmt.Errorf("%w: %s: result %q", ErrMalformed, method, envelope.Result)
	}
	if out != nil && envelope.Arguments != nil {
		if err := json.Unmarshal(envelope.Arguments, out); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformed, method, err)
		}
	}
	return nil
}

// do posts the payload, refreshing the session id transparently once when
// Transmission answers 409 (which is also how the very first id is
// obtained). A second 409 means the refreshed id was rejected too; give up.
func (c *Client) do(ctx context.Context, payload []byte) (*http.Response, error) {
	resp, err := c.post(ctx, payload)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusConflict {
		id := resp.Header.Get(sessionHeader)
		resp.Body.Close()
		if id == "" {
			return nil, fmt.Errorf("%w: 409 without a %s header", ErrMalformed, sessionHeader)
		}
		c.sessionID = id

		resp, err = c.post(ctx, payload)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusConflict {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: session id rejected after refresh", ErrUnauthorized)
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		status := resp.Status
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", status)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.user, c.pass)
	if c.sessionID != "" {
		req.Header.Set(sessionHeader, c.sessionID)
	}
	return c.client.Do(req)
}
