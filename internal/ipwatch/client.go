package ipwatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// sessionCookie is the cookie the update service issues on login.
const sessionCookie = "session"

// ErrRateLimited means the service refused a login because of request
// frequency; the caller backs off for the long interval.
var ErrRateLimited = errors.New("ipwatch: rate limited")

// ReplyKind classifies an update response. The service speaks human
// phrases, not status codes, so classification is substring matching over
// a small fixed vocabulary; additive wording must not break it.
type ReplyKind int

const (
	ReplyUpdated ReplyKind = iota
	ReplyNoChange
	ReplyRateLimited
	ReplySessionInvalid
	ReplyOther
)

// Reply is a classified update response, with the raw body kept for
// diagnostics when classification lands on ReplyOther.
type Reply struct {
	Kind ReplyKind
	Raw  string
}

// Client talks to the dynamic-address update service with session/cookie
// authentication.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Login exchanges the stored identifier for a fresh session token.
func (c *Client) Login(ctx context.Context, identifier string) (string, error) {
	form := url.Values{"key": {identifier}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("ipwatch: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipwatch: login: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	body := strings.TrimSpace(string(raw))

	if resp.StatusCode == http.StatusTooManyRequests || classify(body) == ReplyRateLimited {
		return "", fmt.Errorf("%w: %s", ErrRateLimited, body)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipwatch: login: unexpected status %s", resp.Status)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookie && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", fmt.Errorf("ipwatch: login succeeded but no %s cookie in response", sessionCookie)
}

// Update tells the service about a new address. Transport failures come
// back as an error; anything the service actually said comes back as a
// classified Reply, including rejections.
func (c *Client) Update(ctx context.Context, token, ip string) (Reply, error) {
	endpoint := c.baseURL + "/update?ip=" + url.QueryEscape(ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Reply{}, fmt.Errorf("ipwatch: build update request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})

	resp, err := c.client.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("ipwatch: update: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	body := strings.TrimSpace(string(raw))

	if resp.StatusCode == http.StatusTooManyRequests {
		return Reply{Kind: ReplyRateLimited, Raw: body}, nil
	}
	return Reply{Kind: classify(body), Raw: body}, nil
}

func classify(body string) ReplyKind {
	b := strings.ToLower(body)
	switch {
	case strings.Contains(b, "session cookie invalid"),
		strings.Contains(b, "cookie expired"),
		strings.Contains(b, "not logged in"):
		return ReplySessionInvalid
	case strings.Contains(b, "rate limit"),
		strings.Contains(b, "too many requests"),
		strings.Contains(b, "too frequent"):
		return ReplyRateLimited
	case strings.Contains(b, "has not changed"),
		strings.Contains(b, "no change"),
		strings.Contains(b, "already"):
		return ReplyNoChange
	case strings.Contains(b, "updated"),
		strings.Contains(b, "success"):
		return ReplyUpdated
	default:
		return ReplyOther
	}
}
