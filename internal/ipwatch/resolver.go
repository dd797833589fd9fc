package ipwatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultProviders is the fallback rotation for public-IP lookup.
var DefaultProviders = []string{
	"https://api.ipify.org",
	"https://icanhazip.com",
	"https://checkip.amazonaws.com",
	"https://ifconfig.me/ip",
}

// Resolver finds the current public IPv4 address. Providers are tried in
// fixed order as fallbacks, not concurrently; the first syntactically
// valid answer wins.
type Resolver struct {
	providers []string
	client    *http.Client
}

func NewResolver(providers []string) *Resolver {
	if len(providers) == 0 {
		providers = DefaultProviders
	}
	return &Resolver{
		providers: providers,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	for _, provider := range r.providers {
		ip, err := r.fetch(ctx, provider)
		if err != nil {
			slog.Debug("ip provider failed", "provider", provider, "error", err)
			continue
		}
		return ip, nil
	}
	return "", errors.New("ipwatch: every ip provider failed")
}

func (r *Resolver) fetch(ctx context.Context, provider string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}

	body := strings.TrimSpace(string(raw))
	ip := net.ParseIP(body)
	if ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("not an IPv4 address: %q", body)
	}
	return ip.To4().String(), nil
}
