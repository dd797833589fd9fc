package ipwatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// State is the watcher's cross-tick memory: the only persisted values in
// the whole system. It is owned exclusively by the single watcher loop.
type State struct {
	LastKnownIP  string
	SessionToken string
}

// Store persists the two State scalars, each in its own file. Values are
// written only after the remote service has confirmed them; a crash
// between ticks therefore never leaves optimistic state behind.
type Store struct {
	cachePath  string
	cookiePath string
}

func NewStore(cachePath, cookiePath string) *Store {
	return &Store{cachePath: cachePath, cookiePath: cookiePath}
}

// Load reads whatever survived previous runs. Missing files are a normal
// first-start condition, not an error.
func (s *Store) Load() State {
	return State{
		LastKnownIP:  readTrimmed(s.cachePath),
		SessionToken: readTrimmed(s.cookiePath),
	}
}

func (s *Store) SaveIP(ip string) error {
	return writeFile(s.cachePath, ip, 0o644)
}

func (s *Store) SaveToken(token string) error {
	// The token is a credential; keep it owner-readable only
	return writeFile(s.cookiePath, token, 0o600)
}

func (s *Store) ClearToken() error {
	err := os.Remove(s.cookiePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ipwatch: clear token: %w", err)
	}
	return nil
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func writeFile(path, value string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ipwatch: persist %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(value+"\n"), perm); err != nil {
		return fmt.Errorf("ipwatch: persist %s: %w", path, err)
	}
	return nil
}

// ResolveIdentifier returns the update identifier: the contents of file
// take precedence over the env var named by envVar.
func ResolveIdentifier(file, envVar string) (string, error) {
	if file != "" {
		if v := readTrimmed(file); v != "" {
			return v, nil
		}
	}
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("ipwatch: no identifier in %q or $%s", file, envVar)
}
