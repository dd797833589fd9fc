package ipwatch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStore_FirstStartIsEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "last_ip"), filepath.Join(dir, "session"))

	state := store.Load()
	if state.LastKnownIP != "" || state.SessionToken != "" {
		t.Fatalf("fresh store should be empty: %+v", state)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Nested path exercises directory creation
	store := NewStore(filepath.Join(dir, "cache", "last_ip"), filepath.Join(dir, "cache", "session"))

	if err := store.SaveIP("1.2.3.4"); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveToken("tok42"); err != nil {
		t.Fatal(err)
	}

	state := store.Load()
	if state.LastKnownIP != "1.2.3.4" || state.SessionToken != "tok42" {
		t.Fatalf("round trip: %+v", state)
	}
}

func TestStore_TokenFilePermissions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cookiePath := filepath.Join(dir, "session")
	store := NewStore(filepath.Join(dir, "last_ip"), cookiePath)

	if err := store.SaveToken("tok42"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(cookiePath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("token file is %v, want 0600", perm)
	}
}

func TestStore_ClearToken(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "last_ip"), filepath.Join(dir, "session"))

	if err := store.SaveToken("tok42"); err != nil {
		t.Fatal(err)
	}
	if err := store.ClearToken(); err != nil {
		t.Fatal(err)
	}
	if got := store.Load().SessionToken; got != "" {
		t.Fatalf("token survived clear: %q", got)
	}

	// Clearing an already-absent token is not an error
	if err := store.ClearToken(); err != nil {
		t.Fatalf("double clear: %v", err)
	}
}

func TestResolveIdentifier_FileTakesPrecedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "identifier")
	if err := os.WriteFile(file, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IPW_TEST_IDENTIFIER", "from-env")

	got, err := ResolveIdentifier(file, "IPW_TEST_IDENTIFIER")
	if err != nil {
		t.Fatal(err)
	}
	if got != "from-file" {
		t.Fatalf("file should win: %q", got)
	}
}

func TestResolveIdentifier_EnvFallback(t *testing.T) {
	t.Setenv("IPW_TEST_IDENTIFIER", "from-env")

	got, err := ResolveIdentifier(filepath.Join(t.TempDir(), "missing"), "IPW_TEST_IDENTIFIER")
	if err != nil {
		t.Fatal(err)
	}
	if got != "from-env" {
		t.Fatalf("env fallback: %q", got)
	}
}

func TestResolveIdentifier_MissingEverywhere(t *testing.T) {
	t.Setenv("IPW_TEST_IDENTIFIER", "")

	if _, err := ResolveIdentifier("", "IPW_TEST_IDENTIFIER"); err == nil {
		t.Fatal("expected an error with no identifier anywhere")
	}
}
