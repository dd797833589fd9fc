package transmission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
)

// rpcServer mimics Transmission's session-id handshake: any request
// without the current id gets a 409 carrying a fresh one.
type rpcServer struct {
	sessionID string
	requests  int
	handshook int
	reply     func(method string) string
}

func (s *rpcServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.requests++
	if r.Header.Get(sessionHeader) != s.sessionID {
		s.handshook++
		w.Header().Set(sessionHeader, s.sessionID)
		w.WriteHeader(http.StatusConflict)
		return
	}

	var payload struct {
		Method string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	w.Write([]byte(s.reply(payload.Method)))
}

func defaultReply(method string) string {
	switch method {
	case "session-get":
		return `{"result":"success","arguments":{"peer-port":58993}}`
	case "session-stats":
		return `{"result":"success","arguments":{"activeTorrentCount":3,"downloadSpeed":1200,"uploadSpeed":3400}}`
	case "torrent-get":
		return `{"result":"success","arguments":{"torrents":[
			{"id":1,"name":"ok.torrent","error":0,"errorString":""},
			{"id":123,"name":"My.Torrent.Name","error":3,"errorString":"No data found"}
		]}}`
	default:
		return `{"result":"method not recognized"}`
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(u.Port())
	return New(u.Hostname(), port, "user", "pass")
}

func TestFetch_HandshakeAndSnapshot(t *testing.T) {
	t.Parallel()

	srv := &rpcServer{sessionID: "abc123", reply: defaultReply}
	c := newTestClient(t, srv)

	st, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if st.PeerPort != 58993 {
		t.Fatalf("peer port: %d", st.PeerPort)
	}
	if st.ActiveTorrentCount != 3 || st.DownloadSpeed != 1200 || st.UploadSpeed != 3400 {
		t.Fatalf("stats: %+v", st)
	}
	if len(st.Torrents) != 2 {
		t.Fatalf("torrents: %+v", st.Torrents)
	}
	if tor := st.FirstSystemError(); tor == nil || tor.ID != 123 {
		t.Fatalf("FirstSystemError: %+v", tor)
	}

	// Only the very first request may 409; the id must be replayed after.
	if srv.handshook != 1 {
		t.Fatalf("expected exactly one handshake, got %d", srv.handshook)
	}
}

func TestFetch_SessionIDSurvivesAcrossFetches(t *testing.T) {
	t.Parallel()

	srv := &rpcServer{sessionID: "abc123", reply: defaultReply}
	c := newTestClient(t, srv)

	for i := 0; i < 3; i++ {
		if _, err := c.Fetch(context.Background()); err != nil {
			t.Fatalf("fetch %d failed: %v", i, err)
		}
	}
	if srv.handshook != 1 {
		t.Fatalf("cached session id should be reused, got %d handshakes", srv.handshook)
	}
}

func TestFetch_ExpiredSessionRefreshedOnce(t *testing.T) {
	t.Parallel()

	srv := &rpcServer{sessionID: "abc123", reply: defaultReply}
	c := newTestClient(t, srv)
	if _, err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}

	// Server rotates its id; the next call must refresh transparently.
	srv.sessionID = "def456"
	if _, err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch after rotation failed: %v", err)
	}
}

func TestFetch_PersistentConflictGivesUp(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(sessionHeader, "rotating-every-time")
		w.WriteHeader(http.StatusConflict)
	}))

	_, err := c.Fetch(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after a failed refresh, got %v", err)
	}
}

func TestFetch_RPCFailureIsMalformed(t *testing.T) {
	t.Parallel()

	srv := &rpcServer{sessionID: "abc123", reply: func(string) string {
		return `{"result":"no such method"}`
	}}
	c := newTestClient(t, srv)

	if _, err := c.Fetch(context.Background()); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestFetch_MissingPeerPortIsMalformed(t *testing.T) {
	t.Parallel()

	srv := &rpcServer{sessionID: "abc123", reply: func(method string) string {
		if method == "session-get" {
			return `{"result":"success","arguments":{}}`
		}
		return defaultReply(method)
	}}
	c := newTestClient(t, srv)

	if _, err := c.Fetch(context.Background()); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestFetch_Unauthorized(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	if _, err := c.Fetch(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
