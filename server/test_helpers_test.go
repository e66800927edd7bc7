package server

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"

	"github.com/chazu/intcode/store"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
//
// Every test gets its own IntcodeServer behind an httptest server and talks
// to it through a real Connect client, so codec and error mapping are
// exercised end to end.
// ---------------------------------------------------------------------------

// testEnv bundles a running server with a client and optional store.
type testEnv struct {
	Server *IntcodeServer
	Client *Client
	DB     *store.Store
	http   *httptest.Server
}

// newTestEnv starts a server without persistence.
func newTestEnv(t *testing.T, opts ...ServerOption) *testEnv {
	t.Helper()
	return startEnv(t, nil, opts...)
}

// newStoredEnv starts a server backed by a SQLite file in a temp dir.
func newStoredEnv(t *testing.T, opts ...ServerOption) *testEnv {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "intcode.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return startEnv(t, db, opts...)
}

func startEnv(t *testing.T, db *store.Store, opts ...ServerOption) *testEnv {
	t.Helper()
	all := []ServerOption{WithSessionTTL(0, 0)}
	if db != nil {
		all = append(all, WithStore(db))
	}
	srv := New(append(all, opts...)...)
	hs := httptest.NewServer(srv.Handler())

	env := &testEnv{
		Server: srv,
		Client: NewClient(hs.Client(), hs.URL),
		DB:     db,
		http:   hs,
	}
	t.Cleanup(env.Stop)
	return env
}

func (e *testEnv) Stop() {
	e.http.Close()
	e.Server.Stop()
}

// load starts a session from program text and returns its ID.
func (e *testEnv) load(t *testing.T, program string) string {
	t.Helper()
	resp, err := e.Client.Load(bg(), &LoadRequest{Program: program})
	require.NoError(t, err)
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

// ---------------------------------------------------------------------------
// Request builder helpers
// ---------------------------------------------------------------------------

func connectReq[T any](msg *T) *connect.Request[T] {
	return connect.NewRequest(msg)
}

func bg() context.Context {
	return context.Background()
}
