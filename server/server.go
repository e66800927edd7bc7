// Package server exposes Intcode sessions over Connect (HTTP/JSON) and
// Intcode program files to editors over LSP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/intcode/store"
)

var log = commonlog.GetLogger("intcode.server")

// IntcodeServer serves the session service. Each session owns its VM
// behind its own worker goroutine.
type IntcodeServer struct {
	sessions *SessionStore
	service  *SessionService
	mux      *http.ServeMux

	stopSweeper func()
}

// ServerOption configures an IntcodeServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	db            *store.Store
	maxSteps      uint64
	maxMemory     int64
	sessionTTL    time.Duration
	sweepInterval time.Duration
}

// WithStore persists programs and session checkpoints in db.
func WithStore(db *store.Store) ServerOption {
	return func(c *serverConfig) { c.db = db }
}

// WithMaxSteps bounds the instructions a single Run or Drive call may
// execute. Zero means unbounded.
func WithMaxSteps(n uint64) ServerOption {
	return func(c *serverConfig) { c.maxSteps = n }
}

// WithMaxMemory bounds each session's memory, in cells. Zero means
// intcode.DefaultMemoryLimit.
func WithMaxMemory(cells int64) ServerOption {
	return func(c *serverConfig) { c.maxMemory = cells }
}

// WithSessionTTL evicts sessions idle for longer than ttl, checking every
// interval. A zero ttl disables eviction.
func WithSessionTTL(ttl, interval time.Duration) ServerOption {
	return func(c *serverConfig) {
		c.sessionTTL = ttl
		c.sweepInterval = interval
	}
}

// New creates an IntcodeServer.
func New(opts ...ServerOption) *IntcodeServer {
	cfg := &serverConfig{
		sessionTTL:    30 * time.Minute,
		sweepInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	sessions := NewSessionStore(cfg.db)
	sessions.SetMemoryLimit(cfg.maxMemory)
	s := &IntcodeServer{
		sessions: sessions,
		service:  NewSessionService(sessions, cfg.db, cfg.maxSteps),
		mux:      http.NewServeMux(),
	}

	path, handler := s.service.Handler()
	s.mux.Handle(path, handler)

	if cfg.sessionTTL > 0 && cfg.sweepInterval > 0 {
		s.stopSweeper = sessions.StartSweeper(cfg.sweepInterval, cfg.sessionTTL)
	}

	return s
}

// Handler returns the HTTP handler for all services.
func (s *IntcodeServer) Handler() http.Handler { return s.mux }

// Sessions returns the live session store.
func (s *IntcodeServer) Sessions() *SessionStore { return s.sessions }

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *IntcodeServer) ListenAndServe(addr string) error {
	return s.Serve(context.Background(), addr)
}

// Serve runs the HTTP server until ctx is done, then shuts it down.
func (s *IntcodeServer) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Noticef("intcode session server listening on %s", addr)
		log.Infof("  Connect (HTTP/JSON): http://%s%s", addr, LoadProcedure)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Stop shuts down the sweeper and every session worker.
func (s *IntcodeServer) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
		s.stopSweeper = nil
	}
	s.sessions.Close()
}
