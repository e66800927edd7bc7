package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/intcode/pkg/intcode"
	"github.com/chazu/intcode/store"
)

// ErrSessionNotFound is returned for unknown or destroyed sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session is one loaded program and the VM running it.
type Session struct {
	ID          string
	Name        string
	ProgramHash string
	Created     time.Time

	worker   *SessionWorker
	lastUsed time.Time
}

// Worker returns the goroutine that owns the session's VM.
func (s *Session) Worker() *SessionWorker { return s.worker }

// SessionStore manages live sessions. With a backing store, sessions are
// checkpointed after every change and restored on demand, so eviction
// and restarts lose nothing.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	nextID   atomic.Uint64
	prefix   string
	db       *store.Store

	// memoryLimit is applied to every VM the store takes over.
	memoryLimit int64
}

// NewSessionStore creates a new session store. db may be nil.
func NewSessionStore(db *store.Store) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		prefix:   strconv.FormatInt(time.Now().UnixNano(), 36),
		db:       db,
	}
}

// Create starts a session running vm.
func (s *SessionStore) Create(name, programHash string, vm *intcode.VM) *Session {
	id := fmt.Sprintf("s-%s-%d", s.prefix, s.nextID.Add(1))
	return s.add(id, name, programHash, vm)
}

// SetMemoryLimit bounds the memory of sessions created or restored from
// now on. n <= 0 means intcode.DefaultMemoryLimit.
func (s *SessionStore) SetMemoryLimit(n int64) {
	s.mu.Lock()
	s.memoryLimit = n
	s.mu.Unlock()
}

func (s *SessionStore) add(id, name, programHash string, vm *intcode.VM) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.sessions[id]; ok {
		old.worker.Stop()
	}
	session := s.newSession(id, name, programHash, vm)
	s.sessions[id] = session
	return session
}

// newSession wraps vm and starts its worker. Callers hold s.mu.
func (s *SessionStore) newSession(id, name, programHash string, vm *intcode.VM) *Session {
	vm.SetMemoryLimit(s.memoryLimit)
	now := time.Now()
	return &Session{
		ID:          id,
		Name:        name,
		ProgramHash: programHash,
		Created:     now,
		worker:      NewSessionWorker(vm),
		lastUsed:    now,
	}
}

// Get retrieves a live session by ID.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if ok {
		session.lastUsed = time.Now()
	}
	return session, ok
}

// Lookup returns a live session or restores it from its checkpoint.
func (s *SessionStore) Lookup(ctx context.Context, id string) (*Session, error) {
	if session, ok := s.Get(id); ok {
		return session, nil
	}
	if s.db == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	snap, err := s.db.LoadSnapshot(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	vm, err := intcode.Restore(snap.State)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A concurrent Lookup may have restored it first; its worker wins.
	if session, ok := s.sessions[id]; ok {
		session.lastUsed = time.Now()
		return session, nil
	}
	session := s.newSession(id, "", snap.ProgramHash, vm)
	s.sessions[id] = session
	log.Info("session restored", "session", id)
	return session, nil
}

// Checkpoint persists the session's VM state. Faulted VMs are not
// resumable, so their checkpoint is removed instead.
func (s *SessionStore) Checkpoint(ctx context.Context, session *Session) error {
	if s.db == nil {
		return nil
	}
	result, err := session.worker.Do(func(vm *intcode.VM) interface{} {
		state, err := vm.Snapshot()
		if err != nil {
			return err
		}
		return state
	})
	if err != nil {
		return err
	}
	if _, faulted := result.(error); faulted {
		return s.db.DeleteSnapshot(ctx, session.ID)
	}
	return s.db.SaveSnapshot(ctx, session.ID, session.ProgramHash, result.(*intcode.State))
}

// Destroy removes a session and its checkpoint.
func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		session.worker.Stop()
	}
	if s.db != nil {
		return s.db.DeleteSnapshot(ctx, id)
	}
	return nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts sessions that haven't been accessed within the TTL.
func (s *SessionStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, session := range s.sessions {
		if session.lastUsed.Before(cutoff) {
			session.worker.Stop()
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Debug("sessions evicted", "count", removed)
	}
	return removed
}

// StartSweeper runs periodic TTL sweeps in the background.
// Returns a stop function.
func (s *SessionStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep(ttl)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

// Close stops every live session's worker.
func (s *SessionStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		session.worker.Stop()
		delete(s.sessions, id)
	}
}
