// Package store persists Intcode programs and session snapshots in SQLite.
//
// Programs are content addressed: the key is the hex SHA-256 of the
// program's binary image, so storing the same program twice is a no-op.
// Snapshots are keyed by session ID and hold CBOR-encoded VM state.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/intcode/pkg/image"
	"github.com/chazu/intcode/pkg/intcode"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("intcode.store")

// ErrNotFound indicates the requested program or snapshot doesn't exist.
var ErrNotFound = errors.New("not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS programs (
		hash    TEXT PRIMARY KEY,
		name    TEXT NOT NULL DEFAULT '',
		image   BLOB NOT NULL,
		created INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		session      TEXT PRIMARY KEY,
		program_hash TEXT NOT NULL DEFAULT '',
		state        BLOB NOT NULL,
		updated      INTEGER NOT NULL
	)`,
}

// Store is a SQLite-backed program and snapshot store. It is safe for
// concurrent use.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// ProgramInfo describes a stored program without its image.
type ProgramInfo struct {
	Hash    string
	Name    string
	Cells   int
	Created time.Time
}

// Snapshot is a stored session checkpoint.
type Snapshot struct {
	Session     string
	ProgramHash string
	State       *intcode.State
	Updated     time.Time
}

// Open opens or creates the database at path. The special path
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}

	log.Debug("store opened", "path", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path given to Open.
func (s *Store) Path() string { return s.path }

// Hash returns the content address of program.
func Hash(program []int64) string {
	sum := sha256.Sum256(image.EncodeBinary(program))
	return hex.EncodeToString(sum[:])
}

// PutProgram stores program under its hash and returns the hash. The name
// of an already stored program is kept.
func (s *Store) PutProgram(ctx context.Context, name string, program []int64) (string, error) {
	h := Hash(program)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO programs (hash, name, image, created) VALUES (?, ?, ?, ?)",
		h, name, image.EncodeBinary(program), time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("saving program: %w", err)
	}
	return h, nil
}

// GetProgram loads the program stored under hash.
func (s *Store) GetProgram(ctx context.Context, hash string) ([]int64, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, "SELECT image FROM programs WHERE hash = ?", hash).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("program %s: %w", hash, ErrNotFound)
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}
	program, err := image.DecodeBinary(blob)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", hash, err)
	}
	return program, nil
}

// ListPrograms returns all stored programs, newest first.
func (s *Store) ListPrograms(ctx context.Context) ([]ProgramInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT hash, name, image, created FROM programs ORDER BY created DESC, hash")
	if err != nil {
		return nil, fmt.Errorf("listing programs: %w", err)
	}
	defer rows.Close()

	var out []ProgramInfo
	for rows.Next() {
		var (
			info    ProgramInfo
			blob    []byte
			created int64
		)
		if err := rows.Scan(&info.Hash, &info.Name, &blob, &created); err != nil {
			return nil, fmt.Errorf("scanning program: %w", err)
		}
		program, err := image.DecodeBinary(blob)
		if err != nil {
			return nil, fmt.Errorf("program %s: %w", info.Hash, err)
		}
		info.Cells = len(program)
		info.Created = time.Unix(created, 0)
		out = append(out, info)
	}
	return out, rows.Err()
}

// SaveSnapshot stores or replaces the checkpoint for session.
func (s *Store) SaveSnapshot(ctx context.Context, session, programHash string, state *intcode.State) error {
	data, err := intcode.MarshalState(state)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO snapshots (session, program_hash, state, updated) VALUES (?, ?, ?, ?)",
		session, programHash, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot loads the checkpoint for session.
func (s *Store) LoadSnapshot(ctx context.Context, session string) (*Snapshot, error) {
	var (
		snap    = Snapshot{Session: session}
		data    []byte
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT program_hash, state, updated FROM snapshots WHERE session = ?", session,
	).Scan(&snap.ProgramHash, &data, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot %s: %w", session, ErrNotFound)
		}
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	state, err := intcode.UnmarshalState(data)
	if err != nil {
		return nil, err
	}
	snap.State = state
	snap.Updated = time.Unix(updated, 0)
	return &snap, nil
}

// DeleteSnapshot removes the checkpoint for session. Deleting a missing
// snapshot is not an error.
func (s *Store) DeleteSnapshot(ctx context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE session = ?", session); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}

// ListSessions returns the IDs of all checkpointed sessions.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT session FROM snapshots ORDER BY session")
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
