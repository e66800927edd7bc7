// Package manifest handles intcode.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "intcode.toml"

// Defaults applied at load time.
const (
	DefaultAddr          = "localhost:8741"
	DefaultDatabase      = ".intcode/intcode.db"
	DefaultSessionTTL    = 30 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

// Manifest represents an intcode.toml project configuration.
type Manifest struct {
	Program ProgramConfig `toml:"program"`
	Run     RunConfig     `toml:"run"`
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`

	// Dir is the directory containing the intcode.toml file (set at load time).
	Dir string `toml:"-"`
}

// ProgramConfig locates the program image.
type ProgramConfig struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
	// Format is "text" or "binary"; empty means infer from the extension.
	Format string `toml:"format"`
}

// RunConfig configures `intcode run`.
type RunConfig struct {
	Inputs []int64 `toml:"inputs"`
	// Lines are sent as ASCII input after Inputs, one newline each.
	Lines    []string `toml:"lines"`
	ASCII    bool     `toml:"ascii"`
	MaxSteps uint64   `toml:"max-steps"`
	Trace    bool     `toml:"trace"`
	// MaxMemory caps VM memory in cells; 0 means the VM default.
	MaxMemory int64 `toml:"max-memory"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// ServerConfig configures `intcode serve`.
type ServerConfig struct {
	Addr          string        `toml:"addr"`
	Database      string        `toml:"database"`
	SessionTTL    time.Duration `toml:"session-ttl"`
	SweepInterval time.Duration `toml:"sweep-interval"`
	MaxSteps      uint64        `toml:"max-steps"`
	MaxMemory     int64         `toml:"max-memory"`
}

// Load parses an intcode.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return m, nil
}

// Default returns the configuration used when no manifest exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Server.Addr == "" {
		m.Server.Addr = DefaultAddr
	}
	if m.Server.Database == "" {
		m.Server.Database = DefaultDatabase
	}
	if m.Server.SessionTTL <= 0 {
		m.Server.SessionTTL = DefaultSessionTTL
	}
	if m.Server.SweepInterval <= 0 {
		m.Server.SweepInterval = DefaultSweepInterval
	}
}

// FindAndLoad walks up from startDir to find an intcode.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ProgramPath returns the program image path resolved against the
// manifest directory, or "" if none is configured.
func (m *Manifest) ProgramPath() string {
	return m.resolve(m.Program.Path)
}

// DatabasePath returns the server database path resolved against the
// manifest directory.
func (m *Manifest) DatabasePath() string {
	if m.Server.Database == ":memory:" {
		return m.Server.Database
	}
	return m.resolve(m.Server.Database)
}

// LogPath returns the log file path, or "" to log to stderr.
func (m *Manifest) LogPath() string {
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
