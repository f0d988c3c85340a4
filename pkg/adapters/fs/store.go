// Package fs stores library keys as files in a directory, one JSON file per
// key. Writes are atomic per file (temp file plus rename) and serialized
// across processes with a lock file. Transactions write a journal first so
// a crash between the two key writes is repaired on the next Initialize.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/git"
)

const (
	// FileExt is appended to a key to form its file name.
	FileExt = ".json"
	// JournalName is the pending-commit journal file.
	JournalName = ".promptvault-journal.json"
	// DefaultLockTimeout bounds how long a write waits for another process.
	DefaultLockTimeout = 10 * time.Second
	// selfWriteWindow hides watcher events caused by this process's own writes.
	selfWriteWindow = 500 * time.Millisecond
)

// Config holds the configuration for the filesystem store.
type Config struct {
	Path        string
	MustExist   bool
	Logger      *slog.Logger
	LockName    string        // defaults to git.DefaultLockName
	LockTimeout time.Duration // defaults to DefaultLockTimeout
	Perm        os.FileMode   // defaults to 0644
}

// Store implements core.Store, core.Transactional and core.Deleter on a
// directory.
type Store struct {
	Path   string
	config Config
	lock   *git.Client

	mu            sync.RWMutex
	selfWrites    map[string]time.Time
	watcherActive bool
	writes        int64
	lastRecovery  *time.Time
}

// New creates a filesystem store. Call Initialize before use.
func New(config Config) *Store {
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.LockTimeout <= 0 {
		config.LockTimeout = DefaultLockTimeout
	}
	if config.Perm == 0 {
		config.Perm = 0644
	}
	return &Store{
		Path:       config.Path,
		config:     config,
		lock:       git.NewClient(config.Path, config.LockName, config.Logger),
		selfWrites: make(map[string]time.Time),
	}
}

// Initialize creates the directory (unless MustExist), removes temp files
// of interrupted writes and replays a pending journal left by an
// interrupted commit.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.MustExist {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", s.Path)
		}
		if err != nil {
			return fmt.Errorf("failed to stat store path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", s.Path)
		}
	} else if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	unlock, err := s.lock.Lock(ctx, s.config.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()
	if removed, err := CleanTemp(s.Path); err != nil {
		return fmt.Errorf("failed to clean temp files: %w", err)
	} else if len(removed) > 0 {
		s.config.Logger.Debug("removed stale temp files", "count", len(removed))
	}
	return s.recoverJournal()
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}

func (s *Store) filename(key string) string {
	return filepath.Join(s.Path, key+FileExt)
}

// Get reads the file for key. A missing file reports ok=false.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validKey(key); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(s.filename(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

// Set writes value to the file for key atomically.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	unlock, err := s.lock.Lock(ctx, s.config.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()
	return s.write(key, value)
}

// Delete removes the file for key. A missing file is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	unlock, err := s.lock.Lock(ctx, s.config.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	s.markSelfWrite(key)
	if err := os.Remove(s.filename(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	s.countWrite()
	return nil
}

// Begin starts a new transaction.
func (s *Store) Begin(ctx context.Context) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newTransaction(s), nil
}

// write must be called with the lock held.
func (s *Store) write(key string, value []byte) error {
	s.markSelfWrite(key)
	if err := WriteFile(s.filename(key), value, s.config.Perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	s.countWrite()
	return nil
}

func (s *Store) markSelfWrite(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selfWrites[key] = time.Now()
}

// isSelfWrite reports whether key was written by this process recently.
func (s *Store) isSelfWrite(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.selfWrites[key]
	return ok && time.Since(at) < selfWriteWindow
}

func (s *Store) countWrite() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
}

var (
	_ core.Transactional = (*Store)(nil)
	_ core.Deleter       = (*Store)(nil)
	_ core.Initializer   = (*Store)(nil)
	_ core.Watchable     = (*Store)(nil)
)
