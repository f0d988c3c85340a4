package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// journal lists every key a commit is about to write. It is written
// atomically before any key file, so after a crash it is either absent
// (nothing was applied) or complete (replay it).
type journal struct {
	Version int               `json:"version"`
	Entries map[string][]byte `json:"entries"`
}

const journalVersion = 1

// Transaction implements core.Transaction for the filesystem.
type Transaction struct {
	store  *Store
	staged map[string][]byte
	mu     sync.Mutex
	closed bool
}

func newTransaction(s *Store) *Transaction {
	return &Transaction{
		store:  s,
		staged: make(map[string][]byte),
	}
}

// Set stages a write.
func (t *Transaction) Set(ctx context.Context, key string, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transaction closed")
	}
	if err := validKey(key); err != nil {
		return err
	}
	t.staged[key] = slices.Clone(value)
	return nil
}

// Commit applies all staged writes as one unit.
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transaction already closed")
	}
	if len(t.staged) == 0 {
		t.closed = true
		return nil
	}

	unlock, err := t.store.lock.Lock(ctx, t.store.config.LockTimeout)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer unlock()

	data, err := json.Marshal(journal{Version: journalVersion, Entries: t.staged})
	if err != nil {
		return fmt.Errorf("failed to encode journal: %w", err)
	}
	journalPath := filepath.Join(t.store.Path, JournalName)
	if err := WriteFile(journalPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}

	// From here on the commit is durable: a failed apply is finished by the
	// next Initialize.
	if err := t.store.apply(t.staged); err != nil {
		return err
	}
	if err := os.Remove(journalPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear journal: %w", err)
	}

	t.closed = true
	return nil
}

// Rollback discards all staged changes.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.staged = nil
	t.closed = true
	return nil
}

// apply writes entries in key order. The lock must be held.
func (s *Store) apply(entries map[string][]byte) error {
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		if err := s.write(key, entries[key]); err != nil {
			return err
		}
	}
	return nil
}

// recoverJournal finishes a commit interrupted after its journal was
// written. The lock must be held.
func (s *Store) recoverJournal() error {
	journalPath := filepath.Join(s.Path, JournalName)
	data, err := os.ReadFile(journalPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	var j journal
	if err := json.Unmarshal(data, &j); err != nil || j.Version != journalVersion {
		s.config.Logger.Warn("discarding unreadable journal", "path", journalPath)
		return os.Remove(journalPath)
	}
	for key := range j.Entries {
		if err := validKey(key); err != nil {
			s.config.Logger.Warn("discarding journal with invalid key", "key", key)
			return os.Remove(journalPath)
		}
	}

	s.config.Logger.Info("replaying interrupted commit", "keys", len(j.Entries))
	if err := s.apply(j.Entries); err != nil {
		return fmt.Errorf("failed to replay journal: %w", err)
	}
	if err := os.Remove(journalPath); err != nil {
		return fmt.Errorf("failed to clear journal: %w", err)
	}

	s.mu.Lock()
	now := time.Now()
	s.lastRecovery = &now
	s.mu.Unlock()
	return nil
}
