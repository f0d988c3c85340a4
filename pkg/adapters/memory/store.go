// Package memory provides an in-process key-value store. It backs tests
// and ephemeral sessions; nothing survives the process.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/promptvault/pkg/core"
)

var errTxDone = errors.New("transaction already finished")

// Store is a map of keys to byte values, safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	data   map[string][]byte
	writes int64
}

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns a copy of the value stored at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return slices.Clone(v), ok, nil
}

// Set stores a copy of value at key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = slices.Clone(value)
	s.writes++
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	s.writes++
	return nil
}

// Keys returns the stored keys, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data))
}

// Begin starts a transaction. Writes are buffered and applied together on
// Commit.
func (s *Store) Begin(ctx context.Context) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &transaction{store: s, staged: make(map[string][]byte)}, nil
}

type transaction struct {
	store  *Store
	staged map[string][]byte
	done   bool
}

func (t *transaction) Set(ctx context.Context, key string, value []byte) error {
	if t.done {
		return errTxDone
	}
	t.staged[key] = slices.Clone(value)
	return nil
}

func (t *transaction) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	maps.Copy(t.store.data, t.staged)
	t.store.writes++
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	t.done = true
	t.staged = nil
	return nil
}

// StoreState exposes internal state for observability.
type StoreState struct {
	Keys   int   `json:"keys"`
	Writes int64 `json:"writes"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreState{Keys: len(s.data), Writes: s.writes}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "memory"
}

var (
	_ core.Transactional           = (*Store)(nil)
	_ core.Deleter                 = (*Store)(nil)
	_ introspection.Introspectable = (*Store)(nil)
	_ introspection.Component      = (*Store)(nil)
)
