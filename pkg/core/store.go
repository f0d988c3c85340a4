package core

import "context"

// Store is the storage collaborator: an opaque key-value byte store.
// Adhering to this interface keeps the library independent of where bytes
// live (files, SQLite, memory, browser storage behind a bridge...).
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error
}

// Deleter is implemented by stores that can remove a key. It lets a rollback
// restore "absent" exactly instead of writing an empty value.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Initializer is implemented by stores that need setup before first use
// (mkdir, schema migration, journal replay).
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Transaction stages writes to several keys and applies them as one unit.
type Transaction interface {
	// Set stages a value.
	Set(ctx context.Context, key string, value []byte) error

	// Commit applies all staged writes atomically.
	Commit(ctx context.Context) error

	// Rollback discards all staged writes. It is a no-op after Commit.
	Rollback(ctx context.Context) error
}

// Transactional is implemented by stores that can write both library keys
// as a single logical write.
type Transactional interface {
	Store

	// Begin starts a new transaction.
	Begin(ctx context.Context) (Transaction, error)
}

// Watchable is implemented by stores that can report changes made outside
// this process.
type Watchable interface {
	Watch(ctx context.Context) (<-chan Event, error)
}
