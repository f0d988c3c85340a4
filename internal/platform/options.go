package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/promptvault/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
	AdapterMemory = "memory"
)

// options holds the internal configuration for a promptvault service.
type options struct {
	store           core.Store
	logger          *slog.Logger
	adapter         string
	clock           core.Clock
	readOnly        bool
	devSafety       bool
	mustExist       bool
	forceTemp       bool
	decisionTimeout time.Duration
	eventBuffer     int
}

// Option defines a functional option for configuring promptvault.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		adapter:   AdapterFS,
		devSafety: true,
	}
}

func apply(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithAdapter selects the storage adapter by name ("fs", "sqlite" or "memory").
// Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithStore injects a storage collaborator. The adapter setting is ignored.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithLogger sets the logger for the service and its store.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces time.Now for metadata timestamps.
func WithClock(now core.Clock) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithReadOnly enables read-only mode.
// In this mode:
// 1. Mutations return core.ErrReadOnly.
// 2. The store directory is not created.
// 3. Dev Safety is bypassed (the real path is used).
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or `go test`.
// By default (true) such runs are redirected into a temporary directory.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithMustExist requires the store location to exist already.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithForceTemp forces the store into the dev sandbox directory.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDecisionTimeout bounds each interactive conflict decision during merge.
// Zero means no bound beyond the caller's context.
func WithDecisionTimeout(d time.Duration) Option {
	return func(o *options) {
		o.decisionTimeout = d
	}
}

// WithEventBuffer sets the size of the event broker buffer.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}
