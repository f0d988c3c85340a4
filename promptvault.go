package promptvault

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/promptvault/internal/platform"
	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/reconcile"
	"github.com/aretw0/promptvault/pkg/snapshot"
)

// --- Types ---

// Service is the prompt and note service over an opened library.
type Service = core.Service

// Prompt is a public alias for the prompt record.
type Prompt = core.Prompt

// Note is a public alias for the note record.
type Note = core.Note

// Snapshot is a public alias for the export format.
type Snapshot = core.Snapshot

// Decider chooses between an existing and an incoming prompt during merge.
type Decider = reconcile.Decider

// SnapshotVersion is the export format version this build reads and writes.
const SnapshotVersion = core.SnapshotVersion

// --- Configuration ---

// Option defines a functional option for configuring promptvault.
type Option = platform.Option

// WithAdapter selects the storage adapter by name ("fs", "sqlite" or "memory").
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithStore injects a storage collaborator.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// WithReadOnly enables read-only mode.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety controls the sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithMustExist requires the store location to exist already.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithForceTemp forces the use of the dev sandbox directory.
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDecisionTimeout bounds each conflict decision during Merge.
func WithDecisionTimeout(d time.Duration) Option {
	return platform.WithDecisionTimeout(d)
}

// WithEventBuffer sets the size of the event broker buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// --- Factory ---

// New opens the library at uri and returns its service.
func New(ctx context.Context, uri string, opts ...Option) (*Service, error) {
	return platform.New(ctx, uri, opts...)
}

// Close releases the resources held by the store behind svc.
func Close(svc *Service) error {
	return platform.Close(svc)
}

// --- Snapshots ---

// Export serializes the whole library as a JSON snapshot.
func Export(svc *Service) ([]byte, error) {
	var data []byte
	err := svc.Read(func(lib *core.Library) error {
		var err error
		data, err = snapshot.New().Export(lib)
		return err
	})
	return data, err
}

// Import decodes a JSON snapshot and merges it into the library. decider is
// consulted for every prompt whose ID already exists.
func Import(ctx context.Context, svc *Service, data []byte, decider Decider, opts ...Option) (*reconcile.Result, error) {
	decoded, err := snapshot.New().Decode(data)
	if err != nil {
		return nil, err
	}
	engine := platform.NewEngine(svc, opts...)
	var res *reconcile.Result
	err = svc.Write(func(lib *core.Library) error {
		var werr error
		res, werr = engine.Merge(ctx, lib, decoded, decider)
		return werr
	})
	return res, err
}

// Restore decodes a JSON snapshot and replaces the library with it.
func Restore(ctx context.Context, svc *Service, data []byte, opts ...Option) (*reconcile.Result, error) {
	decoded, err := snapshot.New().Decode(data)
	if err != nil {
		return nil, err
	}
	engine := platform.NewEngine(svc, opts...)
	var res *reconcile.Result
	err = svc.Write(func(lib *core.Library) error {
		var werr error
		res, werr = engine.Replace(ctx, lib, decoded)
		return werr
	})
	return res, err
}

// --- Safety & Utils ---

// ResolveStorePath determines the actual store path based on safety rules.
func ResolveStorePath(userPath string, forceTemp bool) string {
	return platform.ResolveStorePath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindRoot looks upwards from startDir for a library root marker.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
