package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/promptvault/pkg/adapters/fs"
	"github.com/aretw0/promptvault/pkg/adapters/memory"
	"github.com/aretw0/promptvault/pkg/adapters/sqlite"
	"github.com/aretw0/promptvault/pkg/core"
)

// Default locations relative to the working directory.
const (
	DefaultFSPath     = ".promptvault"
	DefaultSQLitePath = ".promptvault/library.db"
)

// DefaultPath returns the default store location for adapter, relative to
// the library root.
func DefaultPath(adapter string) string {
	switch adapter {
	case AdapterSQLite:
		return DefaultSQLitePath
	case AdapterMemory:
		return ""
	default:
		return DefaultFSPath
	}
}

// Init opens and initializes the storage collaborator selected by opts.
// The uri argument is adapter-specific: a directory for "fs", a database
// file for "sqlite", ignored for "memory".
func Init(ctx context.Context, uri string, opts ...Option) (core.Store, error) {
	return initStore(ctx, uri, apply(opts))
}

func initStore(ctx context.Context, uri string, o *options) (core.Store, error) {
	if o.store != nil {
		if err := initialize(ctx, o.store); err != nil {
			return nil, err
		}
		return o.store, nil
	}

	switch o.adapter {
	case AdapterFS:
		return initFS(ctx, uri, o)
	case AdapterSQLite:
		return initSQLite(ctx, uri, o)
	case AdapterMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

func initialize(ctx context.Context, store core.Store) error {
	if i, ok := store.(core.Initializer); ok {
		if err := i.Initialize(ctx); err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
	}
	return nil
}

// resolvePath applies dev safety. Read-only runs and an explicit opt-out
// use the real path.
func resolvePath(uri, fallback string, o *options) string {
	if uri == "" {
		uri = fallback
	}
	bypass := o.readOnly || !o.devSafety
	useTemp := o.forceTemp || (IsDevRun() && !bypass)
	resolved := ResolveStorePath(uri, useTemp)

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	switch {
	case useTemp:
		logger.Warn("running in SAFE MODE (dev sandbox)", "original_path", uri, "resolved_path", resolved)
	case IsDevRun() && o.readOnly:
		logger.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolved)
	case IsDevRun():
		logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolved)
	}
	return resolved
}

func initFS(ctx context.Context, uri string, o *options) (core.Store, error) {
	path := resolvePath(uri, DefaultPath(AdapterFS), o)
	store := fs.New(fs.Config{
		Path:      path,
		MustExist: o.mustExist || o.readOnly,
		Logger:    o.logger,
	})
	if err := initialize(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

func initSQLite(ctx context.Context, uri string, o *options) (core.Store, error) {
	path := resolvePath(uri, DefaultPath(AdapterSQLite), o)
	if o.mustExist || o.readOnly {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("database does not exist: %s", path)
		}
	}
	return sqlite.Open(ctx, path)
}
