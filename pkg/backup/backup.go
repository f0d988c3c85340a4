// Package backup writes snapshot exports to a directory on a schedule,
// keeps the newest N of them and can commit each one to git.
package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aretw0/promptvault/pkg/adapters/fs"
	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/git"
	"github.com/aretw0/promptvault/pkg/snapshot"
)

// FilePattern matches the files a Runner owns in its directory.
const FilePattern = "prompt-library-export-*.json"

// Reader gives consistent read access to a library. *core.Service
// satisfies it.
type Reader interface {
	Read(fn func(lib *core.Library) error) error
}

// Config holds the configuration for a backup Runner.
type Config struct {
	Dir string
	// Keep is how many backups to retain. Zero keeps everything.
	Keep int
	// Versioning commits every backup to a git repository in Dir.
	Versioning bool
	// Schedule is a standard five-field cron expression used by Start.
	Schedule    string
	Logger      *slog.Logger
	Clock       func() time.Time
	LockTimeout time.Duration
}

// Result describes one backup run.
type Result struct {
	Path   string   `json:"path"`
	Pruned []string `json:"pruned,omitempty"`
}

// Runner produces backups.
type Runner struct {
	source Reader
	config Config
	git    *git.Client

	mu   sync.Mutex
	cron *cron.Cron
	last *Result
}

// New creates a Runner reading from source.
func New(source Reader, config Config) *Runner {
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.LockTimeout <= 0 {
		config.LockTimeout = 30 * time.Second
	}
	return &Runner{
		source: source,
		config: config,
		git:    git.NewClient(config.Dir, ".backup.lock", config.Logger),
	}
}

// Run writes one backup now.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	now := r.config.Clock()
	codec := snapshot.New(
		snapshot.WithClock(func() time.Time { return now }),
		snapshot.WithLogger(r.config.Logger),
	)
	var data []byte
	err := r.source.Read(func(lib *core.Library) error {
		var err error
		data, err = codec.Export(lib)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export library: %w", err)
	}

	unlock, err := r.git.Lock(ctx, r.config.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	name := snapshot.Filename(now)
	path := filepath.Join(r.config.Dir, name)
	if err := fs.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	pruned, err := r.prune()
	if err != nil {
		return nil, err
	}
	if r.config.Versioning {
		if err := r.commit(ctx, name, pruned); err != nil {
			return nil, err
		}
	}

	res := &Result{Path: path, Pruned: pruned}
	r.last = res
	r.config.Logger.Info("backup written", "path", path, "pruned", len(pruned))
	return res, nil
}

// List returns the backup files in Dir, oldest first.
func (r *Runner) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(r.config.Dir, FilePattern))
	if err != nil {
		return nil, err
	}
	// Names embed a fixed-width UTC timestamp, so lexical order is
	// chronological.
	slices.Sort(matches)
	return matches, nil
}

func (r *Runner) prune() ([]string, error) {
	if r.config.Keep <= 0 {
		return nil, nil
	}
	files, err := r.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	if len(files) <= r.config.Keep {
		return nil, nil
	}

	var pruned []string
	for _, f := range files[:len(files)-r.config.Keep] {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return pruned, fmt.Errorf("failed to prune %s: %w", f, err)
		}
		pruned = append(pruned, filepath.Base(f))
	}
	return pruned, nil
}

func (r *Runner) commit(ctx context.Context, name string, pruned []string) error {
	if !git.IsInstalled() {
		return fmt.Errorf("backup versioning requires git")
	}
	if !r.git.IsRepo(ctx) {
		if err := r.git.Init(ctx); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
	}
	if err := r.git.Add(ctx, name); err != nil {
		return fmt.Errorf("failed to git add: %w", err)
	}
	if err := r.git.Rm(ctx, pruned...); err != nil {
		return fmt.Errorf("failed to git rm: %w", err)
	}
	if err := r.git.Commit(ctx, "backup: "+name); err != nil {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	return nil
}

// Start runs backups on the configured schedule until ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(r.config.Schedule, func() {
		if _, err := r.Run(ctx); err != nil {
			r.config.Logger.Error("scheduled backup failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", r.config.Schedule, err)
	}

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()

	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

// Next returns the next scheduled run, or the zero time when not started.
func (r *Runner) Next() time.Time {
	r.mu.Lock()
	c := r.cron
	r.mu.Unlock()
	if c == nil {
		return time.Time{}
	}
	entries := c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Last returns the most recent successful run, or nil.
func (r *Runner) Last() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
