// Package snapshot converts a library to and from its versioned export
// form.
package snapshot

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/metadata"
	"github.com/aretw0/promptvault/pkg/schema"
)

// Source is the read side of a library. *core.Library satisfies it.
type Source interface {
	Prompts() []core.Prompt
	Notes() core.NoteMap
}

// Decoded is an accepted snapshot plus the orphan note groups removed from
// it during validation.
type Decoded struct {
	Snapshot      *core.Snapshot
	DroppedGroups []string
}

// Codec encodes and decodes snapshots.
type Codec struct {
	now    func() time.Time
	logger *slog.Logger
	format Format
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock sets the clock used for exportedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) { c.logger = logger }
}

// WithFormat sets the byte format used by Marshal and Decode. Default JSON.
func WithFormat(f Format) Option {
	return func(c *Codec) { c.format = f }
}

// New creates a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		format: JSONFormat{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode builds a snapshot of src. Orphan note groups are left out. If any
// live prompt fails validation the whole export fails with
// core.ErrExportAborted.
func (c *Codec) Encode(src Source) (*core.Snapshot, error) {
	prompts := src.Prompts()
	notes := src.Notes()

	if dropped := notes.PruneOrphans(core.PromptIDs(prompts)); len(dropped) > 0 {
		c.logger.Warn("excluding orphan note groups from export", "dropped", len(dropped))
	}
	for i, p := range prompts {
		if err := schema.CheckPrompt(p); err != nil {
			return nil, fmt.Errorf("%w: prompts[%d] %s: %v", core.ErrExportAborted, i, p.ID, err)
		}
	}

	return &core.Snapshot{
		Version:    core.SnapshotVersion,
		ExportedAt: metadata.Format(c.now()),
		Stats:      ComputeStats(prompts),
		Prompts:    prompts,
		Notes:      notes,
	}, nil
}

// Marshal serializes snap with the codec's format.
func (c *Codec) Marshal(snap *core.Snapshot) ([]byte, error) {
	data, err := c.format.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Export is Encode followed by Marshal.
func (c *Codec) Export(src Source) ([]byte, error) {
	snap, err := c.Encode(src)
	if err != nil {
		return nil, err
	}
	return c.Marshal(snap)
}

// Decode parses and validates data. Bytes that do not parse fail with
// core.ErrParse; a parsed document that violates the schema fails with
// core.ErrSnapshotInvalid. Token estimates and stats are recomputed from
// the accepted prompts.
func (c *Codec) Decode(data []byte) (*Decoded, error) {
	v, err := c.format.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrParse, err)
	}
	res, err := schema.ValidateSnapshot(v)
	if err != nil {
		return nil, err
	}
	for i := range res.Snapshot.Prompts {
		res.Snapshot.Prompts[i].Reestimate()
	}
	res.Snapshot.Stats = ComputeStats(res.Snapshot.Prompts)
	if len(res.DroppedGroups) > 0 {
		c.logger.Info("dropped orphan note groups", "dropped", len(res.DroppedGroups))
	}
	return &Decoded{Snapshot: res.Snapshot, DroppedGroups: res.DroppedGroups}, nil
}

// Filename suggests a file name for an export taken at t.
func Filename(t time.Time) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(metadata.Format(t))
	return "prompt-library-export-" + stamp + ".json"
}
