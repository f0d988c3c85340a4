// Package reconcile integrates an external snapshot into a live library,
// either by replacing it wholesale or by merging with per-prompt conflict
// decisions. Both operations are all-or-nothing: a failed write restores
// the library to the state captured before the call.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/snapshot"
)

// ErrDecisionTimeout is returned when a Decider does not answer in time.
var ErrDecisionTimeout = errors.New("conflict decision timed out")

// Result summarises a completed reconciliation.
type Result struct {
	Added         int      `json:"added"`
	Overwritten   int      `json:"overwritten"`
	Kept          int      `json:"kept"`
	DroppedGroups []string `json:"droppedGroups"`
}

// Engine runs reconciliations. It is not reentrant: a call made while
// another is in flight fails with core.ErrBusy.
type Engine struct {
	logger          *slog.Logger
	publisher       core.Publisher
	now             func() time.Time
	decisionTimeout time.Duration
	restoreAttempts uint
	restoreDelay    time.Duration

	busy     atomic.Bool
	merges   atomic.Int64
	replaces atomic.Int64
	failures atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPublisher sets where MERGE and REPLACE events are sent.
func WithPublisher(p core.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithClock sets the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDecisionTimeout bounds each Decider call. Zero means no bound other
// than the context.
func WithDecisionTimeout(d time.Duration) Option {
	return func(e *Engine) { e.decisionTimeout = d }
}

// WithRestoreRetry sets how many times a rollback write is attempted.
func WithRestoreRetry(attempts uint, delay time.Duration) Option {
	return func(e *Engine) {
		e.restoreAttempts = attempts
		e.restoreDelay = delay
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:             time.Now,
		restoreAttempts: 3,
		restoreDelay:    50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) acquire() error {
	if !e.busy.CompareAndSwap(false, true) {
		return core.ErrBusy
	}
	return nil
}

func (e *Engine) release() { e.busy.Store(false) }

// Replace swaps the live library for the snapshot contents.
func (e *Engine) Replace(ctx context.Context, lib *core.Library, in *snapshot.Decoded) (*Result, error) {
	if err := e.acquire(); err != nil {
		return nil, err
	}
	defer e.release()
	e.replaces.Add(1)

	if in == nil || in.Snapshot == nil {
		return nil, e.fail(&core.MergeError{Op: "replace", Outcome: core.OutcomeUnchanged, Err: errors.New("no snapshot")})
	}
	if lib.ReadOnly() {
		return nil, e.fail(&core.MergeError{Op: "replace", Outcome: core.OutcomeUnchanged, Err: core.ErrReadOnly})
	}

	cp, err := lib.Checkpoint(ctx)
	if err != nil {
		return nil, e.fail(&core.MergeError{Op: "replace", Outcome: core.OutcomeUnchanged, Err: err})
	}
	prompts := core.ClonePrompts(in.Snapshot.Prompts)
	for i := range prompts {
		prompts[i].Reestimate()
	}
	lib.Set(prompts, in.Snapshot.Notes)
	if err := e.persist(ctx, lib, cp, "replace"); err != nil {
		return nil, err
	}

	res := &Result{Added: len(in.Snapshot.Prompts), DroppedGroups: dropped(in)}
	e.logger.Info("library replaced", "added", res.Added, "dropped", len(res.DroppedGroups))
	e.publish(core.EventReplace)
	return res, nil
}

// Merge integrates the snapshot into lib. The decider is consulted once for
// every incoming prompt whose ID already exists. New prompts are appended
// in snapshot order together with their notes.
//
// Failures before the write leave lib untouched and report
// core.OutcomeUnchanged. A failed write is rolled back to the pre-merge
// bytes of both storage keys.
func (e *Engine) Merge(ctx context.Context, lib *core.Library, in *snapshot.Decoded, decider Decider) (*Result, error) {
	if err := e.acquire(); err != nil {
		return nil, err
	}
	defer e.release()
	e.merges.Add(1)

	unchanged := func(err error) error {
		return e.fail(&core.MergeError{Op: "merge", Outcome: core.OutcomeUnchanged, Err: err})
	}
	if in == nil || in.Snapshot == nil {
		return nil, unchanged(errors.New("no snapshot"))
	}
	if decider == nil {
		decider = KeepAll
	}
	if lib.ReadOnly() {
		return nil, unchanged(core.ErrReadOnly)
	}

	cp, err := lib.Checkpoint(ctx)
	if err != nil {
		return nil, unchanged(err)
	}

	prompts := lib.Prompts()
	notes := lib.Notes()
	index := make(map[string]int, len(prompts))
	for i, p := range prompts {
		index[p.ID] = i
	}

	res := &Result{DroppedGroups: dropped(in)}
	incomingNotes := in.Snapshot.Notes
	for _, p := range in.Snapshot.Prompts {
		i, exists := index[p.ID]
		if !exists {
			index[p.ID] = len(prompts)
			p = p.Clone()
			p.Reestimate()
			prompts = append(prompts, p)
			setGroup(notes, p.ID, mergeNotes(nil, incomingNotes[p.ID]))
			res.Added++
			continue
		}

		d, err := e.decide(ctx, decider, prompts[i], p)
		if err != nil {
			return nil, unchanged(fmt.Errorf("prompt %s: %w", p.ID, err))
		}
		switch d {
		case Overwrite:
			prompts[i] = p.Clone()
			prompts[i].Reestimate()
			setGroup(notes, p.ID, mergeNotes(notes[p.ID], incomingNotes[p.ID]))
			res.Overwritten++
		default:
			res.Kept++
		}
	}

	if res.Added == 0 && res.Overwritten == 0 {
		e.logger.Info("merge made no changes", "kept", res.Kept, "dropped", len(res.DroppedGroups))
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, unchanged(err)
	}

	lib.Set(prompts, notes)
	if err := e.persist(ctx, lib, cp, "merge"); err != nil {
		return nil, err
	}

	e.logger.Info("merge applied",
		"added", res.Added,
		"overwritten", res.Overwritten,
		"kept", res.Kept,
		"dropped", len(res.DroppedGroups),
	)
	e.publish(core.EventMerge)
	return res, nil
}

// decide calls the decider bounded by ctx and the decision timeout.
func (e *Engine) decide(ctx context.Context, decider Decider, existing, incoming core.Prompt) (Decision, error) {
	if e.decisionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, e.decisionTimeout, ErrDecisionTimeout)
		defer cancel()
	}

	type answer struct {
		d   Decision
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		d, err := decider.Decide(ctx, existing.Clone(), incoming.Clone())
		ch <- answer{d, err}
	}()

	select {
	case a := <-ch:
		if a.err != nil {
			if ctx.Err() != nil {
				return Keep, context.Cause(ctx)
			}
			return Keep, a.err
		}
		if a.d != Keep && a.d != Overwrite {
			return Keep, fmt.Errorf("invalid decision %v", a.d)
		}
		return a.d, nil
	case <-ctx.Done():
		return Keep, context.Cause(ctx)
	}
}

// persist writes lib and rolls back to cp on failure.
func (e *Engine) persist(ctx context.Context, lib *core.Library, cp *core.Checkpoint, op string) error {
	err := lib.Persist(ctx)
	if err == nil {
		return nil
	}

	// The rollback must run even when ctx is what failed the write.
	restoreCtx := context.WithoutCancel(ctx)
	rbErr := retry.Do(
		func() error { return lib.Restore(restoreCtx, cp) },
		retry.Context(restoreCtx),
		retry.Attempts(max(e.restoreAttempts, 1)),
		retry.Delay(e.restoreDelay),
		retry.LastErrorOnly(true),
	)
	if rbErr != nil {
		e.logger.Error("rollback failed; storage may be inconsistent", "op", op, "error", rbErr)
		return e.fail(&core.MergeError{Op: op, Outcome: core.OutcomeRollbackFailed, Err: err, RollbackErr: rbErr})
	}
	e.logger.Warn("write failed, rolled back", "op", op, "error", err)
	return e.fail(&core.MergeError{Op: op, Outcome: core.OutcomeRolledBack, Err: err})
}

func (e *Engine) fail(err *core.MergeError) error {
	e.failures.Add(1)
	return err
}

func (e *Engine) publish(t core.EventType) {
	if e.publisher != nil {
		e.publisher.Publish(core.Event{Type: t, Timestamp: e.now().Unix()})
	}
}

func dropped(in *snapshot.Decoded) []string {
	if in.DroppedGroups == nil {
		return []string{}
	}
	return slices.Clone(in.DroppedGroups)
}

func setGroup(notes core.NoteMap, id string, group []core.Note) {
	if len(group) == 0 {
		delete(notes, id)
		return
	}
	notes[id] = group
}

// mergeNotes combines two note lists by noteId. Incoming notes replace
// existing ones with the same ID in place; the rest are appended.
func mergeNotes(existing, incoming []core.Note) []core.Note {
	out := slices.Clone(existing)
	pos := make(map[string]int, len(out)+len(incoming))
	for i, n := range out {
		pos[n.NoteID] = i
	}
	for _, n := range incoming {
		if i, ok := pos[n.NoteID]; ok {
			out[i] = n
			continue
		}
		pos[n.NoteID] = len(out)
		out = append(out, n)
	}
	return out
}
