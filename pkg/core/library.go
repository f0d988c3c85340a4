package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// LibraryConfig holds the configuration for a Library.
type LibraryConfig struct {
	Logger   *slog.Logger
	ReadOnly bool
}

// Library is an explicit handle on the prompt collection and note map held
// by a Store. State moves between memory and storage only through Load and
// Persist.
//
// A Library is not safe for concurrent use; callers serialize access.
type Library struct {
	store  Store
	config LibraryConfig

	prompts []Prompt
	notes   NoteMap
	loaded  bool
}

// NewLibrary creates a library over store. Call Load before reading.
func NewLibrary(store Store, config LibraryConfig) *Library {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Library{
		store:   store,
		config:  config,
		prompts: []Prompt{},
		notes:   NoteMap{},
	}
}

// Store returns the underlying storage collaborator.
func (l *Library) Store() Store { return l.store }

// ReadOnly reports whether Persist is disabled.
func (l *Library) ReadOnly() bool { return l.config.ReadOnly }

// Loaded reports whether Load has completed at least once.
func (l *Library) Loaded() bool { return l.loaded }

// Prompts returns a deep copy of the prompt collection in stored order.
func (l *Library) Prompts() []Prompt { return ClonePrompts(l.prompts) }

// Notes returns a deep copy of the note map.
func (l *Library) Notes() NoteMap { return l.notes.Clone() }

// Len returns the number of prompts.
func (l *Library) Len() int { return len(l.prompts) }

// Find returns the index of the prompt with id, or -1.
func (l *Library) Find(id string) int {
	for i, p := range l.prompts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Set replaces the in-memory state. Nothing is written until Persist.
func (l *Library) Set(prompts []Prompt, notes NoteMap) {
	l.prompts = ClonePrompts(prompts)
	if notes == nil {
		notes = NoteMap{}
	}
	l.notes = notes.Clone()
}

// Load reads both keys from the store.
//
// Malformed payloads are tolerated the way the library always has: an
// unreadable collection loads as empty, individual undecodable records are
// skipped, out-of-range ratings reset to 0, token estimates are recomputed
// from content and orphan note groups are pruned. Storage read errors are
// returned as-is.
func (l *Library) Load(ctx context.Context) error {
	prompts, err := l.loadPrompts(ctx)
	if err != nil {
		return err
	}
	notes, err := l.loadNotes(ctx)
	if err != nil {
		return err
	}

	if dropped := notes.PruneOrphans(PromptIDs(prompts)); len(dropped) > 0 {
		l.config.Logger.Warn("pruned orphan note groups on load", "dropped", len(dropped))
	}

	l.prompts = prompts
	l.notes = notes
	l.loaded = true
	return nil
}

func (l *Library) loadPrompts(ctx context.Context) ([]Prompt, error) {
	raw, ok, err := l.store.Get(ctx, KeyPrompts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", KeyPrompts, err)
	}
	prompts := []Prompt{}
	if !ok || len(raw) == 0 {
		return prompts, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		l.config.Logger.Warn("failed to parse prompt storage", "key", KeyPrompts, "error", err)
		return prompts, nil
	}

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		var p Prompt
		if err := json.Unmarshal(item, &p); err != nil || strings.TrimSpace(p.ID) == "" || seen[p.ID] {
			l.config.Logger.Warn("skipping unreadable prompt record", "key", KeyPrompts)
			continue
		}
		seen[p.ID] = true
		hydrate(&p)
		prompts = append(prompts, p)
	}
	return prompts, nil
}

// hydrate normalises a record written by an older or foreign client.
func hydrate(p *Prompt) {
	if p.Rating != nil && (*p.Rating < MinRating || *p.Rating > MaxRating) {
		zero := 0
		p.Rating = &zero
	}
	p.Reestimate()
}

func (l *Library) loadNotes(ctx context.Context) (NoteMap, error) {
	raw, ok, err := l.store.Get(ctx, KeyNotes)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", KeyNotes, err)
	}
	notes := NoteMap{}
	if !ok || len(raw) == 0 {
		return notes, nil
	}

	var groups map[string]json.RawMessage
	if err := json.Unmarshal(raw, &groups); err != nil {
		l.config.Logger.Warn("failed to parse notes storage", "key", KeyNotes, "error", err)
		return notes, nil
	}
	for id, group := range groups {
		var list []Note
		if err := json.Unmarshal(group, &list); err != nil {
			l.config.Logger.Warn("skipping unreadable note group", "prompt_id", id)
			continue
		}
		notes[id] = list
	}
	return notes, nil
}

// Encode returns the bytes Persist would write for each key. Orphan groups
// are excluded.
func (l *Library) Encode() (prompts, notes []byte, err error) {
	clean := l.notes.Clone()
	if dropped := clean.PruneOrphans(PromptIDs(l.prompts)); len(dropped) > 0 {
		l.config.Logger.Warn("refusing to persist orphan note groups", "dropped", len(dropped))
	}
	if prompts, err = json.Marshal(l.prompts); err != nil {
		return nil, nil, fmt.Errorf("%w: encode prompts: %v", ErrWrite, err)
	}
	if notes, err = json.Marshal(clean); err != nil {
		return nil, nil, fmt.Errorf("%w: encode notes: %v", ErrWrite, err)
	}
	return prompts, notes, nil
}

// Persist writes the prompt collection and note map as one logical write.
// Transactional stores commit both keys together; other stores are written
// prompts first, then notes.
func (l *Library) Persist(ctx context.Context) error {
	if l.config.ReadOnly {
		return ErrReadOnly
	}
	prompts, notes, err := l.Encode()
	if err != nil {
		return err
	}
	return writeKeys(ctx, l.store, map[string][]byte{KeyPrompts: prompts, KeyNotes: notes}, nil)
}

// Checkpoint is a rollback point: the raw bytes of both keys plus the
// in-memory state at capture time. It is plain data, not a transaction log.
type Checkpoint struct {
	raw     map[string][]byte
	present map[string]bool
	prompts []Prompt
	notes   NoteMap
}

// Checkpoint captures the current stored bytes and in-memory state.
func (l *Library) Checkpoint(ctx context.Context) (*Checkpoint, error) {
	cp := &Checkpoint{
		raw:     make(map[string][]byte, 2),
		present: make(map[string]bool, 2),
		prompts: ClonePrompts(l.prompts),
		notes:   l.notes.Clone(),
	}
	for _, key := range []string{KeyPrompts, KeyNotes} {
		raw, ok, err := l.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to capture %s: %w", key, err)
		}
		cp.raw[key] = append([]byte(nil), raw...)
		cp.present[key] = ok
	}
	return cp, nil
}

// Restore puts both the store and the in-memory state back to cp. Keys that
// were absent are deleted when the store supports it. The in-memory state is
// restored even if the storage write fails.
func (l *Library) Restore(ctx context.Context, cp *Checkpoint) error {
	l.prompts = ClonePrompts(cp.prompts)
	l.notes = cp.notes.Clone()
	if l.config.ReadOnly {
		return nil
	}

	values := make(map[string][]byte, 2)
	var absent []string
	for _, key := range []string{KeyPrompts, KeyNotes} {
		if cp.present[key] {
			values[key] = cp.raw[key]
			continue
		}
		if _, ok := l.store.(Deleter); ok {
			absent = append(absent, key)
			continue
		}
		values[key] = emptyValue(key)
	}
	return writeKeys(ctx, l.store, values, absent)
}

func emptyValue(key string) []byte {
	if key == KeyNotes {
		return []byte("{}")
	}
	return []byte("[]")
}

// writeKeys writes values (prompts before notes) and deletes absent keys.
func writeKeys(ctx context.Context, store Store, values map[string][]byte, absent []string) error {
	order := make([]string, 0, 2)
	for _, key := range []string{KeyPrompts, KeyNotes} {
		if _, ok := values[key]; ok {
			order = append(order, key)
		}
	}

	if tr, ok := store.(Transactional); ok && len(absent) == 0 {
		tx, err := tr.Begin(ctx)
		if err != nil {
			return fmt.Errorf("%w: begin: %v", ErrWrite, err)
		}
		for _, key := range order {
			if err := tx.Set(ctx, key, values[key]); err != nil {
				_ = tx.Rollback(ctx)
				return wrapWrite(key, err)
			}
		}
		if err := tx.Commit(ctx); err != nil {
			_ = tx.Rollback(ctx)
			return wrapWrite("commit", err)
		}
		return nil
	}

	for _, key := range order {
		if err := store.Set(ctx, key, values[key]); err != nil {
			return wrapWrite(key, err)
		}
	}
	if d, ok := store.(Deleter); ok {
		for _, key := range absent {
			if err := d.Delete(ctx, key); err != nil {
				return wrapWrite(key, err)
			}
		}
	}
	return nil
}

func wrapWrite(what string, err error) error {
	if errors.Is(err, ErrWrite) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrWrite, what, err)
}
