// Package schema validates prompts, notes and library snapshots supplied
// from outside the process.
//
// Structural checks (field presence and primitive types) are expressed as
// JSON Schemas embedded in the binary; semantic checks (metadata
// invariants, referential integrity, uniqueness) are done in Go.
//
// Candidates are generic JSON values as produced by json.Unmarshal into
// `any`. Typed values (core.Prompt, core.Note) are accepted too and are
// converted through their JSON form first.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/metadata"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	compileOnce    sync.Once
	compileErr     error
	promptSchema   *jsonschema.Schema
	noteSchema     *jsonschema.Schema
	snapshotSchema *jsonschema.Schema
)

func compiled() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		for _, name := range []string{"prompt.json", "note.json", "snapshot.json"} {
			data, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				compileErr = fmt.Errorf("failed to read schema %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
				compileErr = fmt.Errorf("failed to load schema %s: %w", name, err)
				return
			}
		}
		if promptSchema, compileErr = compiler.Compile("prompt.json"); compileErr != nil {
			return
		}
		if noteSchema, compileErr = compiler.Compile("note.json"); compileErr != nil {
			return
		}
		snapshotSchema, compileErr = compiler.Compile("snapshot.json")
	})
	return compileErr
}

// toValue converts candidate into the generic form the schemas expect.
// Composite values always go through JSON so nested Go types (int,
// core.Prompt, typed slices) come back as float64, map[string]any and []any.
func toValue(candidate any) (any, error) {
	switch candidate.(type) {
	case nil, string, float64, bool:
		return candidate, nil
	}
	data, err := json.Marshal(candidate)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeInto converts a generic value into a typed one.
func decodeInto(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// ValidatePrompt reports whether candidate is a well-formed prompt. It never
// panics or returns an error, so it can be used to filter in bulk.
func ValidatePrompt(candidate any) bool {
	return CheckPrompt(candidate) == nil
}

// CheckPrompt is ValidatePrompt with the reason for rejection.
func CheckPrompt(candidate any) error {
	if err := compiled(); err != nil {
		return err
	}
	v, err := toValue(candidate)
	if err != nil {
		return fmt.Errorf("prompt is not JSON-encodable: %w", err)
	}
	if err := promptSchema.Validate(v); err != nil {
		return fmt.Errorf("prompt shape: %w", err)
	}

	obj, _ := v.(map[string]any)
	raw := obj["metadata"]
	if raw == nil {
		return nil
	}
	var meta core.Metadata
	if err := decodeInto(raw, &meta); err != nil {
		return fmt.Errorf("%w: %v", core.ErrMetadataInvalid, err)
	}
	return metadata.Validate(meta)
}

// ValidateNote reports whether candidate is a well-formed note owned by
// expectedPromptID.
func ValidateNote(candidate any, expectedPromptID string) bool {
	return CheckNote(candidate, expectedPromptID) == nil
}

// CheckNote is ValidateNote with the reason for rejection.
func CheckNote(candidate any, expectedPromptID string) error {
	if err := compiled(); err != nil {
		return err
	}
	v, err := toValue(candidate)
	if err != nil {
		return fmt.Errorf("note is not JSON-encodable: %w", err)
	}
	if err := noteSchema.Validate(v); err != nil {
		return fmt.Errorf("note shape: %w", err)
	}

	obj, _ := v.(map[string]any)
	if pid, _ := obj["promptId"].(string); pid != expectedPromptID {
		return fmt.Errorf("note promptId %q does not match group %q", pid, expectedPromptID)
	}
	created, hasCreated := obj["createdAt"].(float64)
	updated, hasUpdated := obj["updatedAt"].(float64)
	if hasCreated && hasUpdated && updated < created {
		return fmt.Errorf("note %v: %w", obj["noteId"], core.ErrTimestampOrdering)
	}
	return nil
}

// Result is a validated snapshot plus the keys of the orphan note groups
// that were removed from it.
type Result struct {
	Snapshot      *core.Snapshot
	DroppedGroups []string
}

// ValidateSnapshot checks a whole snapshot. Any invalid prompt or note
// rejects the snapshot; partial snapshots are never accepted. Note groups
// keyed by an unknown prompt ID are removed and reported, sorted, in
// DroppedGroups. Every failure matches core.ErrSnapshotInvalid.
func ValidateSnapshot(candidate any) (*Result, error) {
	if err := compiled(); err != nil {
		return nil, err
	}
	v, err := toValue(candidate)
	if err != nil {
		return nil, invalid("snapshot is not JSON-encodable: %v", err)
	}
	root, ok := v.(map[string]any)
	if !ok {
		return nil, invalid("root must be an object")
	}
	if err := snapshotSchema.Validate(root); err != nil {
		return nil, invalid("%v", err)
	}
	raw, _ := root["version"].(float64)
	if version := int(raw); version != core.SnapshotVersion {
		return nil, invalid("unsupported version %d (supported: %d)", version, core.SnapshotVersion)
	}

	prompts, _ := root["prompts"].([]any)
	ids := make(map[string]bool, len(prompts))
	for i, p := range prompts {
		if err := CheckPrompt(p); err != nil {
			return nil, invalid("prompts[%d]: %v", i, err)
		}
		obj, _ := p.(map[string]any)
		id, _ := obj["id"].(string)
		if ids[id] {
			return nil, invalid("prompts[%d]: duplicate id %q", i, id)
		}
		ids[id] = true
	}

	notes, _ := root["notes"].(map[string]any)
	keys := make([]string, 0, len(notes))
	for k := range notes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var dropped []string
	clean := make(map[string]any, len(notes))
	for _, key := range keys {
		if !ids[key] {
			dropped = append(dropped, key)
			continue
		}
		group, ok := notes[key].([]any)
		if !ok {
			return nil, invalid("notes[%q] must be an array", key)
		}
		seen := make([]string, 0, len(group))
		for i, n := range group {
			if err := CheckNote(n, key); err != nil {
				return nil, invalid("notes[%q][%d]: %v", key, i, err)
			}
			obj, _ := n.(map[string]any)
			noteID, _ := obj["noteId"].(string)
			if slices.Contains(seen, noteID) {
				return nil, invalid("notes[%q][%d]: duplicate noteId %q", key, i, noteID)
			}
			seen = append(seen, noteID)
		}
		clean[key] = group
	}

	accepted := make(map[string]any, len(root))
	for k, val := range root {
		accepted[k] = val
	}
	accepted["notes"] = clean
	// Stats are recomputed by the codec.
	delete(accepted, "stats")

	var snap core.Snapshot
	if err := decodeInto(accepted, &snap); err != nil {
		return nil, invalid("%v", err)
	}
	if snap.Prompts == nil {
		snap.Prompts = []core.Prompt{}
	}
	if snap.Notes == nil {
		snap.Notes = core.NoteMap{}
	}
	return &Result{Snapshot: &snap, DroppedGroups: dropped}, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrSnapshotInvalid, fmt.Sprintf(format, args...))
}
