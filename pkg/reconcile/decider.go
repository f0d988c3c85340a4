package reconcile

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/promptvault/pkg/core"
)

// Decision resolves a prompt ID collision during Merge.
type Decision int

const (
	// Keep leaves the existing prompt and its notes untouched and discards
	// the incoming note group.
	Keep Decision = iota
	// Overwrite replaces the existing prompt in place and merges notes, with
	// incoming notes winning on noteId collision.
	Overwrite
)

func (d Decision) String() string {
	switch d {
	case Keep:
		return "keep"
	case Overwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// ParseDecision accepts "keep" or "overwrite", case-insensitively.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keep":
		return Keep, nil
	case "overwrite":
		return Overwrite, nil
	default:
		return Keep, fmt.Errorf("unknown decision %q (want keep or overwrite)", s)
	}
}

// Decider is asked once per duplicate prompt ID. It may block, for
// example on a human answer, and should return when ctx is done.
type Decider interface {
	Decide(ctx context.Context, existing, incoming core.Prompt) (Decision, error)
}

// DecideFunc adapts a function to Decider.
type DecideFunc func(ctx context.Context, existing, incoming core.Prompt) (Decision, error)

func (f DecideFunc) Decide(ctx context.Context, existing, incoming core.Prompt) (Decision, error) {
	return f(ctx, existing, incoming)
}

// Always returns a Decider that answers d for every duplicate.
func Always(d Decision) Decider {
	return DecideFunc(func(context.Context, core.Prompt, core.Prompt) (Decision, error) {
		return d, nil
	})
}

var (
	KeepAll      = Always(Keep)
	OverwriteAll = Always(Overwrite)
)

// Script is a pre-recorded set of decisions, usually loaded from a YAML
// file:
//
//	default: keep
//	prompts:
//	  3f2a...: overwrite
type Script struct {
	Default   Decision
	Decisions map[string]Decision
}

type scriptFile struct {
	Default string            `yaml:"default"`
	Prompts map[string]string `yaml:"prompts"`
}

// LoadScript reads a decision script. A missing default means keep.
func LoadScript(r io.Reader) (*Script, error) {
	var f scriptFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse decisions: %w", err)
	}
	s := &Script{Default: Keep, Decisions: make(map[string]Decision, len(f.Prompts))}
	if f.Default != "" {
		d, err := ParseDecision(f.Default)
		if err != nil {
			return nil, err
		}
		s.Default = d
	}
	for id, v := range f.Prompts {
		d, err := ParseDecision(v)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", id, err)
		}
		s.Decisions[id] = d
	}
	return s, nil
}

func (s *Script) Decide(_ context.Context, existing, _ core.Prompt) (Decision, error) {
	if d, ok := s.Decisions[existing.ID]; ok {
		return d, nil
	}
	return s.Default, nil
}
