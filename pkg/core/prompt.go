package core

import (
	"slices"
	"strings"

	"github.com/aretw0/promptvault/pkg/tokens"
)

// Storage keys used by every Store implementation.
const (
	KeyPrompts = "promptLibrary"
	KeyNotes   = "promptNotes"
)

// SnapshotVersion is the only export format version this build reads or writes.
const SnapshotVersion = 1

// MinRating and MaxRating bound Prompt.Rating.
const (
	MinRating = 0
	MaxRating = 5
)

// Prompt is the central entity of the library: a titled block of text with a
// rating and optional usage metadata. ID is immutable once assigned.
type Prompt struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt int64     `json:"createdAt"` // Unix milliseconds
	Rating    *int      `json:"rating"`    // nil means unrated
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// Metadata is the derived usage record of a prompt.
// Timestamps are ISO-8601 UTC strings with millisecond precision.
type Metadata struct {
	Model         string          `json:"model"`
	CreatedAt     string          `json:"createdAt"`
	UpdatedAt     string          `json:"updatedAt"`
	TokenEstimate tokens.Estimate `json:"tokenEstimate"`
}

// Note is a free-text annotation owned by exactly one prompt.
type Note struct {
	NoteID    string `json:"noteId"`
	PromptID  string `json:"promptId"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"` // Unix milliseconds
	UpdatedAt int64  `json:"updatedAt"`
}

// NoteMap groups notes by the ID of the prompt that owns them.
type NoteMap map[string][]Note

// Stats summarises a library at export time.
type Stats struct {
	TotalPrompts  int     `json:"totalPrompts"`
	AverageRating float64 `json:"averageRating"`
	MostUsedModel *string `json:"mostUsedModel"`
}

// Snapshot is the versioned export format of a whole library.
type Snapshot struct {
	Version    int      `json:"version"`
	ExportedAt string   `json:"exportedAt"`
	Stats      Stats    `json:"stats"`
	Prompts    []Prompt `json:"prompts"`
	Notes      NoteMap  `json:"notes"`
}

// RatingValue returns the rating, treating unrated as zero.
func (p Prompt) RatingValue() int {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// Model returns the trimmed model name, or "" without metadata.
func (p Prompt) Model() string {
	if p.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(p.Metadata.Model)
}

// Clone returns a deep copy of p.
func (p Prompt) Clone() Prompt {
	if p.Rating != nil {
		r := *p.Rating
		p.Rating = &r
	}
	if p.Metadata != nil {
		m := *p.Metadata
		p.Metadata = &m
	}
	return p
}

// Reestimate recomputes the token estimate from the content. Prompts
// without metadata are left alone.
func (p *Prompt) Reestimate() {
	if p.Metadata != nil {
		p.Metadata.TokenEstimate = tokens.For(p.Content)
	}
}

// ClonePrompts deep-copies a prompt slice. The result is never nil.
func ClonePrompts(in []Prompt) []Prompt {
	out := make([]Prompt, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// Clone deep-copies the map. The result is never nil.
func (m NoteMap) Clone() NoteMap {
	out := make(NoteMap, len(m))
	for k, notes := range m {
		out[k] = append([]Note(nil), notes...)
	}
	return out
}

// PromptIDs returns the set of IDs in prompts.
func PromptIDs(prompts []Prompt) map[string]bool {
	ids := make(map[string]bool, len(prompts))
	for _, p := range prompts {
		ids[p.ID] = true
	}
	return ids
}

// PruneOrphans removes groups whose key matches no prompt and returns the
// removed keys, sorted.
func (m NoteMap) PruneOrphans(ids map[string]bool) []string {
	var dropped []string
	for k := range m {
		if !ids[k] {
			dropped = append(dropped, k)
			delete(m, k)
		}
	}
	slices.Sort(dropped)
	return dropped
}

// Preview collapses whitespace and keeps the first n words of text.
func Preview(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "…"
}
