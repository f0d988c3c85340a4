// Package metadata builds, refreshes and validates the usage metadata
// attached to prompts.
package metadata

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/tokens"
)

// Layout is the only accepted timestamp shape: ISO-8601 UTC with milliseconds.
const Layout = "2006-01-02T15:04:05.000Z"

// MaxModelLength is the longest accepted model name, in characters, after trimming.
const MaxModelLength = 100

var isoPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`)

// Format renders t in Layout.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Parse reads a Layout timestamp. The string must match the pattern
// literally and name a real instant.
func Parse(s string) (time.Time, error) {
	if !isoPattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q is not ISO 8601 (YYYY-MM-DDTHH:mm:ss.sssZ)", core.ErrInvalidTimestamp, s)
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a real date", core.ErrInvalidTimestamp, s)
	}
	return t, nil
}

// ValidateModel checks a model name: non-empty after trimming and at most
// MaxModelLength characters.
func ValidateModel(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: model name must be a non-empty string", core.ErrInvalidModelName)
	}
	if utf8.RuneCountInString(trimmed) > MaxModelLength {
		return fmt.Errorf("%w: model name exceeds %d character limit", core.ErrInvalidModelName, MaxModelLength)
	}
	return nil
}

// Tracker creates and refreshes metadata against a clock.
type Tracker struct {
	now func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now. Imported data may carry synthetic clocks, and
// so may tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates a Tracker using the wall clock unless overridden.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create builds metadata for a new prompt.
func (t *Tracker) Create(model, content string) (core.Metadata, error) {
	if err := ValidateModel(model); err != nil {
		return core.Metadata{}, err
	}
	if strings.TrimSpace(content) == "" {
		return core.Metadata{}, fmt.Errorf("%w: content must be a non-empty string", core.ErrInvalidContent)
	}

	now := Format(t.now())
	return core.Metadata{
		Model:         strings.TrimSpace(model),
		CreatedAt:     now,
		UpdatedAt:     now,
		TokenEstimate: tokens.For(content),
	}, nil
}

// Touch returns m with updatedAt set to now. m is not modified.
func (t *Tracker) Touch(m core.Metadata) (core.Metadata, error) {
	created, err := Parse(m.CreatedAt)
	if err != nil {
		return core.Metadata{}, fmt.Errorf("createdAt: %w", err)
	}
	now := t.now()
	// Parse truncates to milliseconds; compare at the same precision.
	if now.Truncate(time.Millisecond).Before(created) {
		return core.Metadata{}, fmt.Errorf("%w: %s < %s", core.ErrTimestampOrdering, Format(now), m.CreatedAt)
	}
	m.UpdatedAt = Format(now)
	return m, nil
}

// Validate re-checks every metadata invariant.
func (t *Tracker) Validate(m core.Metadata) error {
	return Validate(m)
}

// Validate re-checks every metadata invariant. Failures match
// core.ErrMetadataInvalid and, where one applies, the specific cause.
func Validate(m core.Metadata) error {
	if err := ValidateModel(m.Model); err != nil {
		return fmt.Errorf("%w: %w", core.ErrMetadataInvalid, err)
	}
	created, err := Parse(m.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: createdAt: %w", core.ErrMetadataInvalid, err)
	}
	updated, err := Parse(m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: updatedAt: %w", core.ErrMetadataInvalid, err)
	}
	if updated.Before(created) {
		return fmt.Errorf("%w: %w", core.ErrMetadataInvalid, core.ErrTimestampOrdering)
	}

	est := m.TokenEstimate
	switch {
	case est.Min < 0:
		return fmt.Errorf("%w: tokenEstimate.min is negative", core.ErrMetadataInvalid)
	case est.Max < est.Min:
		return fmt.Errorf("%w: tokenEstimate.max is below min", core.ErrMetadataInvalid)
	case !est.Confidence.Valid():
		return fmt.Errorf("%w: tokenEstimate.confidence %q is unknown", core.ErrMetadataInvalid, est.Confidence)
	}
	return nil
}

var _ core.MetadataTracker = (*Tracker)(nil)
