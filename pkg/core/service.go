package core

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// MetadataTracker builds and refreshes prompt metadata.
type MetadataTracker interface {
	Create(model, content string) (Metadata, error)
	Touch(m Metadata) (Metadata, error)
}

// Clock returns the current time.
type Clock func() time.Time

// ServiceConfig holds the collaborators of a Service.
type ServiceConfig struct {
	Tracker     MetadataTracker
	Clock       Clock
	EventBuffer int
}

// Service handles the day-to-day operations on prompts and notes. Every
// mutating call persists the library before returning; a failed write
// reverts the in-memory change.
type Service struct {
	mu      sync.RWMutex
	lib     *Library
	tracker MetadataTracker
	now     Clock
	broker  *Broker

	eventBufferSize int
}

// NewService creates a Service over a loaded library.
func NewService(lib *Library, config ServiceConfig) *Service {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultEventBuffer
	}
	return &Service{
		lib:             lib,
		tracker:         config.Tracker,
		now:             config.Clock,
		broker:          NewBroker(config.EventBuffer),
		eventBufferSize: config.EventBuffer,
	}
}

// Library returns the library handle. Callers that mutate it directly (the
// reconciliation engine) must not run concurrently with the Service.
func (s *Service) Library() *Library { return s.lib }

// Broker returns the event broker the service publishes to.
func (s *Service) Broker() *Broker { return s.broker }

// Subscribe returns a channel of library events until ctx is done.
func (s *Service) Subscribe(ctx context.Context) <-chan Event {
	return s.broker.Subscribe(ctx)
}

// Read runs fn with shared access to the library. fn must not mutate it.
func (s *Service) Read(fn func(lib *Library) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.lib)
}

// Write runs fn with exclusive access to the library, for callers such as
// the reconciliation engine that load, change and persist it themselves.
func (s *Service) Write(fn func(lib *Library) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.lib)
}

// Publish forwards an event to subscribers.
func (s *Service) Publish(e Event) {
	s.broker.Publish(e)
}

// Reload re-reads the library from storage.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lib.Load(ctx)
}

func (s *Service) publish(t EventType, id string) {
	s.broker.Publish(Event{Type: t, ID: id, Timestamp: s.now().Unix()})
}

// commit persists the library, restoring the previous in-memory state when
// the write fails.
func (s *Service) commit(ctx context.Context, prompts []Prompt, notes NoteMap) error {
	prevPrompts, prevNotes := s.lib.prompts, s.lib.notes
	s.lib.prompts, s.lib.notes = prompts, notes
	if err := s.lib.Persist(ctx); err != nil {
		s.lib.prompts, s.lib.notes = prevPrompts, prevNotes
		return err
	}
	return nil
}

// --- Prompts ---

// AddPrompt creates a prompt. Title and content are trimmed and required.
// An empty model creates a prompt without metadata.
func (s *Service) AddPrompt(ctx context.Context, title, content, model string) (Prompt, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	model = strings.TrimSpace(model)
	if title == "" {
		return Prompt{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidPrompt)
	}
	if content == "" {
		return Prompt{}, fmt.Errorf("%w: content cannot be empty", ErrInvalidContent)
	}

	zero := 0
	p := Prompt{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		CreatedAt: s.now().UnixMilli(),
		Rating:    &zero,
	}
	if model != "" {
		if s.tracker == nil {
			return Prompt{}, fmt.Errorf("%w: no metadata tracker configured", ErrMetadataInvalid)
		}
		meta, err := s.tracker.Create(model, content)
		if err != nil {
			return Prompt{}, err
		}
		p.Metadata = &meta
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prompts := append(ClonePrompts(s.lib.prompts), p)
	if err := s.commit(ctx, prompts, s.lib.notes); err != nil {
		return Prompt{}, err
	}
	s.publish(EventCreate, p.ID)
	return p.Clone(), nil
}

// GetPrompt returns the prompt with id.
func (s *Service) GetPrompt(ctx context.Context, id string) (Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.lib.Find(id)
	if i < 0 {
		return Prompt{}, fmt.Errorf("prompt %s: %w", id, ErrNotFound)
	}
	return s.lib.prompts[i].Clone(), nil
}

// ListOptions filters ListPrompts.
type ListOptions struct {
	// Match is a glob (doublestar syntax) tested against title and model.
	Match string
	// MinRating drops prompts rated below it.
	MinRating int
}

// ListPrompts returns prompts in stored order.
func (s *Service) ListPrompts(ctx context.Context, opts ListOptions) ([]Prompt, error) {
	if opts.Match != "" && !doublestar.ValidatePattern(opts.Match) {
		return nil, fmt.Errorf("invalid match pattern %q", opts.Match)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Prompt, 0, len(s.lib.prompts))
	for _, p := range s.lib.prompts {
		if p.RatingValue() < opts.MinRating {
			continue
		}
		if opts.Match != "" && !matches(opts.Match, p) {
			continue
		}
		out = append(out, p.Clone())
	}
	return out, nil
}

func matches(pattern string, p Prompt) bool {
	pattern = strings.ToLower(pattern)
	for _, candidate := range []string{p.Title, p.Model()} {
		if candidate == "" {
			continue
		}
		if ok, _ := doublestar.Match(pattern, strings.ToLower(candidate)); ok {
			return true
		}
	}
	return false
}

// DeletePrompt removes a prompt together with its notes.
func (s *Service) DeletePrompt(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.lib.Find(id)
	if i < 0 {
		return fmt.Errorf("prompt %s: %w", id, ErrNotFound)
	}
	prompts := slices.Delete(ClonePrompts(s.lib.prompts), i, i+1)
	notes := s.lib.notes.Clone()
	delete(notes, id)
	if err := s.commit(ctx, prompts, notes); err != nil {
		return err
	}
	s.publish(EventDelete, id)
	return nil
}

// RatePrompt sets the rating, clamped to 0..5. Setting the current value is
// a no-op.
func (s *Service) RatePrompt(ctx context.Context, id string, rating int) (Prompt, error) {
	rating = max(MinRating, min(MaxRating, rating))

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.lib.Find(id)
	if i < 0 {
		return Prompt{}, fmt.Errorf("prompt %s: %w", id, ErrNotFound)
	}
	if cur := s.lib.prompts[i]; cur.Rating != nil && *cur.Rating == rating {
		return cur.Clone(), nil
	}
	prompts := ClonePrompts(s.lib.prompts)
	prompts[i].Rating = &rating
	if err := s.commit(ctx, prompts, s.lib.notes); err != nil {
		return Prompt{}, err
	}
	s.publish(EventModify, id)
	return prompts[i].Clone(), nil
}

// TouchPrompt refreshes the metadata updatedAt of a prompt.
func (s *Service) TouchPrompt(ctx context.Context, id string) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.lib.Find(id)
	if i < 0 {
		return Prompt{}, fmt.Errorf("prompt %s: %w", id, ErrNotFound)
	}
	if s.lib.prompts[i].Metadata == nil {
		return Prompt{}, fmt.Errorf("%w: prompt %s has no metadata", ErrMetadataInvalid, id)
	}
	if s.tracker == nil {
		return Prompt{}, fmt.Errorf("%w: no metadata tracker configured", ErrMetadataInvalid)
	}
	meta, err := s.tracker.Touch(*s.lib.prompts[i].Metadata)
	if err != nil {
		return Prompt{}, err
	}
	prompts := ClonePrompts(s.lib.prompts)
	prompts[i].Metadata = &meta
	if err := s.commit(ctx, prompts, s.lib.notes); err != nil {
		return Prompt{}, err
	}
	s.publish(EventModify, id)
	return prompts[i].Clone(), nil
}

// --- Notes ---

// Notes returns the notes of a prompt, newest first.
func (s *Service) Notes(ctx context.Context, promptID string) ([]Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lib.Find(promptID) < 0 {
		return nil, fmt.Errorf("prompt %s: %w", promptID, ErrNotFound)
	}
	notes := append([]Note(nil), s.lib.notes[promptID]...)
	SortNotes(notes)
	return notes, nil
}

// SortNotes orders notes by createdAt descending, then by ID for stability.
func SortNotes(notes []Note) {
	slices.SortStableFunc(notes, func(a, b Note) int {
		if a.CreatedAt != b.CreatedAt {
			if a.CreatedAt > b.CreatedAt {
				return -1
			}
			return 1
		}
		return strings.Compare(a.NoteID, b.NoteID)
	})
}

// AddNote attaches a note to a prompt. Text is trimmed and required.
func (s *Service) AddNote(ctx context.Context, promptID, text string) (Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Note{}, fmt.Errorf("%w: note cannot be empty", ErrInvalidNote)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lib.Find(promptID) < 0 {
		return Note{}, fmt.Errorf("prompt %s: %w", promptID, ErrNotFound)
	}
	now := s.now().UnixMilli()
	n := Note{
		NoteID:    uuid.NewString(),
		PromptID:  promptID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	notes := s.lib.notes.Clone()
	notes[promptID] = append(notes[promptID], n)
	if err := s.commit(ctx, s.lib.prompts, notes); err != nil {
		return Note{}, err
	}
	s.publish(EventModify, promptID)
	return n, nil
}

// EditNote replaces the text of a note and refreshes its updatedAt.
func (s *Service) EditNote(ctx context.Context, promptID, noteID, text string) (Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Note{}, fmt.Errorf("%w: note cannot be empty", ErrInvalidNote)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.lib.notes.Clone()
	group := notes[promptID]
	i := slices.IndexFunc(group, func(n Note) bool { return n.NoteID == noteID })
	if i < 0 {
		return Note{}, fmt.Errorf("note %s: %w", noteID, ErrNotFound)
	}
	group[i].Text = text
	group[i].UpdatedAt = max(s.now().UnixMilli(), group[i].CreatedAt)
	if err := s.commit(ctx, s.lib.prompts, notes); err != nil {
		return Note{}, err
	}
	s.publish(EventModify, promptID)
	return group[i], nil
}

// DeleteNote removes a note. An emptied group is removed from the map.
func (s *Service) DeleteNote(ctx context.Context, promptID, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.lib.notes.Clone()
	group := notes[promptID]
	i := slices.IndexFunc(group, func(n Note) bool { return n.NoteID == noteID })
	if i < 0 {
		return fmt.Errorf("note %s: %w", noteID, ErrNotFound)
	}
	group = slices.Delete(group, i, i+1)
	if len(group) == 0 {
		delete(notes, promptID)
	} else {
		notes[promptID] = group
	}
	if err := s.commit(ctx, s.lib.prompts, notes); err != nil {
		return err
	}
	s.publish(EventModify, promptID)
	return nil
}
