// Package lifecycle exposes library events as a lifecycle.Source so they can
// be supervised alongside other process event sources.
package lifecycle

import (
	"context"
	"slices"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/promptvault/pkg/core"
)

// librarySource forwards core.Event values, which satisfy lifecycle.Event
// through their String method.
type librarySource struct {
	events <-chan core.Event
	types  []core.EventType
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source over a library event stream. When
// types are given, only events of those types are emitted.
func NewSource(events <-chan core.Event, types ...core.EventType) lifecycle.Source {
	return &librarySource{
		events: events,
		types:  types,
		out:    make(chan lifecycle.Event),
	}
}

func (s *librarySource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *librarySource) wants(e core.Event) bool {
	return len(s.types) == 0 || slices.Contains(s.types, e.Type)
}

// Start forwards events until ctx is done or the input closes, then closes
// Events.
func (s *librarySource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			var e core.Event
			var ok bool
			select {
			case <-ctx.Done():
				return nil
			case e, ok = <-s.events:
			}
			if !ok {
				return nil
			}
			if !s.wants(e) {
				continue
			}
			select {
			case s.out <- e:
			case <-ctx.Done():
				return nil
			}
		}
	})
	return nil
}
