package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState is the observable state of a Service.
type ServiceState struct {
	Loaded          bool   `json:"loaded"`
	ReadOnly        bool   `json:"read_only"`
	Prompts         int    `json:"prompts"`
	Notes           int    `json:"notes"`
	NoteGroups      int    `json:"note_groups"`
	Subscribers     int    `json:"subscribers"`
	EventBufferSize int    `json:"event_buffer_size"`
	StoreType       string `json:"store_type"`
	Transactional   bool   `json:"transactional"`
	Store           any    `json:"store,omitempty"`
}

// State implements introspection.Introspectable. The store's own state is
// nested when the store exposes one.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := ServiceState{
		Loaded:          s.lib.loaded,
		ReadOnly:        s.lib.config.ReadOnly,
		Prompts:         len(s.lib.prompts),
		NoteGroups:      len(s.lib.notes),
		Subscribers:     s.broker.Subscribers(),
		EventBufferSize: s.eventBufferSize,
		StoreType:       "unknown",
	}
	for _, group := range s.lib.notes {
		st.Notes += len(group)
	}

	if s.lib.store != nil {
		st.StoreType = "store"
		if comp, ok := s.lib.store.(introspection.Component); ok {
			st.StoreType = comp.ComponentType()
		}
		if in, ok := s.lib.store.(introspection.Introspectable); ok {
			st.Store = in.State()
		}
		_, st.Transactional = s.lib.store.(Transactional)
	}
	return st
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var (
	_ introspection.Introspectable = (*Service)(nil)
	_ introspection.Component      = (*Service)(nil)
)
