package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path          string     `json:"path"`
	LockPath      string     `json:"lock_path"`
	Writes        int64      `json:"writes"`
	WatcherActive bool       `json:"watcher_active"`
	LastRecovery  *time.Time `json:"last_recovery,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreState{
		Path:          s.Path,
		LockPath:      s.lock.LockPath(),
		Writes:        s.writes,
		WatcherActive: s.watcherActive,
		LastRecovery:  s.lastRecovery,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "fs"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)

func (s *Store) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}
