package rules

import (
	"fmt"
	"sync"
)

// Store is the authoritative, mutable rule set of a running application.
// Extraction never reads it directly: callers take a Set snapshot with
// CurrentRules and pass that to the engine.
type Store struct {
	mu  sync.RWMutex
	set Set
}

// NewStore creates a store holding defs
func NewStore(defs []Definition) (*Store, error) {
	set, err := NewSet(defs)
	if err != nil {
		return nil, err
	}
	return &Store{set: set}, nil
}

// SetRules replaces the active rule set. On error the previous set is kept.
func (s *Store) SetRules(defs []Definition) error {
	set, err := NewSet(defs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.set = set
	s.mu.Unlock()
	return nil
}

// CurrentRules returns the active snapshot
func (s *Store) CurrentRules() Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

// AddField appends def to the active set and returns the new snapshot
func (s *Store) AddField(def Definition) (Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.set.With(def)
	if err != nil {
		return s.set, err
	}
	s.set = next
	return next, nil
}

// RemoveField drops the field called name and returns the new snapshot
func (s *Store) RemoveField(name string) (Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, found := s.set.Without(name)
	if !found {
		return s.set, fmt.Errorf("field not found: %s", name)
	}
	s.set = next
	return next, nil
}
