// Package selection keeps the set of courses a student has picked.
package selection

import (
	"sync"

	"coursesched/internal/model"
)

// Store is a set of course IDs with a side table from ID to the course
// record. Toggle prepends new members, so Courses lists the most recently
// selected course first. Store performs no conflict checks.
//
// A Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	order   []string
	records map[string]model.Course
}

func New() *Store {
	return &Store{records: make(map[string]model.Course)}
}

// Toggle removes c if it is selected and prepends it otherwise. It reports
// whether c is selected afterwards.
func (s *Store) Toggle(c model.Course) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[c.ID]; ok {
		delete(s.records, c.ID)
		for i, id := range s.order {
			if id == c.ID {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
		return false
	}

	s.records[c.ID] = c
	s.order = append([]string{c.ID}, s.order...)
	return true
}

func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

// Get returns the stored record for a selected ID.
func (s *Store) Get(id string) (model.Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.records[id]
	return c, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// IDs returns the selected IDs, most recent first.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Courses returns the selected records, most recent first.
func (s *Store) Courses() []model.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Course, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// Refresh rebinds records to the ones returned by lookup, typically after a
// schedule reload. IDs that lookup does not know keep their last record.
func (s *Store) Refresh(lookup func(id string) (model.Course, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if c, ok := lookup(id); ok {
			s.records[id] = c
		}
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.records = make(map[string]model.Course)
}
