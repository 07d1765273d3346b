// Package refresh keeps the parsed ICS snapshot current.
package refresh

import (
	"slices"
	"sync"
	"time"

	"calview/internal/ics"
)

// Status describes the outcome of the most recent refresh.
type Status struct {
	UpdatedAt time.Time `json:"updated_at"`
	Sources   int       `json:"sources"`
	Events    int       `json:"events"`
	LastError string    `json:"last_error,omitempty"`
}

// Store holds the latest parsed events. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	events []ics.ParsedEvent
	status Status
}

func NewStore() *Store {
	return &Store{events: []ics.ParsedEvent{}}
}

// Set replaces the snapshot.
func (s *Store) Set(events []ics.ParsedEvent, sources int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = slices.Clone(events)
	s.status = Status{UpdatedAt: at, Sources: sources, Events: len(events)}
}

// SetError records a failed refresh without touching the snapshot.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.status.LastError = ""
		return
	}
	s.status.LastError = err.Error()
}

// Events returns a copy of the snapshot.
func (s *Store) Events() []ics.ParsedEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Occurrences expands the snapshot over [start, end) in loc.
func (s *Store) Occurrences(start, end time.Time, loc *time.Location) (ics.ExpandResult, error) {
	return ics.ExpandOccurrences(s.Events(), ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start,
		RangeEnd:        end,
	})
}
