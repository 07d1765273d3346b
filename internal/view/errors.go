package view

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidEventRange is returned when an event ends before it starts.
	ErrInvalidEventRange = errors.New("view: event ends before it starts")
	// ErrNilEvent is returned when the event list contains a nil entry.
	ErrNilEvent = errors.New("view: nil event")
)

// EventRangeError identifies the offending event by its input index.
type EventRangeError struct {
	Index    int
	StartsAt time.Time
	EndsAt   time.Time
}

func (e *EventRangeError) Error() string {
	return fmt.Sprintf("view: event %d ends at %s before it starts at %s",
		e.Index, e.EndsAt.Format(time.RFC3339), e.StartsAt.Format(time.RFC3339))
}

func (e *EventRangeError) Unwrap() error {
	return ErrInvalidEventRange
}

func validateEvents[T any](events []*Event[T]) error {
	for i, ev := range events {
		if ev == nil {
			return fmt.Errorf("view: event %d: %w", i, ErrNilEvent)
		}
		if ev.EndsAt.Before(ev.StartsAt) {
			return &EventRangeError{Index: i, StartsAt: ev.StartsAt, EndsAt: ev.EndsAt}
		}
	}
	return nil
}
