// Package view computes calendar view models (year, month, week and day)
// from a list of timed events. Every function here is a pure transform of
// its inputs: "now" is always passed in, nothing is cached between calls,
// and the events handed in are shared by pointer but never modified.
package view

import "time"

// Event is a single timed entry placed on the calendar. Payload carries
// whatever the caller needs downstream (summary, location, IDs) and is
// never inspected here.
type Event[T any] struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`

	// IncrementsBadgeTotal marks the event as counting toward the badge
	// shown on the cells it is allocated to.
	IncrementsBadgeTotal bool `json:"increments_badge_total,omitempty"`

	Payload T `json:"payload"`
}

// overlaps reports whether the event intersects the half-open period
// [start, end). A zero-duration event belongs to the period holding its
// instant.
func (e *Event[T]) overlaps(start, end time.Time) bool {
	if e.StartsAt.Equal(e.EndsAt) {
		return !e.StartsAt.Before(start) && e.StartsAt.Before(end)
	}
	return e.StartsAt.Before(end) && e.EndsAt.After(start)
}

// Cell is one unit of a calendar grid: a month in the year view or a day in
// the month and week views.
type Cell[T any] struct {
	// Date is the first instant of the period this cell covers.
	Date  time.Time `json:"date"`
	Label string    `json:"label"`

	// Week view only.
	WeekDayLabel string `json:"week_day_label,omitempty"`
	DayLabel     string `json:"day_label,omitempty"`

	IsPast    bool `json:"is_past"`
	IsToday   bool `json:"is_today"`
	IsFuture  bool `json:"is_future"`
	IsWeekend bool `json:"is_weekend"`
	InMonth   bool `json:"in_month"`

	Events     []*Event[T] `json:"events"`
	BadgeTotal int         `json:"badge_total"`

	end time.Time
}

// WeekEvent is an event overlapping a week window together with the bar
// geometry it occupies inside that window.
type WeekEvent[T any] struct {
	Event *Event[T] `json:"event"`

	// DayOffset is the zero-based index of the first visible day.
	DayOffset int `json:"day_offset"`
	// DaySpan is the number of visible days, at least 1.
	DaySpan int `json:"day_span"`
}

// Week is the seven day cells of a week plus the events overlapping it.
type Week[T any] struct {
	Days   []Cell[T]      `json:"days"`
	Events []WeekEvent[T] `json:"events"`
}

// DayEvent is an event block positioned on the day timeline.
type DayEvent[T any] struct {
	Event *Event[T] `json:"event"`

	Top    float64 `json:"top"`
	Height float64 `json:"height"`

	// Lane is the horizontal slot; concurrent events never share one.
	Lane int     `json:"lane"`
	Left float64 `json:"left"`

	start time.Time
	end   time.Time
}

// HourMarker is one hour line on the day timeline.
type HourMarker struct {
	Time  time.Time `json:"time"`
	Label string    `json:"label"`
	Top   float64   `json:"top"`
}

// Day is the positioned timeline for a single day.
type Day[T any] struct {
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	Height float64       `json:"height"`
	Hours  []HourMarker  `json:"hours"`
	Events []DayEvent[T] `json:"events"`
}
