package view

import (
	"fmt"
	"time"
)

// Options configures a Builder. A nil Location means time.Local and empty
// locale names are filled from DefaultLocale individually. Day is replaced by
// DefaultDayOptions only when every field is zero, which is never a valid
// timeline on its own because HourHeight must be positive; any other value is
// validated as given.
type Options struct {
	Locale   Locale
	Location *time.Location
	Day      DayOptions
}

// Builder computes calendar views under one locale, display timezone and
// day timeline. It is immutable once built and safe for concurrent use.
type Builder struct {
	locale   Locale
	location *time.Location
	day      DayOptions
}

// NewBuilder validates opts and returns a ready Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	opts.Locale = opts.Locale.withDefaults()
	if err := opts.Locale.Validate(); err != nil {
		return nil, err
	}
	if opts.Day == (DayOptions{}) {
		opts.Day = DefaultDayOptions()
	}
	if err := opts.Day.Validate(); err != nil {
		return nil, err
	}
	return &Builder{
		locale:   opts.Locale,
		location: opts.Location,
		day:      opts.Day,
	}, nil
}

// Locale returns the builder's locale.
func (b *Builder) Locale() Locale { return b.locale }

// Location returns the display timezone.
func (b *Builder) Location() *time.Location { return b.location }

// DayOptions returns the day timeline geometry.
func (b *Builder) DayOptions() DayOptions { return b.day }

// WeekDayNames returns the full weekday names starting at the locale's first
// day of the week.
func (b *Builder) WeekDayNames() []string {
	order := b.locale.WeekdayOrder()
	out := make([]string, len(order))
	for i, wd := range order {
		out[i] = b.locale.WeekdayNames[wd]
	}
	return out
}

// Grid builds the empty cells for the given granularity. GranularityDay has
// no cell sequence and yields nil.
func Grid[T any](b *Builder, g Granularity, reference, now time.Time) []Cell[T] {
	ref := reference.In(b.location)
	switch g {
	case GranularityYear:
		return yearGrid[T](ref, now, b.locale)
	case GranularityMonth:
		return monthGrid[T](ref, now, b.locale)
	case GranularityWeek:
		return weekGrid[T](ref, now, b.locale)
	default:
		return nil
	}
}

// Window returns the half-open interval a view of granularity g around
// reference covers. Events outside it never appear in that view.
func (b *Builder) Window(g Granularity, reference time.Time) (time.Time, time.Time) {
	if g == GranularityDay {
		return dayWindow(reference.In(b.location), b.day)
	}
	cells := Grid[struct{}](b, g, reference, reference)
	if len(cells) == 0 {
		return time.Time{}, time.Time{}
	}
	return cells[0].Date, cells[len(cells)-1].end
}

// YearView returns the twelve month cells of the reference year with their
// events allocated. IsToday marks the month holding now.
func YearView[T any](b *Builder, events []*Event[T], reference, now time.Time) ([]Cell[T], error) {
	if err := validateEvents(events); err != nil {
		return nil, err
	}
	return allocate(Grid[T](b, GranularityYear, reference, now), events), nil
}

// MonthView returns the 35 or 42 day cells covering the reference month.
func MonthView[T any](b *Builder, events []*Event[T], reference, now time.Time) ([]Cell[T], error) {
	if err := validateEvents(events); err != nil {
		return nil, err
	}
	return allocate(Grid[T](b, GranularityMonth, reference, now), events), nil
}

// WeekView returns the week holding the reference date and the events
// overlapping it with their bar geometry.
func WeekView[T any](b *Builder, events []*Event[T], reference, now time.Time) (Week[T], error) {
	if err := validateEvents(events); err != nil {
		return Week[T]{}, err
	}
	days := allocate(Grid[T](b, GranularityWeek, reference, now), events)
	weekStart := days[0].Date
	weekEnd := weekStart.AddDate(0, 0, 7)
	return Week[T]{
		Days:   days,
		Events: computeSpans(weekStart, weekEnd, events),
	}, nil
}

// DayView positions the events of the reference day on the timeline.
func DayView[T any](b *Builder, events []*Event[T], reference time.Time) (Day[T], error) {
	if err := validateEvents(events); err != nil {
		return Day[T]{}, err
	}
	start, end := dayWindow(reference.In(b.location), b.day)
	return Day[T]{
		Start:  start,
		End:    end,
		Height: b.day.TimelineHeight(),
		Hours:  hourMarkers(start, end, b.day),
		Events: computeLayout(start, end, events, b.day),
	}, nil
}

// Build dispatches to the view function for g. It exists for callers that
// pick the granularity at runtime; the result is one of []Cell[T],
// Week[T] or Day[T].
func Build[T any](b *Builder, g Granularity, events []*Event[T], reference, now time.Time) (any, error) {
	switch g {
	case GranularityYear:
		return YearView(b, events, reference, now)
	case GranularityMonth:
		return MonthView(b, events, reference, now)
	case GranularityWeek:
		return WeekView(b, events, reference, now)
	case GranularityDay:
		return DayView(b, events, reference)
	default:
		return nil, fmt.Errorf("view: unknown granularity %d", int(g))
	}
}

// ParseGranularity maps "year", "month", "week" or "day" to a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "year":
		return GranularityYear, nil
	case "month":
		return GranularityMonth, nil
	case "week":
		return GranularityWeek, nil
	case "day":
		return GranularityDay, nil
	default:
		return 0, fmt.Errorf("view: unknown granularity %q", s)
	}
}
