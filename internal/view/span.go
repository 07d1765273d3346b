package view

import "time"

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// computeSpans returns the events overlapping [weekStart, weekEnd) with the
// day offset and span of their bar inside that window. Events starting
// before or ending after the window are clipped to it.
func computeSpans[T any](weekStart, weekEnd time.Time, events []*Event[T]) []WeekEvent[T] {
	loc := weekStart.Location()
	out := make([]WeekEvent[T], 0)

	for _, ev := range events {
		if !ev.overlaps(weekStart, weekEnd) {
			continue
		}
		start := maxTime(ev.StartsAt, weekStart).In(loc)
		end := minTime(ev.EndsAt, weekEnd).In(loc)

		offset := daysBetween(weekStart, start)
		dayEnd := daysBetween(weekStart, end)
		// A partially covered final day still takes a whole column.
		if end.After(startOfDay(end)) {
			dayEnd++
		}
		span := dayEnd - offset
		if span < 1 {
			span = 1
		}

		out = append(out, WeekEvent[T]{
			Event:     ev,
			DayOffset: offset,
			DaySpan:   span,
		})
	}
	return out
}
