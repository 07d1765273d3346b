package view

import (
	"slices"
	"time"
)

// computeLayout positions the events overlapping [dayStart, dayEnd) on a
// timeline of the configured height. Blocks that clip to zero duration are
// dropped. The result keeps input order.
func computeLayout[T any](dayStart, dayEnd time.Time, events []*Event[T], o DayOptions) []DayEvent[T] {
	height := o.TimelineHeight()
	window := dayEnd.Sub(dayStart)
	scale := func(d time.Duration) float64 {
		return float64(d) * height / float64(window)
	}

	blocks := make([]DayEvent[T], 0, len(events))
	for _, ev := range events {
		if !ev.overlaps(dayStart, dayEnd) {
			continue
		}
		start := maxTime(ev.StartsAt, dayStart)
		end := minTime(ev.EndsAt, dayEnd)
		if !end.After(start) {
			continue
		}

		top := scale(start.Sub(dayStart))
		h := scale(end.Sub(start))
		if top+h > height {
			h = height - top
		}
		blocks = append(blocks, DayEvent[T]{
			Event:  ev,
			Top:    top,
			Height: h,
			start:  start,
			end:    end,
		})
	}

	assignLanes(blocks, o.LaneWidth)
	return blocks
}

// assignLanes gives every block the lowest lane whose previous occupant has
// ended by the block's start. Blocks are visited by start time; equal starts
// keep input order.
func assignLanes[T any](blocks []DayEvent[T], laneWidth float64) {
	order := make([]int, len(blocks))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return blocks[a].start.Compare(blocks[b].start)
	})

	var laneEnds []time.Time
	for _, idx := range order {
		b := &blocks[idx]
		lane := -1
		for l, busyUntil := range laneEnds {
			if !busyUntil.After(b.start) {
				lane = l
				break
			}
		}
		if lane < 0 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, time.Time{})
		}
		laneEnds[lane] = b.end
		b.Lane = lane
		b.Left = float64(lane) * laneWidth
	}
}

// hourMarkers lists one marker per elapsed hour from dayStart up to dayEnd.
// Markers step by real hours, so a spring-forward day has no marker for the
// skipped hour and a fall-back day repeats the label of the doubled hour at
// a different offset. Offsets are proportional to elapsed time over the
// fixed timeline height.
func hourMarkers(dayStart, dayEnd time.Time, o DayOptions) []HourMarker {
	height := o.TimelineHeight()
	window := dayEnd.Sub(dayStart)

	out := make([]HourMarker, 0, o.EndHour-o.StartHour+2)
	for t := dayStart; t.Before(dayEnd); t = t.Add(time.Hour) {
		out = append(out, HourMarker{
			Time:  t,
			Label: t.Format("15:04"),
			Top:   float64(t.Sub(dayStart)) * height / float64(window),
		})
	}
	return out
}
