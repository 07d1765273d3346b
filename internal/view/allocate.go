package view

// allocate fills each cell with the events overlapping its period, in input
// order, and counts the badge-incrementing ones. The event slice is not
// modified.
func allocate[T any](cells []Cell[T], events []*Event[T]) []Cell[T] {
	for i := range cells {
		c := &cells[i]
		c.Events = make([]*Event[T], 0)
		c.BadgeTotal = 0
		for _, ev := range events {
			if !ev.overlaps(c.Date, c.end) {
				continue
			}
			c.Events = append(c.Events, ev)
			if ev.IncrementsBadgeTotal {
				c.BadgeTotal++
			}
		}
	}
	return cells
}
