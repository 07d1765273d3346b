package view

import (
	"strconv"
	"time"

	jnow "github.com/jinzhu/now"
)

// Granularity selects the view: a year of months, a month or week of days,
// or a single day timeline.
type Granularity int

const (
	GranularityYear Granularity = iota
	GranularityMonth
	GranularityWeek
	GranularityDay
)

func (g Granularity) String() string {
	switch g {
	case GranularityYear:
		return "year"
	case GranularityMonth:
		return "month"
	case GranularityWeek:
		return "week"
	case GranularityDay:
		return "day"
	default:
		return "unknown"
	}
}

// periods returns the jinzhu/now calendar for t with the given week start.
func periods(t time.Time, first time.Weekday) *jnow.Now {
	cfg := &jnow.Config{WeekStartDay: first, TimeLocation: t.Location()}
	return cfg.With(t)
}

func startOfDay(t time.Time) time.Time {
	return periods(t, time.Sunday).BeginningOfDay()
}

func startOfMonth(t time.Time) time.Time {
	return periods(t, time.Sunday).BeginningOfMonth()
}

func startOfWeek(t time.Time, first time.Weekday) time.Time {
	return periods(t, first).BeginningOfWeek()
}

// daysBetween counts calendar days from a's date to b's date. Both are read
// in a's location so DST days still count as one.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour))
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// setRelative sets exactly one of IsPast, IsToday and IsFuture by comparing
// the cell's period start with the period start holding now.
func setRelative[T any](c *Cell[T], nowPeriod time.Time) {
	switch c.Date.Compare(nowPeriod) {
	case -1:
		c.IsPast = true
	case 0:
		c.IsToday = true
	default:
		c.IsFuture = true
	}
}

// yearGrid returns the twelve month cells of the reference year.
func yearGrid[T any](ref, now time.Time, l Locale) []Cell[T] {
	first := periods(ref, l.FirstDayOfWeek).BeginningOfYear()
	nowMonth := startOfMonth(now.In(ref.Location()))

	cells := make([]Cell[T], 12)
	for i := range cells {
		start := first.AddDate(0, i, 0)
		cells[i] = Cell[T]{
			Date:  start,
			Label: l.MonthNames[i],
			end:   start.AddDate(0, 1, 0),
		}
		setRelative(&cells[i], nowMonth)
	}
	return cells
}

// monthGrid returns the day cells of the reference month padded to whole
// weeks. A month that fills exactly four weeks gets one trailing week so the
// grid is always 35 or 42 cells long.
func monthGrid[T any](ref, now time.Time, l Locale) []Cell[T] {
	monthStart := startOfMonth(ref)
	monthEnd := monthStart.AddDate(0, 1, 0)
	gridStart := startOfWeek(monthStart, l.FirstDayOfWeek)
	gridEnd := startOfWeek(monthEnd.AddDate(0, 0, -1), l.FirstDayOfWeek).AddDate(0, 0, 7)

	n := daysBetween(gridStart, gridEnd)
	if n < 35 {
		n = 35
	}
	today := startOfDay(now.In(ref.Location()))

	cells := make([]Cell[T], n)
	for i := range cells {
		day := gridStart.AddDate(0, 0, i)
		cells[i] = Cell[T]{
			Date:      day,
			Label:     strconv.Itoa(day.Day()),
			IsWeekend: isWeekend(day),
			InMonth:   day.Month() == monthStart.Month() && day.Year() == monthStart.Year(),
			end:       day.AddDate(0, 0, 1),
		}
		setRelative(&cells[i], today)
	}
	return cells
}

// weekGrid returns the seven day cells of the week holding ref.
func weekGrid[T any](ref, now time.Time, l Locale) []Cell[T] {
	weekStart := startOfWeek(ref, l.FirstDayOfWeek)
	today := startOfDay(now.In(ref.Location()))
	refMonth := startOfMonth(ref)

	cells := make([]Cell[T], 7)
	for i := range cells {
		day := weekStart.AddDate(0, 0, i)
		cells[i] = Cell[T]{
			Date:         day,
			Label:        strconv.Itoa(day.Day()),
			WeekDayLabel: l.WeekdayNames[day.Weekday()],
			DayLabel:     l.dayLabel(day),
			IsWeekend:    isWeekend(day),
			InMonth:      startOfMonth(day).Equal(refMonth),
			end:          day.AddDate(0, 0, 1),
		}
		setRelative(&cells[i], today)
	}
	return cells
}

// dayWindow returns the visible timeline window for the day holding ref.
func dayWindow(ref time.Time, o DayOptions) (time.Time, time.Time) {
	y, m, d := ref.Date()
	start := time.Date(y, m, d, o.StartHour, 0, 0, 0, ref.Location())
	end := time.Date(y, m, d, o.EndHour+1, 0, 0, 0, ref.Location())
	return start, end
}
