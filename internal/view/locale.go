package view

import (
	"errors"
	"fmt"
	"time"

	"github.com/goodsign/monday"
)

// Locale carries the naming and week-start conventions used to build views.
// WeekdayNames is indexed by time.Weekday (Sunday == 0) regardless of
// FirstDayOfWeek.
type Locale struct {
	FirstDayOfWeek  time.Weekday
	MonthNames      [12]string
	ShortMonthNames [12]string
	WeekdayNames    [7]string
}

// DefaultLocale returns English names with Sunday as the first day.
func DefaultLocale() Locale {
	return LocaleFor(string(monday.LocaleEnUS), time.Sunday)
}

// LocaleFor builds month and weekday names for a monday locale code such as
// "fr_FR". Unknown codes yield English names.
func LocaleFor(code string, first time.Weekday) Locale {
	loc := monday.Locale(code)
	l := Locale{FirstDayOfWeek: first}
	for m := time.January; m <= time.December; m++ {
		t := time.Date(2001, m, 1, 0, 0, 0, 0, time.UTC)
		l.MonthNames[m-1] = monday.Format(t, "January", loc)
		l.ShortMonthNames[m-1] = monday.Format(t, "Jan", loc)
	}
	// 2001-01-07 is a Sunday.
	for d := time.Sunday; d <= time.Saturday; d++ {
		t := time.Date(2001, time.January, 7+int(d), 0, 0, 0, 0, time.UTC)
		l.WeekdayNames[d] = monday.Format(t, "Monday", loc)
	}
	return l
}

// KnownLocale reports whether code names a locale with translated names.
func KnownLocale(code string) bool {
	for _, l := range monday.ListLocales() {
		if string(l) == code {
			return true
		}
	}
	return false
}

// withDefaults fills any empty name from DefaultLocale, so callers can set
// only FirstDayOfWeek.
func (l Locale) withDefaults() Locale {
	def := DefaultLocale()
	for i := range l.MonthNames {
		if l.MonthNames[i] == "" {
			l.MonthNames[i] = def.MonthNames[i]
		}
		if l.ShortMonthNames[i] == "" {
			l.ShortMonthNames[i] = def.ShortMonthNames[i]
		}
	}
	for i := range l.WeekdayNames {
		if l.WeekdayNames[i] == "" {
			l.WeekdayNames[i] = def.WeekdayNames[i]
		}
	}
	return l
}

// Validate checks that the first day of week is a real weekday.
func (l Locale) Validate() error {
	if l.FirstDayOfWeek < time.Sunday || l.FirstDayOfWeek > time.Saturday {
		return fmt.Errorf("view: first day of week %d out of range 0-6", int(l.FirstDayOfWeek))
	}
	return nil
}

// WeekdayOrder returns the seven weekdays starting at FirstDayOfWeek.
func (l Locale) WeekdayOrder() []time.Weekday {
	out := make([]time.Weekday, 7)
	for i := range out {
		out[i] = time.Weekday((int(l.FirstDayOfWeek) + i) % 7)
	}
	return out
}

// dayLabel formats a short date such as "18 Oct".
func (l Locale) dayLabel(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), l.ShortMonthNames[t.Month()-1])
}

// DayOptions controls the day timeline geometry.
//
// The visible window runs from StartHour:00 up to the end of EndHour, so the
// defaults (0 and 23) cover the whole day.
type DayOptions struct {
	StartHour  int
	EndHour    int
	HourHeight float64
	LaneWidth  float64
}

// DefaultDayOptions returns a full-day timeline one unit per minute tall.
func DefaultDayOptions() DayOptions {
	return DayOptions{
		StartHour:  0,
		EndHour:    23,
		HourHeight: 60,
		LaneWidth:  150,
	}
}

// Validate checks the hour bounds and sizes.
func (o DayOptions) Validate() error {
	if o.StartHour < 0 || o.StartHour > 23 {
		return fmt.Errorf("view: day start hour %d out of range 0-23", o.StartHour)
	}
	if o.EndHour < o.StartHour || o.EndHour > 23 {
		return fmt.Errorf("view: day end hour %d out of range %d-23", o.EndHour, o.StartHour)
	}
	if o.HourHeight <= 0 {
		return errors.New("view: hour height must be positive")
	}
	if o.LaneWidth < 0 {
		return errors.New("view: lane width must not be negative")
	}
	return nil
}

// TimelineHeight is the full height of the day timeline. It counts nominal
// hours, so on a 23- or 25-hour DST day the same height is spread over the
// real elapsed time and one real hour is slightly more or less than
// HourHeight.
func (o DayOptions) TimelineHeight() float64 {
	return float64(o.EndHour-o.StartHour+1) * o.HourHeight
}
