package ics

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//calview//test//EN
BEGIN:VEVENT
UID:standup@example.com
DTSTAMP:20151001T000000Z
DTSTART:20151019T090000Z
DTEND:20151019T093000Z
SUMMARY:Standup
RRULE:FREQ=DAILY;COUNT=5
EXDATE:20151021T090000Z
END:VEVENT
BEGIN:VEVENT
UID:standup@example.com
DTSTAMP:20151001T000000Z
RECURRENCE-ID:20151022T090000Z
DTSTART:20151022T100000Z
DTEND:20151022T103000Z
SUMMARY:Standup (moved)
END:VEVENT
BEGIN:VEVENT
UID:holiday@example.com
DTSTAMP:20151001T000000Z
DTSTART;VALUE=DATE:20151023
DTEND;VALUE=DATE:20151024
SUMMARY:Company Holiday
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20151001T000000Z
DTSTART:20151020T120000Z
SUMMARY:No UID
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func parseSample(t *testing.T) []ParsedEvent {
	t.Helper()
	events, err := ParseICS(Source{ID: "team", URL: "https://example.com/team.ics"}, crlf(sampleICS))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	return events
}

func TestParseICS(t *testing.T) {
	events := parseSample(t)
	if len(events) != 3 {
		t.Fatalf("expected 3 events (UID-less skipped), got %d", len(events))
	}

	base := events[0]
	if base.UID != "standup@example.com" || base.RawRRule == "" || len(base.ExDates) != 1 {
		t.Fatalf("unexpected base event: %+v", base)
	}
	if !base.Start.Equal(time.Date(2015, 10, 19, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %s", base.Start)
	}

	override := events[1]
	if !override.IsOverride || override.Recurrence == nil {
		t.Fatalf("expected override, got %+v", override)
	}

	holiday := events[2]
	if !holiday.AllDay {
		t.Fatal("expected all-day event")
	}
	if got := holiday.End.Sub(holiday.Start); got != 24*time.Hour {
		t.Fatalf("expected one-day duration, got %s", got)
	}
}

func TestParseICSRejectsEmpty(t *testing.T) {
	if _, err := ParseICS(Source{ID: "x"}, []byte("  \n")); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestExpandOccurrences(t *testing.T) {
	events := parseSample(t)
	res, err := ExpandOccurrences(events, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2015, 10, 19, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2015, 10, 26, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("ExpandOccurrences: %v", err)
	}

	type want struct {
		summary string
		start   time.Time
	}
	wants := []want{
		{"Standup", time.Date(2015, 10, 19, 9, 0, 0, 0, time.UTC)},
		{"Standup", time.Date(2015, 10, 20, 9, 0, 0, 0, time.UTC)},
		{"Standup (moved)", time.Date(2015, 10, 22, 10, 0, 0, 0, time.UTC)},
		{"Company Holiday", time.Date(2015, 10, 23, 0, 0, 0, 0, time.UTC)},
		{"Standup", time.Date(2015, 10, 23, 9, 0, 0, 0, time.UTC)},
	}
	if len(res.Occurrences) != len(wants) {
		t.Fatalf("expected %d occurrences, got %d: %+v", len(wants), len(res.Occurrences), res.Occurrences)
	}
	for i, w := range wants {
		got := res.Occurrences[i]
		if got.Summary != w.summary || !got.Start.Equal(w.start) {
			t.Fatalf("occurrence %d: got %q at %s, want %q at %s", i, got.Summary, got.Start, w.summary, w.start)
		}
		if got.SourceID != "team" {
			t.Fatalf("occurrence %d: source %q", i, got.SourceID)
		}
	}
	if len(res.TruncatedEvents) != 0 {
		t.Fatalf("unexpected truncation: %v", res.TruncatedEvents)
	}
}

func TestExpandAllDayFollowsDisplayZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatal(err)
	}
	events := parseSample(t)
	res, err := ExpandOccurrences(events[2:], ExpandConfig{
		DisplayLocation: tokyo,
		RangeStart:      time.Date(2015, 10, 23, 0, 0, 0, 0, tokyo),
		RangeEnd:        time.Date(2015, 10, 24, 0, 0, 0, 0, tokyo),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 1 {
		t.Fatalf("expected holiday, got %+v", res.Occurrences)
	}
	if got := res.Occurrences[0].Start; !got.Equal(time.Date(2015, 10, 23, 0, 0, 0, 0, tokyo)) {
		t.Fatalf("expected Tokyo midnight, got %s", got)
	}
}

func TestExpandTruncates(t *testing.T) {
	events := parseSample(t)
	res, err := ExpandOccurrences(events[:2], ExpandConfig{
		DisplayLocation:        time.UTC,
		RangeStart:             time.Date(2015, 10, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:               time.Date(2015, 11, 1, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerEvent: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 2 || len(res.TruncatedEvents) != 1 {
		t.Fatalf("expected cap of 2 and one truncated UID, got %d / %v", len(res.Occurrences), res.TruncatedEvents)
	}
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	now := time.Now()
	if _, err := ExpandOccurrences(nil, ExpandConfig{RangeStart: now, RangeEnd: now.Add(-time.Hour)}); err == nil {
		t.Fatal("expected error")
	}
}

func TestTimeRangesOverlapHalfOpen(t *testing.T) {
	t0 := time.Date(2015, 10, 20, 0, 0, 0, 0, time.UTC)
	h := func(n int) time.Time { return t0.Add(time.Duration(n) * time.Hour) }

	cases := []struct {
		name       string
		aS, aE     time.Time
		bS, bE     time.Time
		wantResult bool
	}{
		{"inside", h(1), h(2), h(0), h(3), true},
		{"ends at window start", h(-1), h(0), h(0), h(3), false},
		{"starts at window end", h(3), h(4), h(0), h(3), false},
		{"covers window", h(-1), h(4), h(0), h(3), true},
		{"instant at start", h(0), h(0), h(0), h(3), true},
		{"instant at end", h(3), h(3), h(0), h(3), false},
	}
	for _, tc := range cases {
		if got := timeRangesOverlap(tc.aS, tc.aE, tc.bS, tc.bE); got != tc.wantResult {
			t.Fatalf("%s: got %v", tc.name, got)
		}
	}
}

func TestToViewEvents(t *testing.T) {
	events := parseSample(t)
	res, err := ExpandOccurrences(events, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2015, 10, 19, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2015, 10, 26, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}

	viewEvents := ToViewEvents(res.Occurrences, []string{" HOLIDAY ", ""})
	if len(viewEvents) != len(res.Occurrences) {
		t.Fatalf("expected %d view events, got %d", len(res.Occurrences), len(viewEvents))
	}
	badges := 0
	for i, ev := range viewEvents {
		if !ev.StartsAt.Equal(res.Occurrences[i].Start) || ev.Payload.UID != res.Occurrences[i].UID {
			t.Fatalf("view event %d does not mirror its occurrence", i)
		}
		if ev.IncrementsBadgeTotal {
			badges++
			if ev.Payload.Summary != "Company Holiday" {
				t.Fatalf("unexpected badge on %q", ev.Payload.Summary)
			}
		}
	}
	if badges != 1 {
		t.Fatalf("expected 1 badge event, got %d", badges)
	}

	if got := ToViewEvents(nil, nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}
