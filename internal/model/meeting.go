package model

import (
	"fmt"
	"strings"
	"time"
)

// DaySet is a set of weekdays a course meets on (Monday through Friday).
type DaySet uint8

const (
	Monday DaySet = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

// dayTokens lists the meeting-string token of each day in canonical order.
var dayTokens = []struct {
	day     DaySet
	token   string
	weekday time.Weekday
}{
	{Monday, "M", time.Monday},
	{Tuesday, "Tu", time.Tuesday},
	{Wednesday, "W", time.Wednesday},
	{Thursday, "Th", time.Thursday},
	{Friday, "F", time.Friday},
}

// DayTokens returns the day tokens in canonical order, e.g. "M", "Tu".
func DayTokens() []string {
	out := make([]string, 0, len(dayTokens))
	for _, d := range dayTokens {
		out = append(out, d.token)
	}
	return out
}

// DayForToken returns the day for a single token such as "Th".
func DayForToken(tok string) (DaySet, bool) {
	for _, d := range dayTokens {
		if d.token == tok {
			return d.day, true
		}
	}
	return 0, false
}

func (s DaySet) Has(d DaySet) bool {
	return d != 0 && s&d == d
}

func (s DaySet) Intersects(o DaySet) bool {
	return s&o != 0
}

func (s DaySet) Empty() bool {
	return s == 0
}

// String renders the set with meeting-string tokens, e.g. "MWF" or "TuTh".
func (s DaySet) String() string {
	var b strings.Builder
	for _, d := range dayTokens {
		if s&d.day != 0 {
			b.WriteString(d.token)
		}
	}
	return b.String()
}

// Weekdays returns the members of the set as time.Weekday values.
func (s DaySet) Weekdays() []time.Weekday {
	out := make([]time.Weekday, 0, len(dayTokens))
	for _, d := range dayTokens {
		if s&d.day != 0 {
			out = append(out, d.weekday)
		}
	}
	return out
}

// Meeting is the parsed form of a meeting string. Start and End are minutes
// since midnight. The zero value is an unscheduled meeting.
type Meeting struct {
	Days  DaySet
	Start int
	End   int
}

func (m Meeting) Scheduled() bool {
	return !m.Days.Empty() && m.End > m.Start
}

// Overlaps reports whether both meetings share a day and their half-open
// hour intervals [Start, End) intersect.
func (m Meeting) Overlaps(o Meeting) bool {
	if !m.Scheduled() || !o.Scheduled() {
		return false
	}
	if !m.Days.Intersects(o.Days) {
		return false
	}
	return max(m.Start, o.Start) < min(m.End, o.End)
}

// Clock renders a minute-of-day value as H:MM.
func Clock(minutes int) string {
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

func (m Meeting) String() string {
	if !m.Scheduled() {
		return ""
	}
	return m.Days.String() + " " + Clock(m.Start) + "-" + Clock(m.End)
}
