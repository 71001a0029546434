// Package ics writes a student's selection as an iCalendar file with one
// weekly recurring event per course.
package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "coursesched/internal/log"
	"coursesched/internal/model"
)

const (
	productID = "-//coursesched//course selection//EN"
	// floatingLayout renders local wall-clock time without a zone, so the
	// calendar client places classes in its own timezone.
	floatingLayout = "20060102T150405"
)

// Options controls the export.
type Options struct {
	// Terms gives the first and last day of each term. Courses whose term
	// has no valid range are skipped.
	Terms map[model.Term]model.DateRange
	// Location anchors term dates and meeting times. Defaults to time.Local.
	Location *time.Location
	// Now stamps DTSTAMP. Defaults to time.Now.
	Now func() time.Time
}

// Skipped reports a course that was left out of the calendar.
type Skipped struct {
	Course model.Course
	Reason string
}

var errNoOccurrence = errors.New("no meeting within term dates")

// Build creates a calendar for the given courses.
func Build(courses []model.Course, opts Options) (*ical.Calendar, []Skipped) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	var skipped []Skipped
	for _, c := range courses {
		if c.Unscheduled() {
			skipped = append(skipped, Skipped{Course: c, Reason: "meeting time unknown"})
			continue
		}
		dates, ok := opts.Terms[c.Term()]
		if !ok || !dates.Valid() {
			skipped = append(skipped, Skipped{Course: c, Reason: fmt.Sprintf("no dates configured for %s term", c.Term())})
			continue
		}
		if err := addCourse(cal, c, dates, opts); err != nil {
			skipped = append(skipped, Skipped{Course: c, Reason: err.Error()})
		}
	}
	return cal, skipped
}

// Write builds the calendar and serializes it to w.
func Write(w io.Writer, courses []model.Course, opts Options) ([]Skipped, error) {
	cal, skipped := Build(courses, opts)
	for _, s := range skipped {
		appLog.Debug("ics export skipped course", "id", s.Course.ID, "reason", s.Reason)
	}
	if err := cal.SerializeTo(w); err != nil {
		return skipped, fmt.Errorf("serialize calendar: %w", err)
	}
	return skipped, nil
}

func addCourse(cal *ical.Calendar, c model.Course, dates model.DateRange, opts Options) error {
	loc := opts.Location
	termStart := dateIn(dates.Start, loc)
	termEnd := dateIn(dates.End, loc).Add(24*time.Hour - time.Second)

	first, err := firstMeeting(c.Meeting, termStart, termEnd)
	if err != nil {
		return err
	}
	duration := time.Duration(c.Meeting.End-c.Meeting.Start) * time.Minute


	ev := cal.AddEvent(fmt.Sprintf("%s-%s@coursesched", c.ID, termStart.Format("20060102")))
	ev.SetDtStampTime(opts.Now())
	ev.SetProperty(ical.ComponentPropertyDtStart, first.Format(floatingLayout))
	ev.SetProperty(ical.ComponentPropertyDtEnd, first.Add(duration).Format(floatingLayout))
	ev.AddProperty(ical.ComponentPropertyRrule, weeklyRule(c.Meeting.Days, termEnd))
	ev.SetSummary(c.Label())
	ev.SetDescription(fmt.Sprintf("%s\nMeets: %s", c.Title, c.Meets))
	return nil
}

// firstMeeting is the first class start on or after the term start.
func firstMeeting(m model.Meeting, termStart, termEnd time.Time) (time.Time, error) {
	dtstart := termStart.Add(time.Duration(m.Start) * time.Minute)
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   dtstart,
		Byweekday: byWeekday(m.Days),
		Until:     termEnd,
	})
	if err != nil {
		return time.Time{}, err
	}
	first := r.After(dtstart, true)
	if first.IsZero() {
		return time.Time{}, errNoOccurrence
	}
	return first, nil
}

// weeklyRule renders the RRULE value. UNTIL is floating like DTSTART;
// rrule-go would always write it in UTC.
func weeklyRule(days model.DaySet, until time.Time) string {
	byday := make([]string, 0, 5)
	for _, wd := range byWeekday(days) {
		byday = append(byday, wd.String())
	}
	return fmt.Sprintf("FREQ=WEEKLY;UNTIL=%s;BYDAY=%s", until.Format(floatingLayout), strings.Join(byday, ","))
}

func dateIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func byWeekday(days model.DaySet) []rrule.Weekday {
	out := make([]rrule.Weekday, 0, 5)
	for _, wd := range days.Weekdays() {
		switch wd {
		case time.Monday:
			out = append(out, rrule.MO)
		case time.Tuesday:
			out = append(out, rrule.TU)
		case time.Wednesday:
			out = append(out, rrule.WE)
		case time.Thursday:
			out = append(out, rrule.TH)
		case time.Friday:
			out = append(out, rrule.FR)
		}
	}
	return out
}
