package model

import "fmt"

// Course is a single normalized offering. Values are never mutated after
// the loader builds them.
type Course struct {
	ID      string
	Title   string
	Meets   string
	Meeting Meeting
	// MeetsErr is the parse failure for Meets, if any. Such a course has a
	// zero Meeting and never conflicts with anything.
	MeetsErr error
}

// Term is derived from the first character of the ID.
func (c Course) Term() Term {
	if c.ID == "" {
		return TermUnknown
	}
	return TermFromLetter(c.ID[0])
}

// Number is the numeric code following the term letter, e.g. "213".
func (c Course) Number() string {
	if len(c.ID) < 4 {
		if len(c.ID) <= 1 {
			return ""
		}
		return c.ID[1:]
	}
	return c.ID[1:4]
}

// Label is the text shown on a course control, e.g. "Fall CS 213: Intro".
func (c Course) Label() string {
	return fmt.Sprintf("%s CS %s: %s", c.Term(), c.Number(), c.Title)
}

func (c Course) Unscheduled() bool {
	return !c.Meeting.Scheduled()
}

// Schedule is a titled, ordered list of courses. It is replaced wholesale
// whenever a new one is loaded.
type Schedule struct {
	Title   string
	Courses []Course
}

// Lookup finds a course by ID.
func (s Schedule) Lookup(id string) (Course, bool) {
	for _, c := range s.Courses {
		if c.ID == id {
			return c, true
		}
	}
	return Course{}, false
}

// ForTerm returns the courses of one term in source order.
func (s Schedule) ForTerm(t Term) []Course {
	out := make([]Course, 0, len(s.Courses))
	for _, c := range s.Courses {
		if c.Term() == t {
			out = append(out, c)
		}
	}
	return out
}
