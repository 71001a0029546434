package model

import (
	"strings"
	"time"
)

// Term is one of the academic sessions a course can be offered in.
// The zero value is TermUnknown and never matches a real term.
type Term int

const (
	TermUnknown Term = iota
	TermFall
	TermWinter
	TermSpring
)

// Terms returns the real terms in display order.
func Terms() []Term {
	return []Term{TermFall, TermWinter, TermSpring}
}

func (t Term) String() string {
	switch t {
	case TermFall:
		return "Fall"
	case TermWinter:
		return "Winter"
	case TermSpring:
		return "Spring"
	default:
		return "Unknown"
	}
}

// Letter is the single-character code used as the first byte of course IDs.
func (t Term) Letter() byte {
	switch t {
	case TermFall:
		return 'F'
	case TermWinter:
		return 'W'
	case TermSpring:
		return 'S'
	default:
		return 0
	}
}

func (t Term) Valid() bool {
	return t == TermFall || t == TermWinter || t == TermSpring
}

// ParseTerm maps a full term name (case-insensitive) to a Term.
func ParseTerm(name string) (Term, bool) {
	for _, t := range Terms() {
		if strings.EqualFold(strings.TrimSpace(name), t.String()) {
			return t, true
		}
	}
	return TermUnknown, false
}

func TermFromLetter(c byte) Term {
	for _, t := range Terms() {
		if t.Letter() == c {
			return t
		}
	}
	return TermUnknown
}

func (t Term) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// DateRange is the first and last day of a term, as dates in some location.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}
