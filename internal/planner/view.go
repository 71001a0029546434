// Package planner builds the course list shown to a student and applies
// their term and selection changes.
package planner

import (
	"errors"
	"fmt"
	"strings"

	"coursesched/internal/conflict"
	"coursesched/internal/model"
)

var (
	ErrUnknownCourse = errors.New("unknown course")
	ErrUnknownTerm   = errors.New("unknown term")
)

// ConflictError is returned when selecting a course whose control is
// disabled because it conflicts with the current selection.
type ConflictError struct {
	Course model.Course
	With   []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("course %s conflicts with %s", e.Course.ID, strings.Join(e.With, ", "))
}

// TermOption is one button of the term selector.
type TermOption struct {
	Term   model.Term
	Active bool
}

// Item is one course control in the list.
type Item struct {
	Course        model.Course
	Label         string
	Selected      bool
	Disabled      bool
	ConflictsWith []string
	Unscheduled   bool
}

// View is everything needed to render the page for one session.
type View struct {
	Title    string
	Term     model.Term
	Terms    []TermOption
	Items    []Item
	Selected []model.Course
}

// BuildView filters the schedule to the session's term, in source order,
// and marks each course selected or disabled against the whole selection.
func BuildView(sched model.Schedule, s *Session) View {
	s.Selection.Refresh(sched.Lookup)

	term := s.Term()
	selected := s.Selection.Courses()

	v := View{
		Title:    sched.Title,
		Term:     term,
		Selected: selected,
	}
	for _, t := range model.Terms() {
		v.Terms = append(v.Terms, TermOption{Term: t, Active: t == term})
	}

	for _, c := range sched.ForTerm(term) {
		item := Item{
			Course:      c,
			Label:       c.Label(),
			Selected:    s.Selection.Contains(c.ID),
			Unscheduled: c.Unscheduled(),
		}
		for _, other := range conflict.Conflicting(c, selected) {
			item.ConflictsWith = append(item.ConflictsWith, other.ID)
		}
		item.Disabled = len(item.ConflictsWith) > 0
		v.Items = append(v.Items, item)
	}
	return v
}

// Toggle flips the selection of the course with the given ID. Selecting a
// course that conflicts with the selection is refused with a *ConflictError;
// deselecting is always allowed, including a course that a reload dropped
// from the schedule.
func Toggle(sched model.Schedule, s *Session, id string) (bool, error) {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	c, ok := sched.Lookup(id)
	if !ok {
		stale, selected := s.Selection.Get(id)
		if !selected {
			return false, fmt.Errorf("%w: %s", ErrUnknownCourse, id)
		}
		return s.Selection.Toggle(stale), nil
	}
	if !s.Selection.Contains(c.ID) {
		if with := conflict.Conflicting(c, s.Selection.Courses()); len(with) > 0 {
			ids := make([]string, 0, len(with))
			for _, w := range with {
				ids = append(ids, w.ID)
			}
			return false, &ConflictError{Course: c, With: ids}
		}
	}
	return s.Selection.Toggle(c), nil
}
