// Package conflict decides whether two courses can be taken together.
package conflict

import "coursesched/internal/model"

// Conflicts reports whether a and b cannot both be selected: they are
// different courses of the same term whose meetings share a day and overlap
// in time. Courses with an unknown term or no parsed meeting never conflict.
func Conflicts(a, b model.Course) bool {
	if a.ID == b.ID {
		return false
	}
	ta, tb := a.Term(), b.Term()
	if !ta.Valid() || ta != tb {
		return false
	}
	return a.Meeting.Overlaps(b.Meeting)
}

// HasConflict reports whether any member of selected, other than c itself,
// conflicts with c.
func HasConflict(c model.Course, selected []model.Course) bool {
	for _, s := range selected {
		if Conflicts(c, s) {
			return true
		}
	}
	return false
}

// Conflicting returns the members of selected that conflict with c, in the
// order given.
func Conflicting(c model.Course, selected []model.Course) []model.Course {
	var out []model.Course
	for _, s := range selected {
		if Conflicts(c, s) {
			out = append(out, s)
		}
	}
	return out
}
