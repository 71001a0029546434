package schedule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"coursesched/internal/meets"
	"coursesched/internal/model"
)

// rawSchedule is the wire shape served by the remote endpoint.
type rawSchedule struct {
	Title   string      `json:"title"`
	Courses []rawCourse `json:"courses"`
}

type rawCourse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Meets string `json:"meets"`
}

// CourseError reports a problem with one course of an otherwise valid
// payload.
type CourseError struct {
	Index int
	ID    string
	Err   error
}

func (e *CourseError) Error() string {
	return fmt.Sprintf("course #%d (%s): %v", e.Index, e.ID, e.Err)
}

func (e *CourseError) Unwrap() error { return e.Err }

var errMissingID = errors.New("missing id")

// Decode parses the JSON payload and normalizes every course's meeting
// string. Courses with unparseable meetings are kept with MeetsErr set;
// courses without an ID are dropped. Both are reported in the returned
// slice. The error is non-nil only when the payload itself is not valid.
func Decode(body []byte) (model.Schedule, []error, error) {
	var raw rawSchedule
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.Schedule{}, nil, fmt.Errorf("decode schedule: %w", err)
	}

	sched := model.Schedule{
		Title:   raw.Title,
		Courses: make([]model.Course, 0, len(raw.Courses)),
	}
	var problems []error
	for i, rc := range raw.Courses {
		id := strings.TrimSpace(rc.ID)
		if id == "" {
			problems = append(problems, &CourseError{Index: i, Err: errMissingID})
			continue
		}
		c := model.Course{ID: id, Title: rc.Title, Meets: rc.Meets}
		c.Meeting, c.MeetsErr = meets.Parse(rc.Meets)
		if c.MeetsErr != nil {
			problems = append(problems, &CourseError{Index: i, ID: id, Err: c.MeetsErr})
		}
		sched.Courses = append(sched.Courses, c)
	}
	return sched, problems, nil
}
