package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	appLog "coursesched/internal/log"
	"coursesched/internal/model"
	"coursesched/internal/planner"
)

// courseDTO is a JSON-friendly view of a course.
type courseDTO struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Term       string `json:"term"`
	Number     string `json:"number"`
	Meets      string `json:"meets"`
	Days       string `json:"days,omitempty"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
	MeetsError string `json:"meets_error,omitempty"`
}

func toCourseDTO(c model.Course) courseDTO {
	dto := courseDTO{
		ID:     c.ID,
		Title:  c.Title,
		Term:   c.Term().String(),
		Number: c.Number(),
		Meets:  c.Meets,
	}
	if c.Meeting.Scheduled() {
		dto.Days = c.Meeting.Days.String()
		dto.Start = model.Clock(c.Meeting.Start)
		dto.End = model.Clock(c.Meeting.End)
	}
	if c.MeetsErr != nil {
		dto.MeetsError = c.MeetsErr.Error()
	}
	return dto
}

func toCourseDTOs(cs []model.Course) []courseDTO {
	out := make([]courseDTO, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCourseDTO(c))
	}
	return out
}

// scheduleResponse is the JSON response shape for /api/schedule.
type scheduleResponse struct {
	Title     string      `json:"title"`
	Courses   []courseDTO `json:"courses"`
	UpdatedAt time.Time   `json:"updated_at"`
	FromCache bool        `json:"from_cache"`
}

type itemDTO struct {
	courseDTO
	Label         string   `json:"label"`
	Selected      bool     `json:"selected"`
	Disabled      bool     `json:"disabled"`
	ConflictsWith []string `json:"conflicts_with,omitempty"`
}

// viewResponse is the JSON response shape for /api/view and the mutating
// /api endpoints.
type viewResponse struct {
	Title    string      `json:"title"`
	Ready    bool        `json:"ready"`
	Term     string      `json:"term"`
	Terms    []string    `json:"terms"`
	Items    []itemDTO   `json:"items"`
	Selected []courseDTO `json:"selected"`
}

func (s *Server) viewResponse(sess *planner.Session) viewResponse {
	sched, ok := s.source.Current()
	v := planner.BuildView(sched, sess)

	resp := viewResponse{
		Title:    v.Title,
		Ready:    ok,
		Term:     v.Term.String(),
		Terms:    make([]string, 0, len(v.Terms)),
		Items:    make([]itemDTO, 0, len(v.Items)),
		Selected: toCourseDTOs(v.Selected),
	}
	for _, t := range v.Terms {
		resp.Terms = append(resp.Terms, t.Term.String())
	}
	for _, it := range v.Items {
		resp.Items = append(resp.Items, itemDTO{
			courseDTO:     toCourseDTO(it.Course),
			Label:         it.Label,
			Selected:      it.Selected,
			Disabled:      it.Disabled,
			ConflictsWith: it.ConflictsWith,
		})
	}
	return resp
}

func (s *Server) handleAPISchedule(w http.ResponseWriter, _ *http.Request) {
	sched, ok := s.source.Current()
	st := s.source.Status()
	if !ok {
		msg := "schedule not loaded"
		if st.LastError != nil {
			msg += ": " + st.LastError.Error()
		}
		writeError(w, http.StatusServiceUnavailable, msg)
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse{
		Title:     sched.Title,
		Courses:   toCourseDTOs(sched.Courses),
		UpdatedAt: st.UpdatedAt,
		FromCache: st.FromCache,
	})
}

func (s *Server) handleAPIView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.viewResponse(s.session(w, r)))
}

type termRequest struct {
	Term string `json:"term"`
}

func (s *Server) handleAPISetTerm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var req termRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	term, _ := model.ParseTerm(req.Term)
	if err := sess.SetTerm(term); err != nil {
		writeError(w, http.StatusBadRequest, err.Error()+": "+req.Term)
		return
	}
	writeJSON(w, http.StatusOK, s.viewResponse(sess))
}

type toggleRequest struct {
	ID string `json:"id"`
}

type conflictResponse struct {
	Error         string   `json:"error"`
	ConflictsWith []string `json:"conflicts_with"`
}

func (s *Server) handleAPIToggle(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sched, ok := s.source.Current()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "schedule not loaded")
		return
	}

	_, err := planner.Toggle(sched, sess, req.ID)
	var conflictErr *planner.ConflictError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.viewResponse(sess))
	case errors.Is(err, planner.ErrUnknownCourse):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, conflictResponse{Error: err.Error(), ConflictsWith: conflictErr.With})
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
