package web

import (
	"bytes"
	"errors"
	"net/http"

	"coursesched/internal/ics"
	appLog "coursesched/internal/log"
	"coursesched/internal/model"
	"coursesched/internal/planner"
)

const loadingBanner = "[loading...]"

type pageData struct {
	Ready  bool
	Banner string
	Error  string
	View   planner.View
}

func (s *Server) pageData(sess *planner.Session) pageData {
	sched, ok := s.source.Current()
	data := pageData{
		Ready:  ok,
		Banner: sched.Title,
		View:   planner.BuildView(sched, sess),
	}
	if data.Banner == "" {
		data.Banner = loadingBanner
	}
	if st := s.source.Status(); !ok && st.LastError != nil {
		data.Error = st.LastError.Error()
	}
	return data
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, s.pageData(sess)); err != nil {
		appLog.Error("render page failed", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleSetTerm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	term, _ := model.ParseTerm(r.FormValue("term"))
	if err := sess.SetTerm(term); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sched, ok := s.source.Current()
	if !ok {
		http.Error(w, "schedule not loaded", http.StatusServiceUnavailable)
		return
	}

	_, err := planner.Toggle(sched, sess, r.FormValue("id"))
	var conflictErr *planner.ConflictError
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, planner.ErrUnknownCourse):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &conflictErr):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleCalendar exports the session's selection as iCalendar.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sched, ok := s.source.Current(); ok {
		sess.Selection.Refresh(sched.Lookup)
	}

	var buf bytes.Buffer
	skipped, err := ics.Write(&buf, sess.Selection.Courses(), ics.Options{
		Terms:    s.terms,
		Location: s.cfg.Location(),
	})
	if err != nil {
		appLog.Error("calendar export failed", err)
		http.Error(w, "failed to export calendar", http.StatusInternalServerError)
		return
	}
	if len(skipped) > 0 {
		appLog.Info("calendar export skipped courses", "count", len(skipped))
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="courses.ics"`)
	_, _ = buf.WriteTo(w)
}
