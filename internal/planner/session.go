package planner

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"coursesched/internal/model"
	"coursesched/internal/selection"
)

// Session is one student's view state: the active term and the selection.
// Switching terms never touches the selection.
type Session struct {
	ID        string
	Selection *selection.Store

	// toggleMu serializes selection changes so the conflict check and the
	// update happen together.
	toggleMu sync.Mutex

	mu       sync.Mutex
	term     model.Term
	lastSeen time.Time
}

func NewSession(id string, term model.Term) *Session {
	if !term.Valid() {
		term = model.TermFall
	}
	return &Session{
		ID:        id,
		Selection: selection.New(),
		term:      term,
		lastSeen:  time.Now(),
	}
}

func (s *Session) Term() model.Term {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term
}

// SetTerm replaces the active term. Only the three real terms are accepted.
func (s *Session) SetTerm(t model.Term) error {
	if !t.Valid() {
		return ErrUnknownTerm
	}
	s.mu.Lock()
	s.term = t
	s.mu.Unlock()
	return nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Sessions is an in-memory registry of sessions keyed by a random ID.
// Nothing is persisted; a restart forgets every selection.
type Sessions struct {
	mu          sync.RWMutex
	byID        map[string]*Session
	defaultTerm model.Term
	now         func() time.Time
}

func NewSessions(defaultTerm model.Term) *Sessions {
	return &Sessions{
		byID:        make(map[string]*Session),
		defaultTerm: defaultTerm,
		now:         time.Now,
	}
}

func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.byID[id]
	r.mu.RUnlock()
	if ok {
		s.touch(r.now())
	}
	return s, ok
}

// GetOrCreate returns the session for id, or a new session with a fresh ID
// when id is empty or unknown. created reports the latter.
func (r *Sessions) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := r.Get(id); ok {
			return s, false
		}
	}
	s = NewSession(uuid.NewString(), r.defaultTerm)
	s.touch(r.now())

	r.mu.Lock()
	r.byID[s.ID] = s
	r.mu.Unlock()
	return s, true
}

func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Sweep drops sessions idle for longer than idle and returns how many were
// removed.
func (r *Sessions) Sweep(idle time.Duration) int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.byID {
		if s.idleSince(now) > idle {
			delete(r.byID, id)
			n++
		}
	}
	return n
}
