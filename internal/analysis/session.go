package analysis

import (
	"sync"
	"time"
)

// Session is the mutable state of one streamed assessment request. Text grows
// monotonically while the session is analysing, so a caller may render a
// snapshot at any point. At session end at most one of Result/Err is set; a
// stream that ends with neither produced no analysis, which is not a success.
type Session struct {
	ID         string     `json:"id"`
	ControlID  string     `json:"controlId"`
	LinkID     string     `json:"linkId"`
	Persona    Persona    `json:"persona"`
	Analysing  bool       `json:"analysing"`
	Text       string     `json:"text"`
	Result     *Result    `json:"result,omitempty"`
	Err        string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

func (s *Session) start(now time.Time) {
	s.Analysing = true
	s.Text = ""
	s.Result = nil
	s.Err = ""
	s.StartedAt = now
	s.FinishedAt = nil
}

// apply folds one decoded event into the session. Events arriving after the
// session stopped analysing are ignored; the transport may keep delivering
// bytes after a terminal signal.
func (s *Session) apply(ev Event) {
	if !s.Analysing {
		return
	}
	switch e := ev.(type) {
	case TextDelta:
		s.Text += e.Text
	case ResultEvent:
		if s.Result == nil {
			r := e.Result
			s.Result = &r
		}
	case ErrorEvent:
		// Accumulated text stays readable for inspection, but the session is
		// over and must not produce a result.
		s.Err = e.Message
		s.Result = nil
		s.Analysing = false
	}
}

func (s *Session) finish(now time.Time) {
	s.Analysing = false
	if s.FinishedAt == nil {
		t := now
		s.FinishedAt = &t
	}
}

func (s *Session) fail(message string, now time.Time) {
	if s.Err == "" && s.Result == nil {
		s.Err = message
	}
	s.finish(now)
}

// SessionStore tracks in-flight and finished sessions and is safe for
// concurrent use. Sessions are ephemeral: they live only as long as the
// process and are dropped when the owning surface discards them.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore constructs an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Begin registers a fresh session and returns its snapshot.
func (st *SessionStore) Begin(id, controlID, linkID string, persona Persona) Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	session := &Session{ID: id, ControlID: controlID, LinkID: linkID, Persona: persona}
	session.start(time.Now().UTC())
	st.sessions[id] = session
	return *session
}

// Apply folds an event into the identified session. Unknown ids are ignored,
// which is how a discarded surface stops observing a stream that is still
// delivering bytes.
func (st *SessionStore) Apply(id string, ev Event) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if session, ok := st.sessions[id]; ok {
		session.apply(ev)
	}
}

// Finish marks the session's stream as complete.
func (st *SessionStore) Finish(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if session, ok := st.sessions[id]; ok {
		session.finish(time.Now().UTC())
	}
}

// Fail records a transport-level failure and ends the session.
func (st *SessionStore) Fail(id, message string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if session, ok := st.sessions[id]; ok {
		session.fail(message, time.Now().UTC())
	}
}

// Get returns a snapshot of the identified session.
func (st *SessionStore) Get(id string) (Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	session, ok := st.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *session, true
}

// Discard removes a session, after which further events for it are dropped.
func (st *SessionStore) Discard(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}
