package analysis

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/telemetry"
)

// EventSink receives decoded events as they are applied to a session, in
// delivery order. Used by the HTTP layer to re-stream a run to its caller.
type EventSink func(Event)

// Service drives assessment runs: it opens the collaborator stream, decodes
// it, and folds events into the owning session. One run per link may be in
// flight at a time; the UI surface that started a run is its only observer.
type Service struct {
	Client   StreamClient
	Sessions *SessionStore

	mu      sync.Mutex
	running map[string]bool
}

// NewService constructs a Service.
func NewService(client StreamClient, sessions *SessionStore) *Service {
	return &Service{
		Client:   client,
		Sessions: sessions,
		running:  make(map[string]bool),
	}
}

// Start begins an assessment run for a control link and blocks until the
// stream ends or ctx is cancelled. Cancelling ctx stops observing the stream;
// it makes no promise about the collaborator's own work.
func (s *Service) Start(ctx context.Context, controlID, linkID string, req Request, sink EventSink) (Session, error) {
	if linkID == "" {
		return Session{}, errors.New("link id is required")
	}
	if req.Persona == "" {
		req.Persona = PersonaAuditor
	}

	if !s.acquire(linkID) {
		return Session{}, ErrAlreadyRunning
	}
	defer s.release(linkID)

	sessionID := uuid.NewString()
	s.Sessions.Begin(sessionID, controlID, linkID, req.Persona)
	metrics.IncAssessmentStarted()
	startedAt := time.Now()

	body, err := s.Client.OpenStream(ctx, linkID, req)
	if err != nil {
		// Transport failure before streaming: session error, no partial text.
		s.Sessions.Fail(sessionID, requestErrorMessage(err))
		metrics.IncAssessmentFailed()
		session, _ := s.Sessions.Get(sessionID)
		return session, nil
	}
	defer body.Close()

	s.consume(ctx, sessionID, body, sink)

	session, _ := s.Sessions.Get(sessionID)
	if session.Err != "" {
		metrics.IncAssessmentFailed()
	} else {
		metrics.IncAssessmentCompleted()
	}
	metrics.ObserveAssessmentDurationMs(float64(time.Since(startedAt)) / float64(time.Millisecond))
	telemetry.Info("analysis.complete", map[string]any{
		"session_id": sessionID,
		"control_id": controlID,
		"link_id":    linkID,
		"persona":    string(req.Persona),
		"has_result": session.Result != nil,
		"error":      session.Err,
	})
	return session, nil
}

func (s *Service) consume(ctx context.Context, sessionID string, body io.Reader, sink EventSink) {
	decoder := NewDecoder(body)
	for {
		if ctx.Err() != nil {
			// Surface abandoned: stop applying events to the discarded state.
			s.Sessions.Fail(sessionID, "analysis cancelled")
			return
		}
		ev, err := decoder.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.Sessions.Finish(sessionID)
			} else {
				s.Sessions.Fail(sessionID, "assessment stream interrupted")
			}
			return
		}
		s.Sessions.Apply(sessionID, ev)
		if sink != nil {
			sink(ev)
		}
	}
}

func (s *Service) acquire(linkID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[linkID] {
		return false
	}
	s.running[linkID] = true
	return true
}

func (s *Service) release(linkID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, linkID)
}

func requestErrorMessage(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	return "assessment service unavailable"
}
