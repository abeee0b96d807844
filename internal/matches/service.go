package matches

import (
	"context"
	"strings"
	"sync"

	"compliance-backend/internal/shared/telemetry"
)

// Service owns the suggestion lifecycle: accept, accept with an edited
// response, or dismiss. Transitions are valid only from pending and are
// terminal. The store of record is written first; local state never runs
// ahead of it, so a failed write cannot desynchronize the UI.
type Service struct {
	Repo      Repo
	Views     ViewInvalidator
	Responder QuestionResponder

	mu       sync.Mutex
	inflight map[string]bool
}

// NewService constructs a lifecycle service.
func NewService(repo Repo, views ViewInvalidator, responder QuestionResponder) *Service {
	return &Service{
		Repo:      repo,
		Views:     views,
		Responder: responder,
		inflight:  make(map[string]bool),
	}
}

// Accept accepts a pending match with its original suggested response.
func (s *Service) Accept(ctx context.Context, matchID, reviewedBy string) error {
	return s.transition(ctx, matchID, func(m Match) (Acceptance, string, bool, error) {
		return AcceptanceAccepted, m.SuggestedResponse, false, nil
	}, reviewedBy)
}

// AcceptEdited accepts a pending match with reviewer-supplied text in place of
// the original suggestion. Empty text is a boundary condition, not a failure
// to propagate: it is rejected before anything is written.
func (s *Service) AcceptEdited(ctx context.Context, matchID, response, reviewedBy string) error {
	if strings.TrimSpace(response) == "" {
		return ErrEmptyResponse
	}
	return s.transition(ctx, matchID, func(Match) (Acceptance, string, bool, error) {
		return AcceptanceAccepted, response, true, nil
	}, reviewedBy)
}

// Dismiss dismisses a pending match. No response text is written anywhere.
func (s *Service) Dismiss(ctx context.Context, matchID, reviewedBy string) error {
	return s.transition(ctx, matchID, func(Match) (Acceptance, string, bool, error) {
		return AcceptanceDismissed, "", false, nil
	}, reviewedBy)
}

type verdictFn func(Match) (verdict Acceptance, response string, edited bool, err error)

func (s *Service) transition(ctx context.Context, matchID string, decide verdictFn, reviewedBy string) error {
	if matchID == "" {
		return ErrNotFound
	}
	// The store does not deduplicate concurrent writes for us, so only one
	// transition per match may be outstanding. Transitions on different
	// matches proceed independently.
	if !s.begin(matchID) {
		return ErrTransitionInFlight
	}
	defer s.end(matchID)

	m, err := s.Repo.Get(ctx, matchID)
	if err != nil {
		return err
	}
	if !m.Active {
		return ErrInactive
	}
	if !m.Pending() {
		return ErrNotPending
	}

	verdict, response, edited, err := decide(m)
	if err != nil {
		return err
	}

	if err := s.Repo.SetAcceptance(ctx, matchID, verdict, response, edited, reviewedBy); err != nil {
		// The match stays pending and the action is retryable.
		telemetry.Error("matches.transition_failed", map[string]any{
			"match_id":   matchID,
			"control_id": m.ControlID,
			"verdict":    string(verdict),
			"err":        err.Error(),
		})
		return err
	}

	s.invalidate(m.ControlID, verdict)

	if verdict == AcceptanceAccepted && s.Responder != nil {
		if err := s.Responder.SetQuestionResponse(ctx, m.QuestionID, response); err != nil {
			// Acceptance is already durable, so this must not surface as a
			// failed transition: the caller would retry against a match that
			// is no longer pending. The propagation failure is logged only.
			telemetry.Error("matches.response_notify_failed", map[string]any{
				"match_id":    matchID,
				"question_id": m.QuestionID,
				"err":         err.Error(),
			})
		}
	}

	telemetry.Info("matches.transition", map[string]any{
		"match_id":   matchID,
		"control_id": m.ControlID,
		"verdict":    string(verdict),
		"edited":     edited,
	})
	return nil
}

func (s *Service) invalidate(controlID string, verdict Acceptance) {
	if s.Views == nil {
		return
	}
	s.Views.InvalidateMatchList(controlID)
	s.Views.InvalidateControlListing(controlID)
	if verdict == AcceptanceAccepted {
		// Accepting changes coverage; dismissal does not.
		s.Views.InvalidateGaps(controlID)
	}
}

func (s *Service) begin(matchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[matchID] {
		return false
	}
	s.inflight[matchID] = true
	return true
}

func (s *Service) end(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, matchID)
}
