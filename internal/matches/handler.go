package matches

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// QuestionLister supplies the questionnaire scope used for classification and
// coverage. Implemented by the controls repository.
type QuestionLister interface {
	ListQuestionIDs(ctx context.Context, controlID string) ([]string, error)
}

// Handler wires HTTP handlers to the match store and lifecycle service.
type Handler struct {
	Repo      Repo
	Svc       *Service
	Questions QuestionLister
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo, svc *Service, questions QuestionLister) *Handler {
	return &Handler{Repo: repo, Svc: svc, Questions: questions}
}

// RegisterRoutes attaches match routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/controls/:id/matches", h.listMatches)
	rg.GET("/controls/:id/coverage", h.getCoverage)
	rg.POST("/matches/:id/accept", h.acceptMatch)
	rg.POST("/matches/:id/accept-edited", h.acceptEditedMatch)
	rg.POST("/matches/:id/dismiss", h.dismissMatch)
}

type matchView struct {
	Match
	Band Band `json:"band"`
}

type questionMatchesView struct {
	QuestionID    string        `json:"questionId"`
	State         QuestionState `json:"state"`
	Pending       []matchView   `json:"pending"`
	StrongPending []matchView   `json:"strongPending"`
	WeakPending   []matchView   `json:"weakPending"`
	Accepted      []matchView   `json:"accepted"`
}

func (h *Handler) listMatches(c *gin.Context) {
	controlID := c.Param("id")
	if controlID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "control id is required", nil)
		return
	}

	questionIDs, all, ok := h.loadSnapshot(c, controlID)
	if !ok {
		return
	}

	views := make([]questionMatchesView, 0, len(questionIDs))
	for _, questionID := range questionIDs {
		buckets := ClassifyForQuestion(all, questionID)
		views = append(views, questionMatchesView{
			QuestionID:    questionID,
			State:         StateForQuestion(buckets),
			Pending:       withBands(buckets.Pending),
			StrongPending: withBands(buckets.StrongPending),
			WeakPending:   withBands(buckets.WeakPending),
			Accepted:      withBands(buckets.Accepted),
		})
	}

	respond.OK(c, gin.H{
		"controlId": controlID,
		"questions": views,
	})
}

func (h *Handler) getCoverage(c *gin.Context) {
	controlID := c.Param("id")
	if controlID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "control id is required", nil)
		return
	}

	questionIDs, all, ok := h.loadSnapshot(c, controlID)
	if !ok {
		return
	}

	respond.OK(c, gin.H{
		"controlId": controlID,
		"summary":   ComputeSummary(questionIDs, all),
	})
}

func (h *Handler) acceptMatch(c *gin.Context) {
	matchID := c.Param("id")
	err := h.Svc.Accept(c.Request.Context(), matchID, middleware.UserIDFromContext(c))
	h.respondTransition(c, matchID, err)
}

type acceptEditedRequest struct {
	Response string `json:"response"`
}

func (h *Handler) acceptEditedMatch(c *gin.Context) {
	matchID := c.Param("id")
	var body acceptEditedRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	err := h.Svc.AcceptEdited(c.Request.Context(), matchID, body.Response, middleware.UserIDFromContext(c))
	h.respondTransition(c, matchID, err)
}

func (h *Handler) dismissMatch(c *gin.Context) {
	matchID := c.Param("id")
	err := h.Svc.Dismiss(c.Request.Context(), matchID, middleware.UserIDFromContext(c))
	h.respondTransition(c, matchID, err)
}

func (h *Handler) respondTransition(c *gin.Context, matchID string, err error) {
	switch {
	case err == nil:
		m, getErr := h.Repo.Get(c.Request.Context(), matchID)
		if getErr != nil {
			respond.OK(c, gin.H{"id": matchID})
			return
		}
		respond.OK(c, matchView{Match: m, Band: BandForScore(m.CompositeScore)})
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "match not found", nil)
	case errors.Is(err, ErrEmptyResponse):
		respond.Error(c, http.StatusBadRequest, "validation_error", "edited response must not be empty", nil)
	case errors.Is(err, ErrNotPending), errors.Is(err, ErrInactive):
		respond.Error(c, http.StatusConflict, "invalid_transition", err.Error(), nil)
	case errors.Is(err, ErrTransitionInFlight):
		respond.Error(c, http.StatusConflict, "transition_in_flight", "a transition for this match is already in flight", nil)
	default:
		respond.Error(c, http.StatusBadGateway, "store_error", "the change was not saved; try again", nil)
	}
}

func (h *Handler) loadSnapshot(c *gin.Context, controlID string) ([]string, []Match, bool) {
	questionIDs, err := h.Questions.ListQuestionIDs(c.Request.Context(), controlID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load questions", nil)
		return nil, nil, false
	}
	all, err := h.Repo.ListByControl(c.Request.Context(), controlID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load matches", nil)
		return nil, nil, false
	}
	return questionIDs, all, true
}

func withBands(items []Match) []matchView {
	out := make([]matchView, 0, len(items))
	for _, m := range items {
		out = append(out, matchView{Match: m, Band: BandForScore(m.CompositeScore)})
	}
	return out
}
