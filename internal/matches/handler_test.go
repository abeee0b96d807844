package matches

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type staticQuestionLister struct {
	ids []string
}

func (s staticQuestionLister) ListQuestionIDs(ctx context.Context, controlID string) ([]string, error) {
	_ = ctx
	_ = controlID
	return s.ids, nil
}

func newTestRouter(t *testing.T, repo Repo, questions QuestionLister) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler := NewHandler(repo, NewService(repo, NewViewCache(), nil), questions)
	handler.RegisterRoutes(api)
	return router
}

func seedControlMatches(t *testing.T, repo *MemoryRepo) {
	t.Helper()
	batch := []Match{
		{ID: "m1", ControlID: "ctl-1", QuestionID: "q1", DocumentID: "d1", CompositeScore: 0.9, Acceptance: AcceptancePending, Active: true, SuggestedResponse: "resp"},
		{ID: "m2", ControlID: "ctl-1", QuestionID: "q2", DocumentID: "d1", CompositeScore: 0.55, Acceptance: AcceptancePending, Active: true},
		{ID: "m3", ControlID: "ctl-1", QuestionID: "q3", DocumentID: "d1", CompositeScore: 0.95, Acceptance: AcceptanceAccepted, Active: true},
	}
	if err := repo.CreateBatch(context.Background(), batch); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestListMatchesGroupsByQuestion(t *testing.T) {
	repo := NewMemoryRepo()
	seedControlMatches(t, repo)
	router := newTestRouter(t, repo, staticQuestionLister{ids: []string{"q1", "q2", "q3", "q4"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/controls/ctl-1/matches", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		ControlID string `json:"controlId"`
		Questions []struct {
			QuestionID string `json:"questionId"`
			State      string `json:"state"`
			Pending    []struct {
				ID   string `json:"id"`
				Band string `json:"band"`
			} `json:"pending"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Questions) != 4 {
		t.Fatalf("expected a row per question, got %d", len(body.Questions))
	}

	states := map[string]string{}
	for _, q := range body.Questions {
		states[q.QuestionID] = q.State
	}
	if states["q1"] != "suggestion_pending" {
		t.Fatalf("q1 state = %q", states["q1"])
	}
	if states["q2"] != "gap" {
		t.Fatalf("q2 state = %q", states["q2"])
	}
	if states["q3"] != "covered" {
		t.Fatalf("q3 state = %q", states["q3"])
	}
	if states["q4"] != "gap" {
		t.Fatalf("q4 state = %q", states["q4"])
	}

	if body.Questions[0].Pending[0].Band != "strong" {
		t.Fatalf("expected band on match view, got %q", body.Questions[0].Pending[0].Band)
	}
}

func TestCoverageEndpoint(t *testing.T) {
	repo := NewMemoryRepo()
	seedControlMatches(t, repo)
	router := newTestRouter(t, repo, staticQuestionLister{ids: []string{"q1", "q2", "q3", "q4"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/controls/ctl-1/coverage", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Summary struct {
			TotalQuestions         int  `json:"totalQuestions"`
			CoveredCount           int  `json:"coveredCount"`
			CoveragePercent        *int `json:"coveragePercent"`
			GapCount               int  `json:"gapCount"`
			PendingSuggestionCount int  `json:"pendingSuggestionCount"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Summary.TotalQuestions != 4 || body.Summary.CoveredCount != 1 || body.Summary.GapCount != 3 {
		t.Fatalf("unexpected summary: %+v", body.Summary)
	}
	if body.Summary.CoveragePercent == nil || *body.Summary.CoveragePercent != 25 {
		t.Fatalf("expected 25%%, got %v", body.Summary.CoveragePercent)
	}
	if body.Summary.PendingSuggestionCount != 1 {
		t.Fatalf("expected 1 strong pending, got %d", body.Summary.PendingSuggestionCount)
	}
}

func TestCoverageZeroQuestionsRendersNullPercent(t *testing.T) {
	router := newTestRouter(t, NewMemoryRepo(), staticQuestionLister{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/controls/ctl-9/coverage", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"coveragePercent":null`) {
		t.Fatalf("expected null percent, got %s", resp.Body.String())
	}
}

func TestAcceptEndpoint(t *testing.T) {
	repo := NewMemoryRepo()
	seedControlMatches(t, repo)
	router := newTestRouter(t, repo, staticQuestionLister{ids: []string{"q1"}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/matches/m1/accept", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		ID         string `json:"id"`
		Acceptance string `json:"acceptance"`
		Band       string `json:"band"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "m1" || body.Acceptance != "accepted" || body.Band != "strong" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestAcceptEditedEndpointRejectsBlankBody(t *testing.T) {
	repo := NewMemoryRepo()
	seedControlMatches(t, repo)
	router := newTestRouter(t, repo, staticQuestionLister{ids: []string{"q1"}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/matches/m1/accept-edited", strings.NewReader(`{"response":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestTransitionEndpointsErrorMapping(t *testing.T) {
	repo := NewMemoryRepo()
	seedControlMatches(t, repo)
	router := newTestRouter(t, repo, staticQuestionLister{ids: []string{"q1"}})

	// Unknown match.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/matches/nope/dismiss", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	// m3 is already accepted.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/matches/m3/dismiss", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}
