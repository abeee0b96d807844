package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// QuestionInput is one questionnaire item sent to the matching collaborator.
type QuestionInput struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Candidate is one suggested evidence-to-question linkage returned by the
// matching collaborator.
type Candidate struct {
	QuestionID        string  `json:"questionId"`
	Score             float64 `json:"score"`
	SuggestedResponse string  `json:"suggestedResponse"`
	MatchedPassage    string  `json:"matchedPassage"`
	Summary           string  `json:"summary"`
	CrossControl      bool    `json:"crossControl"`
	SourceControlID   string  `json:"sourceControlId"`
}

// MatchFinder asks the matching collaborator for candidate matches between a
// document's text and a control's questionnaire.
type MatchFinder interface {
	FindMatches(ctx context.Context, controlID, documentText string, questions []QuestionInput) ([]Candidate, error)
}

// Client implements MatchFinder over the collaborator's HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a matching client.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("MATCHING_SERVICE_URL is required")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

type matchRequest struct {
	ControlID string          `json:"controlId"`
	Text      string          `json:"text"`
	Questions []QuestionInput `json:"questions"`
}

type matchResponse struct {
	Matches []Candidate `json:"matches"`
	Error   string      `json:"error,omitempty"`
}

// FindMatches POSTs the document text and questionnaire and returns the
// collaborator's candidates.
func (c *Client) FindMatches(ctx context.Context, controlID, documentText string, questions []QuestionInput) ([]Candidate, error) {
	payload, err := json.Marshal(matchRequest{
		ControlID: controlID,
		Text:      documentText,
		Questions: questions,
	})
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/v1/matches"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed matchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("matching response parse: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("matching error: %s", parsed.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("matching service returned %d", resp.StatusCode)
	}
	return parsed.Matches, nil
}

var _ MatchFinder = (*Client)(nil)
