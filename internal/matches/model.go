package matches

import "time"

// Acceptance is the reviewer's verdict on a suggested match. The three states
// are explicit rather than a nullable boolean.
type Acceptance string

const (
	AcceptancePending   Acceptance = "pending"
	AcceptanceAccepted  Acceptance = "accepted"
	AcceptanceDismissed Acceptance = "dismissed"
)

// Match is a candidate linkage between one evidence document and one
// questionnaire question, produced by the matching service. Matches are never
// physically deleted: superseded ones are deactivated so the audit history
// survives.
type Match struct {
	ID                string     `json:"id"`
	ControlID         string     `json:"controlId"`
	QuestionID        string     `json:"questionId"`
	DocumentID        string     `json:"documentId"`
	CompositeScore    float64    `json:"compositeScore"`
	Acceptance        Acceptance `json:"acceptance"`
	AcceptedResponse  string     `json:"acceptedResponse,omitempty"`
	ResponseEdited    bool       `json:"responseEdited,omitempty"`
	Active            bool       `json:"active"`
	CrossControl      bool       `json:"crossControl"`
	SourceControlID   string     `json:"sourceControlId,omitempty"`
	SuggestedResponse string     `json:"suggestedResponse,omitempty"`
	MatchedPassage    string     `json:"matchedPassage,omitempty"`
	AISummary         string     `json:"aiSummary,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	ReviewedAt        *time.Time `json:"reviewedAt,omitempty"`
	ReviewedBy        string     `json:"reviewedBy,omitempty"`
}

// Pending reports whether the match is still awaiting review.
func (m Match) Pending() bool {
	return m.Acceptance == AcceptancePending
}
