package matches

import "context"

// Repo defines persistence operations for matches. ListByControl returns the
// full collection, active and inactive; scoping is the classifier's job.
type Repo interface {
	Get(ctx context.Context, matchID string) (Match, error)
	ListByControl(ctx context.Context, controlID string) ([]Match, error)
	CreateBatch(ctx context.Context, batch []Match) error
	DeactivateForDocument(ctx context.Context, controlID, documentID string) error
	SetAcceptance(ctx context.Context, matchID string, verdict Acceptance, response string, edited bool, reviewedBy string) error
}

// ViewInvalidator lets the lifecycle service expire derived views after a
// successful transition. Implementations must tolerate repeated calls.
type ViewInvalidator interface {
	InvalidateMatchList(controlID string)
	InvalidateControlListing(controlID string)
	InvalidateGaps(controlID string)
}

// QuestionResponder is notified when an accepted match's text becomes the
// question's response.
type QuestionResponder interface {
	SetQuestionResponse(ctx context.Context, questionID, response string) error
}
