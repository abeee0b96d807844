package controls

import "context"

// Repo defines persistence operations for controls and their questionnaires.
type Repo interface {
	ListControls(ctx context.Context) ([]Control, error)
	GetControl(ctx context.Context, controlID string) (Control, error)
	CreateControl(ctx context.Context, control Control) error
	ListQuestions(ctx context.Context, controlID string) ([]Question, error)
	ListQuestionIDs(ctx context.Context, controlID string) ([]string, error)
	CreateQuestion(ctx context.Context, question Question) error
	SetQuestionResponse(ctx context.Context, questionID, response string) error
}
