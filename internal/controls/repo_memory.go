package controls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores controls in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	controls  map[string]Control
	questions map[string]Question
	byControl map[string][]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		controls:  make(map[string]Control),
		questions: make(map[string]Question),
		byControl: make(map[string][]string),
	}
}

// ListControls returns every control ordered by code.
func (r *MemoryRepo) ListControls(ctx context.Context) ([]Control, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Control, 0, len(r.controls))
	for _, c := range r.controls {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// GetControl returns a control by its ID.
func (r *MemoryRepo) GetControl(ctx context.Context, controlID string) (Control, error) {
	if err := ctx.Err(); err != nil {
		return Control{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controls[controlID]
	if !ok {
		return Control{}, ErrNotFound
	}
	return c, nil
}

// CreateControl stores a control.
func (r *MemoryRepo) CreateControl(ctx context.Context, control Control) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls[control.ID] = control
	return nil
}

// ListQuestions returns a control's questions in questionnaire order.
func (r *MemoryRepo) ListQuestions(ctx context.Context, controlID string) ([]Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byControl[controlID]
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.questions[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

// ListQuestionIDs returns a control's question ids in questionnaire order.
func (r *MemoryRepo) ListQuestionIDs(ctx context.Context, controlID string) ([]string, error) {
	questions, err := r.ListQuestions(ctx, controlID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	return ids, nil
}

// CreateQuestion stores a question.
func (r *MemoryRepo) CreateQuestion(ctx context.Context, question Question) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions[question.ID] = question
	r.byControl[question.ControlID] = append(r.byControl[question.ControlID], question.ID)
	return nil
}

// SetQuestionResponse records the current answer for a question.
func (r *MemoryRepo) SetQuestionResponse(ctx context.Context, questionID, response string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[questionID]
	if !ok {
		return ErrQuestionNotFound
	}
	now := time.Now().UTC()
	q.Response = response
	q.UpdatedAt = &now
	r.questions[questionID] = q
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
