package matches

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores matches in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	byID      map[string]Match
	byControl map[string][]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:      make(map[string]Match),
		byControl: make(map[string][]string),
	}
}

// Get returns a match by its ID.
func (r *MemoryRepo) Get(ctx context.Context, matchID string) (Match, error) {
	if err := ctx.Err(); err != nil {
		return Match{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[matchID]
	if !ok {
		return Match{}, ErrNotFound
	}
	return m, nil
}

// ListByControl returns every match for a control, newest first.
func (r *MemoryRepo) ListByControl(ctx context.Context, controlID string) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byControl[controlID]
	out := make([]Match, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CreateBatch stores a batch of new matches.
func (r *MemoryRepo) CreateBatch(ctx context.Context, batch []Match) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range batch {
		r.byID[m.ID] = m
		r.byControl[m.ControlID] = append(r.byControl[m.ControlID], m.ID)
	}
	return nil
}

// DeactivateForDocument soft-deletes every active match a document holds
// within a control, preserving the records for audit history.
func (r *MemoryRepo) DeactivateForDocument(ctx context.Context, controlID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.byControl[controlID] {
		m := r.byID[id]
		if m.DocumentID != documentID || !m.Active {
			continue
		}
		m.Active = false
		r.byID[id] = m
	}
	return nil
}

// SetAcceptance records the reviewer's verdict for a match.
func (r *MemoryRepo) SetAcceptance(ctx context.Context, matchID string, verdict Acceptance, response string, edited bool, reviewedBy string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[matchID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	m.Acceptance = verdict
	m.AcceptedResponse = response
	m.ResponseEdited = edited
	m.ReviewedAt = &now
	m.ReviewedBy = reviewedBy
	r.byID[matchID] = m
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
