package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu      sync.RWMutex
	docs    map[string]Document
	links   map[string]ControlLink
	control map[string][]string // controlId -> link ids
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs:    make(map[string]Document),
		links:   make(map[string]ControlLink),
		control: make(map[string][]string),
	}
}

// CreateDocument stores a document.
func (r *MemoryRepo) CreateDocument(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

// GetDocument returns a document by its ID.
func (r *MemoryRepo) GetDocument(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// SetExtractedText records the storage key of the extracted text copy.
func (r *MemoryRepo) SetExtractedText(ctx context.Context, documentID, extractedTextKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	doc.ExtractedTextKey = extractedTextKey
	doc.ExtractedAt = &now
	r.docs[documentID] = doc
	return nil
}

// CreateLink stores a control link.
func (r *MemoryRepo) CreateLink(ctx context.Context, link ControlLink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[link.ID] = link
	r.control[link.ControlID] = append(r.control[link.ControlID], link.ID)
	return nil
}

// GetLink returns a control link by its ID.
func (r *MemoryRepo) GetLink(ctx context.Context, linkID string) (ControlLink, error) {
	if err := ctx.Err(); err != nil {
		return ControlLink{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	link, ok := r.links[linkID]
	if !ok {
		return ControlLink{}, ErrLinkNotFound
	}
	return link, nil
}

// ListLinksByControl returns a control's links, newest first.
func (r *MemoryRepo) ListLinksByControl(ctx context.Context, controlID string) ([]ControlLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.control[controlID]
	out := make([]ControlLink, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.links[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SetLinkStatus moves a link through the evidence pipeline.
func (r *MemoryRepo) SetLinkStatus(ctx context.Context, linkID string, status LinkStatus, errMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[linkID]
	if !ok {
		return ErrLinkNotFound
	}
	link.Status = status
	link.Error = errMessage
	link.UpdatedAt = time.Now().UTC()
	r.links[linkID] = link
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
