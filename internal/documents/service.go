package documents

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"compliance-backend/internal/queue"
	"compliance-backend/internal/shared/storage/object"
	"compliance-backend/internal/shared/telemetry"
)

// Service contains business logic for evidence documents.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
	Queue queue.Client
}

// Upload saves the file to object storage, records the document, links it to
// the control, and enqueues a match scan for the new link.
func (s *Service) Upload(ctx context.Context, userID, controlID, fileName string, r io.Reader) (Document, ControlLink, error) {
	if fileName == "" || controlID == "" {
		return Document{}, ControlLink{}, ErrInvalidInput
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		return Document{}, ControlLink{}, err
	}

	now := time.Now().UTC()
	doc := Document{
		ID:         uuid.NewString(),
		UserID:     userID,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  size,
		StorageKey: storageKey,
		CreatedAt:  now,
	}
	if err := s.Repo.CreateDocument(ctx, doc); err != nil {
		return Document{}, ControlLink{}, err
	}

	link := ControlLink{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		ControlID:  controlID,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.CreateLink(ctx, link); err != nil {
		return Document{}, ControlLink{}, err
	}

	s.enqueueScan(ctx, link)
	return doc, link, nil
}

// Rescan re-queues the match scan for an existing link, e.g. after the
// questionnaire changed or a previous scan errored.
func (s *Service) Rescan(ctx context.Context, linkID string) (ControlLink, error) {
	link, err := s.Repo.GetLink(ctx, linkID)
	if err != nil {
		return ControlLink{}, err
	}
	if err := s.Repo.SetLinkStatus(ctx, link.ID, StatusPending, ""); err != nil {
		return ControlLink{}, err
	}
	link.Status = StatusPending
	link.Error = ""
	s.enqueueScan(ctx, link)
	return link, nil
}

// ListForControl returns a control's links together with their documents.
func (s *Service) ListForControl(ctx context.Context, controlID string) ([]LinkedDocument, error) {
	links, err := s.Repo.ListLinksByControl(ctx, controlID)
	if err != nil {
		return nil, err
	}
	out := make([]LinkedDocument, 0, len(links))
	for _, link := range links {
		doc, err := s.Repo.GetDocument(ctx, link.DocumentID)
		if err != nil {
			return nil, err
		}
		out = append(out, LinkedDocument{Document: doc, Link: link})
	}
	return out, nil
}

// Link returns one control link.
func (s *Service) Link(ctx context.Context, linkID string) (ControlLink, error) {
	return s.Repo.GetLink(ctx, linkID)
}

func (s *Service) enqueueScan(ctx context.Context, link ControlLink) {
	if s.Queue == nil {
		return
	}
	msg := queue.Message{
		LinkID:     link.ID,
		DocumentID: link.DocumentID,
		ControlID:  link.ControlID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    queue.MessageVersion,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		// The upload already succeeded; a reviewer can trigger a rescan.
		telemetry.Error("documents.enqueue_scan_failed", map[string]any{
			"link_id":     link.ID,
			"document_id": link.DocumentID,
			"control_id":  link.ControlID,
			"err":         err.Error(),
		})
	}
}
