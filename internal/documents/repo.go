package documents

import "context"

// Repo defines persistence operations for documents and their control links.
type Repo interface {
	CreateDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, documentID string) (Document, error)
	SetExtractedText(ctx context.Context, documentID, extractedTextKey string) error

	CreateLink(ctx context.Context, link ControlLink) error
	GetLink(ctx context.Context, linkID string) (ControlLink, error)
	ListLinksByControl(ctx context.Context, controlID string) ([]ControlLink, error)
	SetLinkStatus(ctx context.Context, linkID string, status LinkStatus, errMessage string) error
}
