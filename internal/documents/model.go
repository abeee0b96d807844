package documents

import "time"

// LinkStatus tracks where a control link sits in the evidence pipeline.
type LinkStatus string

const (
	StatusPending    LinkStatus = "pending"
	StatusExtracting LinkStatus = "extracting"
	StatusAnalysing  LinkStatus = "analysing"
	StatusAnalysed   LinkStatus = "analysed"
	StatusError      LinkStatus = "error"
)

// Document represents an uploaded evidence document owned by a user.
type Document struct {
	ID               string
	UserID           string
	FileName         string
	OriginalFilename string
	MimeType         string
	SizeBytes        int64
	StorageProvider  string
	StorageKey       string
	ExtractedTextKey string
	ExtractedAt      *time.Time
	CreatedAt        time.Time
}

// ControlLink ties a document to one control. Its status reflects the match
// scan for that pairing; the same document linked to two controls carries two
// independent statuses.
type ControlLink struct {
	ID         string
	DocumentID string
	ControlID  string
	Status     LinkStatus
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
