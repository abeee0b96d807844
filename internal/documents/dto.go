package documents

import "time"

// LinkedDocument pairs a document with its link into one control.
type LinkedDocument struct {
	Document Document
	Link     ControlLink
}

// LinkedDocumentResponse is the outward-facing representation of a document
// within a control's evidence list.
type LinkedDocumentResponse struct {
	DocumentID string     `json:"documentId"`
	LinkID     string     `json:"linkId"`
	ControlID  string     `json:"controlId"`
	FileName   string     `json:"fileName"`
	MimeType   string     `json:"mimeType"`
	SizeBytes  int64      `json:"sizeBytes"`
	Status     LinkStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	UploadedAt time.Time  `json:"uploadedAt"`
}

func toResponse(item LinkedDocument) LinkedDocumentResponse {
	return LinkedDocumentResponse{
		DocumentID: item.Document.ID,
		LinkID:     item.Link.ID,
		ControlID:  item.Link.ControlID,
		FileName:   item.Document.FileName,
		MimeType:   item.Document.MimeType,
		SizeBytes:  item.Document.SizeBytes,
		Status:     item.Link.Status,
		Error:      item.Link.Error,
		UploadedAt: item.Document.CreatedAt,
	}
}
