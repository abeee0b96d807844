package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// CreateDocument inserts a new document.
func (r *PGRepo) CreateDocument(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
	id, user_id, file_name, original_filename, mime_type, size_bytes,
	storage_provider, storage_key, extracted_text_key, extracted_at, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	originalName := doc.OriginalFilename
	if originalName == "" {
		originalName = doc.FileName
	}
	storageProvider := doc.StorageProvider
	if storageProvider == "" {
		storageProvider = "local"
	}

	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		originalName,
		doc.MimeType,
		doc.SizeBytes,
		storageProvider,
		nullString(doc.StorageKey),
		nullString(doc.ExtractedTextKey),
		doc.ExtractedAt,
		doc.CreatedAt,
	)
	return err
}

// GetDocument returns a document by its ID.
func (r *PGRepo) GetDocument(ctx context.Context, documentID string) (Document, error) {
	const query = `
SELECT id, user_id, file_name, original_filename, mime_type, size_bytes,
       storage_provider, storage_key, extracted_text_key, extracted_at, created_at
FROM documents
WHERE id = $1`
	var (
		doc          Document
		storageKey   sql.NullString
		extractedKey sql.NullString
		extractedAt  sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, documentID).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.OriginalFilename,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageProvider,
		&storageKey,
		&extractedKey,
		&extractedAt,
		&doc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	doc.StorageKey = storageKey.String
	doc.ExtractedTextKey = extractedKey.String
	if extractedAt.Valid {
		t := extractedAt.Time
		doc.ExtractedAt = &t
	}
	return doc, nil
}

// SetExtractedText records the storage key of the extracted text copy.
func (r *PGRepo) SetExtractedText(ctx context.Context, documentID, extractedTextKey string) error {
	const query = `
UPDATE documents
SET extracted_text_key = $2, extracted_at = $3
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, documentID, extractedTextKey, time.Now().UTC())
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateLink inserts a control link.
func (r *PGRepo) CreateLink(ctx context.Context, link ControlLink) error {
	const query = `
INSERT INTO document_control_links (id, document_id, control_id, status, error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		link.ID,
		link.DocumentID,
		link.ControlID,
		string(link.Status),
		nullString(link.Error),
		link.CreatedAt,
		link.UpdatedAt,
	)
	return err
}

// GetLink returns a control link by its ID.
func (r *PGRepo) GetLink(ctx context.Context, linkID string) (ControlLink, error) {
	const query = `
SELECT id, document_id, control_id, status, error, created_at, updated_at
FROM document_control_links
WHERE id = $1`
	link, err := scanLink(r.DB.QueryRowContext(ctx, query, linkID))
	if errors.Is(err, sql.ErrNoRows) {
		return ControlLink{}, ErrLinkNotFound
	}
	return link, err
}

// ListLinksByControl returns a control's links, newest first.
func (r *PGRepo) ListLinksByControl(ctx context.Context, controlID string) ([]ControlLink, error) {
	const query = `
SELECT id, document_id, control_id, status, error, created_at, updated_at
FROM document_control_links
WHERE control_id = $1
ORDER BY created_at DESC, id`
	rows, err := r.DB.QueryContext(ctx, query, controlID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ControlLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

// SetLinkStatus moves a link through the evidence pipeline.
func (r *PGRepo) SetLinkStatus(ctx context.Context, linkID string, status LinkStatus, errMessage string) error {
	const query = `
UPDATE document_control_links
SET status = $2, error = $3, updated_at = $4
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, linkID, string(status), nullString(errMessage), time.Now().UTC())
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (ControlLink, error) {
	var (
		link    ControlLink
		status  string
		errText sql.NullString
	)
	err := row.Scan(&link.ID, &link.DocumentID, &link.ControlID, &status, &errText, &link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		return ControlLink{}, err
	}
	link.Status = LinkStatus(status)
	link.Error = errText.String
	return link, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repo = (*PGRepo)(nil)
