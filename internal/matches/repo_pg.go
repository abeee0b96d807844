package matches

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

const matchColumns = `
id, control_id, question_id, document_id, composite_score, acceptance,
accepted_response, response_edited, active, cross_control, source_control_id,
suggested_response, matched_passage, ai_summary, created_at, reviewed_at, reviewed_by`

// Get returns a match by its ID.
func (r *PGRepo) Get(ctx context.Context, matchID string) (Match, error) {
	query := `SELECT ` + matchColumns + ` FROM document_question_matches WHERE id = $1`
	m, err := scanMatch(r.DB.QueryRowContext(ctx, query, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return Match{}, ErrNotFound
	}
	return m, err
}

// ListByControl returns every match for a control, newest first, including
// inactive rows.
func (r *PGRepo) ListByControl(ctx context.Context, controlID string) ([]Match, error) {
	query := `SELECT ` + matchColumns + `
FROM document_question_matches
WHERE control_id = $1
ORDER BY created_at DESC, id`
	rows, err := r.DB.QueryContext(ctx, query, controlID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateBatch inserts new matches in one transaction.
func (r *PGRepo) CreateBatch(ctx context.Context, batch []Match) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
INSERT INTO document_question_matches (
	id, control_id, question_id, document_id, composite_score, acceptance,
	accepted_response, response_edited, active, cross_control, source_control_id,
	suggested_response, matched_passage, ai_summary, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	for _, m := range batch {
		if _, err := tx.ExecContext(ctx, query,
			m.ID,
			m.ControlID,
			m.QuestionID,
			m.DocumentID,
			m.CompositeScore,
			string(m.Acceptance),
			nullIfEmpty(m.AcceptedResponse),
			m.ResponseEdited,
			m.Active,
			m.CrossControl,
			nullIfEmpty(m.SourceControlID),
			nullIfEmpty(m.SuggestedResponse),
			nullIfEmpty(m.MatchedPassage),
			nullIfEmpty(m.AISummary),
			m.CreatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeactivateForDocument soft-deletes a document's active matches in a control.
func (r *PGRepo) DeactivateForDocument(ctx context.Context, controlID, documentID string) error {
	const query = `
UPDATE document_question_matches
SET active = FALSE
WHERE control_id = $1 AND document_id = $2 AND active = TRUE`
	_, err := r.DB.ExecContext(ctx, query, controlID, documentID)
	return err
}

// SetAcceptance records the reviewer's verdict for a match.
func (r *PGRepo) SetAcceptance(ctx context.Context, matchID string, verdict Acceptance, response string, edited bool, reviewedBy string) error {
	const query = `
UPDATE document_question_matches
SET acceptance = $2, accepted_response = $3, response_edited = $4, reviewed_at = $5, reviewed_by = $6
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query,
		matchID,
		string(verdict),
		nullIfEmpty(response),
		edited,
		time.Now().UTC(),
		nullIfEmpty(reviewedBy),
	)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (Match, error) {
	var (
		m                Match
		acceptance       string
		acceptedResponse sql.NullString
		sourceControlID  sql.NullString
		suggested        sql.NullString
		passage          sql.NullString
		summary          sql.NullString
		reviewedAt       sql.NullTime
		reviewedBy       sql.NullString
	)
	err := row.Scan(
		&m.ID,
		&m.ControlID,
		&m.QuestionID,
		&m.DocumentID,
		&m.CompositeScore,
		&acceptance,
		&acceptedResponse,
		&m.ResponseEdited,
		&m.Active,
		&m.CrossControl,
		&sourceControlID,
		&suggested,
		&passage,
		&summary,
		&m.CreatedAt,
		&reviewedAt,
		&reviewedBy,
	)
	if err != nil {
		return Match{}, err
	}
	m.Acceptance = Acceptance(acceptance)
	m.AcceptedResponse = acceptedResponse.String
	m.SourceControlID = sourceControlID.String
	m.SuggestedResponse = suggested.String
	m.MatchedPassage = passage.String
	m.AISummary = summary.String
	if reviewedAt.Valid {
		t := reviewedAt.Time
		m.ReviewedAt = &t
	}
	m.ReviewedBy = reviewedBy.String
	return m, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repo = (*PGRepo)(nil)
