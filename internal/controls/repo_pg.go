package controls

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

// ListControls returns every control ordered by code.
func (r *PGRepo) ListControls(ctx context.Context) ([]Control, error) {
	const query = `
SELECT id, code, title, description, framework, created_at
FROM controls
ORDER BY code`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Control
	for rows.Next() {
		var (
			c           Control
			description sql.NullString
			framework   sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Code, &c.Title, &description, &framework, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Description = description.String
		c.Framework = framework.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetControl returns a control by its ID.
func (r *PGRepo) GetControl(ctx context.Context, controlID string) (Control, error) {
	const query = `
SELECT id, code, title, description, framework, created_at
FROM controls
WHERE id = $1`
	var (
		c           Control
		description sql.NullString
		framework   sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, controlID).Scan(&c.ID, &c.Code, &c.Title, &description, &framework, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Control{}, ErrNotFound
	}
	if err != nil {
		return Control{}, err
	}
	c.Description = description.String
	c.Framework = framework.String
	return c, nil
}

// CreateControl inserts a control.
func (r *PGRepo) CreateControl(ctx context.Context, control Control) error {
	const query = `
INSERT INTO controls (id, code, title, description, framework, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.ExecContext(ctx, query,
		control.ID,
		control.Code,
		control.Title,
		nullIfEmpty(control.Description),
		nullIfEmpty(control.Framework),
		control.CreatedAt,
	)
	return err
}

// ListQuestions returns a control's questions in questionnaire order.
func (r *PGRepo) ListQuestions(ctx context.Context, controlID string) ([]Question, error) {
	const query = `
SELECT id, control_id, ordinal, text, response, updated_at
FROM control_questions
WHERE control_id = $1
ORDER BY ordinal`
	rows, err := r.DB.QueryContext(ctx, query, controlID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var (
			q         Question
			response  sql.NullString
			updatedAt sql.NullTime
		)
		if err := rows.Scan(&q.ID, &q.ControlID, &q.Ordinal, &q.Text, &response, &updatedAt); err != nil {
			return nil, err
		}
		q.Response = response.String
		if updatedAt.Valid {
			t := updatedAt.Time
			q.UpdatedAt = &t
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ListQuestionIDs returns a control's question ids in questionnaire order.
func (r *PGRepo) ListQuestionIDs(ctx context.Context, controlID string) ([]string, error) {
	const query = `
SELECT id
FROM control_questions
WHERE control_id = $1
ORDER BY ordinal`
	rows, err := r.DB.QueryContext(ctx, query, controlID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CreateQuestion inserts a question.
func (r *PGRepo) CreateQuestion(ctx context.Context, question Question) error {
	const query = `
INSERT INTO control_questions (id, control_id, ordinal, text, response)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.DB.ExecContext(ctx, query,
		question.ID,
		question.ControlID,
		question.Ordinal,
		question.Text,
		nullIfEmpty(question.Response),
	)
	return err
}

// SetQuestionResponse records the current answer for a question.
func (r *PGRepo) SetQuestionResponse(ctx context.Context, questionID, response string) error {
	const query = `
UPDATE control_questions
SET response = $2, updated_at = $3
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, questionID, response, time.Now().UTC())
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repo = (*PGRepo)(nil)
