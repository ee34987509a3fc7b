package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/formstep/internal/form"
)

// Submission is a completed answer set for one form.
type Submission struct {
	ID          string       `json:"id"`
	FormID      string       `json:"form_id"`
	SessionID   string       `json:"session_id,omitempty"`
	Answers     form.Answers `json:"answers"`
	Seq         int64        `json:"seq"`
	SubmittedAt time.Time    `json:"submitted_at"`
}

// WriteSubmission appends a submission. Seq is assigned by the store;
// SubmittedAt is kept when set and stamped from the store clock otherwise.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency - writing the same id
// twice keeps the first record. The form must exist (ErrNotFound).
func (s *Store) WriteSubmission(ctx context.Context, sub Submission) (Submission, error) {
	if sub.ID == "" {
		return sub, fmt.Errorf("write submission: id is required")
	}

	answersJSON, err := marshalAnswers(sub.Answers)
	if err != nil {
		return sub, fmt.Errorf("write submission: %w", err)
	}

	submittedAt := sub.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sub, fmt.Errorf("write submission: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM forms WHERE id = ?`, sub.FormID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, fmt.Errorf("write submission: form %q: %w", sub.FormID, ErrNotFound)
	}
	if err != nil {
		return sub, fmt.Errorf("write submission: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO submissions (id, form_id, session_id, answers, seq, submitted_at)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM submissions), ?)
		ON CONFLICT(id) DO NOTHING
	`, sub.ID, sub.FormID, sub.SessionID, answersJSON, formatTime(submittedAt))
	if err != nil {
		return sub, fmt.Errorf("write submission: %w", err)
	}

	stored, err := scanSubmission(tx.QueryRowContext(ctx, `
		SELECT id, form_id, session_id, answers, seq, submitted_at
		FROM submissions WHERE id = ?
	`, sub.ID))
	if err != nil {
		return sub, fmt.Errorf("write submission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return sub, fmt.Errorf("write submission: %w", err)
	}
	return stored, nil
}

// GetSubmission returns one submission by id, or ErrNotFound.
func (s *Store) GetSubmission(ctx context.Context, id string) (Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx, `
		SELECT id, form_id, session_id, answers, seq, submitted_at
		FROM submissions WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, fmt.Errorf("submission %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// ListSubmissions returns the submissions of a form ordered by seq.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the form has no submissions.
func (s *Store) ListSubmissions(ctx context.Context, formID string) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, form_id, session_id, answers, seq, submitted_at
		FROM submissions
		WHERE form_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, formID)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	subs := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (Submission, error) {
	var (
		sub         Submission
		answersJSON string
		submittedAt string
	)
	if err := row.Scan(&sub.ID, &sub.FormID, &sub.SessionID, &answersJSON, &sub.Seq, &submittedAt); err != nil {
		return Submission{}, err
	}

	answers, err := unmarshalAnswers(answersJSON)
	if err != nil {
		return Submission{}, err
	}
	sub.Answers = answers

	sub.SubmittedAt, err = parseTime(submittedAt)
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}
