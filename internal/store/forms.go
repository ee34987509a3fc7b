package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/formstep/internal/form"
)

// CreateForm inserts a new form. Returns ErrExists if the id is taken.
// The form is normalized before it is stored.
func (s *Store) CreateForm(ctx context.Context, f *form.Form) error {
	if f.ID == "" {
		return fmt.Errorf("create form: id is required")
	}
	f.Normalize()

	def, err := marshalForm(f)
	if err != nil {
		return fmt.Errorf("create form: %w", err)
	}

	now := formatTime(s.now())
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO forms (id, title, status, scheduled_date, definition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, f.ID, f.Title, string(f.Status), f.ScheduledDate, def, now, now)
	if err != nil {
		return fmt.Errorf("create form: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create form: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("create form %q: %w", f.ID, ErrExists)
	}
	return nil
}

// PutForm inserts or replaces a form by id. Reports whether it was created.
func (s *Store) PutForm(ctx context.Context, f *form.Form) (created bool, err error) {
	err = s.CreateForm(ctx, f)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, ErrExists) {
		return false, err
	}
	return false, s.UpdateForm(ctx, f)
}

// GetForm returns the form with the given id, or ErrNotFound.
func (s *Store) GetForm(ctx context.Context, id string) (*form.Form, error) {
	var def string
	err := s.db.QueryRowContext(ctx, `
		SELECT definition FROM forms WHERE id = ?
	`, id).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("form %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get form: %w", err)
	}
	return unmarshalForm(def)
}

// ListForms returns forms ordered by id. An empty status lists every form.
//
// Returns an empty slice (not nil) if no forms match.
func (s *Store) ListForms(ctx context.Context, status form.Status) ([]form.Form, error) {
	query := `SELECT definition FROM forms ORDER BY id COLLATE BINARY ASC`
	args := []any{}
	if status != "" {
		query = `SELECT definition FROM forms WHERE status = ? ORDER BY id COLLATE BINARY ASC`
		args = append(args, string(status))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query forms: %w", err)
	}
	defer rows.Close()

	forms := []form.Form{}
	for rows.Next() {
		var def string
		if err := rows.Scan(&def); err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}
		f, err := unmarshalForm(def)
		if err != nil {
			return nil, err
		}
		forms = append(forms, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forms: %w", err)
	}
	return forms, nil
}

// UpdateForm replaces the definition of an existing form.
// Returns ErrNotFound if no form has the id.
func (s *Store) UpdateForm(ctx context.Context, f *form.Form) error {
	f.Normalize()

	def, err := marshalForm(f)
	if err != nil {
		return fmt.Errorf("update form: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE forms
		SET title = ?, status = ?, scheduled_date = ?, definition = ?, updated_at = ?
		WHERE id = ?
	`, f.Title, string(f.Status), f.ScheduledDate, def, formatTime(s.now()), f.ID)
	if err != nil {
		return fmt.Errorf("update form: %w", err)
	}
	return expectOneRow(res, "form", f.ID)
}

// DeleteForm removes a form and, through the foreign key, its submissions.
func (s *Store) DeleteForm(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM forms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	return expectOneRow(res, "form", id)
}

// SeedDefaults stores form.DefaultForms when the store holds no forms.
// Returns the number of forms inserted.
func (s *Store) SeedDefaults(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM forms`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count forms: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	seeded := 0
	for _, f := range form.DefaultForms() {
		if err := s.CreateForm(ctx, &f); err != nil {
			return seeded, fmt.Errorf("seed defaults: %w", err)
		}
		seeded++
	}
	return seeded, nil
}

func expectOneRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %q: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}
