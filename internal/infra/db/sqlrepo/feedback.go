package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/endoscan/internal/domain/feedback"
)

const feedbackColumns = `id, user_id, full_name, email, organization, subject, message,
       attachment_url, status, admin_notes, created_at, updated_at`

type FeedbackRepository struct {
	db *sql.DB
	d  Dialect
}

func NewFeedbackRepository(db *sql.DB, d Dialect) *FeedbackRepository {
	return &FeedbackRepository{db: db, d: d}
}

func (r *FeedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	q := `INSERT INTO feedback (` + feedbackColumns + `) VALUES (` + Placeholders(12) + `)`
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		f.ID, nullString(f.UserID), f.FullName, f.Email, nullString(f.Organization), f.Subject, f.Message,
		nullString(f.AttachmentURL), string(f.Status), nullString(f.AdminNotes), f.CreatedAt.UTC(), f.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (r *FeedbackRepository) Get(ctx context.Context, id string) (*domain.Feedback, error) {
	q := `SELECT ` + feedbackColumns + ` FROM feedback WHERE id = ?`
	f, err := scanFeedback(r.db.QueryRowContext(ctx, r.d.Rebind(q), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return f, err
}

func (r *FeedbackRepository) List(ctx context.Context, status *domain.Status, limit int) ([]*domain.Feedback, error) {
	q := `SELECT ` + feedbackColumns + ` FROM feedback`
	var args []any
	if status != nil {
		q += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	q += ` ORDER BY created_at DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	out := []*domain.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Update hanya status, admin_notes dan updated_at
func (r *FeedbackRepository) Update(ctx context.Context, f *domain.Feedback) error {
	const q = `UPDATE feedback SET status = ?, admin_notes = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		string(f.Status), nullString(f.AdminNotes), f.UpdatedAt.UTC(), f.ID)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanFeedback(s scanner) (*domain.Feedback, error) {
	var (
		f                            domain.Feedback
		status                       string
		user, org, attachment, notes sql.NullString
	)
	if err := s.Scan(
		&f.ID, &user, &f.FullName, &f.Email, &org, &f.Subject, &f.Message,
		&attachment, &status, &notes, &f.CreatedAt, &f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	f.Status = domain.Status(status)
	f.UserID = stringPtr(user)
	f.Organization = stringPtr(org)
	f.AttachmentURL = stringPtr(attachment)
	f.AdminNotes = stringPtr(notes)
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	return &f, nil
}
