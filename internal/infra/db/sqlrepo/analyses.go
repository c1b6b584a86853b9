package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/endoscan/internal/domain/analyses"
)

const analysisColumns = `id, user_id, patient_id, file_name, file_url, file_type, status,
       severity, condition_text, confidence, total_frames, abnormal_frames,
       region_of_interest, device_model, notes, ai_insights, processing_time_seconds,
       created_at, completed_at`

type AnalysisRepository struct {
	db *sql.DB
	d  Dialect
}

func NewAnalysisRepository(db *sql.DB, d Dialect) *AnalysisRepository {
	return &AnalysisRepository{db: db, d: d}
}

// Create inserts a new analysis row
func (r *AnalysisRepository) Create(ctx context.Context, a *domain.Analysis) error {
	if err := a.Validate(); err != nil {
		return err
	}
	insights, err := encodeInsights(a.AIInsights)
	if err != nil {
		return fmt.Errorf("encode insights: %w", err)
	}
	var sev any
	if a.Severity != nil {
		sev = string(*a.Severity)
	}
	var total, abnormal any
	if a.TotalFrames != nil {
		total = *a.TotalFrames
	}
	if a.AbnormalFrames != nil {
		abnormal = *a.AbnormalFrames
	}
	var completed any
	if a.CompletedAt != nil {
		completed = a.CompletedAt.UTC()
	}

	q := `INSERT INTO analyses (` + analysisColumns + `) VALUES (` + Placeholders(19) + `)`
	_, err = r.db.ExecContext(ctx, r.d.Rebind(q),
		string(a.ID), a.UserID, nullString(a.PatientID), a.FileName, a.FileURL, a.FileType, string(a.Status),
		sev, nullString(a.Condition), nullFloat(a.Confidence), total, abnormal,
		nullString(a.RegionOfInterest), nullString(a.DeviceModel), nullString(a.Notes), insights,
		nullFloat(a.ProcessingTimeSeconds), a.CreatedAt.UTC(), completed,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	q := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = ?`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, r.d.Rebind(q), string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

// List returns a snapshot newest first
func (r *AnalysisRepository) List(ctx context.Context, lq domain.ListQuery) ([]*domain.Analysis, error) {
	var where []string
	var args []any
	if lq.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, lq.UserID)
	}
	if lq.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*lq.Status))
	}
	if !lq.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, lq.Since.UTC())
	}

	q := `SELECT ` + analysisColumns + ` FROM analyses`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"
	if lq.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, lq.Limit)
	}

	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	out := []*domain.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AnalysisRepository) Count(ctx context.Context, userID string) (int64, error) {
	q := `SELECT COUNT(*) FROM analyses`
	var args []any
	if userID != "" {
		q += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, r.d.Rebind(q), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Apply is a compare-and-set on the status column. Illegal edges never reach the database.
func (r *AnalysisRepository) Apply(ctx context.Context, id domain.AnalysisID, from domain.Status, ev domain.Event) error {
	to, err := domain.Transition(from, ev)
	if err != nil {
		return err
	}
	const q = `UPDATE analyses SET status = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, r.d.Rebind(q), string(to), string(id), string(from))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return r.checkApplied(ctx, id, res)
}

// Complete writes the outcome only while the row is still processing
func (r *AnalysisRepository) Complete(ctx context.Context, id domain.AnalysisID, res domain.Result) error {
	insights, err := encodeInsights(res.AIInsights)
	if err != nil {
		return fmt.Errorf("encode insights: %w", err)
	}
	const q = `
UPDATE analyses
SET status = ?, severity = ?, condition_text = ?, confidence = ?,
    total_frames = ?, abnormal_frames = ?, ai_insights = ?,
    processing_time_seconds = ?, completed_at = ?
WHERE id = ? AND status = ?`
	out, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		string(domain.StatusCompleted), string(res.Severity), res.Condition, res.Confidence,
		res.TotalFrames, res.AbnormalFrames, insights,
		res.ProcessingTimeSeconds, res.CompletedAt.UTC(),
		string(id), string(domain.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("complete analysis: %w", err)
	}
	return r.checkApplied(ctx, id, out)
}

// checkApplied tells a missing row from a lost compare-and-set.
func (r *AnalysisRepository) checkApplied(ctx context.Context, id domain.AnalysisID, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT 1 FROM analyses WHERE id = ?`), string(id)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrConflict
}

func scanAnalysis(s scanner) (*domain.Analysis, error) {
	var (
		a                               domain.Analysis
		id, status                      string
		patient, severity, condition    sql.NullString
		region, device, notes, insights sql.NullString
		confidence, processing          sql.NullFloat64
		total, abnormal                 sql.NullInt64
		completed                       sql.NullTime
	)
	if err := s.Scan(
		&id, &a.UserID, &patient, &a.FileName, &a.FileURL, &a.FileType, &status,
		&severity, &condition, &confidence, &total, &abnormal,
		&region, &device, &notes, &insights, &processing,
		&a.CreatedAt, &completed,
	); err != nil {
		return nil, err
	}

	a.ID = domain.AnalysisID(id)
	a.Status = domain.Status(status)
	if severity.Valid {
		sev := domain.Severity(severity.String)
		a.Severity = &sev
	}
	a.PatientID = stringPtr(patient)
	a.Condition = stringPtr(condition)
	a.Confidence = floatPtr(confidence)
	a.TotalFrames = intPtr(total)
	a.AbnormalFrames = intPtr(abnormal)
	a.RegionOfInterest = stringPtr(region)
	a.DeviceModel = stringPtr(device)
	a.Notes = stringPtr(notes)
	a.ProcessingTimeSeconds = floatPtr(processing)
	a.CreatedAt = a.CreatedAt.UTC()
	a.CompletedAt = timePtr(completed)

	list, err := decodeInsights(insights)
	if err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}
	a.AIInsights = list
	return &a, nil
}
