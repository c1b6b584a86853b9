package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"

	domain "github.com/bryanwahyu/endoscan/internal/domain/metrics"
)

const metricsColumns = `id, metric_date, total_analyses, normal_cases, abnormal_cases,
       avg_confidence, avg_processing_time, active_users, created_at`

var metricsUpdated = []string{
	"total_analyses", "normal_cases", "abnormal_cases",
	"avg_confidence", "avg_processing_time", "active_users",
}

type MetricsRepository struct {
	db *sql.DB
	d  Dialect
}

func NewMetricsRepository(db *sql.DB, d Dialect) *MetricsRepository {
	return &MetricsRepository{db: db, d: d}
}

// Save upserts the snapshot of m.Date and reloads the stored id.
func (r *MetricsRepository) Save(ctx context.Context, m *domain.SystemMetrics) error {
	day := domain.Day(m.Date)
	q := `INSERT INTO system_metrics (` + metricsColumns + `) VALUES (` + Placeholders(9) + `) ` +
		r.d.Upsert("metric_date", metricsUpdated)
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		m.ID, day, m.TotalAnalyses, m.NormalCases, m.AbnormalCases,
		nullFloat(m.AvgConfidence), nullFloat(m.AvgProcessingTime), m.ActiveUsers, m.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert metrics: %w", err)
	}

	const reload = `SELECT id, created_at FROM system_metrics WHERE metric_date = ?`
	if err := r.db.QueryRowContext(ctx, r.d.Rebind(reload), day).Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("reload metrics: %w", err)
	}
	m.Date = day
	m.CreatedAt = m.CreatedAt.UTC()
	return nil
}

func (r *MetricsRepository) Latest(ctx context.Context, limit int) ([]*domain.SystemMetrics, error) {
	if limit <= 0 {
		limit = 30
	}
	q := `SELECT ` + metricsColumns + ` FROM system_metrics ORDER BY metric_date DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), limit)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	out := []*domain.SystemMetrics{}
	for rows.Next() {
		var (
			m              domain.SystemMetrics
			conf, procTime sql.NullFloat64
		)
		if err := rows.Scan(
			&m.ID, &m.Date, &m.TotalAnalyses, &m.NormalCases, &m.AbnormalCases,
			&conf, &procTime, &m.ActiveUsers, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		m.Date = domain.Day(m.Date)
		m.AvgConfidence = floatPtr(conf)
		m.AvgProcessingTime = floatPtr(procTime)
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, &m)
	}
	return out, rows.Err()
}
