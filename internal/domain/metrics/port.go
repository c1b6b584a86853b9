package metrics

import "context"

// Repository port for daily snapshots. Save upserts by date.
type Repository interface {
	Save(ctx context.Context, m *SystemMetrics) error
	Latest(ctx context.Context, limit int) ([]*SystemMetrics, error)
}
