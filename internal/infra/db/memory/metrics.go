package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/bryanwahyu/endoscan/internal/domain/metrics"
)

// MetricsRepository keys snapshots by day.
type MetricsRepository struct {
	mu    sync.RWMutex
	byDay map[int64]*domain.SystemMetrics
}

func NewMetricsRepository() *MetricsRepository {
	return &MetricsRepository{byDay: make(map[int64]*domain.SystemMetrics)}
}

func (r *MetricsRepository) Save(_ context.Context, m *domain.SystemMetrics) error {
	day := domain.Day(m.Date)
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byDay[day.Unix()]; ok {
		m.ID = prev.ID
		m.CreatedAt = prev.CreatedAt
	}
	cp := *m
	cp.Date = day
	r.byDay[day.Unix()] = &cp
	return nil
}

func (r *MetricsRepository) Latest(_ context.Context, limit int) ([]*domain.SystemMetrics, error) {
	r.mu.RLock()
	out := make([]*domain.SystemMetrics, 0, len(r.byDay))
	for _, m := range r.byDay {
		cp := *m
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
