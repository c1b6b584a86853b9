// Package memory holds in-process repositories for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/bryanwahyu/endoscan/internal/domain/analyses"
)

type AnalysisRepository struct {
	mu    sync.RWMutex
	items map[domain.AnalysisID]*domain.Analysis
}

func NewAnalysisRepository() *AnalysisRepository {
	return &AnalysisRepository{items: make(map[domain.AnalysisID]*domain.Analysis)}
}

func (r *AnalysisRepository) Create(_ context.Context, a *domain.Analysis) error {
	if err := a.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID] = cloneAnalysis(a)
	return nil
}

func (r *AnalysisRepository) Get(_ context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneAnalysis(a), nil
}

func (r *AnalysisRepository) List(_ context.Context, q domain.ListQuery) ([]*domain.Analysis, error) {
	r.mu.RLock()
	out := make([]*domain.Analysis, 0, len(r.items))
	for _, a := range r.items {
		if q.UserID != "" && a.UserID != q.UserID {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		if !q.Since.IsZero() && a.CreatedAt.Before(q.Since) {
			continue
		}
		out = append(out, cloneAnalysis(a))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *AnalysisRepository) Count(_ context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if userID == "" {
		return int64(len(r.items)), nil
	}
	var n int64
	for _, a := range r.items {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *AnalysisRepository) Apply(_ context.Context, id domain.AnalysisID, from domain.Status, ev domain.Event) error {
	to, err := domain.Transition(from, ev)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if a.Status != from {
		return domain.ErrConflict
	}
	a.Status = to
	return nil
}

func (r *AnalysisRepository) Complete(_ context.Context, id domain.AnalysisID, res domain.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if a.Status != domain.StatusProcessing {
		return domain.ErrConflict
	}
	return a.Complete(res)
}

func cloneAnalysis(a *domain.Analysis) *domain.Analysis {
	cp := *a
	if a.AIInsights != nil {
		cp.AIInsights = append([]string(nil), a.AIInsights...)
	}
	return &cp
}
