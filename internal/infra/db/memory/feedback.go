package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/bryanwahyu/endoscan/internal/domain/feedback"
)

type FeedbackRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Feedback
}

func NewFeedbackRepository() *FeedbackRepository {
	return &FeedbackRepository{items: make(map[string]*domain.Feedback)}
}

func (r *FeedbackRepository) Create(_ context.Context, f *domain.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *f
	r.items[f.ID] = &cp
	return nil
}

func (r *FeedbackRepository) Get(_ context.Context, id string) (*domain.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *FeedbackRepository) List(_ context.Context, status *domain.Status, limit int) ([]*domain.Feedback, error) {
	r.mu.RLock()
	out := make([]*domain.Feedback, 0, len(r.items))
	for _, f := range r.items {
		if status != nil && f.Status != *status {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *FeedbackRepository) Update(_ context.Context, f *domain.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[f.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *f
	r.items[f.ID] = &cp
	return nil
}
