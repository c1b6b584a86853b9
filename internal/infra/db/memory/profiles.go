package memory

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/endoscan/internal/domain/profiles"
)

type ProfileRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Profile
	byEmail map[string]string
}

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{
		byID:    make(map[string]*domain.Profile),
		byEmail: make(map[string]string),
	}
}

func (r *ProfileRepository) Create(_ context.Context, p *domain.Profile) error {
	email := domain.NormalizeEmail(p.Email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[email]; taken {
		return domain.ErrEmailTaken
	}
	cp := *p
	cp.Email = email
	r.byID[p.ID] = &cp
	r.byEmail[email] = p.ID
	return nil
}

func (r *ProfileRepository) Get(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	r.mu.RLock()
	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *ProfileRepository) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}
