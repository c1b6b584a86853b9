package profiles

import "context"

// Repository port for profiles
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	Get(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Count(ctx context.Context) (int64, error)
}
