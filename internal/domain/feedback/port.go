package feedback

import "context"

// Repository port for feedback tickets
type Repository interface {
	Create(ctx context.Context, f *Feedback) error
	Get(ctx context.Context, id string) (*Feedback, error)
	List(ctx context.Context, status *Status, limit int) ([]*Feedback, error)
	Update(ctx context.Context, f *Feedback) error
}
