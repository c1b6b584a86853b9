package analyses

import (
	"context"
	"io"
	"time"
)

// ListQuery selects a snapshot of analyses, newest first.
type ListQuery struct {
	UserID string  // empty means every user
	Status *Status // nil means any status
	Since  time.Time
	Limit  int // <= 0 means no limit
}

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	List(ctx context.Context, q ListQuery) ([]*Analysis, error)
	Count(ctx context.Context, userID string) (int64, error)

	// Apply fires ev on id, expecting it to be in from. It returns
	// ErrInvalidTransition when ev is not allowed from that status,
	// ErrConflict when the stored status is no longer from and ErrNotFound
	// when id does not exist.
	Apply(ctx context.Context, id AnalysisID, from Status, ev Event) error
	// Complete writes r on an analysis that is still processing.
	Complete(ctx context.Context, id AnalysisID, r Result) error
}

// BlobStore port (interface untuk penyimpanan file upload)
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}
