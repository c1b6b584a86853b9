package reports

import (
	"context"
	"errors"
)

// ErrNarratorUnavailable is returned when the narrative provider refuses the request (quota, rate limit).
var ErrNarratorUnavailable = errors.New("report narrator unavailable")

// Narrator writes an optional plain-language summary of a built report.
type Narrator interface {
	Narrate(ctx context.Context, r *Report) (string, error)
}
