package reports

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bryanwahyu/endoscan/internal/domain/analyses"
	domain "github.com/bryanwahyu/endoscan/internal/domain/reports"
)

const defaultNarrateTimeout = 20 * time.Second

// Service builds clinical reports from completed analyses.
type Service struct {
	Analyses analyses.Repository
	// Narrator is optional. When set, reports carry a short AI summary.
	Narrator       domain.Narrator
	NarrateTimeout time.Duration
	Logger         *slog.Logger
}

// ForAnalysis returns the report of one completed analysis owned by userID.
func (s *Service) ForAnalysis(ctx context.Context, userID string, id analyses.AnalysisID) (*domain.Report, error) {
	a, err := s.Analyses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.OwnedBy(userID) {
		return nil, analyses.ErrNotFound
	}
	return s.build(ctx, a)
}

// Latest returns the report of the user's most recent completed analysis.
func (s *Service) Latest(ctx context.Context, userID string) (*domain.Report, error) {
	completed := analyses.StatusCompleted
	list, err := s.Analyses.List(ctx, analyses.ListQuery{UserID: userID, Status: &completed, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, analyses.ErrNotFound
	}
	return s.build(ctx, list[0])
}

func (s *Service) build(ctx context.Context, a *analyses.Analysis) (*domain.Report, error) {
	r, err := domain.Build(a)
	if err != nil {
		return nil, err
	}
	if s.Narrator == nil {
		return r, nil
	}

	timeout := s.NarrateTimeout
	if timeout <= 0 {
		timeout = defaultNarrateTimeout
	}
	nctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := s.Narrator.Narrate(nctx, r)
	if err != nil {
		lvl := slog.LevelError
		if errors.Is(err, domain.ErrNarratorUnavailable) {
			lvl = slog.LevelWarn
		}
		s.logger().Log(ctx, lvl, "report narrative skipped",
			slog.String("analysis_id", string(a.ID)), slog.Any("err", err))
		return r, nil
	}
	r.Narrative = text
	return r, nil
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
