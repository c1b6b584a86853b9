package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/endoscan/internal/application"
	"github.com/bryanwahyu/endoscan/internal/domain/analyses"
	domain "github.com/bryanwahyu/endoscan/internal/domain/metrics"
	"github.com/bryanwahyu/endoscan/internal/domain/profiles"
)

const defaultHistory = 30

// Service backs the admin metrics page.
type Service struct {
	Analyses analyses.Repository
	Profiles profiles.Repository
	Metrics  domain.Repository
	Clock    application.Clock
}

// Overview counts every analysis and every profile. Average confidence is
// the fixed reported figure.
func (s *Service) Overview(ctx context.Context) (domain.Overview, error) {
	var ov domain.Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.Analyses.Count(gctx, "")
		if err != nil {
			return fmt.Errorf("count analyses: %w", err)
		}
		ov.TotalAnalyses = n
		return nil
	})
	g.Go(func() error {
		n, err := s.Profiles.Count(gctx)
		if err != nil {
			return fmt.Errorf("count profiles: %w", err)
		}
		ov.ActiveUsers = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Overview{}, err
	}
	ov.AvgConfidence = analyses.ReportedAccuracy
	return ov, nil
}

// Snapshot aggregates today's analyses and upserts the daily row.
func (s *Service) Snapshot(ctx context.Context) (*domain.SystemMetrics, error) {
	now := s.now()
	day := domain.Day(now)
	list, err := s.Analyses.List(ctx, analyses.ListQuery{Since: day})
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}

	users := make(map[string]struct{})
	for _, a := range list {
		users[a.UserID] = struct{}{}
	}
	m := domain.Snapshot(day, list, len(users))
	m.ID = uuid.NewString()
	m.CreatedAt = now
	if err := s.Metrics.Save(ctx, &m); err != nil {
		return nil, fmt.Errorf("save metrics: %w", err)
	}
	return &m, nil
}

// History returns the latest daily snapshots, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]*domain.SystemMetrics, error) {
	if limit <= 0 {
		limit = defaultHistory
	}
	return s.Metrics.Latest(ctx, limit)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}
