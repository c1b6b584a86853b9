package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/endoscan/internal/domain/analyses"
	domain "github.com/bryanwahyu/endoscan/internal/domain/reports"
	"github.com/bryanwahyu/endoscan/internal/infra/db/memory"
)

type narratorFunc func(ctx context.Context, r *domain.Report) (string, error)

func (f narratorFunc) Narrate(ctx context.Context, r *domain.Report) (string, error) { return f(ctx, r) }

var day = time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)

func seed(t *testing.T, repo *memory.AnalysisRepository, id, user string, at time.Time, sev *analyses.Severity) {
	t.Helper()
	ctx := context.Background()
	a := &analyses.Analysis{
		ID: analyses.AnalysisID(id), UserID: user, FileName: id + ".mp4",
		FileURL: "http://x/" + id, FileType: "video/mp4",
		Status: analyses.StatusPending, CreatedAt: at,
	}
	require.NoError(t, repo.Create(ctx, a))
	if sev == nil {
		return
	}
	require.NoError(t, repo.Apply(ctx, a.ID, analyses.StatusPending, analyses.EventStart))
	require.NoError(t, repo.Complete(ctx, a.ID, analyses.Result{
		Severity: *sev, Condition: "Healthy tissue", Confidence: 97.2,
		TotalFrames: 1500, AbnormalFrames: 0,
		AIInsights: []string{"No abnormalities detected"}, ProcessingTimeSeconds: 18.5,
		CompletedAt: at.Add(time.Minute),
	}))
}

func TestForAnalysis(t *testing.T) {
	repo := memory.NewAnalysisRepository()
	healthy := analyses.SeverityHealthy
	seed(t, repo, "abcdef123456", "u1", day, &healthy)
	seed(t, repo, "pending1", "u1", day, nil)
	svc := &Service{Analyses: repo}

	r, err := svc.ForAnalysis(context.Background(), "u1", "abcdef123456")
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF12", r.ReportID)
	assert.Equal(t, "March 4, 2025", r.Date)
	assert.Equal(t, domain.Recommendation(analyses.SeverityHealthy), r.Recommendation)
	assert.Empty(t, r.Narrative)

	_, err = svc.ForAnalysis(context.Background(), "u2", "abcdef123456")
	assert.ErrorIs(t, err, analyses.ErrNotFound)

	_, err = svc.ForAnalysis(context.Background(), "u1", "pending1")
	assert.ErrorIs(t, err, analyses.ErrNotCompleted)
}

func TestLatest(t *testing.T) {
	repo := memory.NewAnalysisRepository()
	svc := &Service{Analyses: repo}

	_, err := svc.Latest(context.Background(), "u1")
	assert.ErrorIs(t, err, analyses.ErrNotFound)

	mild, severe := analyses.SeverityMild, analyses.SeveritySevere
	seed(t, repo, "older000", "u1", day, &mild)
	seed(t, repo, "newer000", "u1", day.Add(time.Hour), &severe)
	seed(t, repo, "newest00", "u1", day.Add(2*time.Hour), nil)

	r, err := svc.Latest(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, analyses.AnalysisID("newer000"), r.AnalysisID)
	assert.Equal(t, analyses.SeveritySevere, r.Severity)
}

func TestNarrator(t *testing.T) {
	repo := memory.NewAnalysisRepository()
	healthy := analyses.SeverityHealthy
	seed(t, repo, "abcdef123456", "u1", day, &healthy)

	svc := &Service{Analyses: repo, Narrator: narratorFunc(func(_ context.Context, r *domain.Report) (string, error) {
		return "All clear for " + r.ReportID, nil
	})}
	r, err := svc.ForAnalysis(context.Background(), "u1", "abcdef123456")
	require.NoError(t, err)
	assert.Equal(t, "All clear for ABCDEF12", r.Narrative)

	for _, failure := range []error{domain.ErrNarratorUnavailable, errors.New("boom")} {
		svc.Narrator = narratorFunc(func(context.Context, *domain.Report) (string, error) { return "", failure })
		r, err = svc.ForAnalysis(context.Background(), "u1", "abcdef123456")
		require.NoError(t, err)
		assert.Empty(t, r.Narrative)
	}
}
