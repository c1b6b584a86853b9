package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/endoscan/internal/domain/feedback"
	"github.com/bryanwahyu/endoscan/internal/infra/db/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestSubmitAndReview(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	svc := &Service{Repo: memory.NewFeedbackRepository(), Clock: fixedClock{t: now}}

	f, err := svc.Submit(ctx, SubmitCommand{
		FullName: " Dr. Rivera ",
		Email:    "rivera@clinic.org",
		Subject:  "Upload stalls",
		Message:  "Large mp4 files take long",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, f.Status)
	assert.Equal(t, "Dr. Rivera", f.FullName)
	assert.Nil(t, f.UserID)
	assert.Nil(t, f.Organization)

	notes := "investigating"
	svc.Clock = fixedClock{t: now.Add(time.Hour)}
	reviewed, err := svc.Review(ctx, f.ID, "reviewed", &notes)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReviewed, reviewed.Status)
	assert.Equal(t, now.Add(time.Hour), reviewed.UpdatedAt)
	require.NotNil(t, reviewed.AdminNotes)

	_, err = svc.Review(ctx, f.ID, "pending", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.Review(ctx, f.ID, "archived", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.Review(ctx, "missing", "resolved", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.List(ctx, "reviewed", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = svc.List(ctx, "pending", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmit_Invalid(t *testing.T) {
	svc := &Service{Repo: memory.NewFeedbackRepository()}
	_, err := svc.Submit(context.Background(), SubmitCommand{FullName: "A", Email: "not-an-email", Subject: "s", Message: "m"})
	assert.ErrorIs(t, err, domain.ErrInvalidFeedback)

	_, err = svc.Submit(context.Background(), SubmitCommand{Email: "a@b.c"})
	assert.ErrorIs(t, err, domain.ErrInvalidFeedback)
}
