package feedback

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/endoscan/internal/application"
	domain "github.com/bryanwahyu/endoscan/internal/domain/feedback"
)

const defaultListLimit = 100

// Service implements the support-ticket use cases.
type Service struct {
	Repo  domain.Repository
	Clock application.Clock
}

// SubmitCommand is a feedback form submission. UserID is empty for anonymous senders.
type SubmitCommand struct {
	UserID        string `json:"-"`
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	Organization  string `json:"organization"`
	Subject       string `json:"subject"`
	Message       string `json:"message"`
	AttachmentURL string `json:"attachment_url"`
}

func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*domain.Feedback, error) {
	now := s.now()
	f := &domain.Feedback{
		ID:            uuid.NewString(),
		UserID:        optional(cmd.UserID),
		FullName:      strings.TrimSpace(cmd.FullName),
		Email:         strings.TrimSpace(cmd.Email),
		Organization:  optional(cmd.Organization),
		Subject:       strings.TrimSpace(cmd.Subject),
		Message:       strings.TrimSpace(cmd.Message),
		AttachmentURL: optional(cmd.AttachmentURL),
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// List returns tickets newest first, optionally only those in status.
func (s *Service) List(ctx context.Context, status string, limit int) ([]*domain.Feedback, error) {
	var st *domain.Status
	if strings.TrimSpace(status) != "" {
		parsed, err := domain.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		st = &parsed
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.Repo.List(ctx, st, limit)
}

// Review moves a ticket forward and optionally records admin notes.
func (s *Service) Review(ctx context.Context, id, status string, notes *string) (*domain.Feedback, error) {
	to, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	f, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.Move(to, notes, s.now()); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
