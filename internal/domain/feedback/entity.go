package feedback

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("feedback not found")
	ErrInvalidStatus     = errors.New("invalid feedback status")
	ErrInvalidTransition = errors.New("invalid feedback status transition")
	ErrInvalidFeedback   = errors.New("invalid feedback")
)

// Status lifecycle: pending -> reviewed -> resolved
type Status string

const (
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
	StatusResolved Status = "resolved"
)

var rank = map[Status]int{StatusPending: 0, StatusReviewed: 1, StatusResolved: 2}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := rank[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// CanMove allows forward moves only; a ticket never reopens.
func CanMove(from, to Status) bool {
	f, ok1 := rank[from]
	t, ok2 := rank[to]
	return ok1 && ok2 && t > f
}

// Feedback is a user-submitted support ticket, independent of analyses.
type Feedback struct {
	ID            string    `json:"id"`
	UserID        *string   `json:"user_id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Organization  *string   `json:"organization"`
	Subject       string    `json:"subject"`
	Message       string    `json:"message"`
	AttachmentURL *string   `json:"attachment_url"`
	Status        Status    `json:"status"`
	AdminNotes    *string   `json:"admin_notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks the required submission fields.
func (f *Feedback) Validate() error {
	var missing []string
	if strings.TrimSpace(f.FullName) == "" {
		missing = append(missing, "full_name")
	}
	if strings.TrimSpace(f.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(f.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(f.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidFeedback, strings.Join(missing, ", "))
	}
	if _, err := mail.ParseAddress(f.Email); err != nil {
		return fmt.Errorf("%w: email: %v", ErrInvalidFeedback, err)
	}
	return nil
}

// Move advances the ticket status, optionally replacing the admin notes.
func (f *Feedback) Move(to Status, notes *string, at time.Time) error {
	if !CanMove(f.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.Status, to)
	}
	f.Status = to
	if notes != nil {
		f.AdminNotes = notes
	}
	f.UpdatedAt = at
	return nil
}
