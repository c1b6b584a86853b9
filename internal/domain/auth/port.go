package auth

import (
	"context"
	"errors"
	"time"

	"github.com/bryanwahyu/endoscan/internal/domain/profiles"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password does not meet requirements")
)

// User is the identity attached to an authenticated request.
type User struct {
	ID    string        `json:"id"`
	Email string        `json:"email"`
	Role  profiles.Role `json:"role"`
}

// Session is an issued bearer session.
type Session struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// SignUpRequest creates a profile with credentials.
type SignUpRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	Organization string `json:"organization"`
	Role         string `json:"role"`
}

// Authenticator port (sign-in, sign-out, current user, session check)
type Authenticator interface {
	SignUp(ctx context.Context, req SignUpRequest) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*User, error)
}
