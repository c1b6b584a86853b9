package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	domain "github.com/bryanwahyu/endoscan/internal/domain/auth"
	"github.com/bryanwahyu/endoscan/internal/domain/profiles"
)

const (
	MinPasswordLength = 6
	// bcrypt ignores input past 72 bytes
	maxPasswordLength = 72
	tokenType         = "Bearer"
)

// Service is the Authenticator backed by profiles, bcrypt and JWT.
type Service struct {
	Profiles profiles.Repository
	JWT      *JWTService
	Logger   *slog.Logger
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry

	// unknown emails are compared against this hash so they cost as much as a wrong password
	dummyOnce sync.Once
	dummyHash []byte
}

func (s *Service) cost() int {
	if s.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return s.Cost
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		// an invalid cost fails SignUp too
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.cost())
	})
	return s.dummyHash
}

func (s *Service) SignUp(ctx context.Context, req domain.SignUpRequest) (*domain.Session, error) {
	email := profiles.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email", domain.ErrInvalidCredentials)
	}
	if n := len(req.Password); n < MinPasswordLength || n > maxPasswordLength {
		return nil, domain.ErrWeakPassword
	}
	role, err := profiles.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost())
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.JWT.now().UTC()
	p := &profiles.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     optional(req.FullName),
		Role:         role,
		Organization: optional(req.Organization),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Profiles.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger().InfoContext(ctx, "profile registered", slog.String("user_id", p.ID), slog.String("role", string(role)))
	return s.issue(p)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	p, err := s.Profiles.GetByEmail(ctx, email)
	if errors.Is(err, profiles.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		s.logger().WarnContext(ctx, "sign-in with unknown email")
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		s.logger().WarnContext(ctx, "invalid password attempt", slog.String("user_id", p.ID))
		return nil, domain.ErrInvalidCredentials
	}
	return s.issue(p)
}

// SignOut revokes the token until it would have expired anyway.
func (s *Service) SignOut(_ context.Context, token string) error {
	claims, err := s.JWT.Validate(token)
	if err != nil {
		return domain.ErrUnauthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked == nil {
		s.revoked = make(map[string]time.Time)
	}
	now := s.JWT.now()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	return nil
}

// CurrentUser validates the session token. The profile must still exist.
func (s *Service) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	claims, err := s.JWT.Validate(token)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	if s.isRevoked(claims.ID) {
		return nil, domain.ErrUnauthenticated
	}
	p, err := s.Profiles.Get(ctx, claims.Subject)
	if errors.Is(err, profiles.ErrNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: p.ID, Email: p.Email, Role: p.Role}, nil
}

func (s *Service) issue(p *profiles.Profile) (*domain.Session, error) {
	token, exp, err := s.JWT.Generate(p.ID, p.Email, string(p.Role))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &domain.Session{
		Token:     token,
		TokenType: tokenType,
		ExpiresAt: exp.UTC(),
		User:      domain.User{ID: p.ID, Email: p.Email, Role: p.Role},
	}, nil
}

func (s *Service) isRevoked(jti string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[jti]
	return ok
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
