package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domain "github.com/bryanwahyu/endoscan/internal/domain/auth"
	"github.com/bryanwahyu/endoscan/internal/domain/profiles"
	"github.com/bryanwahyu/endoscan/internal/infra/db/memory"
)

func newService() *Service {
	return &Service{
		Profiles: memory.NewProfileRepository(),
		JWT:      NewJWTService("test-secret", time.Hour),
		Cost:     bcrypt.MinCost,
	}
}

func TestSignUpSignInCurrentUser(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	sess, err := svc.SignUp(ctx, domain.SignUpRequest{
		Email: " Doc@Clinic.org ", Password: "secret123", FullName: "Dr. Ana", Role: "doctor",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", sess.TokenType)
	assert.Equal(t, "doc@clinic.org", sess.User.Email)
	assert.Equal(t, profiles.RoleDoctor, sess.User.Role)
	assert.NotEmpty(t, sess.Token)

	u, err := svc.CurrentUser(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, u.ID)

	in, err := svc.SignIn(ctx, "DOC@clinic.org", "secret123")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, in.User.ID)

	_, err = svc.SignIn(ctx, "doc@clinic.org", "wrong-pass")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "nobody@clinic.org", "secret123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.SignUp(ctx, domain.SignUpRequest{Email: "doc@clinic.org", Password: "another1"})
	assert.ErrorIs(t, err, profiles.ErrEmailTaken)
}

func TestSignIn_UnknownEmailComparesDummyHash(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	assert.Nil(t, svc.dummyHash)

	_, err := svc.SignIn(ctx, "ghost@clinic.org", "secret123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	// the unknown-email path paid for a bcrypt comparison at the configured cost
	require.NotNil(t, svc.dummyHash)
	cost, err := bcrypt.Cost(svc.dummyHash)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
	assert.ErrorIs(t, bcrypt.CompareHashAndPassword(svc.dummyHash, []byte("secret123")), bcrypt.ErrMismatchedHashAndPassword)

	first := svc.dummyHash
	_, err = svc.SignIn(ctx, "other@clinic.org", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, first, svc.dummyHash)
}

func TestSignUp_Validation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, domain.SignUpRequest{Email: "a@b.c", Password: "123"})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	_, err = svc.SignUp(ctx, domain.SignUpRequest{Email: "nope", Password: "123456"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.SignUp(ctx, domain.SignUpRequest{Email: "a@b.c", Password: "123456", Role: "superuser"})
	assert.ErrorIs(t, err, profiles.ErrInvalidRole)
}

func TestSignOut_RevokesToken(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	sess, err := svc.SignUp(ctx, domain.SignUpRequest{Email: "a@b.c", Password: "123456"})
	require.NoError(t, err)

	other, err := svc.SignIn(ctx, "a@b.c", "123456")
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, sess.Token))
	_, err = svc.CurrentUser(ctx, sess.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	// other sessions of the same user stay valid
	_, err = svc.CurrentUser(ctx, other.Token)
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.SignOut(ctx, "garbage"), domain.ErrUnauthenticated)
}

func TestCurrentUser_RejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.CurrentUser(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	foreign := NewJWTService("other-secret", time.Hour)
	tok, _, err := foreign.Generate("u1", "a@b.c", "user")
	require.NoError(t, err)
	_, err = svc.CurrentUser(ctx, tok)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	// valid signature, unknown profile
	tok, _, err = svc.JWT.Generate("ghost", "g@b.c", "user")
	require.NoError(t, err)
	_, err = svc.CurrentUser(ctx, tok)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestJWT_Expiry(t *testing.T) {
	j := NewJWTService("k", time.Minute)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return start }
	tok, exp, err := j.Generate("u1", "a@b.c", "user")
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Minute), exp)

	c, err := j.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.Subject)
	assert.NotEmpty(t, c.ID)

	j.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = j.Validate(tok)
	assert.Error(t, err)
}
