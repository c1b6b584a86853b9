package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/endoscan/internal/domain/profiles"
)

const profileColumns = `id, email, full_name, role, organization, password_hash, created_at, updated_at`

type ProfileRepository struct {
	db *sql.DB
	d  Dialect
}

func NewProfileRepository(db *sql.DB, d Dialect) *ProfileRepository {
	return &ProfileRepository{db: db, d: d}
}

func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	q := `INSERT INTO profiles (` + profileColumns + `) VALUES (` + Placeholders(8) + `)`
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		p.ID, domain.NormalizeEmail(p.Email), nullString(p.FullName), string(p.Role),
		nullString(p.Organization), p.PasswordHash, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if r.d.IsUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (*domain.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ?`
	return r.one(ctx, q, id)
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE email = ?`
	return r.one(ctx, q, domain.NormalizeEmail(email))
}

func (r *ProfileRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ProfileRepository) one(ctx context.Context, q string, arg any) (*domain.Profile, error) {
	var (
		p             domain.Profile
		role          string
		fullName, org sql.NullString
	)
	err := r.db.QueryRowContext(ctx, r.d.Rebind(q), arg).Scan(
		&p.ID, &p.Email, &fullName, &role, &org, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Role = domain.Role(role)
	p.FullName = stringPtr(fullName)
	p.Organization = stringPtr(org)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
