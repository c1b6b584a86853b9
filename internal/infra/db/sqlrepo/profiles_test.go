package sqlrepo

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/endoscan/internal/domain/profiles"
)

func TestProfileRepository_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db, questionDialect{})

	p := &domain.Profile{ID: "p1", Email: " Sari@RS.id ", Role: domain.RoleDoctor, PasswordHash: "h", CreatedAt: created, UpdatedAt: created}
	mock.ExpectExec(sqlText("INSERT INTO profiles")).
		WithArgs("p1", "sari@rs.id", nil, "doctor", nil, "h", created, created).
		WillReturnError(fmt.Errorf("exec: %w", errDuplicate))

	assert.ErrorIs(t, repo.Create(context.Background(), p), domain.ErrEmailTaken)
}

func TestProfileRepository_GetByEmailNormalizes(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db, questionDialect{})

	mock.ExpectQuery(sqlText("FROM profiles WHERE email = ?")).
		WithArgs("sari@rs.id").
		WillReturnRows(sqlmock.NewRows(columns(profileColumns)).AddRow(
			"p1", "sari@rs.id", "Dr. Sari", "doctor", nil, "h", created, created,
		))
	p, err := repo.GetByEmail(context.Background(), "SARI@rs.id")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDoctor, p.Role)
	assert.Equal(t, "Dr. Sari", *p.FullName)
	assert.Nil(t, p.Organization)

	mock.ExpectQuery(sqlText("FROM profiles WHERE email = ?")).
		WithArgs("ghost@rs.id").
		WillReturnRows(sqlmock.NewRows(columns(profileColumns)))
	_, err = repo.GetByEmail(context.Background(), "ghost@rs.id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
