package sqlrepo

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var errDuplicate = errors.New("duplicate key")

// questionDialect keeps ? placeholders so expectations read like the source queries.
type questionDialect struct{}

func (questionDialect) Rebind(q string) string { return q }

func (questionDialect) Upsert(conflict string, cols []string) string {
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = c + " = EXCLUDED." + c
	}
	return "ON CONFLICT (" + conflict + ") DO UPDATE SET " + strings.Join(set, ", ")
}

func (questionDialect) IsUniqueViolation(err error) bool { return errors.Is(err, errDuplicate) }

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

// columns splits a column list constant into names for sqlmock rows.
func columns(list string) []string {
	var out []string
	for _, c := range strings.Split(list, ",") {
		out = append(out, strings.TrimSpace(c))
	}
	return out
}

func sqlText(q string) string { return regexp.QuoteMeta(q) }
