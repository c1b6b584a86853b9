package postgres

import (
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/bryanwahyu/endoscan/internal/infra/db/sqlrepo"
)

const uniqueViolation = pq.ErrorCode("23505")

// Dialect is the PostgreSQL flavour of sqlrepo.Dialect.
type Dialect struct{}

func (Dialect) Rebind(q string) string { return sqlrepo.RebindDollar(q) }

func (Dialect) Upsert(conflict string, cols []string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = EXCLUDED." + c
	}
	return "ON CONFLICT (" + conflict + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

func (Dialect) IsUniqueViolation(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == uniqueViolation
}
