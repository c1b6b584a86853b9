package mysql

import (
	"errors"
	"strings"

	driver "github.com/go-sql-driver/mysql"
)

const errDupEntry = 1062

// Dialect is the MySQL flavour of sqlrepo.Dialect.
type Dialect struct{}

func (Dialect) Rebind(q string) string { return q }

func (Dialect) Upsert(_ string, cols []string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + "=VALUES(" + c + ")"
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

func (Dialect) IsUniqueViolation(err error) bool {
	var me *driver.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}
