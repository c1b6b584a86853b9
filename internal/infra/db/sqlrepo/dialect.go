// Package sqlrepo implements the repository ports on database/sql. The SQL
// differences between MySQL and PostgreSQL sit behind Dialect.
package sqlrepo

import (
	"strconv"
	"strings"
)

// Dialect covers placeholder style, upserts and constraint errors.
type Dialect interface {
	Rebind(query string) string
	// Upsert returns the clause that turns an INSERT into an update of cols
	// when the unique key conflict already exists.
	Upsert(conflict string, cols []string) string
	IsUniqueViolation(err error) bool
}

// RebindDollar rewrites ? placeholders to $1, $2, ... Queries here never
// contain ? inside literals.
func RebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Placeholders returns "?,?,...,?" with n marks.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
