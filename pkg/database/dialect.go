package database

import (
	"strconv"
	"strings"
)

// Dialect names the SQL flavour behind a connection. Values double as database/sql driver names.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "pgx"
)

// IsValid returns true for a supported dialect
func (d Dialect) IsValid() bool {
	return d == DialectSQLite || d == DialectPostgres
}

// String returns the driver name
func (d Dialect) String() string {
	return string(d)
}

// Rebind rewrites ? placeholders into the dialect's bind syntax.
// Queries are written with ? and must not contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

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

// ForUpdate returns the row-lock suffix for a SELECT.
// SQLite has no row locks; writers are serialized by BEGIN IMMEDIATE (see _txlock in the DSN).
func (d Dialect) ForUpdate() string {
	if d == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func (d Dialect) migrationsDir() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}
