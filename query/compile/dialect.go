package compile

import "strings"

// Dialect abstracts the SQL spellings that vary per engine, keeping the
// emitter free of engine literals. Only SQLite is implemented; the seam
// exists so the emitter logic stays dialect-neutral and testable.
type Dialect interface {
	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string

	// Placeholder returns the SQL token for a named parameter.
	Placeholder(name string) string

	// SupportsReturning reports whether INSERT ... RETURNING works.
	SupportsReturning() bool
}

// SQLiteDialect implements Dialect for SQLite.
type SQLiteDialect struct{}

// QuoteIdentifier quotes an identifier with double quotes, doubling any
// embedded quote characters.
func (SQLiteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholder returns the @name form of a named parameter. SQLite also
// accepts :name and $name; @ matches the parameter list this compiler
// produces.
func (SQLiteDialect) Placeholder(name string) string {
	return "@" + name
}

// SupportsReturning reports RETURNING support (SQLite 3.35+).
func (SQLiteDialect) SupportsReturning() bool {
	return true
}

var _ Dialect = SQLiteDialect{}
