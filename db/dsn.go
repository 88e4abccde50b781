package db

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// MemoryPath is the location of a private in-memory database.
const MemoryPath = ":memory:"

// ErrNotSQLite reports a database location with a non-SQLite scheme.
var ErrNotSQLite = errors.New("db: not a sqlite location")

// Pragma is one SQLite PRAGMA applied to every new connection.
type Pragma struct {
	Name  string
	Value string
}

// DefaultPragmas returns the pragmas every connection starts with:
// a busy timeout so concurrent writers queue instead of failing,
// WAL journaling, and foreign key enforcement (off by default in
// SQLite for historical reasons).
func DefaultPragmas() []Pragma {
	return []Pragma{
		{Name: "busy_timeout", Value: "5000"},
		{Name: "journal_mode", Value: "WAL"},
		{Name: "foreign_keys", Value: "ON"},
	}
}

// DSN builds the driver DSN for a database file path. The modernc
// driver executes each _pragma query parameter on every new pool
// connection, so pragmas hold across the whole pool.
func DSN(path string, pragmas []Pragma) string {
	if len(pragmas) == 0 {
		return "file:" + path
	}
	q := make(url.Values, 1)
	for _, p := range pragmas {
		q.Add("_pragma", p.Name+"("+p.Value+")")
	}
	return "file:" + path + "?" + q.Encode()
}

// ParsePath extracts the database file path from a raw location. The
// location may be a bare filesystem path, a sqlite: or sqlite3: URL,
// or a file: URL; any other scheme is an error.
//
//	items.db             -> items.db
//	sqlite:items.db      -> items.db
//	sqlite:///var/app.db -> /var/app.db
//	file::memory:        -> :memory:
func ParsePath(raw string) (string, error) {
	loc := raw
	switch {
	case strings.HasPrefix(loc, "sqlite3:"):
		loc = strings.TrimPrefix(loc, "sqlite3:")
	case strings.HasPrefix(loc, "sqlite:"):
		loc = strings.TrimPrefix(loc, "sqlite:")
	case strings.HasPrefix(loc, "file:"):
		loc = strings.TrimPrefix(loc, "file:")
	default:
		if i := strings.Index(loc, "://"); i >= 0 {
			return "", fmt.Errorf("%w: scheme %q", ErrNotSQLite, loc[:i])
		}
		if loc == "" {
			return "", fmt.Errorf("%w: empty location", ErrNotSQLite)
		}
		return loc, nil
	}
	loc = strings.TrimPrefix(loc, "//")
	if i := strings.IndexByte(loc, '?'); i >= 0 {
		loc = loc[:i]
	}
	if loc == "" {
		return "", fmt.Errorf("%w: empty path in %q", ErrNotSQLite, raw)
	}
	return loc, nil
}
