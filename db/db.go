// Package db executes compiled commands against SQLite. It binds
// query.Command parameters as named arguments, scans rows back into
// mapped struct types, and wraps transactions (nested ones included)
// over database/sql. The driver is modernc.org/sqlite, a pure Go
// build of SQLite with no cgo.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/querylite/querylite/logging"
	_ "modernc.org/sqlite"
)

// driverName is the name modernc.org/sqlite registers with database/sql.
const driverName = "sqlite"

// ErrNotFound reports a lookup that matched no row. Get, One, and
// Scalar return it instead of exposing sql.ErrNoRows.
var ErrNotFound = errors.New("db: not found")

// Querier is the interface for executing queries.
// Both *sql.DB and *sql.Tx implement this interface.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Compile-time checks that *sql.DB and *sql.Tx implement Querier
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// DB is a handle on one SQLite database. It owns the connection pool,
// the value codec registry, and the logger used for command tracing.
// A DB is safe for concurrent use.
type DB struct {
	session
	sql *sql.DB
}

// session holds what command execution needs; DB and Tx both embed it,
// differing only in the Querier underneath.
type session struct {
	q      Querier
	log    *slog.Logger
	codecs *Registry
}

type options struct {
	logger  *slog.Logger
	codecs  *Registry
	pragmas []Pragma
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger commands are traced to at Debug level.
// The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCodecs substitutes the value codec registry.
func WithCodecs(r *Registry) Option {
	return func(o *options) { o.codecs = r }
}

// WithPragma adds one connection pragma on top of DefaultPragmas.
func WithPragma(name, value string) Option {
	return func(o *options) { o.pragmas = append(o.pragmas, Pragma{Name: name, Value: value}) }
}

func buildOptions(opts []Option) options {
	o := options{
		logger:  logging.Nop(),
		codecs:  NewRegistry(),
		pragmas: DefaultPragmas(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open opens the database at the given location, which may be a file
// path or a sqlite:/file: URL. The connection is pinged before Open
// returns, so a bad location fails here rather than on first use.
func Open(location string, opts ...Option) (*DB, error) {
	o := buildOptions(opts)
	path, err := ParsePath(location)
	if err != nil {
		return nil, err
	}
	sqdb, err := sql.Open(driverName, DSN(path, o.pragmas))
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", path, err)
	}
	if path == MemoryPath {
		// Each pool connection would otherwise get its own private
		// in-memory database.
		sqdb.SetMaxOpenConns(1)
	}
	if err := sqdb.Ping(); err != nil {
		sqdb.Close()
		return nil, fmt.Errorf("db: ping %s: %w", path, err)
	}
	return wrap(sqdb, o), nil
}

// OpenMemory opens a private in-memory database, handy for tests and
// scratch work. The pool is capped at one connection so every query
// sees the same database.
func OpenMemory(opts ...Option) (*DB, error) {
	return Open(MemoryPath, opts...)
}

// OpenDB wraps an existing database/sql handle. The caller keeps
// ownership of pool settings; Close still closes the handle.
func OpenDB(sqdb *sql.DB, opts ...Option) *DB {
	return wrap(sqdb, buildOptions(opts))
}

func wrap(sqdb *sql.DB, o options) *DB {
	return &DB{
		session: session{q: sqdb, log: o.logger, codecs: o.codecs},
		sql:     sqdb,
	}
}

// Close closes the connection pool.
func (d *DB) Close() error { return d.sql.Close() }

// DB returns the underlying database/sql handle.
func (d *DB) DB() *sql.DB { return d.sql }

// Codecs returns the value codec registry, for registering custom
// codecs after Open.
func (d *DB) Codecs() *Registry { return d.codecs }
