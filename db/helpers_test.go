package db

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// item is the entity shared across the db tests.
type item struct {
	Id    int64   `db:"Id,pk,auto"`
	Name  *string `db:"Name"`
	Count int     `db:"Count"`
}

// newMock returns a DB wrapped around a sqlmock connection that
// matches SQL text exactly, plus the mock for expectations.
func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqdb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqdb.Close() })
	return OpenDB(sqdb), mock
}

// newMockRegexp matches SQL by regular expression, for statements that
// embed random savepoint names.
func newMockRegexp(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqdb.Close() })
	return OpenDB(sqdb), mock
}

func strptr(s string) *string { return &s }
