package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylite/querylite/query"
	"github.com/querylite/querylite/query/compile"
)

func TestExecReportsRowsAffected(t *testing.T) {
	d, mock := newMock(t)
	// Parameters reach the driver as named arguments carrying the
	// compiler's allocation names.
	mock.ExpectExec(`UPDATE "item" SET "Count" = @param1`).
		WithArgs(sql.Named("param1", 5)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := d.Exec(context.Background(), query.Command{
		Text:   `UPDATE "item" SET "Count" = @param1`,
		Params: []compile.Param{{Name: "param1", Value: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecZeroRowsAffected(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM "item" WHERE ("Count" < @param1)`).
		WithArgs(sql.Named("param1", 0)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := d.Exec(context.Background(), query.Command{
		Text:   `DELETE FROM "item" WHERE ("Count" < @param1)`,
		Params: []compile.Param{{Name: "param1", Value: 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecWrapsErrorWithVerb(t *testing.T) {
	d, mock := newMock(t)
	boom := errors.New("locked")
	mock.ExpectExec(`DELETE FROM "item" WHERE ("Id" = @param1)`).
		WithArgs(9).
		WillReturnError(boom)

	_, err := d.Exec(context.Background(), query.Command{
		Text:   `DELETE FROM "item" WHERE ("Id" = @param1)`,
		Params: []compile.Param{{Name: "param1", Value: 9}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "DELETE")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecEncodesParamsThroughCodecs(t *testing.T) {
	d, mock := newMock(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(`UPDATE "item" SET "Name" = @param1`).
		WithArgs("2026-01-02T03:04:05Z").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := d.Exec(context.Background(), query.Command{
		Text:   `UPDATE "item" SET "Name" = @param1`,
		Params: []compile.Param{{Name: "param1", Value: at}},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryReturnsRows(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery(`SELECT * FROM "item"`).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "Name", "Count"}).
			AddRow(1, "a", 10).
			AddRow(2, "b", 20))

	rows, err := d.Query(context.Background(), query.Command{Text: `SELECT * FROM "item"`})
	require.NoError(t, err)
	defer rows.Close()

	var count int
	for rows.Next() {
		count++
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScalarReturnsFirstColumn(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery(`SELECT count(*) FROM "item"`).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(int64(42)))

	v, err := d.Scalar(context.Background(), query.Command{Text: `SELECT count(*) FROM "item"`})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScalarNoRowsIsNotFound(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery(`SELECT "Id" FROM "item"`).
		WillReturnRows(sqlmock.NewRows([]string{"Id"}))

	_, err := d.Scalar(context.Background(), query.Command{Text: `SELECT "Id" FROM "item"`})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerb(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{`SELECT * FROM "Item"`, "SELECT"},
		{`INSERT INTO "Item" ("Name") VALUES (@param1)`, "INSERT"},
		{"COMMIT", "COMMIT"},
	}
	for _, tt := range tests {
		if got := verb(tt.text); got != tt.want {
			t.Errorf("verb(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDebugTracing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	sqdb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqdb.Close() })
	d := OpenDB(sqdb, WithLogger(logger))

	mock.ExpectExec(`DELETE FROM "item" WHERE ("Count" = @param1)`).
		WithArgs(0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = d.Exec(context.Background(), query.Command{
		Text:   `DELETE FROM "item" WHERE ("Count" = @param1)`,
		Params: []compile.Param{{Name: "param1", Value: 0}},
	})
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "exec", entry["msg"])
	assert.Equal(t, "DELETE", entry["verb"])
	assert.Equal(t, float64(1), entry["params"])
	assert.Contains(t, entry, "duration_ms")
}

func TestTracingOffByDefault(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))

	// The nop logger must not allocate attributes or panic.
	_, err := d.Exec(context.Background(), query.Command{Text: "COMMIT"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
