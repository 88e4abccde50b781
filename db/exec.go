package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/querylite/querylite/query"
	"github.com/querylite/querylite/query/compile"
)

// bindArgs encodes command parameters and wraps them as named SQL
// arguments, preserving allocation order.
func (s session) bindArgs(params []compile.Param) ([]any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	args := make([]any, len(params))
	for i, p := range params {
		v, err := s.codecs.Encode(p.Value)
		if err != nil {
			return nil, fmt.Errorf("db: bind @%s: %w", p.Name, err)
		}
		args[i] = sql.Named(p.Name, v)
	}
	return args, nil
}

// verb reports the leading SQL keyword of a command, for error and log
// context.
func verb(text string) string {
	if i := strings.IndexByte(text, ' '); i > 0 {
		return text[:i]
	}
	return text
}

// Exec runs a command that returns no rows and reports how many rows
// it changed.
func (s session) Exec(ctx context.Context, cmd query.Command) (int64, error) {
	args, err := s.bindArgs(cmd.Params)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	res, err := s.q.ExecContext(ctx, cmd.Text, args...)
	s.trace(ctx, cmd, start, err)
	if err != nil {
		return 0, fmt.Errorf("db: %s: %w", verb(cmd.Text), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db: %s: rows affected: %w", verb(cmd.Text), err)
	}
	return n, nil
}

// Query runs a command and returns its rows. The caller owns the rows
// and must close them.
func (s session) Query(ctx context.Context, cmd query.Command) (*sql.Rows, error) {
	args, err := s.bindArgs(cmd.Params)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := s.q.QueryContext(ctx, cmd.Text, args...)
	s.trace(ctx, cmd, start, err)
	if err != nil {
		return nil, fmt.Errorf("db: %s: %w", verb(cmd.Text), err)
	}
	return rows, nil
}

// Scalar runs a command and returns the first column of its first row
// as the driver produced it (int64, float64, string, []byte, bool, or
// time.Time). No row means ErrNotFound.
func (s session) Scalar(ctx context.Context, cmd query.Command) (any, error) {
	args, err := s.bindArgs(cmd.Params)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	row := s.q.QueryRowContext(ctx, cmd.Text, args...)
	var v any
	err = row.Scan(&v)
	s.trace(ctx, cmd, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db: %s: %w", verb(cmd.Text), err)
	}
	return v, nil
}

func (s session) trace(ctx context.Context, cmd query.Command, start time.Time, err error) {
	if !s.log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	attrs := []any{
		"verb", verb(cmd.Text),
		"params", len(cmd.Params),
		"duration_ms", float64(time.Since(start).Nanoseconds()) / 1e6,
	}
	if err != nil {
		attrs = append(attrs, "err", err.Error())
	}
	s.log.Debug("exec", attrs...)
}
