package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
)

// Tx is a transaction. The root Tx wraps a database/sql transaction;
// nested transactions started with Begin on a Tx are backed by SQLite
// savepoints, so an inner Rollback undoes only the inner work.
//
// Tx exposes the same execution surface as DB (Exec, Query, Scalar,
// ScanStruct) against the transaction's connection.
type Tx struct {
	session
	tx   *sql.Tx
	save string // savepoint name; empty for the root transaction
	done bool
}

// savepointName returns a unique name for a nested transaction. Hex
// keeps it a valid bare SQL identifier; 8 random bytes make collisions
// within one connection's lifetime implausible.
func savepointName() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("db: failed to generate random bytes: " + err.Error())
	}
	return "sp_" + hex.EncodeToString(b[:])
}

// Begin starts a transaction.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db: begin: %w", err)
	}
	return &Tx{
		session: session{q: tx, log: d.log, codecs: d.codecs},
		tx:      tx,
	}, nil
}

// Begin starts a nested transaction backed by a savepoint.
func (t *Tx) Begin(ctx context.Context) (*Tx, error) {
	if t.done {
		return nil, sql.ErrTxDone
	}
	name := savepointName()
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, fmt.Errorf("db: savepoint: %w", err)
	}
	return &Tx{
		session: t.session,
		tx:      t.tx,
		save:    name,
	}, nil
}

// Commit makes the transaction's writes permanent. Committing a nested
// transaction releases its savepoint; the writes still ride on the
// outermost Commit.
func (t *Tx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	if t.save != "" {
		if _, err := t.tx.Exec("RELEASE SAVEPOINT " + t.save); err != nil {
			return fmt.Errorf("db: release savepoint: %w", err)
		}
		return nil
	}
	return t.tx.Commit()
}

// Rollback discards the transaction's writes. Rolling back a nested
// transaction undoes only the work since its Begin.
func (t *Tx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	if t.save != "" {
		if _, err := t.tx.Exec("ROLLBACK TO SAVEPOINT " + t.save); err != nil {
			return fmt.Errorf("db: rollback savepoint: %w", err)
		}
		if _, err := t.tx.Exec("RELEASE SAVEPOINT " + t.save); err != nil {
			return fmt.Errorf("db: release savepoint: %w", err)
		}
		return nil
	}
	return t.tx.Rollback()
}

// InTx runs fn inside a transaction, committing when fn returns nil
// and rolling back when it returns an error or panics.
func (d *DB) InTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := d.Begin(ctx)
	if err != nil {
		return err
	}
	return runInTx(tx, fn)
}

// InTx runs fn inside a nested transaction with the same contract as
// DB.InTx.
func (t *Tx) InTx(ctx context.Context, fn func(*Tx) error) error {
	inner, err := t.Begin(ctx)
	if err != nil {
		return err
	}
	return runInTx(inner, fn)
}

func runInTx(tx *Tx, fn func(*Tx) error) error {
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
