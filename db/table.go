package db

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	"github.com/querylite/querylite/query"
	"github.com/querylite/querylite/query/compile"
	"github.com/querylite/querylite/query/expr"
	"github.com/querylite/querylite/schema"
)

// Table provides typed operations over one mapped entity type: DDL
// (Create, Migrate), row CRUD keyed by the primary key, and query
// execution with struct scanning. Build richer queries with Query and
// run them through One, All, or Count.
type Table[T any] struct {
	s    session
	meta *schema.Table
}

// NewTable maps T (via schema.Map) and binds it to a database handle.
func NewTable[T any](d *DB, opts ...schema.Option) (*Table[T], error) {
	var zero T
	meta, err := schema.Map(&zero, opts...)
	if err != nil {
		return nil, err
	}
	return &Table[T]{s: d.session, meta: meta}, nil
}

// MustTable is like NewTable but panics on error. Intended for
// package-level table variables.
func MustTable[T any](d *DB, opts ...schema.Option) *Table[T] {
	t, err := NewTable[T](d, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// WithTx returns a table running its operations inside the
// transaction. The original table is unchanged.
func (t *Table[T]) WithTx(tx *Tx) *Table[T] {
	c := *t
	c.s = tx.session
	return &c
}

// Meta returns the mapped table shape.
func (t *Table[T]) Meta() *schema.Table { return t.meta }

// Query starts a SELECT builder against this table.
func (t *Table[T]) Query() *query.Builder { return query.From(t.meta) }

// Create creates the table and its indexes if they do not exist.
func (t *Table[T]) Create(ctx context.Context) error {
	if _, err := t.s.Exec(ctx, query.Command{Text: schema.CreateTableSQL(t.meta)}); err != nil {
		return err
	}
	for _, stmt := range schema.CreateIndexSQL(t.meta) {
		if _, err := t.s.Exec(ctx, query.Command{Text: stmt}); err != nil {
			return err
		}
	}
	return nil
}

// Migrate brings the physical table up to the mapped shape. A missing
// table is created; an existing one gains ADD COLUMN statements for
// mapped columns it lacks. Migration never drops or retypes columns.
func (t *Table[T]) Migrate(ctx context.Context) error {
	existing, err := t.physicalColumns(ctx)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return t.Create(ctx)
	}
	for _, stmt := range schema.MigrationSQL(t.meta, existing) {
		if _, err := t.s.Exec(ctx, query.Command{Text: stmt}); err != nil {
			return err
		}
	}
	return nil
}

// physicalColumns reads the table's current column names from SQLite's
// schema introspection. A missing table yields an empty list.
func (t *Table[T]) physicalColumns(ctx context.Context) ([]string, error) {
	cmd := query.Command{
		Text:   `SELECT "name" FROM pragma_table_info(@param1)`,
		Params: []compile.Param{{Name: "param1", Value: t.meta.Name}},
	}
	rows, err := t.s.Query(ctx, cmd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("db: scan column name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Insert writes one row. When the primary key is auto-increment the
// generated key is written back into the row's key field.
func (t *Table[T]) Insert(ctx context.Context, row *T) error {
	pk := t.meta.PrimaryKey()
	rv := reflect.ValueOf(row).Elem()

	var members []string
	var vals []any
	for _, c := range t.meta.Columns {
		if c.AutoIncrement {
			continue
		}
		members = append(members, c.Member)
		vals = append(vals, rv.FieldByIndex(c.FieldIndex).Interface())
	}

	b := query.InsertInto(t.meta, members...).Values(vals...)
	if pk != nil && pk.AutoIncrement {
		b.Returning(pk.Member)
		cmd, err := b.Build()
		if err != nil {
			return err
		}
		v, err := t.s.Scalar(ctx, cmd)
		if err != nil {
			return err
		}
		id, ok := v.(int64)
		if !ok {
			return fmt.Errorf("db: %s returned key of type %T", t.meta.Name, v)
		}
		rv.FieldByIndex(pk.FieldIndex).SetInt(id)
		return nil
	}

	cmd, err := b.Build()
	if err != nil {
		return err
	}
	_, err = t.s.Exec(ctx, cmd)
	return err
}

// Get fetches the row with the given primary key, or ErrNotFound.
func (t *Table[T]) Get(ctx context.Context, id any) (*T, error) {
	pk := t.meta.PrimaryKey()
	if pk == nil {
		return nil, fmt.Errorf("db: %s has no primary key", t.meta.Name)
	}
	return t.One(ctx, t.Query().Where(expr.C(pk.Member).Eq(id)).Take(1))
}

// One runs a query and returns its first row, or ErrNotFound. A nil
// builder selects from the whole table.
func (t *Table[T]) One(ctx context.Context, q *query.Builder) (*T, error) {
	rows, err := t.queryRows(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("db: rows: %w", err)
		}
		return nil, ErrNotFound
	}
	var row T
	if err := t.s.ScanStruct(rows, t.meta, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// All runs a query and returns every row. A nil builder selects from
// the whole table.
func (t *Table[T]) All(ctx context.Context, q *query.Builder) ([]T, error) {
	rows, err := t.queryRows(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		var row T
		if err := t.s.ScanStruct(rows, t.meta, &row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: rows: %w", err)
	}
	return out, nil
}

// Count reports how many rows the query matches. A nil builder counts
// the whole table.
func (t *Table[T]) Count(ctx context.Context, q *query.Builder) (int64, error) {
	var cmd query.Command
	if q == nil {
		cmd.Text = compile.SelectSQL(compile.SQLiteDialect{}, false, "count(*)", t.meta.Name)
	} else {
		sub, err := t.buildSelect(q)
		if err != nil {
			return 0, err
		}
		cmd = query.Command{
			Text:   "SELECT count(*) FROM (" + sub.Text + ")",
			Params: sub.Params,
		}
	}
	v, err := t.s.Scalar(ctx, cmd)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("db: count returned %T", v)
	}
	return n, nil
}

// Update rewrites every non-key column of the row identified by its
// primary key. A row that no longer exists reports ErrNotFound.
func (t *Table[T]) Update(ctx context.Context, row *T) error {
	pk := t.meta.PrimaryKey()
	if pk == nil {
		return fmt.Errorf("db: %s has no primary key", t.meta.Name)
	}
	rv := reflect.ValueOf(row).Elem()

	b := query.UpdateTable(t.meta)
	for _, c := range t.meta.Columns {
		if c.PrimaryKey {
			continue
		}
		b.Set(c.Member, rv.FieldByIndex(c.FieldIndex).Interface())
	}
	b.Where(expr.C(pk.Member).Eq(rv.FieldByIndex(pk.FieldIndex).Interface()))

	cmd, err := b.Build()
	if err != nil {
		return err
	}
	n, err := t.s.Exec(ctx, cmd)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Save inserts the row when its primary key field is zero and updates
// it otherwise.
func (t *Table[T]) Save(ctx context.Context, row *T) error {
	pk := t.meta.PrimaryKey()
	if pk == nil {
		return fmt.Errorf("db: %s has no primary key", t.meta.Name)
	}
	rv := reflect.ValueOf(row).Elem()
	if rv.FieldByIndex(pk.FieldIndex).IsZero() {
		return t.Insert(ctx, row)
	}
	return t.Update(ctx, row)
}

// Delete removes the row with the given primary key, or reports
// ErrNotFound.
func (t *Table[T]) Delete(ctx context.Context, id any) error {
	pk := t.meta.PrimaryKey()
	if pk == nil {
		return fmt.Errorf("db: %s has no primary key", t.meta.Name)
	}
	cmd, err := query.DeleteFrom(t.meta).Where(expr.C(pk.Member).Eq(id)).Build()
	if err != nil {
		return err
	}
	n, err := t.s.Exec(ctx, cmd)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll clears the table and reports how many rows it removed.
// This is the deliberate bulk path; the query builder refuses a DELETE
// without a predicate.
func (t *Table[T]) DeleteAll(ctx context.Context) (int64, error) {
	text := compile.DeleteSQL(compile.SQLiteDialect{}, t.meta.Name, "")
	return t.s.Exec(ctx, query.Command{Text: text})
}

func (t *Table[T]) queryRows(ctx context.Context, q *query.Builder) (*sql.Rows, error) {
	cmd, err := t.buildSelect(q)
	if err != nil {
		return nil, err
	}
	return t.s.Query(ctx, cmd)
}

// buildSelect builds q (or the whole-table query when q is nil) and
// insists on a SELECT so a mutating builder cannot slip through a read
// path.
func (t *Table[T]) buildSelect(q *query.Builder) (query.Command, error) {
	if q == nil {
		q = t.Query()
	}
	cmd, err := q.Build()
	if err != nil {
		return query.Command{}, err
	}
	if verb(cmd.Text) != "SELECT" {
		return query.Command{}, fmt.Errorf("db: expected a query, got %s", verb(cmd.Text))
	}
	return cmd, nil
}
