// Package schema maps Go struct types to SQLite tables.
//
// A Table is built once per entity type via Map (or MustMap), cached, and
// shared read-only by every query built against that type. Columns follow
// struct declaration order. The `db` struct tag controls the physical
// column name and flags:
//
//	type Item struct {
//	    Id    int64   `db:"Id,pk,auto"`
//	    Name  *string `db:"Name"`
//	    Count int     `db:"Count"`
//	}
//
// A field tagged `db:"-"` has no column; referencing it in a query fails
// with a LookupError.
package schema

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// SQLite column types. SQLite has no VARCHAR or DATETIME; strings and
// timestamps are stored as TEXT, booleans as INTEGER 0/1.
const (
	IntegerType = "INTEGER"
	TextType    = "TEXT"
	RealType    = "REAL"
	BlobType    = "BLOB"
	NumericType = "NUMERIC"
)

// Column describes the physical representation of one entity field.
// Columns are immutable after Map returns.
type Column struct {
	Name          string // physical column name
	Member        string // Go field name
	Type          string // SQLite column type (IntegerType, TextType, ...)
	PrimaryKey    bool
	AutoIncrement bool
	NotNull       bool
	Unique        bool
	Indexed       bool

	// FieldIndex is the reflect field index path used to read and write
	// the field, including steps through embedded structs.
	FieldIndex []int
	GoType     reflect.Type
}

// Index describes a secondary index derived from `unique` and `index`
// tag options.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table is the mapped shape of one entity type: the table name, the
// ordered column list (struct declaration order), and a lookup from Go
// member name to column. Tables are created once per type, cached, and
// never mutated afterwards.
type Table struct {
	Name    string
	Columns []*Column
	Indexes []Index
	GoType  reflect.Type

	byMember map[string]*Column
}

// TableNamer overrides the table name derived from the struct name.
type TableNamer interface {
	TableName() string
}

// ErrNoColumn is the sentinel for a member reference with no mapped
// column. Use errors.Is(err, ErrNoColumn) to detect lookup failures.
var ErrNoColumn = errors.New("schema: no mapped column")

// LookupError reports a member reference that has no mapped column: the
// member is misspelled, ignored via `db:"-"`, or not part of the entity
// type. This is a programmer error and surfaces immediately.
type LookupError struct {
	Table  string
	Member string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("schema: no column mapped for %s.%s", e.Table, e.Member)
}

// Is reports whether target is ErrNoColumn.
func (e *LookupError) Is(target error) bool { return target == ErrNoColumn }

// Column returns the column mapped for the given Go member name, or a
// LookupError if the member has no column.
func (t *Table) Column(member string) (*Column, error) {
	if c, ok := t.byMember[member]; ok {
		return c, nil
	}
	return nil, &LookupError{Table: t.Name, Member: member}
}

// PrimaryKey returns the primary-key column, or nil if the table has
// none.
func (t *Table) PrimaryKey() *Column {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c
		}
	}
	return nil
}

// ColumnNames returns the physical column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Option adjusts how Map derives names from an entity type.
type Option func(*config)

type config struct {
	snake bool
}

// WithSnakeCase derives physical column and table names by converting Go
// names to snake_case instead of using them verbatim.
func WithSnakeCase() Option {
	return func(c *config) { c.snake = true }
}

type cacheKey struct {
	goType reflect.Type
	snake  bool
}

// tables caches mapped tables per entity type and naming mode. A
// sync.Map keeps concurrent Map calls safe without a global lock.
var tables sync.Map

// Map resolves the table shape for an entity type. The argument may be a
// value, a pointer, or a reflect-able zero value of the entity struct.
// Results are cached per type: repeated calls return the same *Table.
func Map(entity any, opts ...Option) (*Table, error) {
	rt := reflect.TypeOf(entity)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: entity must be a struct type, got %v", reflect.TypeOf(entity))
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	key := cacheKey{goType: rt, snake: cfg.snake}
	if cached, ok := tables.Load(key); ok {
		return cached.(*Table), nil
	}

	t, err := mapType(rt, cfg)
	if err != nil {
		return nil, err
	}
	actual, _ := tables.LoadOrStore(key, t)
	return actual.(*Table), nil
}

// MustMap is like Map but panics on error. Intended for package-level
// table variables where a mapping failure is a programming bug.
func MustMap(entity any, opts ...Option) *Table {
	t, err := Map(entity, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func mapType(rt reflect.Type, cfg config) (*Table, error) {
	t := &Table{
		Name:     rt.Name(),
		GoType:   rt,
		byMember: make(map[string]*Column),
	}
	if namer, ok := reflect.New(rt).Interface().(TableNamer); ok {
		t.Name = namer.TableName()
	} else if cfg.snake {
		t.Name = ToSnakeCase(t.Name)
	}
	if t.Name == "" {
		return nil, fmt.Errorf("schema: anonymous struct types cannot be mapped")
	}

	if err := mapFields(t, rt, nil, cfg); err != nil {
		return nil, err
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("schema: %s has no mappable fields", t.Name)
	}
	for _, c := range t.Columns {
		if c.Unique || c.Indexed {
			t.Indexes = append(t.Indexes, Index{
				Name:    IndexName(t.Name, c.Name),
				Columns: []string{c.Name},
				Unique:  c.Unique,
			})
		}
	}
	return t, nil
}

func mapFields(t *Table, rt reflect.Type, path []int, cfg config) error {
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		idx := append(append([]int(nil), path...), i)

		// Embedded structs flatten even when the embedded type itself is
		// unexported; their exported fields promote normally.
		if f.Anonymous && f.Type.Kind() == reflect.Struct && !isLeafType(f.Type) {
			if err := mapFields(t, f.Type, idx, cfg); err != nil {
				return err
			}
			continue
		}
		if f.PkgPath != "" {
			continue // unexported
		}

		col, err := parseField(t.Name, f, cfg)
		if err != nil {
			return err
		}
		if col == nil {
			continue // db:"-"
		}
		col.FieldIndex = idx
		if _, dup := t.byMember[col.Member]; dup {
			return fmt.Errorf("schema: %s maps member %s twice", t.Name, col.Member)
		}
		for _, existing := range t.Columns {
			if strings.EqualFold(existing.Name, col.Name) {
				return fmt.Errorf("schema: %s maps column %q twice (members %s and %s)",
					t.Name, col.Name, existing.Member, col.Member)
			}
		}
		t.Columns = append(t.Columns, col)
		t.byMember[col.Member] = col
	}
	return nil
}

func parseField(table string, f reflect.StructField, cfg config) (*Column, error) {
	tag := f.Tag.Get("db")
	if tag == "-" {
		return nil, nil
	}

	col := &Column{
		Member: f.Name,
		GoType: f.Type,
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		col.Name = parts[0]
	} else if cfg.snake {
		col.Name = ToSnakeCase(f.Name)
	} else {
		col.Name = f.Name
	}

	col.Type, col.NotNull = sqliteTypeOf(f.Type)
	for _, opt := range parts[1:] {
		switch opt {
		case "pk":
			col.PrimaryKey = true
		case "auto":
			col.AutoIncrement = true
		case "notnull":
			col.NotNull = true
		case "null":
			col.NotNull = false
		case "unique":
			col.Unique = true
		case "index":
			col.Indexed = true
		case "":
		default:
			return nil, fmt.Errorf("schema: unknown db tag option %q on %s.%s", opt, table, f.Name)
		}
	}
	if col.AutoIncrement {
		if !col.PrimaryKey {
			return nil, fmt.Errorf("schema: %s.%s is auto-increment but not the primary key", table, f.Name)
		}
		// SQLite rowid aliasing requires exactly INTEGER.
		if col.Type != IntegerType {
			return nil, fmt.Errorf("schema: %s.%s is auto-increment but not an integer column", table, f.Name)
		}
	}
	return col, nil
}

var (
	timeType        = reflect.TypeOf(time.Time{})
	bytesType       = reflect.TypeOf([]byte(nil))
	nullStringType  = reflect.TypeOf(sql.NullString{})
	nullInt64Type   = reflect.TypeOf(sql.NullInt64{})
	nullInt32Type   = reflect.TypeOf(sql.NullInt32{})
	nullFloat64Type = reflect.TypeOf(sql.NullFloat64{})
	nullBoolType    = reflect.TypeOf(sql.NullBool{})
	nullTimeType    = reflect.TypeOf(sql.NullTime{})
)

// isLeafType reports whether an embedded struct should be treated as a
// single column value rather than flattened (time.Time, sql.Null*).
func isLeafType(rt reflect.Type) bool {
	switch rt {
	case timeType, nullStringType, nullInt64Type, nullInt32Type, nullFloat64Type, nullBoolType, nullTimeType:
		return true
	}
	return false
}

// sqliteTypeOf maps a Go field type to a SQLite column type and the
// default NOT NULL flag. Pointers, sql.Null wrappers, byte slices, and
// interface values are nullable; plain value types are NOT NULL unless a
// `null` tag option overrides.
func sqliteTypeOf(rt reflect.Type) (sqlType string, notNull bool) {
	if rt.Kind() == reflect.Pointer {
		sqlType, _ = sqliteTypeOf(rt.Elem())
		return sqlType, false
	}
	switch rt {
	case timeType:
		return TextType, true
	case nullStringType:
		return TextType, false
	case nullInt64Type, nullInt32Type, nullBoolType:
		return IntegerType, false
	case nullFloat64Type:
		return RealType, false
	case nullTimeType:
		return TextType, false
	case bytesType:
		return BlobType, false
	}
	switch rt.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return IntegerType, true
	case reflect.Float32, reflect.Float64:
		return RealType, true
	case reflect.String:
		return TextType, true
	case reflect.Interface:
		return BlobType, false
	default:
		// Structs, maps, and slices round-trip through the value codec
		// registry as blobs.
		return BlobType, true
	}
}
