package db

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/querylite/querylite/schema"
)

// fieldScanner routes one scanned cell through the codec registry into
// a struct field. database/sql calls Scan once per column.
type fieldScanner struct {
	dst    reflect.Value
	codecs *Registry
}

func (f *fieldScanner) Scan(src any) error {
	return f.codecs.Decode(src, f.dst)
}

// columnByName finds a mapped column by physical name. SQLite treats
// identifiers case-insensitively, so the match does too.
func columnByName(t *schema.Table, name string) *schema.Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// ScanStruct scans the current row of rows into dest, which must be a
// non-nil pointer to the mapped entity type. Result columns match
// mapped columns by physical name; result columns with no mapped
// counterpart are discarded.
func (s session) ScanStruct(rows *sql.Rows, t *schema.Table, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("db: scan destination must be a non-nil pointer, got %T", dest)
	}
	rv = rv.Elem()
	if rv.Type() != t.GoType {
		return fmt.Errorf("db: scan destination is %s, table %s maps %s", rv.Type(), t.Name, t.GoType)
	}

	names, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("db: columns: %w", err)
	}
	targets := make([]any, len(names))
	for i, name := range names {
		col := columnByName(t, name)
		if col == nil {
			targets[i] = new(any)
			continue
		}
		targets[i] = &fieldScanner{dst: rv.FieldByIndex(col.FieldIndex), codecs: s.codecs}
	}
	if err := rows.Scan(targets...); err != nil {
		return fmt.Errorf("db: scan %s: %w", t.Name, err)
	}
	return nil
}
