package schema

import (
	"fmt"
	"strings"
)

// IndexName derives the conventional index name for a set of columns.
// Example: IndexName("Item", "Name") -> "idx_Item_Name".
func IndexName(tableName string, columns ...string) string {
	return "idx_" + tableName + "_" + strings.Join(columns, "_")
}

// CreateTableSQL generates the CREATE TABLE statement for a mapped
// table. The statement uses IF NOT EXISTS so table creation is
// idempotent; index creation is separate (see CreateIndexSQL).
func CreateTableSQL(t *Table) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(quoteIdent(t.Name))
	sb.WriteString(" (")
	for i, col := range t.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(columnDef(col))
	}
	sb.WriteString(")")
	return sb.String()
}

// CreateIndexSQL generates one CREATE INDEX statement per table index,
// in column declaration order.
func CreateIndexSQL(t *Table) []string {
	stmts := make([]string, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		var sb strings.Builder
		if idx.Unique {
			sb.WriteString("CREATE UNIQUE INDEX IF NOT EXISTS ")
		} else {
			sb.WriteString("CREATE INDEX IF NOT EXISTS ")
		}
		sb.WriteString(quoteIdent(idx.Name))
		sb.WriteString(" ON ")
		sb.WriteString(quoteIdent(t.Name))
		sb.WriteString(" (")
		for i, col := range idx.Columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteIdent(col))
		}
		sb.WriteString(")")
		stmts = append(stmts, sb.String())
	}
	return stmts
}

// AddColumnSQL generates the ALTER TABLE statement that adds one column.
// SQLite refuses to add a NOT NULL column without a default, so a zero
// default for the column's type is supplied; existing rows get it.
// SQLite cannot add an auto-increment primary key to an existing table;
// that requires a table rebuild, which additive migration never does.
func AddColumnSQL(t *Table, col *Column) string {
	def := columnDef(col)
	if col.NotNull && !col.PrimaryKey {
		def += " DEFAULT " + zeroLiteral(col.Type)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteIdent(t.Name), def)
}

// zeroLiteral returns the SQL literal for a type's zero value.
func zeroLiteral(sqlType string) string {
	switch sqlType {
	case TextType:
		return "''"
	case BlobType:
		return "x''"
	default:
		return "0"
	}
}

// MigrationSQL returns the ALTER TABLE ADD COLUMN statements for mapped
// columns missing from the existing physical column set. Migration is
// strictly additive: nothing is dropped or retyped. Existing names are
// compared case-insensitively, matching SQLite identifier semantics.
func MigrationSQL(t *Table, existing []string) []string {
	var stmts []string
	for _, col := range t.Columns {
		found := false
		for _, name := range existing {
			if strings.EqualFold(name, col.Name) {
				found = true
				break
			}
		}
		if !found {
			stmts = append(stmts, AddColumnSQL(t, col))
		}
	}
	return stmts
}

// columnDef generates one column definition for CREATE TABLE or ADD
// COLUMN. An auto-increment primary key must be spelled exactly
// "INTEGER PRIMARY KEY AUTOINCREMENT" for SQLite rowid aliasing; NOT
// NULL is implied by PRIMARY KEY and omitted there.
func columnDef(col *Column) string {
	var parts []string
	parts = append(parts, quoteIdent(col.Name), col.Type)
	if col.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
		if col.AutoIncrement {
			parts = append(parts, "AUTOINCREMENT")
		}
	} else if col.NotNull {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

// quoteIdent double-quotes an identifier, doubling any embedded quote.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
