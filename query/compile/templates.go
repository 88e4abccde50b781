package compile

import (
	"strconv"
	"strings"
)

// Statement templates shared by the clause builder and the typed table
// API. Callers pass pre-rendered fragments (projections, SET pairs,
// WHERE bodies); the templates own the statement skeletons so the two
// layers cannot drift apart.

// SelectSQL renders a statement head: SELECT [DISTINCT] cols FROM "table".
// An empty projection selects *.
func SelectSQL(d Dialect, distinct bool, projection, table string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if distinct {
		b.WriteString("DISTINCT ")
	}
	if projection == "" {
		b.WriteString("*")
	} else {
		b.WriteString(projection)
	}
	b.WriteString(" FROM ")
	b.WriteString(d.QuoteIdentifier(table))
	return b.String()
}

// LimitSQL renders the paging tail. pageSize < 0 means no limit was
// requested. The offset is pageSize*pageIndex: page two of a ten-row
// page size starts at row twenty.
func LimitSQL(pageSize, pageIndex int) string {
	if pageSize < 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("LIMIT ")
	b.WriteString(strconv.Itoa(pageSize))
	if pageIndex > 0 {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(pageSize * pageIndex))
	}
	return b.String()
}

// InsertSQL renders a multi-row INSERT, assigning one parameter per
// cell in row-major order. Every row must have one value per column.
// A non-empty returning list appends a RETURNING clause.
func InsertSQL(d Dialect, st *State, table string, columns []string, rows [][]any, returning []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.QuoteIdentifier(table))
	b.WriteString(" (")
	writeIdentList(&b, d, columns)
	b.WriteString(") VALUES ")
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, val := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(st.Next(val)))
		}
		b.WriteString(")")
	}
	if len(returning) > 0 && d.SupportsReturning() {
		b.WriteString(" RETURNING ")
		writeIdentList(&b, d, returning)
	}
	return b.String()
}

// InsertSelectSQL renders INSERT INTO "table" (cols) SELECT ..., where
// the SELECT text comes from an already-built query.
func InsertSelectSQL(d Dialect, table string, columns []string, selectText string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.QuoteIdentifier(table))
	b.WriteString(" (")
	writeIdentList(&b, d, columns)
	b.WriteString(") ")
	b.WriteString(selectText)
	return b.String()
}

// UpdateSQL renders UPDATE "table" SET pairs [WHERE body]. The SET
// pairs arrive pre-rendered so assignments may carry either parameter
// placeholders or computed expressions.
func UpdateSQL(d Dialect, table string, sets []string, where string) string {
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(d.QuoteIdentifier(table))
	b.WriteString(" SET ")
	b.WriteString(strings.Join(sets, ", "))
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	return b.String()
}

// DeleteSQL renders DELETE FROM "table" [WHERE body].
func DeleteSQL(d Dialect, table string, where string) string {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(d.QuoteIdentifier(table))
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	return b.String()
}

func writeIdentList(b *strings.Builder, d Dialect, names []string) {
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.QuoteIdentifier(name))
	}
}
