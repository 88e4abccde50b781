package query

import (
	"github.com/querylite/querylite/query/compile"
	"github.com/querylite/querylite/schema"
)

// InsertInto starts an INSERT against a mapped table with the given
// member column list.
func InsertInto(t *schema.Table, members ...string) *Builder {
	return From(t).Insert(members...)
}

// Insert switches the builder to insert mode with the given member
// column list. Each Values call then supplies one row. A member may
// appear more than once in the list; within a row the last value given
// for it wins.
func (b *Builder) Insert(members ...string) *Builder {
	if b.err != nil {
		return b
	}
	if !b.switchMode(modeInsert, "Insert") {
		return b
	}
	if len(b.insertCols) > 0 {
		return b.fail("Insert", "column list already set")
	}
	if len(members) == 0 {
		return b.fail("Insert", "no columns given")
	}
	for _, m := range members {
		if _, err := b.tables[0].Column(m); err != nil {
			return b.failErr(err)
		}
	}
	b.insertCols = append(b.insertCols, members...)
	return b
}

// Values appends one row. The number of values must match the insert
// column list.
func (b *Builder) Values(vals ...any) *Builder {
	if b.err != nil {
		return b
	}
	if b.mode != modeInsert {
		return b.fail("Values", "values apply to inserts only")
	}
	if len(vals) != len(b.insertCols) {
		return b.fail("Values", "value count does not match the column list")
	}
	row := make([]any, len(vals))
	copy(row, vals)
	b.insertRows = append(b.insertRows, row)
	return b
}

// Returning makes the insert return the given member's column, usually
// the auto-increment key.
func (b *Builder) Returning(member string) *Builder {
	if b.err != nil {
		return b
	}
	if b.mode != modeInsert {
		return b.fail("Returning", "RETURNING applies to inserts only")
	}
	col, err := b.tables[0].Column(member)
	if err != nil {
		return b.failErr(err)
	}
	b.returning = col.Name
	return b
}

// InsertSelect switches the builder to insert-from-select mode: the
// source query's rows populate the target members. The source must be
// a query-mode builder; its command is captured at this call, so later
// changes to src do not affect this builder.
func (b *Builder) InsertSelect(members []string, src *Builder) *Builder {
	if b.err != nil {
		return b
	}
	if !b.switchMode(modeInsertSelect, "InsertSelect") {
		return b
	}
	if len(members) == 0 {
		return b.fail("InsertSelect", "no columns given")
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if seen[m] {
			return b.fail("InsertSelect", "duplicate column "+m)
		}
		seen[m] = true
		if _, err := b.tables[0].Column(m); err != nil {
			return b.failErr(err)
		}
	}
	if src == nil {
		return b.fail("InsertSelect", "nil source query")
	}
	if src.mode != modeQuery {
		return b.fail("InsertSelect", "source must be a query")
	}
	cmd, err := src.Build()
	if err != nil {
		return b.failErr(err)
	}
	b.insertCols = append([]string(nil), members...)
	b.srcText = cmd.Text
	b.srcParams = cmd.Params
	return b
}

func (b *Builder) buildInsert() (Command, error) {
	if len(b.insertRows) == 0 {
		return Command{}, &InvalidOperationError{
			Mode: b.mode.String(), Call: "Build",
			Reason: "insert requires at least one row of values",
		}
	}
	// Collapse duplicated members: first occurrence fixes the column
	// position, the last value supplied for the member wins.
	cols := make([]string, 0, len(b.insertCols))
	pos := make(map[string]int, len(b.insertCols))
	for _, m := range b.insertCols {
		if _, ok := pos[m]; !ok {
			pos[m] = len(cols)
			cols = append(cols, m)
		}
	}
	physical := make([]string, len(cols))
	for i, m := range cols {
		col, err := b.tables[0].Column(m)
		if err != nil {
			return Command{}, err
		}
		physical[i] = col.Name
	}
	rows := make([][]any, len(b.insertRows))
	for ri, raw := range b.insertRows {
		vals := make([]any, len(cols))
		for i, m := range b.insertCols {
			vals[pos[m]] = raw[i]
		}
		rows[ri] = vals
	}
	var returning []string
	if b.returning != "" {
		returning = []string{b.returning}
	}
	st := b.state.Clone()
	text := compile.InsertSQL(b.dialect, st, b.tables[0].Name, physical, rows, returning)
	return Command{Text: text, Params: st.Params}, nil
}

func (b *Builder) buildInsertSelect() (Command, error) {
	if b.srcText == "" {
		return Command{}, &InvalidOperationError{
			Mode: b.mode.String(), Call: "Build",
			Reason: "insert-from-select requires a source query",
		}
	}
	physical := make([]string, len(b.insertCols))
	for i, m := range b.insertCols {
		col, err := b.tables[0].Column(m)
		if err != nil {
			return Command{}, err
		}
		physical[i] = col.Name
	}
	text := compile.InsertSelectSQL(b.dialect, b.tables[0].Name, physical, b.srcText)
	params := append([]compile.Param(nil), b.srcParams...)
	return Command{Text: text, Params: params}, nil
}
