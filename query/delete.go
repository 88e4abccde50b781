package query

import (
	"github.com/querylite/querylite/query/compile"
	"github.com/querylite/querylite/schema"
)

// DeleteFrom starts a DELETE against a mapped table. A predicate is
// required by the time Build is called: a delete with no WHERE never
// compiles here, so a dropped predicate cannot silently clear a table.
// Bulk clears go through db.Table's DeleteAll, a deliberate call.
func DeleteFrom(t *schema.Table, opts ...Option) *Builder {
	b := From(t, opts...)
	if b.err == nil {
		b.mode = modeDelete
	}
	return b
}

// Delete switches a query-mode builder to delete mode, keeping any
// accumulated predicate.
func (b *Builder) Delete() *Builder {
	if b.err != nil {
		return b
	}
	b.switchMode(modeDelete, "Delete")
	return b
}

func (b *Builder) buildDelete() (Command, error) {
	if len(b.wheres) == 0 {
		return Command{}, &InvalidOperationError{
			Mode: b.mode.String(), Call: "Build",
			Reason: "delete requires a predicate; use DeleteAll to clear a table",
		}
	}
	text := compile.DeleteSQL(b.dialect, b.tables[0].Name, joinAnd(b.wheres))
	return Command{Text: text, Params: b.paramsSnapshot()}, nil
}
