package query

import (
	"github.com/querylite/querylite/query/compile"
	"github.com/querylite/querylite/query/expr"
	"github.com/querylite/querylite/schema"
)

// UpdateTable starts an UPDATE against a mapped table.
func UpdateTable(t *schema.Table, opts ...Option) *Builder {
	b := From(t, opts...)
	if b.err == nil {
		b.mode = modeUpdate
	}
	return b
}

// Set adds a literal assignment: member = value. The value binds as a
// parameter. The first Set on a query-mode builder switches it to
// update mode.
func (b *Builder) Set(member string, value any) *Builder {
	if b.err != nil {
		return b
	}
	if !b.switchMode(modeUpdate, "Set") {
		return b
	}
	m, err := b.member(member)
	if err != nil {
		return b.failErr(err)
	}
	frag, err := b.render(expr.V(value))
	if err != nil {
		return b.failErr(err)
	}
	b.sets = append(b.sets, b.columnSQL(m)+" = "+frag)
	return b
}

// SetCol adds a column-copy assignment: member = member2.
func (b *Builder) SetCol(member, member2 string) *Builder {
	if b.err != nil {
		return b
	}
	if !b.switchMode(modeUpdate, "SetCol") {
		return b
	}
	m, err := b.member(member)
	if err != nil {
		return b.failErr(err)
	}
	m2, err := b.member(member2)
	if err != nil {
		return b.failErr(err)
	}
	b.sets = append(b.sets, b.columnSQL(m)+" = "+b.columnSQL(m2))
	return b
}

// SetExpr adds a computed assignment: member = expression. Only simple
// shapes are allowed: a literal, a column, or column-operator-literal
// (for counters and the like: Set "Count" to Count+1). Anything deeper
// fails with ErrUnsupportedExpression.
func (b *Builder) SetExpr(member string, e expr.Expr) *Builder {
	if b.err != nil {
		return b
	}
	if !b.switchMode(modeUpdate, "SetExpr") {
		return b
	}
	if e == nil {
		return b.fail("SetExpr", "nil expression")
	}
	m, err := b.member(member)
	if err != nil {
		return b.failErr(err)
	}
	n, err := b.resolver.Resolve(e)
	if err != nil {
		return b.failErr(err)
	}
	if err := checkAssignShape(n); err != nil {
		return b.failErr(err)
	}
	st := b.state.Clone()
	frag, err := b.emitter.Emit(n, st)
	if err != nil {
		return b.failErr(err)
	}
	b.state = st
	b.sets = append(b.sets, b.columnSQL(m)+" = "+frag)
	return b
}

// checkAssignShape restricts update right-hand sides to literal,
// column, or column-operator-literal trees.
func checkAssignShape(n compile.Node) error {
	switch v := n.(type) {
	case compile.Value, compile.Member:
		return nil
	case compile.Binary:
		if isSimpleOperand(v.Left) && isSimpleOperand(v.Right) {
			return nil
		}
	}
	return &compile.UnsupportedError{Shape: "assignment must be a literal, a column, or column-operator-literal"}
}

func isSimpleOperand(n compile.Node) bool {
	switch n.(type) {
	case compile.Value, compile.Member:
		return true
	}
	return false
}

func (b *Builder) buildUpdate() (Command, error) {
	if len(b.sets) == 0 {
		return Command{}, &InvalidOperationError{
			Mode: b.mode.String(), Call: "Build",
			Reason: "update requires at least one assignment",
		}
	}
	where := ""
	if len(b.wheres) > 0 {
		where = joinAnd(b.wheres)
	}
	text := compile.UpdateSQL(b.dialect, b.tables[0].Name, b.sets, where)
	return Command{Text: text, Params: b.paramsSnapshot()}, nil
}
