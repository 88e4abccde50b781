package compile

import (
	"strings"

	"github.com/querylite/querylite/query/expr"
)

// binaryToken maps a binary operator onto its SQL token. The map is
// also the closed set of operators the emitter accepts; the resolver
// rejects anything outside it.
var binaryToken = map[expr.BinaryOp]string{
	expr.OpEq:     "=",
	expr.OpNe:     "!=",
	expr.OpLt:     "<",
	expr.OpLe:     "<=",
	expr.OpGt:     ">",
	expr.OpGe:     ">=",
	expr.OpAnd:    "AND",
	expr.OpOr:     "OR",
	expr.OpAdd:    "+",
	expr.OpSub:    "-",
	expr.OpMul:    "*",
	expr.OpDiv:    "/",
	expr.OpMod:    "%",
	expr.OpBitAnd: "&",
	expr.OpBitOr:  "|",
	expr.OpShl:    "<<",
	expr.OpShr:    ">>",
}

// Emitter renders resolved AST nodes into SQL fragments, assigning
// parameter names in first-use order through the shared State.
type Emitter struct {
	dialect Dialect
	funcs   *FuncRegistry
}

// NewEmitter creates an emitter for the given dialect and function
// registry. Nil arguments fall back to SQLite and the default idioms.
func NewEmitter(d Dialect, funcs *FuncRegistry) *Emitter {
	if d == nil {
		d = SQLiteDialect{}
	}
	if funcs == nil {
		funcs = DefaultFuncs()
	}
	return &Emitter{dialect: d, funcs: funcs}
}

// Emit renders a node to a SQL fragment. Parameters referenced by the
// fragment are appended to st.Params in the order their placeholders
// appear in the text.
func (e *Emitter) Emit(n Node, st *State) (string, error) {
	if st == nil {
		st = &State{}
	}
	var b strings.Builder
	if err := e.emit(&b, n, st); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (e *Emitter) emit(b *strings.Builder, n Node, st *State) error {
	switch v := n.(type) {
	case Member:
		e.writeMember(b, v, st)
		return nil

	case Value:
		e.writeParam(b, v.Val, st)
		return nil

	case Unary:
		return e.emitUnary(b, v, st)

	case Binary:
		return e.emitBinary(b, v, st)

	case Match:
		return e.emitMatch(b, v, st)

	case Func:
		return e.emitFunc(b, v, st)

	default:
		return unsupportedf("AST node %T", n)
	}
}

func (e *Emitter) writeMember(b *strings.Builder, m Member, st *State) {
	if st.Qualify && m.Table != "" {
		b.WriteString(e.dialect.QuoteIdentifier(m.Table))
		b.WriteString(".")
	}
	b.WriteString(e.dialect.QuoteIdentifier(m.Column))
}

func (e *Emitter) writeParam(b *strings.Builder, val any, st *State) {
	b.WriteString(e.dialect.Placeholder(st.Next(val)))
}

func (e *Emitter) emitUnary(b *strings.Builder, v Unary, st *State) error {
	switch v.Op {
	case expr.OpNot:
		b.WriteString("NOT (")
		if err := e.emit(b, v.Operand, st); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	case expr.OpNeg:
		b.WriteString("-(")
		if err := e.emit(b, v.Operand, st); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	case expr.OpBitNot:
		b.WriteString("~(")
		if err := e.emit(b, v.Operand, st); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	case expr.OpIsNull, expr.OpNotNull:
		b.WriteString("(")
		if err := e.emit(b, v.Operand, st); err != nil {
			return err
		}
		b.WriteString(" ")
		b.WriteString(string(v.Op))
		b.WriteString(")")
		return nil
	default:
		return unsupportedf("unary operator %q", v.Op)
	}
}

func (e *Emitter) emitBinary(b *strings.Builder, v Binary, st *State) error {
	// Comparisons against the null literal become null tests; ordering
	// against null can never hold.
	if isNullValue(v.Right) {
		if rewritten, err := e.emitNullCompare(b, v.Op, v.Left, st); rewritten || err != nil {
			return err
		}
	} else if isNullValue(v.Left) {
		if rewritten, err := e.emitNullCompare(b, v.Op, v.Right, st); rewritten || err != nil {
			return err
		}
	}

	tok, ok := binaryToken[v.Op]
	if !ok {
		return unsupportedf("binary operator %q", v.Op)
	}
	b.WriteString("(")
	if err := e.emit(b, v.Left, st); err != nil {
		return err
	}
	b.WriteString(" ")
	b.WriteString(tok)
	b.WriteString(" ")
	if err := e.emit(b, v.Right, st); err != nil {
		return err
	}
	b.WriteString(")")
	return nil
}

// emitNullCompare writes the rewritten form of a comparison whose
// other operand is null. It reports false when the operator carries no
// rewrite and the caller should emit the plain binary form.
func (e *Emitter) emitNullCompare(b *strings.Builder, op expr.BinaryOp, operand Node, st *State) (bool, error) {
	switch op {
	case expr.OpEq:
		b.WriteString("(")
		if err := e.emit(b, operand, st); err != nil {
			return true, err
		}
		b.WriteString(" IS NULL)")
		return true, nil
	case expr.OpNe:
		b.WriteString("(")
		if err := e.emit(b, operand, st); err != nil {
			return true, err
		}
		b.WriteString(" IS NOT NULL)")
		return true, nil
	case expr.OpLt, expr.OpLe, expr.OpGt, expr.OpGe:
		b.WriteString("(1 = 0)")
		return true, nil
	default:
		return false, nil
	}
}

func (e *Emitter) emitMatch(b *strings.Builder, v Match, st *State) error {
	b.WriteString("(")
	e.writeMember(b, v.Member, st)
	switch v.Method {
	case expr.MatchEquals:
		b.WriteString(" = ")
		e.writeParam(b, v.Pattern, st)
	case expr.MatchStartsWith:
		b.WriteString(" LIKE ")
		e.writeParam(b, v.Pattern+"%", st)
	case expr.MatchEndsWith:
		b.WriteString(" LIKE ")
		e.writeParam(b, "%"+v.Pattern, st)
	case expr.MatchContains:
		b.WriteString(" LIKE ")
		e.writeParam(b, "%"+v.Pattern+"%", st)
	default:
		return unsupportedf("match method %q", v.Method)
	}
	b.WriteString(")")
	return nil
}

func (e *Emitter) emitFunc(b *strings.Builder, v Func, st *State) error {
	spec, ok := e.funcs.Lookup(v.Name)
	if !ok {
		return unsupportedf("function %q is not registered", v.Name)
	}
	if len(v.Args) < spec.MinArgs || len(v.Args) > spec.MaxArgs {
		return unsupportedf("function %q takes %d to %d arguments, got %d",
			v.Name, spec.MinArgs, spec.MaxArgs, len(v.Args))
	}
	b.WriteString(spec.SQLName)
	b.WriteString("(")
	for i, arg := range v.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := e.emit(b, arg, st); err != nil {
			return err
		}
	}
	b.WriteString(")")
	return nil
}

func isNullValue(n Node) bool {
	v, ok := n.(Value)
	return ok && v.Val == nil
}
