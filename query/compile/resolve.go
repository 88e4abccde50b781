package compile

import (
	"strings"

	"github.com/querylite/querylite/query/expr"
	"github.com/querylite/querylite/schema"
)

// Resolver lowers typed expressions onto mapped tables. The first table
// is the query's primary table (the row parameter); joined tables
// follow. Member references resolve against the tables in order, or
// against a specific table with the qualified "Table.Member" form.
type Resolver struct {
	tables []*schema.Table
}

// NewResolver creates a resolver over the participating tables.
func NewResolver(tables ...*schema.Table) *Resolver {
	return &Resolver{tables: tables}
}

// Resolve walks a typed expression into the closed AST: literals fold
// to values, constant subtrees evaluate eagerly, member references bind
// to physical columns, match idioms become Match nodes. Any structure
// without a translation fails with ErrUnsupportedExpression; unknown
// members fail with a schema.LookupError.
func (r *Resolver) Resolve(e expr.Expr) (Node, error) {
	if e == nil {
		return nil, unsupportedf("nil expression")
	}
	switch v := e.(type) {
	case expr.LiteralExpr:
		return Value{Val: v.Value}, nil
	case expr.ColumnExpr:
		return r.resolveMember(v.Member)
	case expr.UnaryExpr:
		return r.resolveUnary(v)
	case expr.BinaryExpr:
		return r.resolveBinary(v)
	case expr.MatchExpr:
		return r.resolveMatch(v)
	case expr.FuncExpr:
		return r.resolveFunc(v)
	default:
		return nil, unsupportedf("expression node %T", e)
	}
}

func (r *Resolver) resolveMember(member string) (Node, error) {
	if len(r.tables) == 0 {
		return nil, unsupportedf("member %q resolved without a table", member)
	}
	if tableName, rest, ok := strings.Cut(member, "."); ok {
		for _, t := range r.tables {
			if t.Name == tableName {
				col, err := t.Column(rest)
				if err != nil {
					return nil, err
				}
				return Member{Table: t.Name, Column: col.Name}, nil
			}
		}
		return nil, &schema.LookupError{Table: tableName, Member: rest}
	}
	for _, t := range r.tables {
		if col, err := t.Column(member); err == nil {
			return Member{Table: t.Name, Column: col.Name}, nil
		}
	}
	return nil, &schema.LookupError{Table: r.tables[0].Name, Member: member}
}

func (r *Resolver) resolveUnary(v expr.UnaryExpr) (Node, error) {
	operand, err := r.Resolve(v.Expr)
	if err != nil {
		return nil, err
	}
	if val, ok := operand.(Value); ok {
		if folded, did := foldUnary(v.Op, val); did {
			return folded, nil
		}
	}
	switch v.Op {
	case expr.OpNot, expr.OpNeg, expr.OpBitNot, expr.OpIsNull, expr.OpNotNull:
		return Unary{Op: v.Op, Operand: operand}, nil
	default:
		return nil, unsupportedf("unary operator %q", v.Op)
	}
}

func (r *Resolver) resolveBinary(v expr.BinaryExpr) (Node, error) {
	left, err := r.Resolve(v.Left)
	if err != nil {
		return nil, err
	}
	right, err := r.Resolve(v.Right)
	if err != nil {
		return nil, err
	}
	if lv, lok := left.(Value); lok {
		if rv, rok := right.(Value); rok {
			if folded, did := foldBinary(v.Op, lv, rv); did {
				return folded, nil
			}
		}
	}
	if _, known := binaryToken[v.Op]; !known {
		return nil, unsupportedf("binary operator %q", v.Op)
	}
	return Binary{Op: v.Op, Left: left, Right: right}, nil
}

func (r *Resolver) resolveMatch(v expr.MatchExpr) (Node, error) {
	pattern, err := r.Resolve(v.Pattern)
	if err != nil {
		return nil, err
	}
	pv, ok := pattern.(Value)
	if !ok {
		return nil, unsupportedf("match pattern must be a literal string, got %s", nodeKind(pattern))
	}
	ps, ok := pv.Val.(string)
	if !ok {
		return nil, unsupportedf("match pattern must be a string, got %T", pv.Val)
	}

	target, err := r.Resolve(v.Target)
	if err != nil {
		return nil, err
	}
	switch tn := target.(type) {
	case Member:
		switch v.Method {
		case expr.MatchEquals, expr.MatchStartsWith, expr.MatchEndsWith, expr.MatchContains:
			return Match{Method: v.Method, Member: tn, Pattern: ps}, nil
		default:
			return nil, unsupportedf("match method %q", v.Method)
		}
	case Value:
		// Constant receiver: evaluate eagerly instead of emitting SQL.
		ts, ok := tn.Val.(string)
		if !ok {
			return nil, unsupportedf("match receiver must be a member or string, got %T", tn.Val)
		}
		switch v.Method {
		case expr.MatchEquals:
			return Value{Val: ts == ps}, nil
		case expr.MatchStartsWith:
			return Value{Val: strings.HasPrefix(ts, ps)}, nil
		case expr.MatchEndsWith:
			return Value{Val: strings.HasSuffix(ts, ps)}, nil
		case expr.MatchContains:
			return Value{Val: strings.Contains(ts, ps)}, nil
		default:
			return nil, unsupportedf("match method %q", v.Method)
		}
	default:
		return nil, unsupportedf("match receiver must be a member, got %s", nodeKind(target))
	}
}

func (r *Resolver) resolveFunc(v expr.FuncExpr) (Node, error) {
	if v.Name == "" {
		return nil, unsupportedf("function call with empty name")
	}
	args := make([]Node, len(v.Args))
	allConst := true
	for i, a := range v.Args {
		n, err := r.Resolve(a)
		if err != nil {
			return nil, err
		}
		args[i] = n
		if _, ok := n.(Value); !ok {
			allConst = false
		}
	}
	if allConst {
		if folded, did := foldFunc(v.Name, args); did {
			return folded, nil
		}
	}
	return Func{Name: v.Name, Args: args}, nil
}

// --- constant folding ---

func foldUnary(op expr.UnaryOp, v Value) (Node, bool) {
	switch op {
	case expr.OpIsNull:
		return Value{Val: v.Val == nil}, true
	case expr.OpNotNull:
		return Value{Val: v.Val != nil}, true
	case expr.OpNot:
		if b, ok := v.Val.(bool); ok {
			return Value{Val: !b}, true
		}
	case expr.OpNeg:
		if i, ok := asInt64(v.Val); ok {
			return Value{Val: -i}, true
		}
		if f, ok := asFloat64(v.Val); ok {
			return Value{Val: -f}, true
		}
	case expr.OpBitNot:
		if i, ok := asInt64(v.Val); ok {
			return Value{Val: ^i}, true
		}
	}
	return nil, false
}

func foldBinary(op expr.BinaryOp, l, r Value) (Node, bool) {
	lNil, rNil := l.Val == nil, r.Val == nil
	if lNil || rNil {
		switch op {
		case expr.OpEq:
			return Value{Val: lNil && rNil}, true
		case expr.OpNe:
			return Value{Val: lNil != rNil}, true
		case expr.OpLt, expr.OpLe, expr.OpGt, expr.OpGe:
			// Host-language semantics: ordering against null is false.
			return Value{Val: false}, true
		}
		return nil, false
	}

	if lb, ok := l.Val.(bool); ok {
		if rb, ok := r.Val.(bool); ok {
			switch op {
			case expr.OpAnd:
				return Value{Val: lb && rb}, true
			case expr.OpOr:
				return Value{Val: lb || rb}, true
			case expr.OpEq:
				return Value{Val: lb == rb}, true
			case expr.OpNe:
				return Value{Val: lb != rb}, true
			}
			return nil, false
		}
	}

	if ls, ok := l.Val.(string); ok {
		if rs, ok := r.Val.(string); ok {
			switch op {
			case expr.OpAdd:
				return Value{Val: ls + rs}, true
			case expr.OpEq:
				return Value{Val: ls == rs}, true
			case expr.OpNe:
				return Value{Val: ls != rs}, true
			case expr.OpLt:
				return Value{Val: ls < rs}, true
			case expr.OpLe:
				return Value{Val: ls <= rs}, true
			case expr.OpGt:
				return Value{Val: ls > rs}, true
			case expr.OpGe:
				return Value{Val: ls >= rs}, true
			}
			return nil, false
		}
	}

	if isFloatValue(l.Val) || isFloatValue(r.Val) {
		lf, lok := asFloat64(l.Val)
		rf, rok := asFloat64(r.Val)
		if !lok || !rok {
			return nil, false
		}
		switch op {
		case expr.OpAdd:
			return Value{Val: lf + rf}, true
		case expr.OpSub:
			return Value{Val: lf - rf}, true
		case expr.OpMul:
			return Value{Val: lf * rf}, true
		case expr.OpDiv:
			if rf == 0 {
				return nil, false // SQLite yields NULL; leave it to the engine
			}
			return Value{Val: lf / rf}, true
		case expr.OpEq:
			return Value{Val: lf == rf}, true
		case expr.OpNe:
			return Value{Val: lf != rf}, true
		case expr.OpLt:
			return Value{Val: lf < rf}, true
		case expr.OpLe:
			return Value{Val: lf <= rf}, true
		case expr.OpGt:
			return Value{Val: lf > rf}, true
		case expr.OpGe:
			return Value{Val: lf >= rf}, true
		}
		return nil, false
	}

	li, lok := asInt64(l.Val)
	ri, rok := asInt64(r.Val)
	if !lok || !rok {
		return nil, false
	}
	switch op {
	case expr.OpAdd:
		return Value{Val: li + ri}, true
	case expr.OpSub:
		return Value{Val: li - ri}, true
	case expr.OpMul:
		return Value{Val: li * ri}, true
	case expr.OpDiv:
		if ri == 0 {
			return nil, false
		}
		return Value{Val: li / ri}, true
	case expr.OpMod:
		if ri == 0 {
			return nil, false
		}
		return Value{Val: li % ri}, true
	case expr.OpBitAnd:
		return Value{Val: li & ri}, true
	case expr.OpBitOr:
		return Value{Val: li | ri}, true
	case expr.OpShl:
		if ri < 0 || ri > 63 {
			return nil, false
		}
		return Value{Val: li << uint(ri)}, true
	case expr.OpShr:
		if ri < 0 || ri > 63 {
			return nil, false
		}
		return Value{Val: li >> uint(ri)}, true
	case expr.OpEq:
		return Value{Val: li == ri}, true
	case expr.OpNe:
		return Value{Val: li != ri}, true
	case expr.OpLt:
		return Value{Val: li < ri}, true
	case expr.OpLe:
		return Value{Val: li <= ri}, true
	case expr.OpGt:
		return Value{Val: li > ri}, true
	case expr.OpGe:
		return Value{Val: li >= ri}, true
	}
	return nil, false
}

// foldFunc evaluates the default function idioms over constant string
// arguments, matching SQLite semantics (instr and substr are 1-based
// and count characters, not bytes).
func foldFunc(name string, args []Node) (Node, bool) {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a.(Value).Val
	}
	str := func(i int) (string, bool) {
		s, ok := vals[i].(string)
		return s, ok
	}
	switch name {
	case "Lower":
		if s, ok := str(0); ok && len(vals) == 1 {
			return Value{Val: strings.ToLower(s)}, true
		}
	case "Upper":
		if s, ok := str(0); ok && len(vals) == 1 {
			return Value{Val: strings.ToUpper(s)}, true
		}
	case "Replace":
		if len(vals) == 3 {
			s, ok1 := str(0)
			old, ok2 := str(1)
			new, ok3 := str(2)
			if ok1 && ok2 && ok3 && old != "" {
				return Value{Val: strings.ReplaceAll(s, old, new)}, true
			}
		}
	case "IndexOf":
		if len(vals) == 2 {
			s, ok1 := str(0)
			sub, ok2 := str(1)
			if ok1 && ok2 {
				idx := strings.Index(s, sub)
				if idx < 0 {
					return Value{Val: int64(0)}, true
				}
				return Value{Val: int64(len([]rune(s[:idx])) + 1)}, true
			}
		}
	case "Substr":
		if len(vals) == 2 || len(vals) == 3 {
			s, ok := str(0)
			start, sok := asInt64(vals[1])
			if !ok || !sok || start < 1 {
				return nil, false
			}
			runes := []rune(s)
			if start > int64(len(runes)) {
				return Value{Val: ""}, true
			}
			from := int(start) - 1
			if len(vals) == 2 {
				return Value{Val: string(runes[from:])}, true
			}
			length, lok := asInt64(vals[2])
			if !lok || length < 0 {
				return nil, false
			}
			end := from + int(length)
			if end > len(runes) {
				end = len(runes)
			}
			return Value{Val: string(runes[from:end])}, true
		}
	}
	return nil, false
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func isFloatValue(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

// nodeKind names a resolved node kind for error messages.
func nodeKind(n Node) string {
	switch n.(type) {
	case Member:
		return "member reference"
	case Value:
		return "literal value"
	case Unary:
		return "unary operation"
	case Binary:
		return "binary operation"
	case Match:
		return "match idiom"
	case Func:
		return "function call"
	default:
		return "unknown node"
	}
}
