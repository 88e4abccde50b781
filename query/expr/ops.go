package expr

// This file contains the constructors and the comparison, arithmetic,
// string-match, and function-call methods on column references.

// C references an entity member by its Go field name.
func C(member string) ColumnExpr {
	return ColumnExpr{Member: member}
}

// V creates a literal value expression. Most call sites never need V:
// plain Go values passed to operators are lifted automatically.
func V(value any) LiteralExpr {
	return LiteralExpr{Value: value}
}

// And combines expressions with AND.
// Returns nil if no expressions are provided.
// Returns the single expression if only one is provided.
func And(exprs ...Expr) Expr {
	if len(exprs) == 0 {
		return nil
	}
	if len(exprs) == 1 {
		return exprs[0]
	}
	result := exprs[0]
	for _, e := range exprs[1:] {
		result = BinaryExpr{Left: result, Op: OpAnd, Right: e}
	}
	return result
}

// Or combines expressions with OR.
// Returns nil if no expressions are provided.
// Returns the single expression if only one is provided.
func Or(exprs ...Expr) Expr {
	if len(exprs) == 0 {
		return nil
	}
	if len(exprs) == 1 {
		return exprs[0]
	}
	result := exprs[0]
	for _, e := range exprs[1:] {
		result = BinaryExpr{Left: result, Op: OpOr, Right: e}
	}
	return result
}

// Not negates an expression.
func Not(e Expr) Expr {
	return UnaryExpr{Op: OpNot, Expr: e}
}

// Neg is arithmetic negation.
func Neg(e any) Expr {
	return UnaryExpr{Op: OpNeg, Expr: toExpr(e)}
}

// BitNot is bitwise complement.
func BitNot(e any) Expr {
	return UnaryExpr{Op: OpBitNot, Expr: toExpr(e)}
}

// Eq compares two operands for equality. Comparing against nil compiles
// to IS NULL.
func Eq(left, right any) Expr { return binary(left, OpEq, right) }

// Ne compares two operands for inequality. Comparing against nil
// compiles to IS NOT NULL.
func Ne(left, right any) Expr { return binary(left, OpNe, right) }

func Lt(left, right any) Expr { return binary(left, OpLt, right) }
func Le(left, right any) Expr { return binary(left, OpLe, right) }
func Gt(left, right any) Expr { return binary(left, OpGt, right) }
func Ge(left, right any) Expr { return binary(left, OpGe, right) }

func Add(left, right any) Expr { return binary(left, OpAdd, right) }
func Sub(left, right any) Expr { return binary(left, OpSub, right) }
func Mul(left, right any) Expr { return binary(left, OpMul, right) }
func Div(left, right any) Expr { return binary(left, OpDiv, right) }
func Mod(left, right any) Expr { return binary(left, OpMod, right) }

func BitAnd(left, right any) Expr { return binary(left, OpBitAnd, right) }
func BitOr(left, right any) Expr  { return binary(left, OpBitOr, right) }
func Shl(left, right any) Expr    { return binary(left, OpShl, right) }
func Shr(left, right any) Expr    { return binary(left, OpShr, right) }

func binary(left any, op BinaryOp, right any) Expr {
	return BinaryExpr{Left: toExpr(left), Op: op, Right: toExpr(right)}
}

// --- ColumnExpr comparison operations ---

func (c ColumnExpr) Eq(other any) Expr {
	return BinaryExpr{Left: c, Op: OpEq, Right: toExpr(other)}
}

func (c ColumnExpr) Ne(other any) Expr {
	return BinaryExpr{Left: c, Op: OpNe, Right: toExpr(other)}
}

func (c ColumnExpr) Lt(other any) Expr {
	return BinaryExpr{Left: c, Op: OpLt, Right: toExpr(other)}
}

func (c ColumnExpr) Le(other any) Expr {
	return BinaryExpr{Left: c, Op: OpLe, Right: toExpr(other)}
}

func (c ColumnExpr) Gt(other any) Expr {
	return BinaryExpr{Left: c, Op: OpGt, Right: toExpr(other)}
}

func (c ColumnExpr) Ge(other any) Expr {
	return BinaryExpr{Left: c, Op: OpGe, Right: toExpr(other)}
}

func (c ColumnExpr) IsNull() Expr {
	return UnaryExpr{Op: OpIsNull, Expr: c}
}

func (c ColumnExpr) IsNotNull() Expr {
	return UnaryExpr{Op: OpNotNull, Expr: c}
}

// --- ColumnExpr arithmetic operations ---

func (c ColumnExpr) Add(other any) Expr {
	return BinaryExpr{Left: c, Op: OpAdd, Right: toExpr(other)}
}

func (c ColumnExpr) Sub(other any) Expr {
	return BinaryExpr{Left: c, Op: OpSub, Right: toExpr(other)}
}

func (c ColumnExpr) Mul(other any) Expr {
	return BinaryExpr{Left: c, Op: OpMul, Right: toExpr(other)}
}

func (c ColumnExpr) Div(other any) Expr {
	return BinaryExpr{Left: c, Op: OpDiv, Right: toExpr(other)}
}

func (c ColumnExpr) Mod(other any) Expr {
	return BinaryExpr{Left: c, Op: OpMod, Right: toExpr(other)}
}

// --- ColumnExpr string-match idioms ---

// Equals matches the exact string. Unlike Contains and friends this
// lowers to a plain `=`, so `%` and `_` in the value stay literal.
func (c ColumnExpr) Equals(pattern any) Expr {
	return MatchExpr{Method: MatchEquals, Target: c, Pattern: toExpr(pattern)}
}

// StartsWith matches values beginning with the pattern (LIKE "x%").
func (c ColumnExpr) StartsWith(pattern any) Expr {
	return MatchExpr{Method: MatchStartsWith, Target: c, Pattern: toExpr(pattern)}
}

// EndsWith matches values ending with the pattern (LIKE "%x").
func (c ColumnExpr) EndsWith(pattern any) Expr {
	return MatchExpr{Method: MatchEndsWith, Target: c, Pattern: toExpr(pattern)}
}

// Contains matches values containing the pattern (LIKE "%x%").
func (c ColumnExpr) Contains(pattern any) Expr {
	return MatchExpr{Method: MatchContains, Target: c, Pattern: toExpr(pattern)}
}

// --- ColumnExpr function calls ---

// Replace applies the SQL replace function to the member.
func (c ColumnExpr) Replace(old, new any) Expr {
	return FuncExpr{Name: "Replace", Args: []Expr{c, toExpr(old), toExpr(new)}}
}

// Lower applies the SQL lower function to the member.
func (c ColumnExpr) Lower() Expr {
	return FuncExpr{Name: "Lower", Args: []Expr{c}}
}

// Upper applies the SQL upper function to the member.
func (c ColumnExpr) Upper() Expr {
	return FuncExpr{Name: "Upper", Args: []Expr{c}}
}

// IndexOf finds the first occurrence of a substring (SQL instr, which
// is 1-based and returns 0 when absent).
func (c ColumnExpr) IndexOf(substr any) Expr {
	return FuncExpr{Name: "IndexOf", Args: []Expr{c, toExpr(substr)}}
}

// Substr extracts a substring (SQL substr, 1-based). The length
// argument is optional.
func (c ColumnExpr) Substr(start any, length ...any) Expr {
	args := []Expr{c, toExpr(start)}
	for _, l := range length {
		args = append(args, toExpr(l))
	}
	return FuncExpr{Name: "Substr", Args: args}
}

// toExpr converts any value to an Expr. Values that already are
// expressions pass through; everything else becomes a literal,
// including nil.
func toExpr(v any) Expr {
	switch val := v.(type) {
	case Expr:
		return val
	default:
		return LiteralExpr{Value: val}
	}
}
