// Package expr provides the typed expression tree queries are written
// in: column references by member name, literal values, unary and
// binary operators, string-match idioms, and function calls.
//
// Expressions reference entity members by their Go field name:
//
//	expr.C("Count").Eq(0)
//	expr.And(expr.C("Name").Contains("x"), expr.C("Count").Gt(10))
//
// Member names are resolved to physical columns when a query is
// compiled against a mapped table; a misspelled or ignored member fails
// there with a schema.LookupError.
package expr

// Expr is the interface for all expression nodes.
type Expr interface {
	exprNode() // marker method to identify expression types
}

// ColumnExpr references an entity member by its Go field name. The
// member is resolved to a table and physical column at compile time,
// never re-resolved afterwards.
type ColumnExpr struct {
	Member string
}

func (ColumnExpr) exprNode() {}

// LiteralExpr holds a literal value, including nil. The value is opaque
// to the compiler except for null detection.
type LiteralExpr struct {
	Value any
}

func (LiteralExpr) exprNode() {}

// BinaryExpr represents a binary operation (left op right).
type BinaryExpr struct {
	Left  Expr
	Op    BinaryOp
	Right Expr
}

func (BinaryExpr) exprNode() {}

// BinaryOp represents binary operators.
type BinaryOp string

const (
	OpEq     BinaryOp = "="
	OpNe     BinaryOp = "!="
	OpLt     BinaryOp = "<"
	OpLe     BinaryOp = "<="
	OpGt     BinaryOp = ">"
	OpGe     BinaryOp = ">="
	OpAnd    BinaryOp = "AND"
	OpOr     BinaryOp = "OR"
	OpAdd    BinaryOp = "+"
	OpSub    BinaryOp = "-"
	OpMul    BinaryOp = "*"
	OpDiv    BinaryOp = "/"
	OpMod    BinaryOp = "%"
	OpBitAnd BinaryOp = "&"
	OpBitOr  BinaryOp = "|"
	OpShl    BinaryOp = "<<"
	OpShr    BinaryOp = ">>"
)

// UnaryExpr represents a unary operation (op expr).
type UnaryExpr struct {
	Op   UnaryOp
	Expr Expr
}

func (UnaryExpr) exprNode() {}

// UnaryOp represents unary operators.
type UnaryOp string

const (
	OpNot     UnaryOp = "NOT"
	OpNeg     UnaryOp = "-"
	OpBitNot  UnaryOp = "~"
	OpIsNull  UnaryOp = "IS NULL"
	OpNotNull UnaryOp = "IS NOT NULL"
)

// MatchExpr represents a string-match idiom on a member: exact
// equality, prefix, suffix, or containment. Equality lowers to a plain
// `=` comparison; the others lower to LIKE with the pattern bound as a
// parameter.
type MatchExpr struct {
	Method  MatchMethod
	Target  Expr
	Pattern Expr
}

func (MatchExpr) exprNode() {}

// MatchMethod identifies a recognized string-match idiom.
type MatchMethod string

const (
	MatchEquals     MatchMethod = "Equals"
	MatchStartsWith MatchMethod = "StartsWith"
	MatchEndsWith   MatchMethod = "EndsWith"
	MatchContains   MatchMethod = "Contains"
)

// FuncExpr represents a function application. Name is the idiom name
// looked up in the compiler's function registry ("Replace", "Lower",
// "Upper", "IndexOf", "Substr" by default); Args[0] is the receiver.
type FuncExpr struct {
	Name string
	Args []Expr
}

func (FuncExpr) exprNode() {}

// Compile-time verification that all expression types implement Expr.
var (
	_ Expr = ColumnExpr{}
	_ Expr = LiteralExpr{}
	_ Expr = BinaryExpr{}
	_ Expr = UnaryExpr{}
	_ Expr = MatchExpr{}
	_ Expr = FuncExpr{}
)
