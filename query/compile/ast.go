// Package compile lowers typed expressions to parameterized SQLite SQL.
//
// The pipeline has two passes. A Resolver walks an expr tree against a
// mapped table, folding constant subtrees and binding member references
// to physical columns; the result is a closed AST of six node kinds. An
// Emitter then walks the AST producing a SQL fragment, allocating named
// parameters (@param1, @param2, ...) into a State as a side channel.
// Both passes are pure computation: no I/O, no global state, and every
// unhandled shape fails with ErrUnsupportedExpression rather than
// emitting something silently wrong.
package compile

import (
	"github.com/querylite/querylite/query/expr"
)

// Node is the interface for resolved AST nodes.
type Node interface {
	astNode() // marker method to identify resolved node types
}

// Member references a physical column. The owning table is resolved
// exactly once, at construction. Emission is unqualified unless the
// State asks for qualified names (multi-table queries).
type Member struct {
	Table  string
	Column string
}

func (Member) astNode() {}

// Value holds a literal or pre-evaluated constant, including nil. The
// payload is opaque to the compiler except for null detection.
type Value struct {
	Val any
}

func (Value) astNode() {}

// Unary represents a single-operand operation.
type Unary struct {
	Op      expr.UnaryOp
	Operand Node
}

func (Unary) astNode() {}

// Binary represents a comparison, arithmetic, or boolean combination.
type Binary struct {
	Op    expr.BinaryOp
	Left  Node
	Right Node
}

func (Binary) astNode() {}

// Match is a string-match idiom against a member, lowered to `=` for
// MatchEquals and to LIKE with a bound wildcard pattern otherwise.
type Match struct {
	Method  expr.MatchMethod
	Member  Member
	Pattern string
}

func (Match) astNode() {}

// Func is a function application recognized by the emitter's registry.
// Args[0] is the receiver.
type Func struct {
	Name string
	Args []Node
}

func (Func) astNode() {}

// Compile-time verification that all node types implement Node.
var (
	_ Node = Member{}
	_ Node = Value{}
	_ Node = Unary{}
	_ Node = Binary{}
	_ Node = Match{}
	_ Node = Func{}
)
