package compile

import (
	"github.com/querylite/querylite/query/expr"
)

// Walk traverses a resolved AST depth-first, calling visit for each
// node. If visit returns false, the node's children are skipped.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch v := n.(type) {
	case Unary:
		Walk(v.Operand, visit)
	case Binary:
		Walk(v.Left, visit)
		Walk(v.Right, visit)
	case Func:
		for _, arg := range v.Args {
			Walk(arg, visit)
		}
	case Match:
		Walk(v.Member, visit)
	}
}

// CollectMembers returns every member reference under n in occurrence
// order.
func CollectMembers(n Node) []Member {
	var members []Member
	Walk(n, func(node Node) bool {
		if m, ok := node.(Member); ok {
			members = append(members, m)
		}
		return true
	})
	return members
}

// WalkExpr traverses an input expression tree depth-first, calling
// visit for each node. If visit returns false, the node's children are
// skipped.
func WalkExpr(e expr.Expr, visit func(expr.Expr) bool) {
	if e == nil || !visit(e) {
		return
	}
	switch v := e.(type) {
	case expr.UnaryExpr:
		WalkExpr(v.Expr, visit)
	case expr.BinaryExpr:
		WalkExpr(v.Left, visit)
		WalkExpr(v.Right, visit)
	case expr.MatchExpr:
		WalkExpr(v.Target, visit)
		WalkExpr(v.Pattern, visit)
	case expr.FuncExpr:
		for _, arg := range v.Args {
			WalkExpr(arg, visit)
		}
	}
}

// ExprHasColumn reports whether any column reference appears under e.
// Subtrees without column references are constant and fold eagerly
// during resolution.
func ExprHasColumn(e expr.Expr) bool {
	found := false
	WalkExpr(e, func(node expr.Expr) bool {
		if _, ok := node.(expr.ColumnExpr); ok {
			found = true
			return false
		}
		return !found
	})
	return found
}
