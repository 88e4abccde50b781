package compile

import (
	"fmt"
	"regexp"
)

var identRx = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateIdentifier rejects table and column names that are not plain
// SQL identifiers. Quoting makes any name safe to embed, but a name
// with spaces or punctuation almost always means a mapping bug, so the
// builder refuses it up front.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("empty identifier")
	}
	if !identRx.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

// ValidateNode checks a resolved tree for structural completeness:
// every interior node has its children, members carry column names,
// match nodes use a known method. Resolve never produces an invalid
// tree; this guards hand-built nodes and is the workhorse of the
// property tests.
func ValidateNode(n Node) error {
	if n == nil {
		return unsupportedf("nil AST node")
	}
	var err error
	Walk(n, func(n Node) bool {
		switch v := n.(type) {
		case Member:
			if v.Column == "" {
				err = unsupportedf("member with empty column")
				return false
			}
		case Value:
			// Anything bindable is fine here; codecs reject at execution.
		case Unary:
			if v.Operand == nil {
				err = unsupportedf("unary %q with nil operand", v.Op)
				return false
			}
		case Binary:
			if v.Left == nil || v.Right == nil {
				err = unsupportedf("binary %q with nil operand", v.Op)
				return false
			}
			if _, ok := binaryToken[v.Op]; !ok {
				err = unsupportedf("binary operator %q", v.Op)
				return false
			}
		case Match:
			if v.Member.Column == "" {
				err = unsupportedf("match on empty member")
				return false
			}
		case Func:
			if v.Name == "" {
				err = unsupportedf("function call with empty name")
				return false
			}
			for _, a := range v.Args {
				if a == nil {
					err = unsupportedf("function %q with nil argument", v.Name)
					return false
				}
			}
		default:
			err = unsupportedf("AST node %T", n)
			return false
		}
		return true
	})
	return err
}
