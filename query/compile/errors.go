package compile

import (
	"errors"
	"fmt"
)

// ErrUnsupportedExpression is the sentinel for expression shapes with no
// SQL translation. Use errors.Is(err, ErrUnsupportedExpression) to
// detect them regardless of the detailed error value.
var ErrUnsupportedExpression = errors.New("compile: unsupported expression")

// UnsupportedError names the expression shape that could not be
// translated. It always surfaces to the caller at the offending call or
// at command-text generation, never later.
type UnsupportedError struct {
	Shape string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("compile: unsupported expression: %s", e.Shape)
}

// Is reports whether target is ErrUnsupportedExpression.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupportedExpression
}

// unsupportedf builds an UnsupportedError with a formatted shape
// description.
func unsupportedf(format string, args ...any) error {
	return &UnsupportedError{Shape: fmt.Sprintf(format, args...)}
}
