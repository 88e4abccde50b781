package query

import (
	"errors"
	"fmt"
)

// ErrInvalidOperation is the sentinel for builder calls that do not
// apply to the command being built: mixing command kinds, paging
// without an ordering, deleting without a predicate. Use
// errors.Is(err, ErrInvalidOperation) to detect them.
var ErrInvalidOperation = errors.New("query: invalid operation")

// InvalidOperationError names the offending call, the builder mode it
// arrived in, and why it was refused. The first such error latches on
// the builder: later calls are no-ops and Build returns it.
type InvalidOperationError struct {
	Mode   string
	Call   string
	Reason string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("query: %s in %s mode: %s", e.Call, e.Mode, e.Reason)
}

// Is reports whether target is ErrInvalidOperation.
func (e *InvalidOperationError) Is(target error) bool {
	return target == ErrInvalidOperation
}
