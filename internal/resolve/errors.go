package resolve

import (
	"errors"
	"fmt"
)

// ErrCycle is wrapped by a ResolutionError when a file references itself
// through its own subtree.
var ErrCycle = errors.New("reference cycle")

// ResolutionError reports a reference that could not be resolved. The
// node is skipped and its siblings continue.
type ResolutionError struct {
	Name string
	Line int
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("resolve: %s (line %d): %v", e.Name, e.Line, e.Err)
	}
	return fmt.Sprintf("resolve: %s: %v", e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
