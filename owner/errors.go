package owner

import (
	"errors"
	"fmt"
)

// ErrDestroyed is returned by every operation that needs a live resource and
// finds none. It signals misuse of a handle, not a transient failure.
var ErrDestroyed = errors.New("access to destroyed resource")

func destroyed(name, op string) error {
	if name == "" {
		return fmt.Errorf("%w: %s", ErrDestroyed, op)
	}
	return fmt.Errorf("%w: %s on %q", ErrDestroyed, op, name)
}

// DisposeError describes a failed disposal. It is reported to the owner's
// Observer and logger, never to the caller whose release triggered disposal.
type DisposeError struct {
	Owner    string
	Cause    error
	Panicked bool
}

func (e *DisposeError) Error() string {
	what := "dispose failed"
	if e.Panicked {
		what = "dispose panicked"
	}
	if e.Owner == "" {
		return fmt.Sprintf("%s: %v", what, e.Cause)
	}
	return fmt.Sprintf("%s %q: %v", what, e.Owner, e.Cause)
}

func (e *DisposeError) Unwrap() error { return e.Cause }
