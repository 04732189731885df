package owner

import (
	"fmt"
	"io"
)

// Disposer releases a resource of type T. It is called at most once per
// Owner, outside the Owner's lock.
type Disposer[T any] interface {
	Dispose(resource T) error
}

// DisposerFunc adapts a function to the Disposer interface. The function must
// be a valid disposal of exactly the value the Owner was created with.
type DisposerFunc[T any] func(resource T) error

// Dispose calls f(resource).
func (f DisposerFunc[T]) Dispose(resource T) error { return f(resource) }

// CloserDisposer disposes of resources by calling their Close method.
type CloserDisposer[T io.Closer] struct{}

// Dispose closes resource. A Close error is returned to the Owner, which
// reports it.
func (CloserDisposer[T]) Dispose(resource T) error {
	return resource.Close()
}

// safeDispose runs d and converts a panic into an error.
func safeDispose[T any](d Disposer[T], resource T) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return false, d.Dispose(resource)
}
