// Package errgroup runs goroutines that share an owner's resource. Each
// goroutine gets its own duplicated strong handle, which is closed when the
// goroutine returns, so the resource outlives every goroutine that uses it.
package errgroup

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/NetPo4ki/go-owner/owner"
)

var errNilHandle = fmt.Errorf("%w: nil handle", owner.ErrDestroyed)

// Group is an errgroup.Group bound to a strong handle.
type Group[T any] struct {
	g   *errgroup.Group
	h   *owner.Handle[T]
	ctx context.Context
}

// WithContext creates a Group sharing h. The caller keeps ownership of h.
// A nil h is allowed but every function passed to Go fails with
// owner.ErrDestroyed without running. Returned context is canceled when any function passed to Go returns a
// non-nil error.
func WithContext[T any](ctx context.Context, h *owner.Handle[T]) (*Group[T], context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	return &Group[T]{g: g, h: h, ctx: gctx}, gctx
}

// SetLimit bounds the number of goroutines running at once.
func (g *Group[T]) SetLimit(n int) { g.g.SetLimit(n) }

// Go duplicates the shared handle and runs f with the resource in a new
// goroutine. If the handle cannot be duplicated, the error is reported
// through Wait and f is not called.
func (g *Group[T]) Go(f func(ctx context.Context, resource T) error) {
	if f == nil {
		return
	}
	if g.h == nil {
		g.g.Go(func() error { return errNilHandle })
		return
	}
	dup, err := g.h.Duplicate()
	if err != nil {
		g.g.Go(func() error { return err })
		return
	}
	g.g.Go(func() (err error) {
		defer func() {
			if cerr := dup.Close(); err == nil {
				err = cerr
			}
		}()
		res, err := dup.Resource()
		if err != nil {
			return err
		}
		return f(g.ctx, res)
	})
}

// Wait blocks until all functions have returned and returns the first
// non-nil error.
func (g *Group[T]) Wait() error {
	return g.g.Wait()
}
