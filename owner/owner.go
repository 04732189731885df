package owner

import (
	"io"
	"runtime"
	"sync"
	"time"
	"weak"

	"go.uber.org/zap"
)

type state uint8

const (
	pending state = iota
	live
	disposed
)

// Owner controls a single resource. It counts the strong handles referencing
// the resource and disposes of it when the count drops from one to zero.
//
// A new Owner is pending: it holds the resource with a count of zero and the
// only permitted operation is NewHandle, which makes it live. After disposal
// every operation fails with ErrDestroyed.
type Owner[T any] struct {
	mu       sync.Mutex
	resource T
	count    int
	state    state
	key      Key

	disposer Disposer[T]
	opts     Options
	obs      Observer
}

// New creates a pending Owner for resource. A nil disposer makes disposal a
// no-op.
func New[T any](resource T, d Disposer[T], optFns ...Option) *Owner[T] {
	if d == nil {
		d = DisposerFunc[T](func(T) error { return nil })
	}
	o := &Owner[T]{resource: resource, disposer: d, opts: defaultOptions()}
	for _, fn := range optFns {
		fn(&o.opts)
	}
	o.obs = o.opts.Observer
	return o
}

// NewFunc creates a pending Owner that disposes of resource by calling fn.
func NewFunc[T any](resource T, fn func(T) error, optFns ...Option) *Owner[T] {
	var d Disposer[T]
	if fn != nil {
		d = DisposerFunc[T](fn)
	}
	return New(resource, d, optFns...)
}

// NewCloser creates a pending Owner that disposes of resource by closing it.
func NewCloser[T io.Closer](resource T, optFns ...Option) *Owner[T] {
	return New[T](resource, CloserDisposer[T]{}, optFns...)
}

func (o *Owner[T]) Name() string { return o.opts.Name }

// Count reports the number of live strong references.
func (o *Owner[T]) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}

func (o *Owner[T]) CheckLive() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.checkLiveLocked("check")
}

func (o *Owner[T]) checkLiveLocked(op string) error {
	if o.count <= 0 {
		return destroyed(o.opts.Name, op)
	}
	return nil
}

// Acquire adds a reference to a live owner.
func (o *Owner[T]) Acquire() error {
	n, err := o.acquire()
	if err != nil {
		return err
	}
	o.notifyAcquired(n)
	return nil
}

// acquire increments the count without notifying the observer, so callers
// holding their own lock can notify after releasing it.
func (o *Owner[T]) acquire() (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkLiveLocked("acquire"); err != nil {
		return 0, err
	}
	o.count++
	return o.count, nil
}

func (o *Owner[T]) notifyAcquired(n int) {
	if o.obs != nil {
		o.obs.Acquired(o.opts.Name, n)
	}
}

// Release drops a reference. Releasing the last reference detaches the
// resource under the lock and disposes of it after the lock is released.
// Disposal failures are reported, not returned.
func (o *Owner[T]) Release() error {
	o.mu.Lock()
	if err := o.checkLiveLocked("release"); err != nil {
		o.mu.Unlock()
		return err
	}
	o.count--
	n := o.count
	var (
		res  T
		last bool
	)
	if n == 0 {
		var zero T
		res, o.resource = o.resource, zero
		o.state = disposed
		last = true
	}
	key := o.key
	o.mu.Unlock()

	if o.obs != nil {
		o.obs.Released(o.opts.Name, n)
	}
	if last {
		o.opts.Registry.unregister(key)
		o.dispose(res)
	}
	return nil
}

func (o *Owner[T]) dispose(res T) {
	start := time.Now()
	panicked, err := safeDispose(o.disposer, res)
	dur := time.Since(start)
	if err != nil {
		err = &DisposeError{Owner: o.opts.Name, Cause: err, Panicked: panicked}
		o.logger().Error("resource disposal failed",
			zap.String("owner", o.opts.Name),
			zap.Bool("panicked", panicked),
			zap.Duration("duration", dur),
			zap.Error(err))
	}
	if o.obs != nil {
		o.obs.Disposed(o.opts.Name, dur, err, panicked)
	}
}

func (o *Owner[T]) logger() *zap.Logger {
	if o.opts.Logger != nil {
		return o.opts.Logger
	}
	return Logger()
}

// NewHandle returns a strong handle holding one new reference. It is the
// only operation allowed on a pending owner, which it makes live.
func (o *Owner[T]) NewHandle() (*Handle[T], error) {
	o.mu.Lock()
	if o.state == disposed {
		o.mu.Unlock()
		return nil, destroyed(o.opts.Name, "new handle")
	}
	wasPending := o.state == pending
	if wasPending {
		o.state = live
		o.key = o.opts.Registry.register(ownerRef[T]{p: weak.Make(o)})
		// Frees the slot if every handle is dropped without Close.
		runtime.AddCleanup(o, func(c registration) { c.reg.unregister(c.key) },
			registration{reg: o.opts.Registry, key: o.key})
	}
	o.count++
	n := o.count
	o.mu.Unlock()

	if o.obs != nil {
		if wasPending {
			o.obs.OwnerLive(o.opts.Name)
		}
		o.obs.Acquired(o.opts.Name, n)
	}
	return &Handle[T]{owner: o}, nil
}

// NewWeak returns a weak handle to a live owner. The count is unchanged.
func (o *Owner[T]) NewWeak() (WeakHandle[T], error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkLiveLocked("new weak handle"); err != nil {
		return WeakHandle[T]{}, err
	}
	return WeakHandle[T]{reg: o.opts.Registry, key: o.key}, nil
}

// Resource returns the live resource. Callers must not use it past the
// lifetime of the handle through which they reached the owner.
func (o *Owner[T]) Resource() (T, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkLiveLocked("resource"); err != nil {
		var zero T
		return zero, err
	}
	return o.resource, nil
}

// Do runs fn with the resource while holding a strong handle, and closes the
// handle when fn returns or panics.
func Do[T any](o *Owner[T], fn func(resource T) error) (err error) {
	h, err := o.NewHandle()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); err == nil {
			err = cerr
		}
	}()
	res, err := h.Resource()
	if err != nil {
		return err
	}
	return fn(res)
}
