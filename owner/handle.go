package owner

import "sync"

// Handle is a strong, owning reference to an Owner's resource. It holds one
// reference from creation until Close. Handles are safe for concurrent use.
type Handle[T any] struct {
	mu    sync.Mutex
	owner *Owner[T]
}

// Close releases the handle's reference. Only the first call releases;
// later calls return nil.
func (h *Handle[T]) Close() error {
	h.mu.Lock()
	o := h.owner
	h.owner = nil
	h.mu.Unlock()

	if o == nil {
		return nil
	}
	return o.Release()
}

func (h *Handle[T]) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.owner == nil
}

// Duplicate returns an independent handle to the same owner, holding a
// reference of its own. Duplicating a closed handle yields another closed
// handle.
func (h *Handle[T]) Duplicate() (*Handle[T], error) {
	h.mu.Lock()
	o := h.owner
	if o == nil {
		h.mu.Unlock()
		return &Handle[T]{}, nil
	}
	// The handle lock orders this acquire before a racing Close of h.
	n, err := o.acquire()
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}
	o.notifyAcquired(n)
	return &Handle[T]{owner: o}, nil
}

func (h *Handle[T]) Resource() (T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.owner == nil {
		var zero T
		return zero, destroyed("", "resource on closed handle")
	}
	return h.owner.Resource()
}

// Weak returns a weak handle to the owner this handle references.
func (h *Handle[T]) Weak() (WeakHandle[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.owner == nil {
		return WeakHandle[T]{}, destroyed("", "weak handle from closed handle")
	}
	return h.owner.NewWeak()
}
