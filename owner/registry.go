package owner

import (
	"sync"
	"weak"
)

// Key identifies an owner in a Registry. The zero Key never resolves.
type Key uint64

func makeKey(idx, gen uint32) Key { return Key(uint64(gen)<<32 | uint64(idx+1)) }

func (k Key) split() (idx, gen uint32, ok bool) {
	lo := uint32(k)
	if lo == 0 {
		return 0, 0, false
	}
	return lo - 1, uint32(k >> 32), true
}

// ref resolves to the registered owner, or nil once it has been reclaimed.
type ref interface {
	target() any
}

type ownerRef[T any] struct {
	p weak.Pointer[Owner[T]]
}

func (r ownerRef[T]) target() any {
	if o := r.p.Value(); o != nil {
		return o
	}
	return nil
}

type registration struct {
	reg *Registry
	key Key
}

type slot struct {
	value ref
	gen   uint32
	valid bool
}

// Registry maps keys to live owners so weak handles can find them. It holds
// owners through weak pointers and never keeps one reachable. Freed slots are reused under a new
// generation, so a stale key never resolves to a different owner.
type Registry struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
}

// DefaultRegistry is used by owners created without WithRegistry.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		slots: make([]slot, 0, 64),
		free:  make([]uint32, 0, 16),
	}
}

func (r *Registry) register(v ref) Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		s := &r.slots[idx]
		s.value = v
		s.valid = true
		return makeKey(idx, s.gen)
	}
	r.slots = append(r.slots, slot{value: v, valid: true})
	return makeKey(uint32(len(r.slots)-1), 0)
}

func (r *Registry) unregister(k Key) bool {
	idx, gen, ok := k.split()
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if int(idx) >= len(r.slots) {
		return false
	}
	s := &r.slots[idx]
	if !s.valid || s.gen != gen {
		return false
	}
	s.value = nil
	s.valid = false
	s.gen++
	r.free = append(r.free, idx)
	return true
}

func (r *Registry) lookup(k Key) (any, bool) {
	idx, gen, ok := k.split()
	if !ok {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(idx) >= len(r.slots) {
		return nil, false
	}
	s := r.slots[idx]
	if !s.valid || s.gen != gen {
		return nil, false
	}
	v := s.value.target()
	return v, v != nil
}

// Len returns the number of registered owners: owners that are live, whose
// last release is in progress, or that were reclaimed and await cleanup.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots) - len(r.free)
}
