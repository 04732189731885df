package owner

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWeakFailsAfterDisposal(t *testing.T) {
	t.Parallel()
	o, _ := countingOwner("weak")
	h, _ := o.NewHandle()
	w, err := o.NewWeak()
	if err != nil {
		t.Fatalf("new weak: %v", err)
	}
	if got := o.Count(); got != 1 {
		t.Fatalf("weak handle changed count: %d", got)
	}
	res, err := w.Resource()
	if err != nil || res != "R" {
		t.Fatalf("weak resource: (%q, %v)", res, err)
	}
	_ = h.Close()
	if _, err := w.Resource(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("expected ErrDestroyed after disposal, got %v", err)
	}
	if _, err := w.Upgrade(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("expected ErrDestroyed from Upgrade, got %v", err)
	}
}

func TestWeakFromHandle(t *testing.T) {
	t.Parallel()
	o, calls := countingOwner("weak-from-handle")
	h, _ := o.NewHandle()
	w, err := h.Weak()
	if err != nil {
		t.Fatalf("weak: %v", err)
	}
	up, err := w.Upgrade()
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if got := o.Count(); got != 2 {
		t.Fatalf("expected count 2 after upgrade, got %d", got)
	}
	_ = h.Close()
	if res, err := w.Resource(); err != nil || res != "R" {
		t.Fatalf("upgraded handle should keep resource alive: (%q, %v)", res, err)
	}
	_ = up.Close()
	if calls.Load() != 1 {
		t.Fatalf("expected one disposal, got %d", calls.Load())
	}
}

func TestZeroWeakHandle(t *testing.T) {
	t.Parallel()
	var w WeakHandle[int]
	if _, err := w.Resource(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("expected ErrDestroyed, got %v", err)
	}
}

func TestWeakWrongTypeDoesNotResolve(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	o := NewFunc("R", func(string) error { return nil }, WithRegistry(reg))
	h, _ := o.NewHandle()
	defer h.Close()
	w, _ := o.NewWeak()
	other := WeakHandle[int]{reg: w.reg, key: w.key}
	if _, err := other.Resource(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("expected ErrDestroyed for mismatched type, got %v", err)
	}
}

func TestRegistryStaleKey(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	first := NewFunc("first", func(string) error { return nil }, WithRegistry(reg))
	h, _ := first.NewHandle()
	stale, _ := first.NewWeak()
	if reg.Len() != 1 {
		t.Fatalf("expected one registered owner, got %d", reg.Len())
	}
	_ = h.Close()
	if reg.Len() != 0 {
		t.Fatalf("disposed owner still registered: %d", reg.Len())
	}

	second := NewFunc("second", func(string) error { return nil }, WithRegistry(reg))
	h2, _ := second.NewHandle()
	defer h2.Close()
	fresh, _ := second.NewWeak()
	if uint32(fresh.key) != uint32(stale.key) {
		t.Fatalf("expected slot reuse, got keys %x and %x", fresh.key, stale.key)
	}
	if _, err := stale.Resource(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("stale key resolved to a new owner: %v", err)
	}
	if res, err := fresh.Resource(); err != nil || res != "second" {
		t.Fatalf("fresh weak: (%q, %v)", res, err)
	}
}

func TestRegistryUnregisterUnknown(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	if reg.unregister(0) {
		t.Fatal("zero key unregistered")
	}
	if reg.unregister(makeKey(5, 0)) {
		t.Fatal("out of range key unregistered")
	}
	k := reg.register(staticRef{"x"})
	if !reg.unregister(k) || reg.unregister(k) {
		t.Fatal("unregister should succeed exactly once")
	}
}

type staticRef struct{ v any }

func (r staticRef) target() any { return r.v }

//go:noinline
func leakedOwner(t *testing.T, reg *Registry) WeakHandle[[]byte] {
	t.Helper()
	o := NewFunc(make([]byte, 1<<20), func([]byte) error { return nil }, WithRegistry(reg))
	if _, err := o.NewHandle(); err != nil {
		t.Fatalf("new handle: %v", err)
	}
	w, err := o.NewWeak()
	if err != nil {
		t.Fatalf("new weak: %v", err)
	}
	return w
}

func TestRegistryDoesNotPinDroppedOwner(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	w := leakedOwner(t, reg)
	deadline := time.Now().Add(5 * time.Second)
	for {
		runtime.GC()
		_, err := w.Resource()
		if errors.Is(err, ErrDestroyed) && reg.Len() == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("owner still reachable: resource err=%v registered=%d", err, reg.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := w.Upgrade(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("expected ErrDestroyed from Upgrade, got %v", err)
	}
}

func TestWeakRacesLastClose(t *testing.T) {
	t.Parallel()
	const (
		strong  = 8
		readers = 8
		rounds  = 500
	)
	for round := 0; round < 10; round++ {
		var disposed atomic.Int32
		o := NewFunc("R", func(string) error {
			disposed.Add(1)
			return nil
		}, WithRegistry(NewRegistry()))
		handles := make([]*Handle[string], strong)
		for i := range handles {
			h, err := o.NewHandle()
			if err != nil {
				t.Fatalf("new handle: %v", err)
			}
			handles[i] = h
		}
		w, err := o.NewWeak()
		if err != nil {
			t.Fatalf("new weak: %v", err)
		}

		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < readers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < rounds; j++ {
					res, err := w.Resource()
					switch {
					case err == nil && res != "R":
						t.Errorf("weak resource returned %q with nil error", res)
						return
					case err != nil && !errors.Is(err, ErrDestroyed):
						t.Errorf("unexpected resource error: %v", err)
						return
					}
					up, err := w.Upgrade()
					if err != nil {
						if !errors.Is(err, ErrDestroyed) {
							t.Errorf("unexpected upgrade error: %v", err)
						}
						return
					}
					if disposed.Load() != 0 {
						t.Errorf("upgrade succeeded after disposal")
					}
					if err := up.Close(); err != nil {
						t.Errorf("close upgraded handle: %v", err)
					}
				}
			}()
		}
		for _, h := range handles {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if err := h.Close(); err != nil {
					t.Errorf("close: %v", err)
				}
			}()
		}
		close(start)
		wg.Wait()

		if got := disposed.Load(); got != 1 {
			t.Fatalf("round %d: expected exactly one disposal, got %d", round, got)
		}
		if _, err := w.Resource(); !errors.Is(err, ErrDestroyed) {
			t.Fatalf("round %d: expected ErrDestroyed after disposal, got %v", round, err)
		}
		if _, err := w.Upgrade(); !errors.Is(err, ErrDestroyed) {
			t.Fatalf("round %d: upgrade after disposal: %v", round, err)
		}
	}
}
