package owner

// WeakHandle observes an Owner's resource without holding a reference. It
// resolves through a Registry and fails once the owner's count reaches zero.
// The zero WeakHandle never resolves.
type WeakHandle[T any] struct {
	reg *Registry
	key Key
}

func (w WeakHandle[T]) owner() (*Owner[T], error) {
	if w.reg == nil {
		return nil, destroyed("", "resolve weak handle")
	}
	v, ok := w.reg.lookup(w.key)
	if !ok {
		return nil, destroyed("", "resolve weak handle")
	}
	o, ok := v.(*Owner[T])
	if !ok {
		return nil, destroyed("", "resolve weak handle")
	}
	return o, nil
}

// Resource returns the resource if its owner is still live.
func (w WeakHandle[T]) Resource() (T, error) {
	o, err := w.owner()
	if err != nil {
		var zero T
		return zero, err
	}
	return o.Resource()
}

// Upgrade returns a new strong handle if the owner is still live.
func (w WeakHandle[T]) Upgrade() (*Handle[T], error) {
	o, err := w.owner()
	if err != nil {
		return nil, err
	}
	if err := o.Acquire(); err != nil {
		return nil, err
	}
	return &Handle[T]{owner: o}, nil
}
