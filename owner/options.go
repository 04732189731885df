package owner

import (
	"time"

	"go.uber.org/zap"
)

type Option func(*Options)

type Options struct {
	Name     string
	Observer Observer
	Registry *Registry
	Logger   *zap.Logger
}

func defaultOptions() Options { return Options{Registry: DefaultRegistry} }

func WithName(name string) Option { return func(o *Options) { o.Name = name } }

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

// WithRegistry sets the registry weak handles resolve through. A nil registry
// keeps DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(o *Options) {
		if r != nil {
			o.Registry = r
		}
	}
}

// WithLogger sets the logger disposal failures are reported to. Without it
// the owner uses the package Logger at the time of the failure.
func WithLogger(l *zap.Logger) Option { return func(o *Options) { o.Logger = l } }

// Observer receives owner lifecycle events. Calls are made outside the
// owner's lock and may arrive concurrently.
type Observer interface {
	OwnerLive(name string)
	Acquired(name string, count int)
	Released(name string, count int)
	Disposed(name string, dur time.Duration, err error, panicked bool)
}

// Observers returns an Observer that forwards every event to each non-nil
// observer in order.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) OwnerLive(name string) {
	for _, o := range m {
		o.OwnerLive(name)
	}
}

func (m multiObserver) Acquired(name string, count int) {
	for _, o := range m {
		o.Acquired(name, count)
	}
}

func (m multiObserver) Released(name string, count int) {
	for _, o := range m {
		o.Released(name, count)
	}
}

func (m multiObserver) Disposed(name string, dur time.Duration, err error, panicked bool) {
	for _, o := range m {
		o.Disposed(name, dur, err, panicked)
	}
}
