package pipelet

import (
	"github.com/l7mp/pipelet/pkg/value"
)

var _ Pipelet = &Fork{}

// Fork broadcasts every delta to all of its destinations in registration order. Each
// destination finishes processing a delta before the next one receives it. State is not kept,
// Fetch delegates to the upstream.
type Fork struct {
	Base
	dests []Pipelet
}

// NewFork creates a fork.
func NewFork(name string, opts ...Option) (*Fork, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	f := &Fork{}
	f.init(name, f, o)
	return f, nil
}

// newImplicitFork creates the fork that implements the fan-out edge of a pipelet with more than
// one destination. The owner is the source of the fork but the fork is not registered with it.
func newImplicitFork(owner *Base) (*Fork, error) {
	f, err := NewFork(owner.name+"-fork", WithKey(owner.key), WithLogger(owner.log))
	if err != nil {
		return nil, err
	}
	f.source = owner.self
	return f, nil
}

func (f *Fork) AddDestination(dest Pipelet) error {
	if dest == nil {
		return NewInvalidWiringError(f.name, "nil destination")
	}
	for _, d := range f.dests {
		if d == dest {
			return NewInvalidWiringError(f.name, "duplicate destination "+dest.Name())
		}
	}
	f.dests = append(f.dests, dest)
	f.log.V(2).Info("destination added", "destination", dest.Name(), "destinations", len(f.dests))
	return nil
}

func (f *Fork) RemoveDestination(dest Pipelet) error {
	for i, d := range f.dests {
		if d == dest {
			f.dests = append(f.dests[:i:i], f.dests[i+1:]...)
			f.log.V(2).Info("destination removed", "destination", nameOf(dest), "destinations", len(f.dests))
			return nil
		}
	}
	return NewInvalidWiringError(f.name, "unknown destination "+nameOf(dest))
}

func (f *Fork) Destinations() []Pipelet {
	return append([]Pipelet(nil), f.dests...)
}

func (f *Fork) onAdd(values []value.Value) error {
	if len(values) == 0 {
		return nil
	}
	for _, d := range f.dests {
		if err := d.Add(values); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fork) onRemove(values []value.Value) error {
	if len(values) == 0 {
		return nil
	}
	for _, d := range f.dests {
		if err := d.Remove(values); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fork) onUpdate(updates []Update) error {
	if len(updates) == 0 {
		return nil
	}
	for _, d := range f.dests {
		if err := d.Update(updates); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fork) onClear() error {
	for _, d := range f.dests {
		if err := d.Clear(); err != nil {
			return err
		}
	}
	return nil
}
