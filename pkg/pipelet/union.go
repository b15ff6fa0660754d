package pipelet

import (
	"github.com/l7mp/pipelet/pkg/value"
)

var _ Pipelet = &Union{}

// Union merges several sources into a single stream. Deltas from any source are forwarded
// downstream unchanged. Fetch concatenates the state of the sources in registration order.
type Union struct {
	Base
	sources []Source
}

// NewUnion creates a union with the given sources.
func NewUnion(name string, sources []Source, opts ...Option) (*Union, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	u := &Union{}
	u.init(name, u, o)

	for _, src := range sources {
		if err := u.AddSource(src); err != nil {
			return nil, err
		}
	}

	return u, nil
}

// Source returns the first source of the union, or nil.
func (u *Union) Source() Source {
	if len(u.sources) == 0 {
		return nil
	}
	return u.sources[0]
}

// Sources returns the sources of the union in registration order.
func (u *Union) Sources() []Source {
	return append([]Source(nil), u.sources...)
}

// SetSource adds a source to the union. A nil source detaches all sources and emits a clear.
func (u *Union) SetSource(src Source) error {
	if src != nil {
		return u.AddSource(src)
	}

	if err := u.Clear(); err != nil {
		return err
	}

	for len(u.sources) > 0 {
		src := u.sources[len(u.sources)-1]
		if e, ok := src.(Emitter); ok {
			if err := e.RemoveDestination(u); err != nil {
				return err
			}
		}
		u.sources = u.sources[:len(u.sources)-1]
	}

	u.log.V(2).Info("all sources detached")
	return nil
}

// AddSource bootstraps the content of a source and registers the live edge.
func (u *Union) AddSource(src Source) error {
	if src == nil {
		return NewInvalidWiringError(u.name, "nil source")
	}
	if u.index(src) >= 0 {
		return NewInvalidWiringError(u.name, "duplicate source "+sourceName(src))
	}

	u.sources = append(u.sources, src)
	if err := u.bootstrap(src); err != nil {
		u.sources = u.sources[:len(u.sources)-1]
		return err
	}

	u.log.V(2).Info("source attached", "source", sourceName(src), "sources", len(u.sources))
	return nil
}

// RemoveSource detaches a source and retracts its content downstream.
func (u *Union) RemoveSource(src Source) error {
	i := u.index(src)
	if i < 0 {
		return NewInvalidWiringError(u.name, "unknown source "+sourceName(src))
	}

	if e, ok := src.(Emitter); ok {
		if err := e.RemoveDestination(u); err != nil {
			return err
		}
	}
	u.sources = append(u.sources[:i:i], u.sources[i+1:]...)

	content, err := Get(src)
	if err != nil {
		return err
	}

	u.log.V(2).Info("source detached", "source", sourceName(src), "retracted", len(content))
	return u.EmitRemove(content)
}

func (u *Union) index(src Source) int {
	for i, s := range u.sources {
		if s == src {
			return i
		}
	}
	return -1
}

// Fetch fetches every source in registration order, forwarding each non-empty chunk, and then
// delivers a single terminator.
func (u *Union) Fetch(r Receiver) error {
	for _, src := range u.sources {
		if err := src.Fetch(func(chunk []value.Value) error {
			if len(chunk) == 0 {
				return nil
			}
			return r(chunk)
		}); err != nil {
			return err
		}
	}
	return r(nil)
}

func (u *Union) onAdd(values []value.Value) error { return u.EmitAdd(values) }

func (u *Union) onRemove(values []value.Value) error { return u.EmitRemove(values) }

func (u *Union) onUpdate(updates []Update) error { return u.EmitUpdate(updates) }

func (u *Union) onClear() error { return u.EmitClear() }
