package pipelet

import (
	"github.com/l7mp/pipelet/pkg/key"
	"github.com/l7mp/pipelet/pkg/value"
)

var _ Pipelet = &Set{}

// Set holds an ordered collection of values identified by key. Removes and updates are resolved
// against the held values with a locator specialized for the key, values that cannot be
// resolved are skipped. Only the changes actually applied are emitted downstream.
type Set struct {
	Base
	values []value.Value
	locate key.Locator
	strict bool
}

// NewSet creates a set with optional initial values.
func NewSet(name string, values []value.Value, opts ...Option) (*Set, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	s := &Set{locate: key.Specialize(o.Key), strict: o.StrictKeys}
	s.init(name, s, o)

	if s.strict {
		values = s.admit(values)
	}
	s.values = append([]value.Value(nil), values...)

	return s, nil
}

// Len returns the number of held values.
func (s *Set) Len() int { return len(s.values) }

// Values returns a copy of the held sequence.
func (s *Set) Values() []value.Value {
	return append([]value.Value{}, s.values...)
}

// Fetch delivers a snapshot of the held values in a single chunk, followed by the terminator.
func (s *Set) Fetch(r Receiver) error {
	if len(s.values) > 0 {
		if err := r(s.Values()); err != nil {
			return err
		}
	}
	return r(nil)
}

func (s *Set) onAdd(values []value.Value) error {
	if s.strict {
		values = s.admit(values)
	}
	s.values = append(s.values, values...)
	return s.EmitAdd(values)
}

// admit filters out values whose key is already held or repeated within the batch. Duplicates
// are resolved with the locator, so a value is dropped exactly when a later remove or update
// would resolve to the held one.
func (s *Set) admit(values []value.Value) []value.Value {
	accepted := make([]value.Value, 0, len(values))
	for _, v := range values {
		if s.locate(s.values, v) != key.NotFound || s.locate(accepted, v) != key.NotFound {
			s.log.V(2).Info("add: duplicate key, dropping value", "key", s.key.Identity(v))
			continue
		}
		accepted = append(accepted, v)
	}
	return accepted
}

func (s *Set) onRemove(values []value.Value) error {
	removed := make([]value.Value, 0, len(values))
	for _, v := range values {
		i := s.locate(s.values, v)
		if i == key.NotFound {
			s.log.V(4).Info("remove: value not found, skipping", "key", s.key.Identity(v))
			continue
		}

		removed = append(removed, s.values[i])
		s.excise(i)
	}

	return s.EmitRemove(removed)
}

func (s *Set) excise(i int) {
	last := len(s.values) - 1
	switch i {
	case 0:
		s.values[0] = nil
		s.values = s.values[1:]
	case last:
		s.values[last] = nil
		s.values = s.values[:last]
	default:
		copy(s.values[i:], s.values[i+1:])
		s.values[last] = nil
		s.values = s.values[:last]
	}
}

func (s *Set) onUpdate(updates []Update) error {
	applied := make([]Update, 0, len(updates))
	for _, u := range updates {
		i := s.locate(s.values, u.Previous)
		if i == key.NotFound {
			s.log.V(4).Info("update: previous value not found, skipping",
				"key", s.key.Identity(u.Previous))
			continue
		}

		if !s.key.Has(u.Current) {
			s.log.V(2).Info("update: new value misses a key field, skipping",
				"key", s.key.Identity(u.Previous))
			continue
		}

		stored := s.values[i]
		if !s.key.Match(stored, u.Current) {
			if j := s.locate(s.values, u.Current); j != key.NotFound && j != i {
				s.log.V(2).Info("update: new key collides with a held value, skipping",
					"previous", s.key.Identity(stored), "current", s.key.Identity(u.Current))
				continue
			}
		}

		s.values[i] = u.Current
		applied = append(applied, Update{Previous: stored, Current: u.Current})
	}

	return s.EmitUpdate(applied)
}

func (s *Set) onClear() error {
	s.values = nil
	return s.EmitClear()
}
