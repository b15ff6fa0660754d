package pipelet

import (
	"github.com/l7mp/pipelet/pkg/value"
)

var (
	_ Pipelet = &Map{}
	_ Pipelet = &FlatMap{}
)

// Map applies a one-to-one transform to every value. Updates are transformed pairwise.
type Map struct {
	Base
	fn func(value.Value) value.Value
}

// NewMap creates a map pipelet.
func NewMap(name string, fn func(value.Value) value.Value, opts ...Option) (*Map, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, NewInvalidWiringError(name, "nil transform")
	}

	m := &Map{fn: fn}
	m.init(name, m, o)
	return m, nil
}

// NewPassthrough creates a pipelet that forwards every delta unchanged.
func NewPassthrough(name string, opts ...Option) (*Map, error) {
	return NewMap(name, func(v value.Value) value.Value { return v }, opts...)
}

func (m *Map) apply(values []value.Value) ([]value.Value, error) {
	ret := make([]value.Value, len(values))
	for i, v := range values {
		ret[i] = m.fn(v)
	}
	return ret, nil
}

func (m *Map) Fetch(r Receiver) error {
	return m.fetchThrough(r, m.apply)
}

func (m *Map) onAdd(values []value.Value) error {
	vs, _ := m.apply(values)
	return m.EmitAdd(vs)
}

func (m *Map) onRemove(values []value.Value) error {
	vs, _ := m.apply(values)
	return m.EmitRemove(vs)
}

func (m *Map) onUpdate(updates []Update) error {
	ret := make([]Update, len(updates))
	for i, u := range updates {
		ret[i] = Update{Previous: m.fn(u.Previous), Current: m.fn(u.Current)}
	}
	return m.EmitUpdate(ret)
}

func (m *Map) onClear() error { return m.EmitClear() }

// FlatMap transforms every value into zero or more values. Since the output of a previous and a
// current value cannot be paired, FlatMap does not support updates.
type FlatMap struct {
	Base
	fn func(value.Value) []value.Value
}

// NewFlatMap creates a flat-map pipelet.
func NewFlatMap(name string, fn func(value.Value) []value.Value, opts ...Option) (*FlatMap, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, NewInvalidWiringError(name, "nil transform")
	}

	m := &FlatMap{fn: fn}
	m.init(name, m, o)
	return m, nil
}

func (m *FlatMap) apply(values []value.Value) ([]value.Value, error) {
	ret := make([]value.Value, 0, len(values))
	for _, v := range values {
		ret = append(ret, m.fn(v)...)
	}
	return ret, nil
}

func (m *FlatMap) SupportsAction(kind ActionKind) bool {
	return kind == ActionAdd || kind == ActionRemove
}

func (m *FlatMap) Fetch(r Receiver) error {
	return m.fetchThrough(r, m.apply)
}

func (m *FlatMap) onAdd(values []value.Value) error {
	vs, _ := m.apply(values)
	return m.EmitAdd(vs)
}

func (m *FlatMap) onRemove(values []value.Value) error {
	vs, _ := m.apply(values)
	return m.EmitRemove(vs)
}

func (m *FlatMap) onUpdate(updates []Update) error {
	if len(updates) == 0 {
		return nil
	}
	return NewUnsupportedActionError(m.name, ActionUpdate)
}

func (m *FlatMap) onClear() error { return m.EmitClear() }
