package pipelet

import (
	"github.com/l7mp/pipelet/pkg/value"
)

var _ Pipelet = &Filter{}

// Filter maintains the subset of its upstream that satisfies a predicate. It keeps no state:
// updates are classified by evaluating the predicate on both the previous and the current value.
type Filter struct {
	Base
	predicate Predicate
	test      func(value.Value) (bool, error)
}

// NewFilter creates a filter.
func NewFilter(name string, predicate Predicate, opts ...Option) (*Filter, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	f := &Filter{predicate: predicate}
	f.init(name, f, o)

	test, err := predicate.compile(f)
	if err != nil {
		return nil, NewPredicateError(name, err)
	}
	f.test = test

	return f, nil
}

// Predicate returns the predicate of the filter.
func (f *Filter) Predicate() Predicate { return f.predicate }

func (f *Filter) Fetch(r Receiver) error {
	return f.fetchThrough(r, f.filter)
}

func (f *Filter) filter(values []value.Value) ([]value.Value, error) {
	ret := make([]value.Value, 0, len(values))
	for _, v := range values {
		ok, err := f.test(v)
		if err != nil {
			return nil, err
		}
		if ok {
			ret = append(ret, v)
		}
	}
	return ret, nil
}

func (f *Filter) onAdd(values []value.Value) error {
	vs, err := f.filter(values)
	if err != nil {
		return err
	}
	return f.EmitAdd(vs)
}

func (f *Filter) onRemove(values []value.Value) error {
	vs, err := f.filter(values)
	if err != nil {
		return err
	}
	return f.EmitRemove(vs)
}

// onUpdate emits a value that stops passing as removed, a value that starts passing as added,
// and a pair that passes on both sides as updated, in this order.
func (f *Filter) onUpdate(updates []Update) error {
	var removed, added []value.Value
	var updated []Update

	for _, u := range updates {
		was, err := f.test(u.Previous)
		if err != nil {
			return err
		}
		is, err := f.test(u.Current)
		if err != nil {
			return err
		}

		switch {
		case was && is:
			updated = append(updated, u)
		case was:
			removed = append(removed, u.Previous)
		case is:
			added = append(added, u.Current)
		}
	}

	if err := f.EmitRemove(removed); err != nil {
		return err
	}
	if err := f.EmitUpdate(updated); err != nil {
		return err
	}
	return f.EmitAdd(added)
}

func (f *Filter) onClear() error {
	return f.EmitClear()
}
