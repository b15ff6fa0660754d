package pipelet

import (
	"github.com/l7mp/pipelet/pkg/value"
)

var _ Pipelet = &Observer{}

// ObserverFunc is called with every non-empty delta an observer receives.
type ObserverFunc func(d Delta) error

// Observer calls a function with each delta it receives and forwards the delta unchanged. When
// connected to a source, the initial state arrives as an add delta.
type Observer struct {
	Base
	fn ObserverFunc
}

// NewObserver creates an observer.
func NewObserver(name string, fn ObserverFunc, opts ...Option) (*Observer, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, NewInvalidWiringError(name, "nil observer function")
	}

	ob := &Observer{fn: fn}
	ob.init(name, ob, o)
	return ob, nil
}

func (o *Observer) onAdd(values []value.Value) error {
	if len(values) == 0 {
		return nil
	}
	if err := o.fn(Delta{Kind: ActionAdd, Values: values}); err != nil {
		return err
	}
	return o.EmitAdd(values)
}

func (o *Observer) onRemove(values []value.Value) error {
	if len(values) == 0 {
		return nil
	}
	if err := o.fn(Delta{Kind: ActionRemove, Values: values}); err != nil {
		return err
	}
	return o.EmitRemove(values)
}

func (o *Observer) onUpdate(updates []Update) error {
	if len(updates) == 0 {
		return nil
	}
	if err := o.fn(Delta{Kind: ActionUpdate, Updates: updates}); err != nil {
		return err
	}
	return o.EmitUpdate(updates)
}

func (o *Observer) onClear() error {
	if err := o.fn(Delta{Kind: ActionClear}); err != nil {
		return err
	}
	return o.EmitClear()
}
