package pipelet

import (
	"fmt"

	"github.com/l7mp/pipelet/pkg/key"
	"github.com/l7mp/pipelet/pkg/value"
)

// Receiver consumes a chunk of values during a Fetch. The last call always carries an empty
// chunk.
type Receiver func(chunk []value.Value) error

// Update is a (previous, current) pair. Previous identifies the held value by key, Current
// replaces it.
type Update struct {
	Previous value.Value `json:"previous"`
	Current  value.Value `json:"current"`
}

// ActionKind is the kind of a delta.
type ActionKind int

const (
	ActionAdd ActionKind = iota
	ActionRemove
	ActionUpdate
	ActionClear
	ActionUnknown
)

func (k ActionKind) String() string {
	switch k {
	case ActionAdd:
		return "add"
	case ActionRemove:
		return "remove"
	case ActionUpdate:
		return "update"
	case ActionClear:
		return "clear"
	default:
		return "unknown"
	}
}

// ParseActionKind converts a string action name into an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	switch s {
	case "add":
		return ActionAdd, nil
	case "remove":
		return ActionRemove, nil
	case "update":
		return ActionUpdate, nil
	case "clear":
		return ActionClear, nil
	default:
		return ActionUnknown, fmt.Errorf("%w: unknown action %q", ErrUnsupportedAction, s)
	}
}

// Delta is a single change to a collection. Values carries the payload of add and remove
// deltas, Updates the payload of update deltas. A clear delta has no payload.
type Delta struct {
	Kind    ActionKind
	Values  []value.Value
	Updates []Update
}

// Len returns the number of values or update pairs in the delta.
func (d Delta) Len() int {
	if d.Kind == ActionUpdate {
		return len(d.Updates)
	}
	return len(d.Values)
}

func (d Delta) String() string {
	switch d.Kind {
	case ActionUpdate:
		return fmt.Sprintf("{%s: %s}", d.Kind, value.Stringify(d.Updates))
	case ActionClear:
		return fmt.Sprintf("{%s}", d.Kind)
	default:
		return fmt.Sprintf("{%s: %s}", d.Kind, value.Stringify(d.Values))
	}
}

// Transaction is an ordered batch of actions applied to a single pipelet with Notify. Only add,
// remove and update actions may appear in a transaction.
type Transaction []Delta

// Source is the minimal producer contract. Any external producer that can deliver its state in
// chunks can act as the source of a pipelet.
type Source interface {
	// Fetch delivers the current state in chunks to the receiver. The last chunk is empty.
	Fetch(r Receiver) error
}

// Emitter is a source that also pushes live deltas to registered destinations.
type Emitter interface {
	Source
	// AddDestination registers a destination for live deltas.
	AddDestination(dest Pipelet) error
	// RemoveDestination unregisters a destination.
	RemoveDestination(dest Pipelet) error
	// Destinations returns the registered destinations in registration order.
	Destinations() []Pipelet
}

// Pipelet is an operator in a dataflow graph.
type Pipelet interface {
	Emitter

	// Name returns the name of the pipelet.
	Name() string
	// Key returns the key that identifies values in the pipelet.
	Key() key.Key
	// Source returns the upstream of the pipelet, or nil.
	Source() Source
	// SetSource disconnects the pipelet from its current source, emitting a clear downstream,
	// and connects it to a new one, bootstrapping its state from the new source. A nil source
	// only disconnects.
	SetSource(src Source) error

	// Add pushes added values.
	Add(values []value.Value) error
	// Remove pushes removed values. Values are identified by key.
	Remove(values []value.Value) error
	// Update pushes (previous, current) pairs.
	Update(updates []Update) error
	// Clear discards the whole collection.
	Clear() error

	// Notify applies a transaction. If any action is not supported nothing is applied.
	Notify(tx Transaction) error
	// SupportsAction reports whether the pipelet accepts an action kind in a transaction.
	SupportsAction(kind ActionKind) bool
}

// Get fetches the entire state of a source into a single slice.
func Get(src Source) ([]value.Value, error) {
	ret := []value.Value{}
	if err := src.Fetch(func(chunk []value.Value) error {
		ret = append(ret, chunk...)
		return nil
	}); err != nil {
		return nil, err
	}
	return ret, nil
}
