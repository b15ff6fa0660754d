package v1alpha1

import (
	"errors"
	"fmt"

	"github.com/l7mp/pipelet/pkg/key"
	"github.com/l7mp/pipelet/pkg/pipelet"
	"github.com/l7mp/pipelet/pkg/value"
)

var (
	// ErrInvalidGraph is returned for a malformed graph.
	ErrInvalidGraph = errors.New("invalid graph")
	// ErrInvalidTransaction is returned for a malformed transaction.
	ErrInvalidTransaction = errors.New("invalid transaction")
)

func NewInvalidGraphError(node, content string) error {
	if node == "" {
		return fmt.Errorf("%w: %s", ErrInvalidGraph, content)
	}
	return fmt.Errorf("%w: node %q: %s", ErrInvalidGraph, node, content)
}

func NewInvalidTransactionError(content string) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransaction, content)
}

// Validate checks the nodes of the graph. Source references are resolved when the graph is
// built.
func (g *Graph) Validate() error {
	names := map[string]bool{}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Name == "" {
			return NewInvalidGraphError("", fmt.Sprintf("node %d has no name", i))
		}
		if names[n.Name] {
			return NewInvalidGraphError(n.Name, "duplicate node name")
		}
		names[n.Name] = true

		if err := n.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a single node.
func (n *Node) Validate() error {
	switch n.Kind {
	case KindSet, KindFilter, KindFork, KindPassthrough:
		if len(n.Sources) > 1 {
			return NewInvalidGraphError(n.Name, fmt.Sprintf("a %s takes at most one source", n.Kind))
		}
	case KindObserver:
		if len(n.Sources) != 1 {
			return NewInvalidGraphError(n.Name, "an Observer takes exactly one source")
		}
	case KindUnion:
	default:
		return NewInvalidGraphError(n.Name, fmt.Sprintf("unknown kind %q", n.Kind))
	}

	if n.Kind == KindFilter && n.Predicate == nil {
		return NewInvalidGraphError(n.Name, "a Filter requires a predicate")
	}
	if n.Kind != KindFilter && n.Predicate != nil {
		return NewInvalidGraphError(n.Name, "only a Filter may have a predicate")
	}
	if n.Kind != KindSet && (len(n.Values) > 0 || n.StrictKeys) {
		return NewInvalidGraphError(n.Name, "only a Set may have values or strict keys")
	}

	if n.Key != nil {
		if _, err := key.New(n.Key...); err != nil {
			return NewInvalidGraphError(n.Name, err.Error())
		}
	}

	return nil
}

// GetKey returns the key of the node or the default key.
func (n *Node) GetKey() key.Key {
	if len(n.Key) == 0 {
		return key.Default
	}
	return key.Key(n.Key)
}

// GetValues returns the initial values of the node.
func (n *Node) GetValues() []value.Value {
	ret := make([]value.Value, 0, len(n.Values))
	for _, o := range n.Values {
		ret = append(ret, value.Value(o))
	}
	return ret
}

// Validate checks the transaction and its payload.
func (t *Transaction) Validate() error {
	if t.Target == "" {
		return NewInvalidTransactionError("missing target")
	}
	_, err := t.ToTransaction()
	return err
}

// ToTransaction converts the actions into a pipelet transaction. Unknown action names are
// converted into unknown action kinds and rejected by the target when applied.
func (t *Transaction) ToTransaction() (pipelet.Transaction, error) {
	tx := make(pipelet.Transaction, 0, len(t.Actions))
	for i, a := range t.Actions {
		d, err := a.ToDelta()
		if err != nil {
			return nil, NewInvalidTransactionError(fmt.Sprintf("action %d: %s", i, err.Error()))
		}
		tx = append(tx, d)
	}
	return tx, nil
}

// ToDelta converts an action into a delta.
func (a *Action) ToDelta() (pipelet.Delta, error) {
	kind, err := pipelet.ParseActionKind(a.Action)
	if err != nil {
		return pipelet.Delta{Kind: pipelet.ActionUnknown}, nil //nolint:nilerr
	}

	d := pipelet.Delta{Kind: kind}
	switch kind {
	case pipelet.ActionAdd, pipelet.ActionRemove:
		for _, o := range a.Objects {
			v, ok := o.(map[string]any)
			if !ok {
				return d, fmt.Errorf("%s: expected an object, got %s", a.Action, value.Stringify(o))
			}
			d.Values = append(d.Values, v)
		}

	case pipelet.ActionUpdate:
		for _, o := range a.Objects {
			pair, ok := o.([]any)
			if !ok || len(pair) != 2 {
				return d, fmt.Errorf("update: expected a [previous, current] pair, got %s", value.Stringify(o))
			}
			prev, ok1 := pair[0].(map[string]any)
			cur, ok2 := pair[1].(map[string]any)
			if !ok1 || !ok2 {
				return d, fmt.Errorf("update: expected a pair of objects, got %s", value.Stringify(o))
			}
			d.Updates = append(d.Updates, pipelet.Update{Previous: prev, Current: cur})
		}
	}

	return d, nil
}
