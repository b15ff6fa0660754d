// Package v1alpha1 contains the declarative format of pipelet graphs and transaction streams.
package v1alpha1

import (
	"k8s.io/apimachinery/pkg/util/json"

	"github.com/l7mp/pipelet/pkg/expression"
)

// Graph is a named set of pipelets wired together by source references.
type Graph struct {
	// Name is the name of the graph.
	Name string `json:"name"`
	// Nodes are the pipelets of the graph. Order is irrelevant, nodes are built in
	// topological order.
	Nodes []Node `json:"nodes"`
}

// NodeKind is the type of a pipelet.
type NodeKind string

const (
	KindSet         NodeKind = "Set"
	KindFilter      NodeKind = "Filter"
	KindFork        NodeKind = "Fork"
	KindUnion       NodeKind = "Union"
	KindPassthrough NodeKind = "Passthrough"
	KindObserver    NodeKind = "Observer"
)

// Node is a single pipelet in a graph.
type Node struct {
	// Name is the unique name of the node.
	Name string `json:"name"`
	// Kind is the type of the node.
	Kind NodeKind `json:"kind"`
	// Sources are the names of the upstream nodes. Only a Union may have more than one.
	Sources []string `json:"sources,omitempty"`
	// Key is the list of fields that identify a value. Default is ["id"].
	Key []string `json:"key,omitempty"`
	// Values are the initial values of a Set.
	Values []Object `json:"values,omitempty"`
	// Predicate is the boolean expression of a Filter, evaluated with the candidate value as
	// the JSONPath root.
	//
	// +kubebuilder:validation:Schemaless
	// +kubebuilder:pruning:PreserveUnknownFields
	Predicate *expression.Expression `json:"predicate,omitempty"`
	// StrictKeys makes a Set drop added values with a key that is already held.
	StrictKeys bool `json:"strictKeys,omitempty"`
}

// Transaction is a batch of actions applied to a single node.
type Transaction struct {
	// Target is the name of the node the transaction is applied to.
	Target string `json:"target"`
	// Clear empties the target before the actions are applied.
	Clear bool `json:"clear,omitempty"`
	// Actions are applied in order.
	Actions []Action `json:"actions,omitempty"`
}

// Action is a single change in a transaction.
type Action struct {
	// Action is one of "add", "remove" or "update".
	Action string `json:"action"`
	// Objects is the payload of the action: a list of values for add and remove, a list of
	// [previous, current] pairs for update.
	Objects ObjectList `json:"objects"`
}

// Object is a value literal. Integers are decoded as int64.
type Object map[string]any

func (o *Object) UnmarshalJSON(b []byte) error {
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*o = m
	return nil
}

// ObjectList is an untyped list of literals. Integers are decoded as int64.
type ObjectList []any

func (l *ObjectList) UnmarshalJSON(b []byte) error {
	vs := []any{}
	if err := json.Unmarshal(b, &vs); err != nil {
		return err
	}
	*l = vs
	return nil
}
