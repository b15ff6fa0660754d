// Package engine builds a pipelet graph from its declarative form and applies transaction
// streams to it. The engine serializes every mutation of the graph behind a mutex.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/l7mp/pipelet/internal/dag"
	"github.com/l7mp/pipelet/pkg/api/v1alpha1"
	"github.com/l7mp/pipelet/pkg/pipelet"
	"github.com/l7mp/pipelet/pkg/value"
)

// ErrUnknownNode is returned for a reference to a node that does not exist.
var ErrUnknownNode = errors.New("unknown node")

func NewUnknownNodeError(name string) error {
	return fmt.Errorf("%w %q", ErrUnknownNode, name)
}

// Edge is a wire between two nodes of the graph.
type Edge struct {
	From, To string
}

type node struct {
	spec    v1alpha1.Node
	pipelet pipelet.Pipelet
	sources []string
}

// Option configures an engine.
type Option func(*Engine)

// WithRegistry registers the metrics of the engine on a Prometheus registerer.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.registry = reg }
}

// Engine is a running pipelet graph.
type Engine struct {
	name     string
	nodes    map[string]*node
	order    []string
	dag      *dag.Graph
	watches  int
	metrics  *metrics
	registry prometheus.Registerer
	log      logr.Logger
	mu       sync.Mutex
}

// New builds the graph: nodes are created and connected in topological order, so every node
// bootstraps from an upstream that already holds its initial state.
func New(g *v1alpha1.Graph, log logr.Logger, opts ...Option) (*Engine, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		name:    g.Name,
		nodes:   map[string]*node{},
		metrics: newMetrics(),
		log:     log.WithName("engine").WithValues("graph", g.Name),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry != nil {
		if err := e.metrics.register(e.registry); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	d := dag.New()
	for i := range g.Nodes {
		n := g.Nodes[i]
		d.AddNode(n.Name)
		e.nodes[n.Name] = &node{spec: n, sources: append([]string(nil), n.Sources...)}
	}
	for _, n := range g.Nodes {
		for _, src := range n.Sources {
			if !d.HasNode(src) {
				return nil, v1alpha1.NewInvalidGraphError(n.Name, fmt.Sprintf("unknown source %q", src))
			}
			d.AddEdge(src, n.Name)
		}
	}

	order, err := d.TopoSort()
	if err != nil {
		return nil, v1alpha1.NewInvalidGraphError("", err.Error())
	}
	e.order = order
	e.dag = d

	for _, name := range order {
		n := e.nodes[name]
		p, err := e.build(n)
		if err != nil {
			return nil, fmt.Errorf("failed to build node %q: %w", name, err)
		}
		n.pipelet = p

		if n.spec.Kind != v1alpha1.KindUnion && len(n.sources) == 1 {
			if err := p.SetSource(e.nodes[n.sources[0]].pipelet); err != nil {
				return nil, fmt.Errorf("failed to connect node %q: %w", name, err)
			}
		}

		e.log.V(2).Info("node ready", "node", name, "kind", n.spec.Kind, "sources", n.sources)
	}

	e.refreshSizes()
	e.log.V(1).Info("graph ready", "nodes", len(order))

	return e, nil
}

func (e *Engine) build(n *node) (pipelet.Pipelet, error) {
	opts := []pipelet.Option{
		pipelet.WithKey(n.spec.GetKey()),
		pipelet.WithLogger(e.log.WithName("pipelet")),
	}
	if n.spec.StrictKeys {
		opts = append(opts, pipelet.WithStrictKeys())
	}

	name := n.spec.Name
	switch n.spec.Kind {
	case v1alpha1.KindSet:
		return pipelet.NewSet(name, n.spec.GetValues(), opts...)
	case v1alpha1.KindFilter:
		return pipelet.NewFilter(name, pipelet.PredicateExpression(*n.spec.Predicate), opts...)
	case v1alpha1.KindFork:
		return pipelet.NewFork(name, opts...)
	case v1alpha1.KindPassthrough:
		return pipelet.NewPassthrough(name, opts...)
	case v1alpha1.KindUnion:
		sources := make([]pipelet.Source, 0, len(n.sources))
		for _, s := range n.sources {
			sources = append(sources, e.nodes[s].pipelet)
		}
		return pipelet.NewUnion(name, sources, opts...)
	case v1alpha1.KindObserver:
		log := e.log.WithValues("observer", name)
		return pipelet.NewObserver(name, func(d pipelet.Delta) error {
			log.Info("delta", "action", d.Kind.String(), "size", d.Len(), "delta", d.String())
			return nil
		}, opts...)
	default:
		return nil, v1alpha1.NewInvalidGraphError(name, fmt.Sprintf("unknown kind %q", n.spec.Kind))
	}
}

// Name returns the name of the graph.
func (e *Engine) Name() string { return e.name }

// Nodes returns the node names in topological order.
func (e *Engine) Nodes() []string {
	return append([]string(nil), e.order...)
}

// Kind returns the kind of a node.
func (e *Engine) Kind(name string) (v1alpha1.NodeKind, error) {
	n, ok := e.nodes[name]
	if !ok {
		return "", NewUnknownNodeError(name)
	}
	return n.spec.Kind, nil
}

// Node returns the pipelet of a node. The pipelet must not be mutated concurrently with the
// engine.
func (e *Engine) Node(name string) (pipelet.Pipelet, error) {
	n, ok := e.nodes[name]
	if !ok {
		return nil, NewUnknownNodeError(name)
	}
	return n.pipelet, nil
}

// Roots returns the nodes without a source in topological order.
func (e *Engine) Roots() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	roots := e.dag.Roots()
	pos := make(map[string]int, len(e.order))
	for i, name := range e.order {
		pos[name] = i
	}
	sort.Slice(roots, func(i, j int) bool { return pos[roots[i]] < pos[roots[j]] })
	return roots
}

// Edges returns the wires of the graph in topological order of the destinations.
func (e *Engine) Edges() []Edge {
	e.mu.Lock()
	defer e.mu.Unlock()

	ret := []Edge{}
	for _, name := range e.order {
		for _, src := range e.nodes[name].sources {
			ret = append(ret, Edge{From: src, To: name})
		}
	}
	return ret
}

// Get returns the current content of a node.
func (e *Engine) Get(name string) ([]value.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[name]
	if !ok {
		return nil, NewUnknownNodeError(name)
	}
	return pipelet.Get(n.pipelet)
}

// Apply applies a transaction to its target node: the target is cleared first if requested and
// then the actions are notified to the target.
func (e *Engine) Apply(tx v1alpha1.Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[tx.Target]
	if !ok {
		return NewUnknownNodeError(tx.Target)
	}

	err := e.apply(n, tx)
	if err != nil {
		e.metrics.applyErrors.WithLabelValues(tx.Target).Inc()
		e.log.V(1).Info("transaction failed", "target", tx.Target, "error", err.Error())
	}

	e.refreshSizes()
	return err
}

func (e *Engine) apply(n *node, tx v1alpha1.Transaction) error {
	ptx, err := tx.ToTransaction()
	if err != nil {
		return err
	}

	// every action is checked before the clear cascades downstream
	for _, d := range ptx {
		if !n.pipelet.SupportsAction(d.Kind) {
			return pipelet.NewUnsupportedActionError(n.spec.Name, d.Kind)
		}
	}

	if tx.Clear {
		if err := n.pipelet.Clear(); err != nil {
			return err
		}
		e.metrics.actions.WithLabelValues(tx.Target, pipelet.ActionClear.String()).Inc()
	}

	if err := n.pipelet.Notify(ptx); err != nil {
		return err
	}

	for _, d := range ptx {
		e.metrics.actions.WithLabelValues(tx.Target, d.Kind.String()).Add(float64(d.Len()))
	}

	e.log.V(4).Info("transaction applied", "target", tx.Target, "actions", len(ptx))
	return nil
}

// ApplyAll applies a transaction stream in order and stops at the first error.
func (e *Engine) ApplyAll(txs []v1alpha1.Transaction) error {
	for i, tx := range txs {
		if err := e.Apply(tx); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}

// Clear empties a node, cascading the clear downstream.
func (e *Engine) Clear(name string) error {
	return e.Apply(v1alpha1.Transaction{Target: name, Clear: true})
}

// Disconnect detaches a node from all of its sources. The node and its downstream are emptied.
func (e *Engine) Disconnect(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[name]
	if !ok {
		return NewUnknownNodeError(name)
	}

	if err := n.pipelet.SetSource(nil); err != nil {
		return err
	}
	for _, src := range n.sources {
		e.dag.DelEdge(src, name)
	}
	n.sources = nil

	e.refreshSizes()
	e.log.V(2).Info("node disconnected", "node", name)
	return nil
}

// Watch calls the function with the current content of a node as an add delta and then with
// every delta the node emits. The function is called with the engine lock held and must not call
// the engine. The returned function cancels the watch.
func (e *Engine) Watch(name string, fn pipelet.ObserverFunc) (func() error, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[name]
	if !ok {
		return nil, NewUnknownNodeError(name)
	}

	e.watches++
	obs, err := pipelet.NewObserver(fmt.Sprintf("%s-watch-%d", name, e.watches), fn,
		pipelet.WithKey(n.pipelet.Key()), pipelet.WithLogger(e.log.WithName("watch")))
	if err != nil {
		return nil, err
	}
	if err := obs.SetSource(n.pipelet); err != nil {
		return nil, err
	}

	return func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		return n.pipelet.RemoveDestination(obs)
	}, nil
}

func (e *Engine) refreshSizes() {
	for _, name := range e.order {
		if s, ok := e.nodes[name].pipelet.(*pipelet.Set); ok {
			e.metrics.setSize.WithLabelValues(name).Set(float64(s.Len()))
		}
	}
}
