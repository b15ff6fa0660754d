// Package visualize renders pipelet graphs as diagrams.
package visualize

import (
	"fmt"
	"strings"

	"github.com/emicklei/dot"

	"github.com/l7mp/pipelet/pkg/api/v1alpha1"
	"github.com/l7mp/pipelet/pkg/engine"
	"github.com/l7mp/pipelet/pkg/pipelet"
)

// Graph represents the visualization graph of a running engine.
type Graph struct {
	Name  string
	Nodes []Node
	Edges []engine.Edge
}

// Node represents a single pipelet in the graph.
type Node struct {
	Name    string
	Kind    v1alpha1.NodeKind
	Key     string
	Details []string
	// Root is set for nodes without a source.
	Root bool
}

// BuildGraph constructs a visualization graph from an engine.
func BuildGraph(e *engine.Engine) (*Graph, error) {
	g := &Graph{Name: e.Name(), Edges: e.Edges()}

	roots := map[string]bool{}
	for _, name := range e.Roots() {
		roots[name] = true
	}

	for _, name := range e.Nodes() {
		kind, err := e.Kind(name)
		if err != nil {
			return nil, err
		}
		p, err := e.Node(name)
		if err != nil {
			return nil, err
		}

		node := Node{Name: name, Kind: kind, Key: p.Key().String(), Root: roots[name]}
		switch x := p.(type) {
		case *pipelet.Set:
			node.Details = append(node.Details, fmt.Sprintf("size: %d", x.Len()))
		case *pipelet.Filter:
			node.Details = append(node.Details, x.Predicate().String())
		}

		g.Nodes = append(g.Nodes, node)
	}

	return g, nil
}

// Label returns the display label of a node.
func (n Node) Label() string {
	label := fmt.Sprintf("%s: %s %s", n.Name, n.Kind, n.Key)
	if len(n.Details) > 0 {
		label += "\n" + strings.Join(n.Details, "\n")
	}
	return label
}

type style struct {
	shape, style, fill string
}

var styles = map[v1alpha1.NodeKind]style{
	v1alpha1.KindSet:         {"box", "filled,rounded", "lightblue"},
	v1alpha1.KindFilter:      {"box", "filled", "lightyellow"},
	v1alpha1.KindFork:        {"diamond", "filled", "lightgreen"},
	v1alpha1.KindUnion:       {"invtriangle", "filled", "lightgreen"},
	v1alpha1.KindPassthrough: {"ellipse", "filled", "white"},
	v1alpha1.KindObserver:    {"ellipse", "filled", "lightcyan"},
}

// BuildDotGraph creates a dot.Graph from the visualization graph. The graph can then be rendered
// in different formats (DOT, Mermaid, etc.).
func BuildDotGraph(g *Graph) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "LR")
	graph.Attr("newrank", "true")
	graph.Attr("label", g.Name)
	graph.Attr("labelloc", "t")
	graph.Attr("fontsize", "16")

	nodes := make(map[string]dot.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		s, ok := styles[n.Kind]
		if !ok {
			s = style{"box", "filled", "white"}
		}

		nodes[n.Name] = graph.Node(n.Name).
			Attr("label", n.Label()).
			Attr("shape", s.shape).
			Attr("style", s.style).
			Attr("fillcolor", s.fill).
			Attr("fontname", "helvetica")
		if n.Root {
			nodes[n.Name].Attr("peripheries", "2")
		}
	}

	for _, e := range g.Edges {
		from, fromExists := nodes[e.From]
		to, toExists := nodes[e.To]
		if fromExists && toExists {
			graph.Edge(from, to).
				Attr("fontname", "helvetica").
				Attr("fontsize", "10")
		}
	}

	return graph
}
