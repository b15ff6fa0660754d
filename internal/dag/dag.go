// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dag implements a small directed graph of string labels with a deterministic
// topological order. Nodes keep their insertion order, which is used to break ties.
package dag

import (
	"sort"
)

type Graph struct {
	Nodes   []string
	byLabel map[string]int
	edges   map[string]map[string]bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{byLabel: map[string]int{}, edges: map[string]map[string]bool{}}
}

func (g *Graph) AddNode(label string) bool {
	if _, ok := g.byLabel[label]; ok {
		return false
	}
	g.byLabel[label] = len(g.Nodes)
	g.Nodes = append(g.Nodes, label)
	g.edges[label] = map[string]bool{}
	return true
}

func (g *Graph) HasNode(label string) bool {
	_, ok := g.byLabel[label]
	return ok
}

// AddEdge adds an edge between two existing nodes.
func (g *Graph) AddEdge(from, to string) {
	g.edges[from][to] = true
}

func (g *Graph) DelEdge(from, to string) {
	delete(g.edges[from], to)
}

func (g *Graph) HasEdge(from, to string) bool {
	return g.edges[from] != nil && g.edges[from][to]
}

// Edges returns the successors of a node in insertion order.
func (g *Graph) Edges(from string) []string {
	edges := make([]string, 0, len(g.edges[from]))
	for k := range g.edges[from] {
		edges = append(edges, k)
	}
	sort.Slice(edges, func(i, j int) bool { return g.byLabel[edges[i]] < g.byLabel[edges[j]] })
	return edges
}

// Roots returns the roots of the graph, i.e., the nodes without an incoming edge.
func (g *Graph) Roots() []string {
	roots := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if g.inDegree(n) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

func (g *Graph) inDegree(to string) int {
	d := 0
	for _, from := range g.Nodes {
		if g.HasEdge(from, to) {
			d++
		}
	}
	return d
}
