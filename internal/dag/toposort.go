// Copyright 2024 rg0now. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is returned by TopoSort for a graph that is not acyclic.
var ErrCycle = errors.New("graph contains a cycle")

// TopoSort returns the nodes so that every node comes after all of its predecessors. Among the
// nodes that are ready at the same time the one inserted first comes first.
func (g *Graph) TopoSort() ([]string, error) {
	deg := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		deg[n] = g.inDegree(n)
	}

	ret := make([]string, 0, len(g.Nodes))
	done := make(map[string]bool, len(g.Nodes))
	for len(ret) < len(g.Nodes) {
		next := ""
		for _, n := range g.Nodes {
			if !done[n] && deg[n] == 0 {
				next = n
				break
			}
		}

		if next == "" {
			rest := []string{}
			for _, n := range g.Nodes {
				if !done[n] {
					rest = append(rest, n)
				}
			}
			return nil, fmt.Errorf("%w among nodes %s", ErrCycle, strings.Join(rest, ","))
		}

		done[next] = true
		ret = append(ret, next)
		for _, m := range g.Edges(next) {
			deg[m]--
		}
	}

	return ret, nil
}
