// Copyright 2024 The Erigon Authors
// (original work)
// Copyright 2026 The CasperLabs Authors
// (modifications)
// This file is part of BlockDAG.
//
// BlockDAG is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// BlockDAG is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with BlockDAG. If not, see <http://www.gnu.org/licenses/>.

// Package dagviz renders a dag.Representation's topo-sort window as a
// Graphviz DOT graph, for operational debugging of fork structure.
package dagviz

import (
	"fmt"

	"github.com/emicklei/dot"

	"github.com/casperlabs/blockdag/dag"
)

// Window renders every block in rep's topo-sort slice starting at
// startBlockNumber as a DOT graph: one node per block, one edge per
// parent-child link, labeled with the block's short hash and number.
func Window(rep *dag.Representation, startBlockNumber int64) (*dot.Graph, error) {
	rows, err := rep.TopoSort(startBlockNumber)
	if err != nil {
		return nil, fmt.Errorf("dagviz: load topo sort: %w", err)
	}

	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "BT")

	nodes := make(map[string]dot.Node)
	for _, row := range rows {
		for _, h := range row {
			m, ok := rep.Lookup(h)
			if !ok {
				continue
			}
			n := g.Node(h.Key())
			n.Label(fmt.Sprintf("%s\\n#%d", shortHash(h), m.BlockNum))
			if m.Invalid {
				n.Attr("color", "red")
			}
			nodes[h.Key()] = n
		}
	}
	for _, row := range rows {
		for _, h := range row {
			m, ok := rep.Lookup(h)
			if !ok {
				continue
			}
			child, ok := nodes[h.Key()]
			if !ok {
				continue
			}
			for _, p := range m.Parents {
				parent, ok := nodes[p.Key()]
				if !ok {
					continue
				}
				g.Edge(child, parent)
			}
		}
	}
	return g, nil
}

// Ancestors renders the ancestor cone of a single block: head plus every
// block reachable by following Parents, up to depth steps (depth <= 0
// means unbounded).
func Ancestors(rep *dag.Representation, head dag.BlockHash, depth int) (*dot.Graph, error) {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "BT")

	nodes := make(map[string]dot.Node)
	frontier := []dag.BlockHash{head}
	for step := 0; len(frontier) > 0 && (depth <= 0 || step < depth); step++ {
		var next []dag.BlockHash
		for _, h := range frontier {
			m, ok := rep.Lookup(h)
			if !ok {
				continue
			}
			n, seen := nodes[h.Key()]
			if !seen {
				n = g.Node(h.Key())
				n.Label(fmt.Sprintf("%s\\n#%d", shortHash(h), m.BlockNum))
				nodes[h.Key()] = n
			}
			for _, p := range m.Parents {
				pm, ok := rep.Lookup(p)
				if !ok {
					continue
				}
				pn, seen := nodes[p.Key()]
				if !seen {
					pn = g.Node(p.Key())
					pn.Label(fmt.Sprintf("%s\\n#%d", shortHash(p), pm.BlockNum))
					nodes[p.Key()] = pn
				}
				g.Edge(n, pn)
				next = append(next, p)
			}
		}
		frontier = next
	}
	return g, nil
}

func shortHash(h dag.BlockHash) string {
	s := h.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
