// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBrokenPath is returned when a node/edge sequence does not form a walk.
var ErrBrokenPath = errors.New("edge sequence does not connect node sequence")

// Path is an ordered walk through the graph.
//
// Invariants:
//   - len(Nodes) == len(Edges)+1 for a non-empty path
//   - Edges[i] connects Nodes[i] to Nodes[i+1]
//   - Distance is the sum of Edges[i].Weight()
type Path struct {
	Nodes    []*Node
	Edges    []*Edge
	Distance float64
}

// NewPath builds a path and computes its distance from the edge weights.
//
// Outputs:
//
//	Path - The assembled path.
//	error - ErrBrokenPath if the sequences do not line up.
func NewPath(nodes []*Node, edges []*Edge) (Path, error) {
	p := Path{Nodes: nodes, Edges: edges}
	if err := p.check(); err != nil {
		return Path{}, err
	}
	for _, e := range edges {
		p.Distance += e.Weight()
	}
	return p, nil
}

func (p Path) check() error {
	if len(p.Nodes) == 0 && len(p.Edges) == 0 {
		return nil
	}
	if len(p.Nodes) != len(p.Edges)+1 {
		return fmt.Errorf("%w: %d nodes, %d edges", ErrBrokenPath, len(p.Nodes), len(p.Edges))
	}
	for i, e := range p.Edges {
		if e.FromID != p.Nodes[i].ID || e.ToID != p.Nodes[i+1].ID {
			return fmt.Errorf("%w: edge %s at position %d", ErrBrokenPath, e.ID, i)
		}
	}
	return nil
}

// Valid reports whether the path satisfies its structural invariants.
func (p Path) Valid() bool {
	return p.check() == nil
}

// IsEmpty reports whether the path traverses no edges.
func (p Path) IsEmpty() bool {
	return len(p.Edges) == 0
}

// Len returns the number of edges.
func (p Path) Len() int {
	return len(p.Edges)
}

// Source returns the first node, or nil for a path without nodes.
func (p Path) Source() *Node {
	if len(p.Nodes) == 0 {
		return nil
	}
	return p.Nodes[0]
}

// Target returns the terminal node, or nil for a path without nodes.
func (p Path) Target() *Node {
	if len(p.Nodes) == 0 {
		return nil
	}
	return p.Nodes[len(p.Nodes)-1]
}

// LastEdge returns the final hop, or nil for an empty path.
func (p Path) LastEdge() *Edge {
	if len(p.Edges) == 0 {
		return nil
	}
	return p.Edges[len(p.Edges)-1]
}

// Interior returns the nodes strictly between source and target.
func (p Path) Interior() []*Node {
	if len(p.Nodes) <= 2 {
		return nil
	}
	return p.Nodes[1 : len(p.Nodes)-1]
}

// NodeIDs returns the node handles in order.
func (p Path) NodeIDs() []string {
	ids := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// EdgeIDs returns the edge handles in order.
func (p Path) EdgeIDs() []string {
	ids := make([]string, len(p.Edges))
	for i, e := range p.Edges {
		ids[i] = e.ID
	}
	return ids
}

// String renders the path as "a -[type]-> b ...".
func (p Path) String() string {
	if len(p.Nodes) == 0 {
		return "<empty>"
	}
	var b strings.Builder
	b.WriteString(p.Nodes[0].ID)
	for i, e := range p.Edges {
		fmt.Fprintf(&b, " -[%s]-> %s", e.Type, p.Nodes[i+1].ID)
	}
	return b.String()
}
