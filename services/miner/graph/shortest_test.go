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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortestPaths_Chain(t *testing.T) {
	g := NewGraph("chain")
	for _, id := range []string{"A", "B", "C", "D"} {
		mustNode(t, g, id, LabelRecordDeclaration)
	}
	mustEdge(t, g, "ab", "A", "B", EdgeTypeRefersTo)
	mustEdge(t, g, "bc", "B", "C", EdgeTypeRefersTo)
	mustEdge(t, g, "cd", "C", "D", EdgeTypeRefersTo)

	tree, err := g.ShortestPaths("A")
	require.NoError(t, err)

	for target, want := range map[string]float64{"A": 0, "B": 1, "C": 2, "D": 3} {
		d, ok := tree.Distance(target)
		require.True(t, ok, target)
		assert.Equal(t, want, d, target)
	}

	p, ok := tree.PathTo("C")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "C"}, p.NodeIDs())
	assert.Equal(t, []string{"ab", "bc"}, p.EdgeIDs())
	assert.Equal(t, 2.0, p.Distance)

	self, ok := tree.PathTo("A")
	require.True(t, ok)
	assert.True(t, self.IsEmpty())
	assert.Len(t, self.Nodes, 1)

	assert.Equal(t, []string{"A", "B", "C", "D"}, tree.Reached())
}

func TestShortestPaths_Unreachable(t *testing.T) {
	g := NewGraph("test")
	mustNode(t, g, "A")
	mustNode(t, g, "B")
	mustEdge(t, g, "ba", "B", "A", EdgeTypeRefersTo)

	tree, err := g.ShortestPaths("A")
	require.NoError(t, err)

	_, ok := tree.PathTo("B")
	assert.False(t, ok, "edges are directed")
}

func TestShortestPaths_MissingSource(t *testing.T) {
	g := NewGraph("test")
	_, err := g.ShortestPaths("ghost")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestShortestPaths_RespectsWeights(t *testing.T) {
	g := NewGraph("test")
	for _, id := range []string{"A", "B", "C"} {
		mustNode(t, g, id)
	}
	_, err := g.AddEdge("ac", "A", "C", EdgeTypeRefersTo, map[string]any{AttrWeight: 5})
	require.NoError(t, err)
	mustEdge(t, g, "ab", "A", "B", EdgeTypeRefersTo)
	mustEdge(t, g, "bc", "B", "C", EdgeTypeRefersTo)

	tree, err := g.ShortestPaths("A")
	require.NoError(t, err)

	p, ok := tree.PathTo("C")
	require.True(t, ok)
	assert.Equal(t, []string{"ab", "bc"}, p.EdgeIDs())
	assert.Equal(t, 2.0, p.Distance)
}

func TestShortestPaths_TieBreakLowestEdgeID(t *testing.T) {
	// Two equal-cost routes into T: via X (edge "z-final") and via Y
	// (edge "a-final"). The lower final-hop edge ID must win regardless of
	// insertion order.
	build := func(order []string) *Graph {
		g := NewGraph("tie")
		for _, id := range []string{"S", "X", "Y", "T"} {
			mustNode(t, g, id)
		}
		edges := map[string][2]string{
			"sx":      {"S", "X"},
			"sy":      {"S", "Y"},
			"z-final": {"X", "T"},
			"a-final": {"Y", "T"},
		}
		for _, id := range order {
			mustEdge(t, g, id, edges[id][0], edges[id][1], EdgeTypeRefersTo)
		}
		return g
	}

	for _, order := range [][]string{
		{"sx", "sy", "z-final", "a-final"},
		{"sy", "sx", "a-final", "z-final"},
	} {
		tree, err := build(order).ShortestPaths("S")
		require.NoError(t, err)
		p, ok := tree.PathTo("T")
		require.True(t, ok)
		assert.Equal(t, "a-final", p.LastEdge().ID, "order %v", order)
		assert.Equal(t, 2.0, p.Distance)
	}
}

func TestShortestPaths_Cycle(t *testing.T) {
	g := NewGraph("cycle")
	for _, id := range []string{"A", "B", "C"} {
		mustNode(t, g, id)
	}
	mustEdge(t, g, "ab", "A", "B", EdgeTypeRefersTo)
	mustEdge(t, g, "bc", "B", "C", EdgeTypeRefersTo)
	mustEdge(t, g, "ca", "C", "A", EdgeTypeRefersTo)

	tree, err := g.ShortestPaths("A")
	require.NoError(t, err)
	p, ok := tree.PathTo("C")
	require.True(t, ok)
	assert.Equal(t, 2, p.Len())
}
