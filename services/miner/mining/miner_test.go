// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mining

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
)

func addRecord(t *testing.T, g *graph.Graph, id string) {
	t.Helper()
	_, err := g.AddNode(id, []string{graph.LabelRecordDeclaration}, map[string]any{graph.AttrFullName: "app." + id})
	require.NoError(t, err)
}

func addPlain(t *testing.T, g *graph.Graph, id string) {
	t.Helper()
	_, err := g.AddNode(id, nil, nil)
	require.NoError(t, err)
}

func link(t *testing.T, g *graph.Graph, id, from, to string) {
	t.Helper()
	_, err := g.AddEdge(id, from, to, graph.EdgeTypeRefersTo, nil)
	require.NoError(t, err)
}

func chain(t *testing.T) *graph.Graph {
	g := graph.NewGraph("chain")
	for _, id := range []string{"A", "B", "C", "D"} {
		addRecord(t, g, id)
	}
	link(t, g, "ab", "A", "B")
	link(t, g, "bc", "B", "C")
	link(t, g, "cd", "C", "D")
	return g
}

func isID(id string) func(*graph.Node) bool {
	return func(n *graph.Node) bool { return n.ID == id }
}

func assertPathInvariants(t *testing.T, p graph.Path) {
	t.Helper()
	assert.Equal(t, len(p.Edges)+1, len(p.Nodes))
	sum := 0.0
	for _, e := range p.Edges {
		sum += e.Weight()
	}
	assert.Equal(t, sum, p.Distance)
	assert.True(t, p.Valid())
}

func TestSearchVariants_Chain(t *testing.T) {
	g := chain(t)

	paths, err := SearchVariants(g, "A", (*graph.Node).IsRecord, 2, DefaultRounds)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	assert.Equal(t, []string{"A", "B"}, paths[0].NodeIDs())
	assert.Equal(t, 1.0, paths[0].Distance)
	assert.Equal(t, []string{"A", "B", "C"}, paths[1].NodeIDs())
	assert.Equal(t, 2.0, paths[1].Distance)

	for _, p := range paths {
		assertPathInvariants(t, p)
	}
	assert.Equal(t, 3, g.EdgeCount(), "input graph is not modified")
}

func TestSearchVariants_RemovingDirectEdgeForcesDetour(t *testing.T) {
	g := chain(t)
	link(t, g, "ad", "A", "D")

	paths, err := SearchVariants(g, "A", isID("D"), 10, DefaultRounds)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	assert.Equal(t, []string{"ad"}, paths[0].EdgeIDs())
	assert.Equal(t, []string{"ab", "bc", "cd"}, paths[1].EdgeIDs())
	assert.Equal(t, 3.0, paths[1].Distance)
}

// With every record as a target, round one also removes ab and bc (the
// last hops to B and C), so A has no outgoing edges left and the A-B-C-D
// detour is never produced. Mine behaves this way.
func TestSearchVariants_RecordTargetsPruneEveryLastHop(t *testing.T) {
	g := chain(t)
	link(t, g, "ad", "A", "D")

	paths, err := SearchVariants(g, "A", (*graph.Node).IsRecord, 10, DefaultRounds)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	var lastHops []string
	for _, p := range paths {
		lastHops = append(lastHops, p.LastEdge().ID)
		assert.NotEqual(t, []string{"ab", "bc", "cd"}, p.EdgeIDs())
	}
	assert.Equal(t, []string{"ab", "bc", "ad"}, lastHops)
}

func TestSearchVariants_DistanceBound(t *testing.T) {
	g := chain(t)
	link(t, g, "ad", "A", "D")

	paths, err := SearchVariants(g, "A", isID("D"), 2, DefaultRounds)
	require.NoError(t, err)
	require.Len(t, paths, 1, "the detour of length 3 exceeds the bound")
}

func TestSearchVariants_RoundLimit(t *testing.T) {
	g := graph.NewGraph("fan")
	addRecord(t, g, "S")
	addRecord(t, g, "T")
	for _, mid := range []string{"m1", "m2", "m3"} {
		addPlain(t, g, mid)
		link(t, g, "s-"+mid, "S", mid)
		link(t, g, mid+"-t", mid, "T")
	}

	paths, err := SearchVariants(g, "S", isID("T"), 10, 2)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "m1-t", paths[0].LastEdge().ID)
	assert.Equal(t, "m2-t", paths[1].LastEdge().ID)

	paths, err = SearchVariants(g, "S", isID("T"), 10, 10)
	require.NoError(t, err)
	assert.Len(t, paths, 3, "stops early once T is unreachable")
}

func TestIsolate_StopsAtOtherRecords(t *testing.T) {
	g := chain(t)

	sub, err := Isolate(g, "A", DefaultMaxDepth)
	require.NoError(t, err)

	var ids []string
	for id := range sub.Nodes() {
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"A", "B"}, ids)
	assert.True(t, sub.HasEdge("ab"), "the arriving edge is kept")
	assert.False(t, sub.HasEdge("bc"))
}

func TestIsolate_DepthBoundAndBackEdges(t *testing.T) {
	g := graph.NewGraph("deep")
	addRecord(t, g, "R")
	for _, id := range []string{"x1", "x2", "x3"} {
		addPlain(t, g, id)
	}
	link(t, g, "r1", "R", "x1")
	link(t, g, "12", "x1", "x2")
	link(t, g, "1r", "x1", "R")
	link(t, g, "23", "x2", "x3")

	sub, err := Isolate(g, "R", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, sub.NodeCount())
	assert.True(t, sub.HasEdge("1r"), "edges back to visited nodes are copied")
	assert.False(t, sub.HasEdge("23"), "nodes at the depth bound are not expanded")

	// Shared node values.
	orig, _ := g.GetNode("x1")
	copied, _ := sub.GetNode("x1")
	assert.Same(t, orig, copied)
}

func TestIsolate_MissingRecord(t *testing.T) {
	_, err := Isolate(graph.NewGraph("empty"), "ghost", 3)
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestMiner_Mine(t *testing.T) {
	g := graph.NewGraph("shop")
	addRecord(t, g, "Shop")
	addRecord(t, g, "Item")
	addRecord(t, g, "Cart")
	addPlain(t, g, "newItem")
	addPlain(t, g, "field")
	link(t, g, "s1", "Shop", "newItem")
	_, err := g.AddEdge("s2", "newItem", "Item", graph.EdgeTypeInstantiates, nil)
	require.NoError(t, err)
	link(t, g, "s3", "Shop", "field")
	link(t, g, "s4", "field", "Item")
	link(t, g, "c1", "Cart", "Item")

	m, err := NewMiner(DefaultConfig(), nil)
	require.NoError(t, err)

	rp, err := m.Mine(g)
	require.NoError(t, err)

	assert.Equal(t, []string{"Shop", "Cart"}, rp.Sources(), "records without paths are omitted")

	shop := rp.Get("Shop")
	require.Len(t, shop, 2)
	assert.Equal(t, []string{"s1", "s2"}, shop[0].EdgeIDs(), "tie on distance 2 resolved by lowest final edge ID")
	assert.Equal(t, []string{"s3", "s4"}, shop[1].EdgeIDs())

	cart := rp.Get("Cart")
	require.Len(t, cart, 1)
	assert.Equal(t, []string{"c1"}, cart[0].EdgeIDs())

	assert.Equal(t, 3, rp.Len())
	for _, p := range rp.All() {
		assertPathInvariants(t, p)
	}
}

func TestNewMiner_InvalidConfig(t *testing.T) {
	_, err := NewMiner(Config{MaxDepth: 0, Rounds: 5}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewMiner(Config{MaxDepth: 3, Rounds: -1}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRecordPaths(t *testing.T) {
	rp := NewRecordPaths()
	rp.Add("x")
	assert.Empty(t, rp.Sources())

	rp.Add("b", graph.Path{})
	rp.Add("a", graph.Path{}, graph.Path{})
	rp.Add("b", graph.Path{})
	assert.Equal(t, []string{"b", "a"}, rp.Sources())
	assert.Len(t, rp.Get("b"), 2)
	assert.Equal(t, 4, rp.Len())
	assert.Nil(t, rp.Get("missing"))
}
