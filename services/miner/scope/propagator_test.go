// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
)

type fixture struct {
	t *testing.T
	g *graph.Graph
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, g: graph.NewGraph("scope")}
}

func (f *fixture) node(id string, attrs map[string]any, labels ...string) {
	f.t.Helper()
	_, err := f.g.AddNode(id, labels, attrs)
	require.NoError(f.t, err)
}

func (f *fixture) edge(id, from, to string, typ graph.EdgeType) {
	f.t.Helper()
	_, err := f.g.AddEdge(id, from, to, typ, nil)
	require.NoError(f.t, err)
}

func (f *fixture) scoped(id string) string {
	f.t.Helper()
	n, ok := f.g.GetNode(id)
	require.True(f.t, ok, id)
	s, _ := n.ScopedRecord()
	return s
}

func snapshot(g *graph.Graph) map[string]string {
	out := make(map[string]string)
	for id, n := range g.Nodes() {
		s, _ := n.ScopedRecord()
		out[id] = s
	}
	return out
}

// buildShop models a record with a scope, members and a nested block tree:
//
//	Shop (record) -scope-> ShopScope (record scope, no scopedName)
//	field -declared_in-> Shop
//	method -declared_in-> ShopScope
//	Body (scope "app.Shop.Body") <-parent- stmt <-parent- expr
//	anon (scope "block") <-parent- loose
func buildShop(t *testing.T) *fixture {
	f := newFixture(t)
	f.node("Shop", map[string]any{graph.AttrFullName: "app.Shop"}, graph.LabelRecordDeclaration)
	f.node("ShopScope", nil, graph.LabelScope, graph.LabelRecordScope)
	f.node("field", nil)
	f.node("method", nil)
	f.node("Body", map[string]any{graph.AttrScopedName: "app.Shop.Body", graph.AttrFullName: "app.Shop.open"}, graph.LabelScope)
	f.node("stmt", nil)
	f.node("expr", nil)
	f.node("anon", map[string]any{graph.AttrScopedName: "block"}, graph.LabelScope)
	f.node("loose", nil)

	f.edge("e1", "Shop", "ShopScope", graph.EdgeTypeScope)
	f.edge("e2", "field", "Shop", graph.EdgeTypeDeclaredIn)
	f.edge("e3", "method", "ShopScope", graph.EdgeTypeDeclaredIn)
	f.edge("e4", "stmt", "Body", graph.EdgeTypeParent)
	f.edge("e5", "expr", "stmt", graph.EdgeTypeParent)
	f.edge("e6", "loose", "anon", graph.EdgeTypeParent)
	return f
}

func TestPropagate_Rules(t *testing.T) {
	f := buildShop(t)

	stats, err := NewPropagator(nil).Propagate(f.g)
	require.NoError(t, err)

	assert.Equal(t, "app.Shop", f.scoped("Shop"))
	assert.Equal(t, "app.Shop", f.scoped("field"))
	assert.Equal(t, "app.Shop", f.scoped("ShopScope"), "record scope takes the opening record's name")
	assert.Equal(t, "app.Shop", f.scoped("method"))

	assert.Equal(t, "app.Shop.Body", f.scoped("Body"))
	assert.Equal(t, "app.Shop.Body", f.scoped("stmt"))
	assert.Equal(t, "app.Shop.Body", f.scoped("expr"))

	assert.Empty(t, f.scoped("anon"), "all-lowercase scope names are skipped")
	assert.Empty(t, f.scoped("loose"))

	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, 1, stats.RecordScopes)
	assert.Equal(t, 1, stats.GenericScopes)
	assert.Equal(t, 1, stats.SkippedScopes)
	assert.Equal(t, 7, stats.Stamped)
}

func TestPropagate_RecordScopeUsesEnclosingRecord(t *testing.T) {
	f := newFixture(t)
	f.node("Cart", map[string]any{graph.AttrFullName: "app.Cart"}, graph.LabelRecordDeclaration)
	f.node("CartScope", map[string]any{graph.AttrScopedName: "app.Cart$body"}, graph.LabelScope, graph.LabelRecordScope)
	f.node("item", nil)
	f.node("OrphanScope", map[string]any{graph.AttrScopedName: "app.Orphan"}, graph.LabelScope, graph.LabelRecordScope)
	f.node("member", nil)

	f.edge("e1", "Cart", "CartScope", graph.EdgeTypeScope)
	f.edge("e2", "item", "CartScope", graph.EdgeTypeDeclaredIn)
	f.edge("e3", "member", "OrphanScope", graph.EdgeTypeDeclaredIn)

	stats, err := NewPropagator(nil).Propagate(f.g)
	require.NoError(t, err)

	assert.Equal(t, "app.Cart", f.scoped("CartScope"), "the opening record wins over the scope's own name")
	assert.Equal(t, "app.Cart", f.scoped("item"))
	assert.Equal(t, "app.Orphan", f.scoped("OrphanScope"), "scopedName is the fallback without a scope edge")
	assert.Equal(t, "app.Orphan", f.scoped("member"))
	assert.Equal(t, 2, stats.RecordScopes)
}

func TestPropagate_Idempotent(t *testing.T) {
	f := buildShop(t)
	p := NewPropagator(nil)

	_, err := p.Propagate(f.g)
	require.NoError(t, err)
	first := snapshot(f.g)

	stats, err := p.Propagate(f.g)
	require.NoError(t, err)
	assert.Equal(t, first, snapshot(f.g))
	assert.Equal(t, 0, stats.Stamped)
}

func TestPropagate_FirstWriterWins(t *testing.T) {
	f := newFixture(t)
	f.node("Outer", map[string]any{graph.AttrFullName: "app.Outer"}, graph.LabelRecordDeclaration)
	f.node("Inner", map[string]any{graph.AttrFullName: "app.Outer.Inner"}, graph.LabelRecordDeclaration)
	f.node("m", nil)
	f.edge("e1", "Inner", "Outer", graph.EdgeTypeDeclaredIn)
	f.edge("e2", "m", "Inner", graph.EdgeTypeDeclaredIn)

	_, err := NewPropagator(nil).Propagate(f.g)
	require.NoError(t, err)

	assert.Equal(t, "app.Outer", f.scoped("Outer"))
	assert.Equal(t, "app.Outer", f.scoped("Inner"), "Outer was processed first and stamped Inner")
	assert.Equal(t, "app.Outer.Inner", f.scoped("m"))
}

func TestPropagate_StopsAtStampedNodes(t *testing.T) {
	f := newFixture(t)
	f.node("Owner", map[string]any{graph.AttrFullName: "app.Owner"}, graph.LabelRecordDeclaration)
	f.node("Block", map[string]any{graph.AttrScopedName: "app.Other.Block"}, graph.LabelScope)
	f.node("stamped", nil)
	f.node("below", nil)
	f.edge("e1", "stamped", "Owner", graph.EdgeTypeDeclaredIn)
	f.edge("e2", "stamped", "Block", graph.EdgeTypeParent)
	f.edge("e3", "below", "stamped", graph.EdgeTypeParent)

	_, err := NewPropagator(nil).Propagate(f.g)
	require.NoError(t, err)

	assert.Equal(t, "app.Owner", f.scoped("stamped"))
	assert.Empty(t, f.scoped("below"), "expansion stops at an already-stamped node")
	assert.Equal(t, "app.Other.Block", f.scoped("Block"))
}

func TestAcceptScopeName(t *testing.T) {
	tests := []struct {
		scoped, full string
		want         bool
	}{
		{"", "", false},
		{"block", "", false},
		{"app.Shop", "app.Shop", false},
		{"app.Shop", "app.Shop.open", true},
		{"Main", "", true},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, acceptScopeName(tc.scoped, tc.full), "%q/%q", tc.scoped, tc.full)
	}
}
