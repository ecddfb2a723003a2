// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package interaction

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
	"github.com/AleutianAI/AleutianMiner/services/miner/mining"
)

// hop describes one step of a test path: the node reached and the edge type
// used to reach it.
type hop struct {
	node     string
	edgeType graph.EdgeType
	record   bool
	scoped   string
}

// makePath builds a graph and a path from src through hops.
func makePath(t *testing.T, src string, hops ...hop) graph.Path {
	t.Helper()
	g := graph.NewGraph("paths")
	first, err := g.AddNode(src, []string{graph.LabelRecordDeclaration}, nil)
	require.NoError(t, err)

	nodes := []*graph.Node{first}
	var edges []*graph.Edge
	prev := src
	for i, h := range hops {
		var labels []string
		if h.record {
			labels = append(labels, graph.LabelRecordDeclaration)
		}
		n, err := g.AddNode(h.node, labels, nil)
		require.NoError(t, err)
		n.SetScopedRecord(h.scoped)

		e, err := g.AddEdge(fmt.Sprintf("e%d", i), prev, h.node, h.edgeType, nil)
		require.NoError(t, err)
		nodes = append(nodes, n)
		edges = append(edges, e)
		prev = h.node
	}

	p, err := graph.NewPath(nodes, edges)
	require.NoError(t, err)
	return p
}

func TestFilter_Check(t *testing.T) {
	f := DefaultFilter()

	tests := []struct {
		name string
		path graph.Path
		want error
	}{
		{
			name: "empty",
			path: graph.Path{},
			want: ErrEmptyPath,
		},
		{
			name: "direct edge",
			path: makePath(t, "A", hop{node: "B", edgeType: graph.EdgeTypeRefersTo, record: true}),
		},
		{
			name: "through record",
			path: makePath(t, "A",
				hop{node: "X", edgeType: graph.EdgeTypeRefersTo, record: true},
				hop{node: "B", edgeType: graph.EdgeTypeRefersTo, record: true},
			),
			want: ErrTransitsRecord,
		},
		{
			name: "two scopes",
			path: makePath(t, "A",
				hop{node: "m1", edgeType: graph.EdgeTypeRefersTo, scoped: "app.A"},
				hop{node: "m2", edgeType: graph.EdgeTypeRefersTo, scoped: "app.B"},
				hop{node: "m3", edgeType: graph.EdgeTypeRefersTo, scoped: "app.A"},
				hop{node: "B", edgeType: graph.EdgeTypeRefersTo, record: true},
			),
		},
		{
			name: "three scopes",
			path: makePath(t, "A",
				hop{node: "m1", edgeType: graph.EdgeTypeRefersTo, scoped: "app.A"},
				hop{node: "m2", edgeType: graph.EdgeTypeRefersTo, scoped: "app.B"},
				hop{node: "m3", edgeType: graph.EdgeTypeRefersTo, scoped: "app.C"},
				hop{node: "B", edgeType: graph.EdgeTypeRefersTo, record: true},
			),
			want: ErrTooManyScopes,
		},
		{
			name: "unstamped interior ignored",
			path: makePath(t, "A",
				hop{node: "m1", edgeType: graph.EdgeTypeRefersTo},
				hop{node: "m2", edgeType: graph.EdgeTypeRefersTo},
				hop{node: "B", edgeType: graph.EdgeTypeRefersTo, record: true},
			),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := f.Check(tc.path)
			if tc.want == nil {
				assert.NoError(t, err)
				assert.True(t, f.IsValid(tc.path))
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.False(t, f.IsValid(tc.path))
		})
	}
}

func TestFilter_TunableThreshold(t *testing.T) {
	p := makePath(t, "A",
		hop{node: "m1", edgeType: graph.EdgeTypeRefersTo, scoped: "app.A"},
		hop{node: "m2", edgeType: graph.EdgeTypeRefersTo, scoped: "app.B"},
		hop{node: "m3", edgeType: graph.EdgeTypeRefersTo, scoped: "app.C"},
		hop{node: "B", edgeType: graph.EdgeTypeRefersTo, record: true},
	)

	assert.True(t, Filter{MaxDistinctScopes: 3}.IsValid(p))
	assert.True(t, Filter{}.IsValid(p), "zero disables the scope check")
}

func TestClassifier_Priority(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name  string
		types []graph.EdgeType
		want  Type
	}{
		{"creates beats refers_to", []graph.EdgeType{graph.EdgeTypeRefersTo, graph.EdgeTypeInstantiates}, Creates},
		{"creates beats extends", []graph.EdgeType{graph.EdgeTypeSupertypeDeclaration, graph.EdgeTypeInstantiates}, Creates},
		{"extends beats returns", []graph.EdgeType{graph.EdgeTypeReturnType, graph.EdgeTypeSupertypeDeclaration}, Extends},
		{"returns", []graph.EdgeType{graph.EdgeTypeRefersTo, graph.EdgeTypeReturnType}, Returns},
		{"no pivot", []graph.EdgeType{graph.EdgeTypeRefersTo, graph.EdgeTypeParent}, Knows},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hops := make([]hop, len(tc.types))
			for i, et := range tc.types {
				hops[i] = hop{node: fmt.Sprintf("n%d", i), edgeType: et}
			}
			assert.Equal(t, tc.want, c.Classify(makePath(t, "A", hops...)))
		})
	}
}

func TestClassifier_CustomRules(t *testing.T) {
	c := NewClassifier(
		WithRules(Rule{Pivot: graph.EdgeTypeInvokes, Type: Calls}),
		WithFallback(Knows),
	)
	p := makePath(t, "A",
		hop{node: "call", edgeType: graph.EdgeTypeInvokes},
		hop{node: "B", edgeType: graph.EdgeTypeInstantiates, record: true},
	)
	assert.Equal(t, Calls, c.Classify(p))
}

func TestNew_Reversed(t *testing.T) {
	p := makePath(t, "A", hop{node: "B", edgeType: graph.EdgeTypeRefersTo, record: true})

	forward := New(Knows, p.Source(), p.Target(), p)
	assert.False(t, forward.Reversed)

	backward := New(Knows, p.Target(), p.Source(), p)
	assert.True(t, backward.Reversed)
	assert.Equal(t, "B -Knows<- A", backward.String())
}

func TestExtract(t *testing.T) {
	valid := makePath(t, "A", hop{node: "B", edgeType: graph.EdgeTypeInstantiates, record: true})
	invalid := makePath(t, "A",
		hop{node: "X", edgeType: graph.EdgeTypeRefersTo, record: true},
		hop{node: "B", edgeType: graph.EdgeTypeRefersTo, record: true},
	)
	plain := makePath(t, "C", hop{node: "D", edgeType: graph.EdgeTypeRefersTo, record: true})

	rp := mining.NewRecordPaths()
	rp.Add("A", valid, invalid)
	rp.Add("C", plain)

	got, rejected := Extract(rp, DefaultFilter(), NewClassifier())
	require.Len(t, got, 2)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, Creates, got[0].Type)
	assert.Equal(t, "A", got[0].Source.ID)
	assert.Equal(t, "B", got[0].Target.ID)
	assert.False(t, got[0].Reversed)
	assert.Equal(t, Knows, got[1].Type)

	assert.Equal(t, map[Type]int{Creates: 1, Knows: 1}, CountByType(got))
}

func TestParseType(t *testing.T) {
	for _, typ := range AllTypes() {
		got, ok := ParseType(typ.String())
		require.True(t, ok)
		assert.Equal(t, typ, got)
	}
	got, ok := ParseType(" creates ")
	assert.True(t, ok)
	assert.Equal(t, Creates, got)

	_, ok = ParseType("Decorates")
	assert.False(t, ok)
	assert.Equal(t, "Unknown", Type(42).String())
}
