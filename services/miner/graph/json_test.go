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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
  "name": "sample",
  "nodes": [
    {"id": "r1", "labels": ["RecordDeclaration", "Declaration"], "fullName": "app.Shop"},
    {"id": "s1", "labels": ["Scope", "RecordScope"], "scopedName": "app.Shop"},
    {"id": "m1", "labels": ["MethodDeclaration"], "attributes": {"fullName": "app.Shop.open"}}
  ],
  "edges": [
    {"id": "e1", "source": "r1", "target": "s1", "type": "SCOPE"},
    {"id": "e2", "source": "m1", "target": "r1", "type": "declared-in", "attributes": {"weight": 2}}
  ]
}`

func TestReadJSON(t *testing.T) {
	g, err := ReadJSON(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, "sample", g.Name)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())

	r1, ok := g.GetNode("r1")
	require.True(t, ok)
	assert.Equal(t, "app.Shop", r1.FullName())
	assert.True(t, r1.IsRecord())

	s1, _ := g.GetNode("s1")
	assert.Equal(t, "app.Shop", s1.ScopedName())

	m1, _ := g.GetNode("m1")
	assert.Equal(t, "app.Shop.open", m1.FullName())

	e2, ok := g.GetEdge("e2")
	require.True(t, ok)
	assert.Equal(t, EdgeTypeDeclaredIn, e2.Type)
	assert.Equal(t, 2.0, e2.Weight(), "JSON numbers decode as float64")
}

func TestReadJSON_RejectsUnknownEdgeType(t *testing.T) {
	doc := `{"nodes":[{"id":"a"},{"id":"b"}],"edges":[{"id":"e","source":"a","target":"b","type":"wormhole"}]}`
	_, err := ReadJSON(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrInvalidEdgeType)
}

func TestReadJSON_RejectsDanglingEdge(t *testing.T) {
	doc := `{"nodes":[{"id":"a"}],"edges":[{"id":"e","source":"a","target":"b","type":"parent"}]}`
	_, err := ReadJSON(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestWriteJSON_PreservesScopedRecord(t *testing.T) {
	g, err := ReadJSON(strings.NewReader(sampleDocument))
	require.NoError(t, err)
	m1, _ := g.GetNode("m1")
	m1.SetScopedRecord("app.Shop")

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, g))

	again, err := ReadJSON(&buf)
	require.NoError(t, err)
	n, ok := again.GetNode("m1")
	require.True(t, ok)
	got, ok := n.ScopedRecord()
	assert.True(t, ok)
	assert.Equal(t, "app.Shop", got)
	assert.Equal(t, g.Edges()[0].Type, again.Edges()[0].Type)
}
