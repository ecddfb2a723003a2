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
	"encoding/json"
	"fmt"
	"io"
	"maps"
)

// Document is the serialized form of a graph as exchanged with the
// code-property-graph generator and the persistence layer.
type Document struct {
	Name  string       `json:"name,omitempty"`
	Nodes []NodeRecord `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// NodeRecord is the serialized form of a Node.
//
// fullName and scopedName may be given at the top level or inside
// attributes; the top-level value wins.
type NodeRecord struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	FullName   string         `json:"fullName,omitempty"`
	ScopedName string         `json:"scopedName,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// EdgeRecord is the serialized form of an Edge.
type EdgeRecord struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Record converts a node to its serialized form.
func (n *Node) Record() NodeRecord {
	return NodeRecord{
		ID:         n.ID,
		Labels:     append([]string(nil), n.Labels...),
		Attributes: maps.Clone(n.Attributes),
	}
}

// Record converts an edge to its serialized form.
func (e *Edge) Record() EdgeRecord {
	return EdgeRecord{
		ID:         e.ID,
		Source:     e.FromID,
		Target:     e.ToID,
		Type:       e.Type.String(),
		Attributes: maps.Clone(e.Attributes),
	}
}

// Document returns the serialized form of the whole graph in insertion order.
func (g *Graph) Document() Document {
	doc := Document{
		Name:  g.Name,
		Nodes: make([]NodeRecord, 0, len(g.nodeOrder)),
		Edges: make([]EdgeRecord, 0, len(g.edgeOrder)),
	}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, n.Record())
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, e.Record())
	}
	return doc
}

// FromDocument builds a graph from its serialized form.
//
// Outputs:
//
//	*Graph - The populated graph.
//	error - Non-nil for duplicate IDs, unknown edge types or edges whose
//	        endpoints are missing.
func FromDocument(doc Document, opts ...GraphOption) (*Graph, error) {
	g := NewGraph(doc.Name, opts...)

	for i, rec := range doc.Nodes {
		attrs := maps.Clone(rec.Attributes)
		if attrs == nil {
			attrs = make(map[string]any)
		}
		if rec.FullName != "" {
			attrs[AttrFullName] = rec.FullName
		}
		if rec.ScopedName != "" {
			attrs[AttrScopedName] = rec.ScopedName
		}
		if _, err := g.AddNode(rec.ID, rec.Labels, attrs); err != nil {
			return nil, fmt.Errorf("node[%d]: %w", i, err)
		}
	}

	for i, rec := range doc.Edges {
		edgeType, err := ParseEdgeType(rec.Type)
		if err != nil {
			return nil, fmt.Errorf("edge[%d] %s: %w", i, rec.ID, err)
		}
		if _, err := g.AddEdge(rec.ID, rec.Source, rec.Target, edgeType, maps.Clone(rec.Attributes)); err != nil {
			return nil, fmt.Errorf("edge[%d]: %w", i, err)
		}
	}

	return g, nil
}

// ReadJSON decodes a graph document from r.
func ReadJSON(r io.Reader, opts ...GraphOption) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode graph document: %w", err)
	}
	return FromDocument(doc, opts...)
}

// WriteJSON encodes g as a graph document to w.
func WriteJSON(w io.Writer, g *Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g.Document()); err != nil {
		return fmt.Errorf("encode graph document: %w", err)
	}
	return nil
}
