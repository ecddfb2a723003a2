// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scope stamps graph nodes with the qualified name of the record
// that structurally owns them.
//
// The stamp is stored in the node's scopedRecord attribute and follows the
// first-writer-wins rule of graph.Node.SetScopedRecord. Propagation is
// idempotent: running it again on the same graph changes nothing.
package scope

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
	"github.com/AleutianAI/AleutianMiner/services/miner/traverse"
)

// Stats counts what one propagation pass did.
type Stats struct {
	// Records is the number of record declarations seen.
	Records int

	// RecordScopes is the number of record scopes applied.
	RecordScopes int

	// GenericScopes is the number of generic scopes applied.
	GenericScopes int

	// SkippedScopes is the number of generic scopes rejected by the
	// naming heuristic.
	SkippedScopes int

	// Stamped is the number of scopedRecord attributes written.
	Stamped int
}

// Propagator assigns scopedRecord attributes.
//
// Thread Safety:
//
//	Propagator holds no state between calls, but Propagate mutates the
//	graph's nodes and must not run concurrently on the same graph.
type Propagator struct {
	logger *slog.Logger
}

// NewPropagator creates a propagator. A nil logger uses slog.Default().
func NewPropagator(logger *slog.Logger) *Propagator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Propagator{logger: logger}
}

// Propagate stamps every reachable node with its owning record.
//
// Description:
//
//	Nodes are processed in insertion order:
//
//	  1. A record declaration stamps itself and every node with a
//	     declared_in edge into it using its own fullName.
//	  2. An unstamped record scope stamps itself and its declared_in
//	     members with the fullName of the record opening it, falling back
//	     to the scope's own scopedName.
//	  3. An unstamped generic scope whose scopedName passes the naming
//	     heuristic stamps itself, then walks incoming parent edges and
//	     stamps every unstamped node reached. Expansion stops at nodes
//	     that already carry a stamp.
//
//	Existing stamps are never overwritten.
//
// Outputs:
//
//	Stats - Counters for this pass.
//	error - Non-nil if a traversal hits an inconsistent graph.
func (p *Propagator) Propagate(g *graph.Graph) (Stats, error) {
	var stats Stats

	for _, node := range g.Nodes() {
		switch {
		case node.IsRecord():
			stats.Records++
			stats.Stamped += stampWithMembers(g, node, node.FullName())

		case node.HasLabel(graph.LabelRecordScope):
			if isStamped(node) {
				continue
			}
			name := recordScopeName(g, node)
			if name == "" {
				continue
			}
			stats.RecordScopes++
			stats.Stamped += stampWithMembers(g, node, name)

		case node.HasLabel(graph.LabelScope):
			if isStamped(node) {
				continue
			}
			name := node.ScopedName()
			if !acceptScopeName(name, node.FullName()) {
				stats.SkippedScopes++
				continue
			}
			stats.GenericScopes++
			n, err := stampParentTree(g, node, name)
			stats.Stamped += n
			if err != nil {
				return stats, fmt.Errorf("propagate scope %s: %w", node.ID, err)
			}
		}
	}

	p.logger.Debug("scope propagation complete",
		slog.String("graph", g.Name),
		slog.Int("records", stats.Records),
		slog.Int("record_scopes", stats.RecordScopes),
		slog.Int("generic_scopes", stats.GenericScopes),
		slog.Int("skipped_scopes", stats.SkippedScopes),
		slog.Int("stamped", stats.Stamped),
	)
	return stats, nil
}

func isStamped(n *graph.Node) bool {
	_, ok := n.ScopedRecord()
	return ok
}

// stampWithMembers stamps node and the sources of its incoming declared_in
// edges. Returns the number of attributes written.
func stampWithMembers(g *graph.Graph, node *graph.Node, name string) int {
	written := 0
	if node.SetScopedRecord(name) {
		written++
	}
	for _, e := range g.Incoming(node.ID) {
		if e.Type != graph.EdgeTypeDeclaredIn {
			continue
		}
		if member, ok := g.GetNode(e.FromID); ok && member.SetScopedRecord(name) {
			written++
		}
	}
	return written
}

// recordScopeName returns the qualified name a record scope belongs to:
// the fullName of the record that opens it through a scope edge, or the
// scope's own scopedName when no such record exists.
func recordScopeName(g *graph.Graph, scopeNode *graph.Node) string {
	for _, e := range g.Incoming(scopeNode.ID) {
		if e.Type != graph.EdgeTypeScope {
			continue
		}
		if rec, ok := g.GetNode(e.FromID); ok && rec.IsRecord() && rec.FullName() != "" {
			return rec.FullName()
		}
	}
	return scopeNode.ScopedName()
}

// acceptScopeName filters anonymous and default scopes: the name must be
// set, contain an upper-case letter and differ from the node's fullName.
func acceptScopeName(scopedName, fullName string) bool {
	if scopedName == "" {
		return false
	}
	if strings.ToLower(scopedName) == scopedName {
		return false
	}
	return scopedName != fullName
}

// stampParentTree stamps root, then every unstamped node reachable through
// incoming parent edges, without crossing already-stamped nodes.
func stampParentTree(g *graph.Graph, root *graph.Node, name string) (int, error) {
	written := 0
	if root.SetScopedRecord(name) {
		written++
	}

	_, err := traverse.Walk(g, root.ID, traverse.Config[string]{
		Next:    traverse.Incoming(graph.EdgeTypeParent),
		Initial: name,
		Visit: func(s traverse.Step[string]) (string, bool) {
			if s.Depth == 0 {
				return s.Message, true
			}
			if !s.Node.SetScopedRecord(s.Message) {
				return s.Message, false
			}
			written++
			return s.Message, true
		},
	})
	return written, err
}
