// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package traverse

import (
	"slices"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
)

// Outgoing follows edges leaving the node. With no types every outgoing
// edge is selected.
func Outgoing(types ...graph.EdgeType) EdgeSelector {
	return func(g *graph.Graph, node *graph.Node) []*graph.Edge {
		return filterTypes(g.Outgoing(node.ID), types)
	}
}

// Incoming follows edges entering the node, walking them backwards.
func Incoming(types ...graph.EdgeType) EdgeSelector {
	return func(g *graph.Graph, node *graph.Node) []*graph.Edge {
		return filterTypes(g.Incoming(node.ID), types)
	}
}

func filterTypes(edges []*graph.Edge, types []graph.EdgeType) []*graph.Edge {
	if len(types) == 0 {
		return edges
	}
	out := make([]*graph.Edge, 0, len(edges))
	for _, e := range edges {
		if slices.Contains(types, e.Type) {
			out = append(out, e)
		}
	}
	return out
}
