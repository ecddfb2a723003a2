// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the program-graph model consumed by the miner.
//
// The graph is a directed multigraph of labeled nodes and typed edges, as
// produced by an external code-property-graph generator. Nodes and edges are
// addressed by string handles and stored in an arena, so the graph can be
// cloned cheaply and no pointer cycles exist between nodes and edges.
//
// # Ownership Model
//
// Clone copies structure (adjacency, order, indexes) but shares the *Node and
// *Edge values. Attribute writes made through one graph are therefore visible
// through every clone. Structural changes (RemoveEdge) are not.
//
// # Iteration Order
//
// Nodes and edges are iterated in insertion order. Shortest-path tie-breaks
// and scope propagation depend on this to be reproducible across runs.
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use. A graph is owned by exactly one
// pipeline run at a time.
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrNodeNotFound is returned when an edge or traversal references a
	// node that does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode is returned when adding a node with an ID that
	// already exists in the graph.
	ErrDuplicateNode = errors.New("duplicate node ID")

	// ErrDuplicateEdge is returned when adding an edge with an ID that
	// already exists in the graph.
	ErrDuplicateEdge = errors.New("duplicate edge ID")

	// ErrInvalidNode is returned when a node has an empty ID.
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidEdge is returned when an edge has an empty ID or endpoint.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrInvalidEdgeType is returned when an edge type string is not part of
	// the closed edge-type enumeration.
	ErrInvalidEdgeType = errors.New("invalid edge type")

	// ErrMaxNodesExceeded is returned when the graph has reached its
	// configured maximum node capacity.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrMaxEdgesExceeded is returned when the graph has reached its
	// configured maximum edge capacity.
	ErrMaxEdgesExceeded = errors.New("maximum edge count exceeded")

	// ErrDanglingEdge is returned by Validate when an edge references a
	// missing endpoint. This always indicates a graph-consistency bug.
	ErrDanglingEdge = errors.New("edge references missing node")
)
