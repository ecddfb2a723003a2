// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package traverse provides a depth-first, message-passing graph walk.
//
// The walk uses an explicit stack, visits each node at most once and
// forwards a caller-defined message from parent to child. Neighborhood
// isolation and scope propagation are both built on it.
package traverse

import (
	"fmt"
	"slices"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
)

// ErrDanglingEdge is returned when a selected edge points at a node that is
// not in the graph. It is the graph package's sentinel so callers can match
// either.
var ErrDanglingEdge = graph.ErrDanglingEdge

// Step describes one node visit.
type Step[M any] struct {
	// Node is the node being visited.
	Node *graph.Node

	// Edge is the edge the node was reached through. Nil for the start node.
	Edge *graph.Edge

	// Parent is the node the walk came from. Nil for the start node.
	Parent *graph.Node

	// Message is the value produced by the parent's visit, or Config.Initial
	// for the start node.
	Message M

	// Depth is the number of edges from the start node.
	Depth int
}

// VisitFunc processes a step. It returns the message forwarded to children
// and whether the walk should expand this node.
type VisitFunc[M any] func(step Step[M]) (out M, proceed bool)

// EdgeSelector returns the edges to follow out of node, in the order they
// should be pushed.
type EdgeSelector func(g *graph.Graph, node *graph.Node) []*graph.Edge

// Config controls a walk.
type Config[M any] struct {
	// Next selects the edges to follow. Required.
	Next EdgeSelector

	// Visit is called once per reached node. Nil visits everything and
	// always proceeds.
	Visit VisitFunc[M]

	// MaxDepth stops expansion at this depth. Zero or negative means
	// unbounded.
	MaxDepth int

	// Initial is the message delivered with the start node.
	Initial M
}

// Result summarizes a walk.
type Result struct {
	// Visited lists node IDs in visit order.
	Visited []string
}

type frame[M any] struct {
	node   *graph.Node
	edge   *graph.Edge
	parent *graph.Node
	msg    M
	depth  int
}

// Walk runs a depth-first traversal from startID.
//
// Description:
//
//	Frames are pushed on an explicit stack. On each pop an already-visited
//	node is skipped; otherwise it is marked and Visit is called. Children
//	are pushed only if Visit proceeds and the node's depth is below
//	MaxDepth. Children already visited are not pushed. Because selected
//	edges are pushed in reverse, the first selected edge is explored first.
//
// Inputs:
//
//	g - The graph. Must not be nil.
//	startID - The root node.
//	cfg - Walk configuration. cfg.Next must not be nil.
//
// Outputs:
//
//	Result - The visit order.
//	error - graph.ErrNodeNotFound for a missing start node, or
//	        ErrDanglingEdge if a selected edge leads to a missing node.
//
// Thread Safety:
//
//	Walk does not mutate g, but Visit may mutate node attributes.
func Walk[M any](g *graph.Graph, startID string, cfg Config[M]) (Result, error) {
	var res Result
	if g == nil || cfg.Next == nil {
		return res, fmt.Errorf("traverse: graph and edge selector are required")
	}

	start, ok := g.GetNode(startID)
	if !ok {
		return res, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, startID)
	}

	visited := make(map[string]bool)
	stack := []frame[M]{{node: start, msg: cfg.Initial}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[f.node.ID] {
			continue
		}
		visited[f.node.ID] = true
		res.Visited = append(res.Visited, f.node.ID)

		out, proceed := f.msg, true
		if cfg.Visit != nil {
			out, proceed = cfg.Visit(Step[M]{
				Node:    f.node,
				Edge:    f.edge,
				Parent:  f.parent,
				Message: f.msg,
				Depth:   f.depth,
			})
		}
		if !proceed || (cfg.MaxDepth > 0 && f.depth >= cfg.MaxDepth) {
			continue
		}

		edges := cfg.Next(g, f.node)
		for _, edge := range slices.Backward(edges) {
			childID := edge.Other(f.node.ID)
			child, ok := g.GetNode(childID)
			if !ok {
				return res, fmt.Errorf("%w: edge %s from %s to %s", ErrDanglingEdge, edge.ID, f.node.ID, childID)
			}
			if visited[childID] {
				continue
			}
			stack = append(stack, frame[M]{
				node:   child,
				edge:   edge,
				parent: f.node,
				msg:    out,
				depth:  f.depth + 1,
			})
		}
	}

	return res, nil
}
