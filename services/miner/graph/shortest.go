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
	"container/heap"
	"fmt"
	"slices"
)

// ShortestPathTree holds single-source shortest-path results.
//
// Thread Safety: Immutable after creation.
type ShortestPathTree struct {
	g      *Graph
	source string
	dist   map[string]float64
	prev   map[string]*Edge

	// settled lists reached nodes in the order they were finalized.
	settled []string
}

// ShortestPaths runs Dijkstra from sourceID over outgoing edges.
//
// Description:
//
//	Edge weights come from Edge.Weight (1 unless overridden). Ties are
//	broken deterministically: among equal-distance final hops into a
//	node, the edge with the lexicographically lowest ID wins. Queue ties
//	are resolved by push order, which follows edge insertion order.
//
// Inputs:
//
//	sourceID - Start node. Must exist.
//
// Outputs:
//
//	*ShortestPathTree - Distances and predecessor edges.
//	error - ErrNodeNotFound if the source is missing.
//
// Limitations:
//
//	Weights must be positive; Edge.Weight never returns less than or
//	equal to zero.
func (g *Graph) ShortestPaths(sourceID string) (*ShortestPathTree, error) {
	if _, ok := g.nodes[sourceID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, sourceID)
	}

	t := &ShortestPathTree{
		g:      g,
		source: sourceID,
		dist:   map[string]float64{sourceID: 0},
		prev:   make(map[string]*Edge),
	}
	done := make(map[string]bool)

	pq := &distQueue{}
	seq := 0
	heap.Push(pq, distItem{id: sourceID, dist: 0, seq: seq})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(distItem)
		if done[item.id] || item.dist > t.dist[item.id] {
			continue
		}
		done[item.id] = true
		t.settled = append(t.settled, item.id)

		for _, edge := range g.Outgoing(item.id) {
			v := edge.ToID
			if done[v] {
				continue
			}
			nd := item.dist + edge.Weight()
			cur, seen := t.dist[v]
			switch {
			case !seen || nd < cur:
				t.dist[v] = nd
				t.prev[v] = edge
				seq++
				heap.Push(pq, distItem{id: v, dist: nd, seq: seq})
			case nd == cur && edge.ID < t.prev[v].ID:
				t.prev[v] = edge
			}
		}
	}

	return t, nil
}

// Source returns the source node ID.
func (t *ShortestPathTree) Source() string {
	return t.source
}

// Distance returns the shortest distance to id, if reachable.
func (t *ShortestPathTree) Distance(id string) (float64, bool) {
	d, ok := t.dist[id]
	return d, ok
}

// Reached returns reachable node IDs in settle order (source first).
func (t *ShortestPathTree) Reached() []string {
	return slices.Clone(t.settled)
}

// PathTo reconstructs the shortest path from the source to target.
//
// Outputs:
//
//	Path - The path. For target == source it holds one node and no edges.
//	bool - False if target is unreachable.
func (t *ShortestPathTree) PathTo(target string) (Path, bool) {
	if _, ok := t.dist[target]; !ok {
		return Path{}, false
	}

	var edges []*Edge
	cur := target
	for cur != t.source {
		e, ok := t.prev[cur]
		if !ok || len(edges) > len(t.dist) {
			return Path{}, false
		}
		edges = append(edges, e)
		cur = e.FromID
	}
	slices.Reverse(edges)

	nodes := make([]*Node, 0, len(edges)+1)
	nodes = append(nodes, t.g.nodes[t.source])
	for _, e := range edges {
		nodes = append(nodes, t.g.nodes[e.ToID])
	}

	p, err := NewPath(nodes, edges)
	if err != nil {
		return Path{}, false
	}
	return p, true
}

// distItem is a priority-queue entry.
type distItem struct {
	id   string
	dist float64
	seq  int
}

// distQueue implements heap.Interface ordered by (dist, seq).
type distQueue []distItem

func (q distQueue) Len() int { return len(q) }

func (q distQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].seq < q[j].seq
}

func (q distQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *distQueue) Push(x any) { *q = append(*q, x.(distItem)) }

func (q *distQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
