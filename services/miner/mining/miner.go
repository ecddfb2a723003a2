// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mining discovers bounded shortest-path variants between record
// declarations.
//
// For each record the miner isolates the neighborhood reachable through
// outgoing edges, then repeatedly runs Dijkstra on it. After each round the
// last edge of every path found is removed from a clone of the working
// subgraph, so the next round must reach the same destinations through a
// different final hop.
package mining

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
	"github.com/AleutianAI/AleutianMiner/services/miner/traverse"
)

// Default configuration values.
const (
	// DefaultMaxDepth bounds isolation depth and accepted path distance.
	DefaultMaxDepth = 10

	// DefaultRounds is the maximum number of variant-search rounds.
	DefaultRounds = 5
)

// ErrInvalidConfig is returned for non-positive bounds.
var ErrInvalidConfig = errors.New("invalid mining configuration")

var (
	recordsMined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miner_records_mined_total",
		Help: "Record declarations processed by the path miner",
	})

	pathsMined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miner_paths_mined_total",
		Help: "Paths accepted by the variant search",
	})

	roundsPerRecord = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "miner_variant_rounds",
		Help:    "Variant-search rounds that produced paths, per record",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 10},
	})

	neighborhoodSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "miner_neighborhood_nodes",
		Help:    "Nodes in the isolated neighborhood of a record",
		Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000},
	})

	mineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "miner_mine_duration_seconds",
		Help:    "Wall time of a full mining pass",
		Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 60},
	})
)

// Config bounds the miner.
type Config struct {
	// MaxDepth bounds neighborhood depth and path distance.
	MaxDepth int

	// Rounds is the maximum number of variant-search rounds per record.
	Rounds int
}

// DefaultConfig returns the standard bounds (depth 10, 5 rounds).
func DefaultConfig() Config {
	return Config{MaxDepth: DefaultMaxDepth, Rounds: DefaultRounds}
}

// Validate checks that both bounds are positive.
func (c Config) Validate() error {
	if c.MaxDepth <= 0 {
		return fmt.Errorf("%w: max depth must be positive, got %d", ErrInvalidConfig, c.MaxDepth)
	}
	if c.Rounds <= 0 {
		return fmt.Errorf("%w: rounds must be positive, got %d", ErrInvalidConfig, c.Rounds)
	}
	return nil
}

// Miner mines record paths.
//
// Thread Safety:
//
//	Miner is stateless after construction; Mine does not mutate the
//	input graph.
type Miner struct {
	cfg    Config
	logger *slog.Logger
}

// NewMiner creates a miner.
//
// Inputs:
//
//	cfg - Bounds. Must pass Validate.
//	logger - Logger. If nil, uses slog.Default().
func NewMiner(cfg Config, logger *slog.Logger) (*Miner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{cfg: cfg, logger: logger}, nil
}

// Config returns the miner's bounds.
func (m *Miner) Config() Config {
	return m.cfg
}

// Mine runs isolation and variant search for every record in g.
//
// Description:
//
//	Records are processed independently in node insertion order. Paths
//	share node and edge values with g, so attributes stamped on g (such
//	as scopedRecord) are visible through them.
//
// Outputs:
//
//	*RecordPaths - Paths grouped by source record ID.
//	error - Non-nil only if g is inconsistent.
func (m *Miner) Mine(g *graph.Graph) (*RecordPaths, error) {
	start := time.Now()
	rp := NewRecordPaths()

	for id, node := range g.Nodes() {
		if !node.IsRecord() {
			continue
		}

		sub, err := Isolate(g, id, m.cfg.MaxDepth)
		if err != nil {
			return nil, fmt.Errorf("isolate %s: %w", id, err)
		}
		neighborhoodSize.Observe(float64(sub.NodeCount()))

		paths, rounds, err := searchVariants(sub, id, (*graph.Node).IsRecord, m.cfg.MaxDepth, m.cfg.Rounds)
		if err != nil {
			return nil, fmt.Errorf("search variants from %s: %w", id, err)
		}
		roundsPerRecord.Observe(float64(rounds))
		recordsMined.Inc()
		pathsMined.Add(float64(len(paths)))

		rp.Add(id, paths...)

		m.logger.Debug("record mined",
			slog.String("record", id),
			slog.Int("neighborhood_nodes", sub.NodeCount()),
			slog.Int("rounds", rounds),
			slog.Int("paths", len(paths)),
		)
	}

	mineDuration.Observe(time.Since(start).Seconds())
	return rp, nil
}

// Isolate copies the bounded outgoing neighborhood of a record into a new
// subgraph.
//
// Description:
//
//	Walks outgoing edges from recordID up to maxDepth. Other record nodes
//	are included together with the edge that reaches them, but are not
//	expanded. Every edge selected during the walk is copied. Node and edge
//	values are shared with g.
//
// Outputs:
//
//	*graph.Graph - The neighborhood, nodes in visit order.
//	error - graph.ErrNodeNotFound for a missing record.
func Isolate(g *graph.Graph, recordID string, maxDepth int) (*graph.Graph, error) {
	var selected []*graph.Edge
	next := func(gr *graph.Graph, n *graph.Node) []*graph.Edge {
		edges := gr.Outgoing(n.ID)
		selected = append(selected, edges...)
		return edges
	}

	res, err := traverse.Walk(g, recordID, traverse.Config[struct{}]{
		Next:     next,
		MaxDepth: maxDepth,
		Visit: func(s traverse.Step[struct{}]) (struct{}, bool) {
			return s.Message, s.Depth == 0 || !s.Node.IsRecord()
		},
	})
	if err != nil {
		return nil, err
	}

	sub := graph.NewGraph(g.Name + "/" + recordID)
	visited := make(map[string]bool, len(res.Visited))
	for _, id := range res.Visited {
		node, _ := g.GetNode(id)
		if err := sub.AddNodeRef(node); err != nil {
			return nil, err
		}
		visited[id] = true
	}
	for _, e := range selected {
		if !visited[e.FromID] || !visited[e.ToID] || sub.HasEdge(e.ID) {
			continue
		}
		if err := sub.AddEdgeRef(e); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// SearchVariants runs the iterative shortest-path-variant search.
//
// Description:
//
//	Each round runs Dijkstra from sourceID over the working graph and
//	keeps non-empty paths of distance at most maxDistance to every node
//	accepted by isTarget (visited in node insertion order). If nothing is
//	kept the search stops. Otherwise the working graph is cloned, the last
//	edge of each kept path is removed from the clone, and the clone
//	becomes the working graph for the next round. sub itself is never
//	modified.
//
// Inputs:
//
//	sub - The graph to search.
//	sourceID - Start node.
//	isTarget - Destination predicate. The source is never a target.
//	maxDistance - Paths longer than this are dropped.
//	rounds - Maximum number of rounds.
//
// Outputs:
//
//	[]graph.Path - All kept paths in discovery order.
//	error - graph.ErrNodeNotFound for a missing source.
//
// Example:
//
//	paths, err := mining.SearchVariants(sub, "A", (*graph.Node).IsRecord, 10, 5)
func SearchVariants(sub *graph.Graph, sourceID string, isTarget func(*graph.Node) bool, maxDistance, rounds int) ([]graph.Path, error) {
	paths, _, err := searchVariants(sub, sourceID, isTarget, maxDistance, rounds)
	return paths, err
}

func searchVariants(sub *graph.Graph, sourceID string, isTarget func(*graph.Node) bool, maxDistance, rounds int) ([]graph.Path, int, error) {
	var all []graph.Path
	working := sub
	productive := 0

	for round := 0; round < rounds; round++ {
		tree, err := working.ShortestPaths(sourceID)
		if err != nil {
			return nil, productive, err
		}

		var kept []graph.Path
		for id, node := range working.Nodes() {
			if id == sourceID || !isTarget(node) {
				continue
			}
			p, ok := tree.PathTo(id)
			if !ok || p.IsEmpty() || p.Distance > float64(maxDistance) {
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			break
		}
		productive++

		next := working.Clone()
		for _, p := range kept {
			next.RemoveEdge(p.LastEdge().ID)
		}
		all = append(all, kept...)
		working = next
	}

	return all, productive, nil
}
