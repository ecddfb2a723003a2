// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package patterns

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
)

// Labeler attaches pattern labels to record nodes.
type Labeler struct {
	logger *slog.Logger
}

// NewLabeler creates a labeler. A nil logger uses slog.Default().
func NewLabeler(logger *slog.Logger) *Labeler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Labeler{logger: logger}
}

// Label attaches pattern labels and counts them.
//
// Description:
//
//	For every record node (insertion order) and every entry whose
//	ClassName is a suffix of the node's fullName, the entry's pattern type
//	is attached as a node label and the per-type and total counters are
//	incremented. Entries with an empty class name or type are ignored.
//
// Inputs:
//
//	ctx - Context for tracing.
//	g - The graph. Record nodes are mutated.
//	entries - Ground truth for the active dataset.
//
// Outputs:
//
//	Stats - Per-type and total label counts.
func (l *Labeler) Label(ctx context.Context, g *graph.Graph, entries []PatternEntry) Stats {
	ctx, span := startLabelSpan(ctx, g.Name, len(entries))
	defer span.End()
	start := time.Now()

	stats := Stats{ByType: make(map[PatternType]int)}
	for _, node := range g.Nodes() {
		if !node.IsRecord() {
			continue
		}
		name := node.FullName()
		if name == "" {
			continue
		}
		for _, e := range entries {
			if e.Type == "" || e.ClassName == "" || !strings.HasSuffix(name, e.ClassName) {
				continue
			}
			node.AddLabel(string(e.Type))
			stats.ByType[e.Type]++
			stats.Total++
			recordPatternByType(ctx, e.Type)
		}
	}

	setLabelSpanResult(span, stats.Total)
	recordLabelMetrics(ctx, time.Since(start), stats.Total)

	l.logger.Debug("patterns labeled",
		slog.String("graph", g.Name),
		slog.Int("entries", len(entries)),
		slog.Int("labels", stats.Total),
	)
	return stats
}

// Compare pairs ground-truth counts with observed counts for every pattern
// type present in entries.
//
// Example:
//
//	// entries: Singleton x2, Observer x1; observed: Singleton 1
//	Compare(entries, stats) // {Singleton: {2, 1}, Observer: {1, 0}}
func Compare(entries []PatternEntry, stats Stats) map[PatternType]Comparison {
	out := make(map[PatternType]Comparison)
	for _, e := range entries {
		if e.Type == "" {
			continue
		}
		c := out[e.Type]
		c.Expected++
		out[e.Type] = c
	}
	for t, c := range out {
		c.Observed = stats.ByType[t]
		out[t] = c
	}
	return out
}

// SortedTypes returns the keys of a comparison map in alphabetical order.
func SortedTypes(cmp map[PatternType]Comparison) []PatternType {
	types := make([]PatternType, 0, len(cmp))
	for t := range cmp {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
