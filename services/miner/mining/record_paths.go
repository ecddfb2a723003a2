// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mining

import (
	"slices"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
	"github.com/AleutianAI/AleutianMiner/services/miner/runctx"
)

// KeyRecordPaths holds the RecordPaths aggregate of a run.
var KeyRecordPaths = runctx.NewKey[*RecordPaths]("miner.recordPaths")

// RecordPaths maps a source record ID to the paths mined from it.
//
// Sources are kept in first-insertion order.
type RecordPaths struct {
	order []string
	paths map[string][]graph.Path
}

// NewRecordPaths creates an empty aggregate.
func NewRecordPaths() *RecordPaths {
	return &RecordPaths{paths: make(map[string][]graph.Path)}
}

// Add appends paths under sourceID. Adding no paths is a no-op.
func (r *RecordPaths) Add(sourceID string, paths ...graph.Path) {
	if len(paths) == 0 {
		return
	}
	if _, ok := r.paths[sourceID]; !ok {
		r.order = append(r.order, sourceID)
	}
	r.paths[sourceID] = append(r.paths[sourceID], paths...)
}

// Get returns the paths mined from sourceID.
func (r *RecordPaths) Get(sourceID string) []graph.Path {
	return r.paths[sourceID]
}

// Sources returns the source record IDs in insertion order.
func (r *RecordPaths) Sources() []string {
	return slices.Clone(r.order)
}

// Len returns the total number of paths.
func (r *RecordPaths) Len() int {
	n := 0
	for _, ps := range r.paths {
		n += len(ps)
	}
	return n
}

// All iterates (source, path) pairs in source insertion order.
func (r *RecordPaths) All() func(yield func(string, graph.Path) bool) {
	return func(yield func(string, graph.Path) bool) {
		for _, src := range r.order {
			for _, p := range r.paths[src] {
				if !yield(src, p) {
					return
				}
			}
		}
	}
}
