// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
	"github.com/AleutianAI/AleutianMiner/services/miner/storage/badger"
)

// runStats lists the graphs in a store, or prints the statistics of one.
func runStats(cmd *cobra.Command, storePath string, args []string) (err error) {
	db, err := badger.Open(badger.Config{Path: storePath})
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, db.Close()) }()

	gs, err := badger.NewGraphStore(db, nil)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		names, err := gs.ListGraphs()
		if err != nil {
			return err
		}
		for _, name := range names {
			info, err := gs.Info(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%d nodes\t%d edges\tsaved %s\n",
				name, info.Nodes, info.Edges, info.SavedAt.Format(time.RFC3339))
		}
		return nil
	}

	g, err := gs.LoadGraph(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	st := g.Stats()

	stamped := 0
	for _, n := range g.Nodes() {
		if _, ok := n.ScopedRecord(); ok {
			stamped++
		}
	}

	fmt.Fprintf(out, "graph:   %s\n", g.Name)
	fmt.Fprintf(out, "nodes:   %d (%d records, %d scoped)\n", st.NodeCount, st.RecordCount, stamped)
	fmt.Fprintf(out, "edges:   %d\n", st.EdgeCount)

	types := make([]graph.EdgeType, 0, len(st.EdgesByType))
	for t := range st.EdgesByType {
		types = append(types, t)
	}
	slices.Sort(types)
	for _, t := range types {
		fmt.Fprintf(out, "  %-22s %d\n", t, st.EdgesByType[t])
	}
	return nil
}
