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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianMiner/services/miner/config"
)

// runFlags holds the flags of the run command. Only flags the user set
// override the loaded configuration.
type runFlags struct {
	configPath     string
	graphPath      string
	groundTruth    string
	dataset        string
	maxDepth       int
	rounds         int
	maxScopes      int
	storePath      string
	inMemory       bool
	logLevel       string
	traceExporter  string
	metricExporter string
	metricsFile    string
	format         string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "miner",
		Short: "Mine design-pattern interactions from a code property graph",
		Long: `miner reads an annotated program graph, propagates scope information,
labels known design-pattern classes, mines bounded path variants between
classes and classifies them into interactions.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newStatsCmd(), newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the mining pipeline over a graph document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(f.configPath, f.overrides(cmd))
			if err != nil {
				return err
			}
			switch f.format {
			case "auto", "text", "json":
			default:
				return fmt.Errorf("unknown output format %q (want auto, text or json)", f.format)
			}
			return runMine(cmd, cfg, f.format)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "YAML or JSON config file")
	flags.StringVarP(&f.graphPath, "graph", "g", "", "graph document (JSON)")
	flags.StringVar(&f.groundTruth, "ground-truth", "", "ground-truth file (.xml, .csv, .yaml)")
	flags.StringVarP(&f.dataset, "dataset", "d", "", "active dataset identifier")
	flags.IntVar(&f.maxDepth, "max-depth", 0, "neighborhood depth and path distance bound")
	flags.IntVar(&f.rounds, "rounds", 0, "variant-search rounds per record")
	flags.IntVar(&f.maxScopes, "max-scopes", 0, "distinct interior scopes allowed per path (0 disables)")
	flags.StringVar(&f.storePath, "store", "", "persist the annotated graph to this BadgerDB directory")
	flags.BoolVar(&f.inMemory, "store-in-memory", false, "persist to an in-memory BadgerDB (dry run)")
	flags.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&f.traceExporter, "trace-exporter", "", "none, stdout or otlp")
	flags.StringVar(&f.metricExporter, "metric-exporter", "", "none, stdout or prometheus")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	flags.StringVarP(&f.format, "format", "o", "auto", "report format: auto, text or json")
	return cmd
}

func (f *runFlags) overrides(cmd *cobra.Command) config.Override {
	changed := cmd.Flags().Changed
	return func(c *config.Config) {
		if changed("graph") {
			c.GraphPath = f.graphPath
		}
		if changed("ground-truth") {
			c.GroundTruthPath = f.groundTruth
		}
		if changed("dataset") {
			c.Dataset = f.dataset
		}
		if changed("max-depth") {
			c.Mining.MaxDepth = f.maxDepth
		}
		if changed("rounds") {
			c.Mining.Rounds = f.rounds
		}
		if changed("max-scopes") {
			c.Validity.MaxDistinctScopes = f.maxScopes
		}
		if changed("store") {
			c.Storage.Enabled = true
			c.Storage.Path = f.storePath
		}
		if changed("store-in-memory") {
			c.Storage.Enabled = f.inMemory
			c.Storage.InMemory = f.inMemory
		}
		if changed("log-level") {
			c.Logging.Level = f.logLevel
		}
		if changed("trace-exporter") {
			c.Telemetry.TraceExporter = f.traceExporter
		}
		if changed("metric-exporter") {
			c.Telemetry.MetricExporter = f.metricExporter
		}
		if changed("metrics-file") {
			c.Telemetry.MetricsFile = f.metricsFile
		}
	}
}

func newStatsCmd() *cobra.Command {
	var storePath string
	cmd := &cobra.Command{
		Use:   "stats [graph]",
		Short: "List persisted graphs, or show statistics for one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, storePath, args)
		},
	}
	cmd.Flags().StringVar(&storePath, "store", "", "BadgerDB directory written by run --store")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the miner version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "miner %s\n", version)
		},
	}
}
