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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianMiner/pkg/logging"
	"github.com/AleutianAI/AleutianMiner/services/miner/config"
	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
	"github.com/AleutianAI/AleutianMiner/services/miner/groundtruth"
	"github.com/AleutianAI/AleutianMiner/services/miner/pipeline/stages"
	"github.com/AleutianAI/AleutianMiner/services/miner/runctx"
	"github.com/AleutianAI/AleutianMiner/services/miner/storage/badger"
	"github.com/AleutianAI/AleutianMiner/services/miner/telemetry"
)

var errNoGraph = errors.New("no graph document given (use --graph or graph_path)")

// runMine executes one mining run and writes the report to the command's
// output stream. The graph document and the ground truth are read
// concurrently; the pipeline itself runs on the calling goroutine.
func runMine(cmd *cobra.Command, cfg config.Config, format string) (err error) {
	if cfg.GraphPath == "" {
		return errNoGraph
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logCfg := cfg.LoggerConfig("miner")
	logCfg.Output = cmd.ErrOrStderr()
	logger := logging.New(logCfg)
	defer func() { err = errors.Join(err, logger.Close()) }()
	log := logger.Slog()

	shutdown, err := telemetry.Init(ctx, cfg.TelemetryConfig())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { err = errors.Join(err, shutdown(context.Background())) }()

	var (
		g     *graph.Graph
		truth *groundtruth.Store
	)
	var eg errgroup.Group
	eg.Go(func() error {
		var lerr error
		g, lerr = loadGraph(cfg.GraphPath, cfg.Dataset)
		return lerr
	})
	if cfg.GroundTruthPath != "" {
		eg.Go(func() error {
			s := groundtruth.NewStore()
			if lerr := s.LoadFile(cfg.GroundTruthPath, cfg.Dataset); lerr != nil {
				return fmt.Errorf("load ground truth: %w", lerr)
			}
			truth = s
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	opts := stages.Options{
		Mining: cfg.MinerConfig(),
		Filter: cfg.Filter(),
		Logger: log,
	}
	if truth != nil {
		log.Info("ground truth loaded",
			slog.String("path", cfg.GroundTruthPath),
			slog.Any("datasets", truth.Datasets()),
			slog.Int("skipped", truth.Skipped()),
		)
		opts.GroundTruth = truth
	}

	if cfg.Storage.Enabled {
		gs, closeStore, serr := openStore(cfg.Storage, log)
		if serr != nil {
			return serr
		}
		defer func() { err = errors.Join(err, closeStore()) }()
		opts.Saver = gs
	}

	p, err := stages.New(opts)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	rc := runctx.New()
	runctx.Set(rc, runctx.KeyDataset, cfg.Dataset)
	runctx.Set(rc, runctx.KeyMaxDepth, cfg.Mining.MaxDepth)
	runctx.Set(rc, runctx.KeyRounds, cfg.Mining.Rounds)

	report, err := stages.Run(ctx, p, g, rc)
	if err != nil {
		return err
	}

	if cfg.Telemetry.MetricsFile != "" {
		if err := telemetry.WriteMetricsFile(cfg.Telemetry.MetricsFile, nil); err != nil {
			log.Warn("metrics file not written", slog.String("error", err.Error()))
		}
	}

	out := cmd.OutOrStdout()
	if resolveFormat(format, out) == "json" {
		return report.WriteJSON(out)
	}
	return report.WriteText(out)
}

// resolveFormat maps "auto" to text on a terminal and JSON otherwise.
func resolveFormat(format string, w io.Writer) string {
	if format != "auto" {
		return format
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return "text"
	}
	return "json"
}

// openStore opens the BadgerDB graph store described by sc.
func openStore(sc config.StorageConfig, logger *slog.Logger) (*badger.GraphStore, func() error, error) {
	db, err := badger.Open(badger.Config{
		Path:       sc.Path,
		InMemory:   sc.InMemory,
		SyncWrites: true,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}
	gs, err := badger.NewGraphStore(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return gs, db.Close, nil
}

// loadGraph reads a graph document. A document without a name is named
// after the dataset, or the file when the dataset is empty.
func loadGraph(path, dataset string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph: %w", err)
	}
	defer f.Close()

	g, err := graph.ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("read graph %s: %w", path, err)
	}
	if g.Name == "" {
		g.Name = dataset
	}
	if g.Name == "" {
		g.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return g, nil
}
