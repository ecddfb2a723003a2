// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stages provides the miner's concrete pipeline stages and the
// standard assembly that chains them.
//
// The graph flows unchanged through the annotating stages (validate,
// propagate-scopes, label-patterns, persist), then becomes RecordPaths,
// then interactions, and finally a Report. Side results go into the run
// context under the keys declared here and in the domain packages.
package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
	"github.com/AleutianAI/AleutianMiner/services/miner/interaction"
	"github.com/AleutianAI/AleutianMiner/services/miner/mining"
	"github.com/AleutianAI/AleutianMiner/services/miner/patterns"
	"github.com/AleutianAI/AleutianMiner/services/miner/pipeline"
	"github.com/AleutianAI/AleutianMiner/services/miner/runctx"
	"github.com/AleutianAI/AleutianMiner/services/miner/scope"
	"github.com/AleutianAI/AleutianMiner/services/miner/storage/badger"
)

// Stage names.
const (
	NameValidate            = "validate"
	NamePropagateScopes     = "propagate-scopes"
	NameLabelPatterns       = "label-patterns"
	NamePersist             = "persist"
	NameMineRecordPaths     = "mine-record-paths"
	NameExtractInteractions = "extract-interactions"
	NameSummarize           = "summarize"
)

// ErrNilGraph is returned when the pipeline input is nil.
var ErrNilGraph = errors.New("graph must not be nil")

// Context keys written by the stages in this package.
var (
	KeyGraphStats = runctx.NewKey[graph.GraphStats]("miner.graph.stats")
	KeyScopeStats = runctx.NewKey[scope.Stats]("miner.scope.stats")
	KeyRejected   = runctx.NewKey[int]("miner.interactions.rejected")
	KeyPersisted  = runctx.NewKey[badger.SaveInfo]("miner.persisted")
)

// GraphSaver receives the annotated graph. *badger.GraphStore implements it.
type GraphSaver interface {
	SaveGraph(ctx context.Context, g *graph.Graph, opts badger.SaveOptions) (badger.SaveInfo, error)
}

// Validate checks the graph's referential integrity and that the run
// context names a dataset. It records the graph's size under KeyGraphStats.
func Validate() pipeline.Stage[*graph.Graph, *graph.Graph] {
	return pipeline.NewStage(NameValidate, func(_ context.Context, g *graph.Graph, rc *runctx.Context) (*graph.Graph, error) {
		if g == nil {
			return nil, ErrNilGraph
		}
		if _, err := runctx.Require(rc, runctx.KeyDataset); err != nil {
			return nil, err
		}
		if err := g.Validate(); err != nil {
			return nil, err
		}
		runctx.Set(rc, KeyGraphStats, g.Stats())
		return g, nil
	})
}

// PropagateScopes stamps scopedRecord attributes. Stats go to KeyScopeStats.
func PropagateScopes(p *scope.Propagator) pipeline.Stage[*graph.Graph, *graph.Graph] {
	return pipeline.NewStage(NamePropagateScopes, func(_ context.Context, g *graph.Graph, rc *runctx.Context) (*graph.Graph, error) {
		stats, err := p.Propagate(g)
		if err != nil {
			return nil, err
		}
		runctx.Set(rc, KeyScopeStats, stats)
		return g, nil
	})
}

// LabelPatterns attaches the active dataset's ground truth to record
// nodes and stores the label counts and the comparison against the
// ground truth under patterns.KeyStats and patterns.KeyComparison.
//
// A dataset unknown to gt fails the stage.
func LabelPatterns(l *patterns.Labeler, gt patterns.GroundTruth) pipeline.Stage[*graph.Graph, *graph.Graph] {
	return pipeline.NewStage(NameLabelPatterns, func(ctx context.Context, g *graph.Graph, rc *runctx.Context) (*graph.Graph, error) {
		dataset, err := runctx.Require(rc, runctx.KeyDataset)
		if err != nil {
			return nil, err
		}
		entries, err := gt.Lookup(dataset)
		if err != nil {
			return nil, fmt.Errorf("ground truth for %s: %w", dataset, err)
		}

		stats := l.Label(ctx, g, entries)
		runctx.Set(rc, patterns.KeyStats, stats)
		runctx.Set(rc, patterns.KeyComparison, patterns.Compare(entries, stats))
		return g, nil
	})
}

// Persist hands the annotated graph to saver.
func Persist(saver GraphSaver) pipeline.Stage[*graph.Graph, *graph.Graph] {
	return pipeline.NewStage(NamePersist, func(ctx context.Context, g *graph.Graph, rc *runctx.Context) (*graph.Graph, error) {
		info, err := saver.SaveGraph(ctx, g, badger.SaveOptions{
			RunID:   rc.RunID(),
			Dataset: runctx.GetOrDefault(rc, runctx.KeyDataset, ""),
		})
		if err != nil {
			return nil, err
		}
		runctx.Set(rc, KeyPersisted, info)
		return g, nil
	})
}

// MineRecordPaths mines path variants between records.
//
// runctx.KeyMaxDepth and runctx.KeyRounds, when present, override cfg for
// this run. The result is also stored under mining.KeyRecordPaths.
func MineRecordPaths(cfg mining.Config, logger *slog.Logger) pipeline.Stage[*graph.Graph, *mining.RecordPaths] {
	return pipeline.NewStage(NameMineRecordPaths, func(_ context.Context, g *graph.Graph, rc *runctx.Context) (*mining.RecordPaths, error) {
		runCfg := mining.Config{
			MaxDepth: runctx.GetOrDefault(rc, runctx.KeyMaxDepth, cfg.MaxDepth),
			Rounds:   runctx.GetOrDefault(rc, runctx.KeyRounds, cfg.Rounds),
		}
		m, err := mining.NewMiner(runCfg, logger)
		if err != nil {
			return nil, err
		}
		rp, err := m.Mine(g)
		if err != nil {
			return nil, err
		}
		runctx.Set(rc, mining.KeyRecordPaths, rp)
		return rp, nil
	})
}

// ExtractInteractions filters and classifies mined paths. The accepted
// interactions go to interaction.KeyInteractions and the rejected count
// to KeyRejected.
func ExtractInteractions(f interaction.Filter, c *interaction.Classifier) pipeline.Stage[*mining.RecordPaths, []interaction.Interaction] {
	return pipeline.NewStage(NameExtractInteractions, func(_ context.Context, rp *mining.RecordPaths, rc *runctx.Context) ([]interaction.Interaction, error) {
		out, rejected := interaction.Extract(rp, f, c)
		runctx.Set(rc, interaction.KeyInteractions, out)
		runctx.Set(rc, KeyRejected, rejected)
		return out, nil
	})
}

// Summarize builds the run report from the interactions and the values
// earlier stages left in the run context.
func Summarize() pipeline.Stage[[]interaction.Interaction, *Report] {
	return pipeline.NewStage(NameSummarize, func(_ context.Context, in []interaction.Interaction, rc *runctx.Context) (*Report, error) {
		return buildReport(in, rc), nil
	})
}
