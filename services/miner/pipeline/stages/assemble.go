// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stages

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
	"github.com/AleutianAI/AleutianMiner/services/miner/interaction"
	"github.com/AleutianAI/AleutianMiner/services/miner/mining"
	"github.com/AleutianAI/AleutianMiner/services/miner/patterns"
	"github.com/AleutianAI/AleutianMiner/services/miner/pipeline"
	"github.com/AleutianAI/AleutianMiner/services/miner/runctx"
	"github.com/AleutianAI/AleutianMiner/services/miner/scope"
)

// PipelineName is the name of the standard mining pipeline.
const PipelineName = "pattern-miner"

// Options configures the standard pipeline.
type Options struct {
	// Mining bounds path mining. Zero value means mining.DefaultConfig().
	Mining mining.Config

	// Filter is the validity filter applied to mined paths.
	Filter interaction.Filter

	// Classifier classifies accepted paths. Nil uses the default rules.
	Classifier *interaction.Classifier

	// GroundTruth enables the label-patterns stage.
	GroundTruth patterns.GroundTruth

	// Saver enables the persist stage.
	Saver GraphSaver

	// Logger is shared by the pipeline and its stages. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns options with default mining bounds and filter,
// no ground truth and no persistence.
func DefaultOptions() Options {
	return Options{
		Mining: mining.DefaultConfig(),
		Filter: interaction.DefaultFilter(),
	}
}

// New assembles the standard pipeline.
//
// Description:
//
//	validate -> propagate-scopes -> [label-patterns] -> [persist]
//	-> mine-record-paths -> extract-interactions -> summarize
//
//	Bracketed stages are present only when the corresponding option is
//	set. Persisting before mining stores the graph with its scope and
//	pattern annotations.
//
// Outputs:
//
//	*pipeline.Pipeline - The built pipeline.
//	error - A build error, or mining.ErrInvalidConfig.
func New(opts Options) (*pipeline.Pipeline[*graph.Graph, *Report], error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Mining == (mining.Config{}) {
		opts.Mining = mining.DefaultConfig()
	}
	if err := opts.Mining.Validate(); err != nil {
		return nil, err
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = interaction.NewClassifier()
	}

	annotate := pipeline.Then(pipeline.NewBuilder[*graph.Graph](PipelineName).WithLogger(logger), Validate())
	annotate = pipeline.Then(annotate, PropagateScopes(scope.NewPropagator(logger)))
	if opts.GroundTruth != nil {
		annotate = pipeline.Then(annotate, LabelPatterns(patterns.NewLabeler(logger), opts.GroundTruth))
	}
	if opts.Saver != nil {
		annotate = pipeline.Then(annotate, Persist(opts.Saver))
	}

	mined := pipeline.Then(annotate, MineRecordPaths(opts.Mining, logger))
	extracted := pipeline.Then(mined, ExtractInteractions(opts.Filter, classifier))
	return pipeline.Then(extracted, Summarize()).Build()
}

// Run executes p on g under rc and completes the report's benchmark log.
func Run(ctx context.Context, p *pipeline.Pipeline[*graph.Graph, *Report], g *graph.Graph, rc *runctx.Context) (*Report, error) {
	report, err := p.Run(ctx, g, rc)
	if err != nil {
		return nil, err
	}
	report.Benchmarks = rc.Benchmarks()
	report.TotalProcessing = rc.TotalProcessing()
	return report, nil
}
