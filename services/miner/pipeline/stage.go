// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline chains typed processing stages that share a run context.
//
// A pipeline is assembled with a Builder. Each Then call fixes the next
// stage's input type to the previous stage's output type, so a mismatched
// chain does not compile.
//
// Example:
//
//	b := pipeline.NewBuilder[*graph.Graph]("miner")
//	b2 := pipeline.Then(b, stages.Validate())
//	b3 := pipeline.Then(b2, stages.MineRecordPaths(cfg, logger))
//	p, err := b3.Build()
//	paths, err := p.Run(ctx, g, runctx.New())
package pipeline

import (
	"context"

	"github.com/AleutianAI/AleutianMiner/services/miner/runctx"
)

// Stage transforms an input of type I into an output of type O.
//
// Implementations may read and write rc. A returned error aborts the run.
type Stage[I, O any] interface {
	// Name identifies the stage in logs, traces and the benchmark log.
	Name() string

	// Process runs the stage.
	Process(ctx context.Context, in I, rc *runctx.Context) (O, error)
}

// StageFunc is the function form of Stage.Process.
type StageFunc[I, O any] func(ctx context.Context, in I, rc *runctx.Context) (O, error)

// funcStage adapts a StageFunc to Stage.
type funcStage[I, O any] struct {
	name string
	fn   StageFunc[I, O]
}

// NewStage creates a Stage from a function.
//
// Example:
//
//	count := pipeline.NewStage("count", func(ctx context.Context, g *graph.Graph, rc *runctx.Context) (int, error) {
//	    return g.NodeCount(), nil
//	})
func NewStage[I, O any](name string, fn StageFunc[I, O]) Stage[I, O] {
	if fn == nil {
		return nil
	}
	return &funcStage[I, O]{name: name, fn: fn}
}

func (s *funcStage[I, O]) Name() string { return s.name }

func (s *funcStage[I, O]) Process(ctx context.Context, in I, rc *runctx.Context) (O, error) {
	return s.fn(ctx, in, rc)
}

// erased is a stage with its types removed so heterogeneous stages can be
// stored in one slice. Type safety is enforced by Then.
type erased struct {
	name string
	run  func(ctx context.Context, in any, rc *runctx.Context) (any, error)
}

func erase[I, O any](s Stage[I, O]) erased {
	return erased{
		name: s.Name(),
		run: func(ctx context.Context, in any, rc *runctx.Context) (any, error) {
			typed, _ := in.(I)
			return s.Process(ctx, typed, rc)
		},
	}
}
