// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianMiner/services/miner/runctx"
	"github.com/AleutianAI/AleutianMiner/services/miner/telemetry"
)

var (
	tracer = otel.Tracer("aleutian.miner.pipeline")
	meter  = otel.Meter("aleutian.miner.pipeline")
)

// Pipeline is a built, immutable chain of stages from I to O.
//
// Thread Safety:
//
//	A Pipeline may be reused for several runs, but each run must have its
//	own runctx.Context. Runs are not meant to overlap.
type Pipeline[I, O any] struct {
	name   string
	stages []erased
	logger *slog.Logger

	// Metrics (initialized lazily)
	metricsOnce     sync.Once
	stageLatency    metric.Float64Histogram
	stageSuccesses  metric.Int64Counter
	stageFailures   metric.Int64Counter
	pipelineLatency metric.Float64Histogram
}

// Name returns the pipeline name.
func (p *Pipeline[I, O]) Name() string {
	return p.name
}

// Stages returns the stage names in execution order.
func (p *Pipeline[I, O]) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.name
	}
	return names
}

// initMetrics lazily initializes metrics.
// Logs errors if metric creation fails but continues execution.
func (p *Pipeline[I, O]) initMetrics() {
	p.metricsOnce.Do(func() {
		var initErrors []string

		var err error
		p.stageLatency, err = meter.Float64Histogram("miner_stage_duration_seconds",
			metric.WithDescription("Time spent in each pipeline stage"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "stage_latency: "+err.Error())
		}

		p.stageSuccesses, err = meter.Int64Counter("miner_stage_success_total",
			metric.WithDescription("Number of successful stage invocations"),
		)
		if err != nil {
			initErrors = append(initErrors, "stage_successes: "+err.Error())
		}

		p.stageFailures, err = meter.Int64Counter("miner_stage_failure_total",
			metric.WithDescription("Number of failed stage invocations"),
		)
		if err != nil {
			initErrors = append(initErrors, "stage_failures: "+err.Error())
		}

		p.pipelineLatency, err = meter.Float64Histogram("miner_pipeline_duration_seconds",
			metric.WithDescription("Total pipeline run time"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "pipeline_latency: "+err.Error())
		}

		if len(initErrors) > 0 {
			p.logger.Error("failed to initialize some pipeline metrics (observability degraded)",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
}

// Run executes all stages in order.
//
// Description:
//
//	The output of stage k is the input of stage k+1. Before the next stage
//	starts, the elapsed time of the finished stage is appended to rc's
//	benchmark log. The first failing stage aborts the run; no later stage
//	is invoked and no partial result is returned.
//
//	ctx carries tracing only. It is not checked for cancellation between
//	stages.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//	in - Input to the first stage.
//	rc - The run context shared by all stages. Must not be nil.
//
// Outputs:
//
//	O - The last stage's output.
//	error - ErrNilContext, ErrNilRunContext or a *StageError.
func (p *Pipeline[I, O]) Run(ctx context.Context, in I, rc *runctx.Context) (O, error) {
	var zero O
	if ctx == nil {
		return zero, ErrNilContext
	}
	if rc == nil {
		return zero, ErrNilRunContext
	}

	p.initMetrics()

	ctx, span := tracer.Start(ctx, "miner.Pipeline",
		trace.WithAttributes(
			attribute.String("pipeline.name", p.name),
			attribute.Int("pipeline.stage_count", len(p.stages)),
			attribute.String("pipeline.run_id", rc.RunID()),
		),
	)
	defer span.End()

	start := time.Now()
	p.logger.Info("pipeline started",
		slog.String("pipeline", p.name),
		slog.String("run_id", rc.RunID()),
		slog.Int("stages", len(p.stages)),
	)

	var current any = in
	for i, stage := range p.stages {
		out, err := p.runStage(ctx, i, stage, current, rc)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.logger.Error("pipeline failed",
				slog.String("run_id", rc.RunID()),
				slog.String("failed_stage", stage.name),
				slog.String("error", err.Error()),
			)
			return zero, err
		}
		current = out
	}

	duration := time.Since(start)
	if p.pipelineLatency != nil {
		p.pipelineLatency.Record(ctx, duration.Seconds(),
			metric.WithAttributes(attribute.String("pipeline", p.name)),
		)
	}
	span.SetStatus(codes.Ok, "")
	p.logger.Info("pipeline completed",
		slog.String("run_id", rc.RunID()),
		slog.Duration("duration", duration),
		slog.Duration("processing", rc.TotalProcessing()),
	)

	result, _ := current.(O)
	return result, nil
}

// runStage invokes one stage with timing and observability.
func (p *Pipeline[I, O]) runStage(ctx context.Context, index int, stage erased, in any, rc *runctx.Context) (any, error) {
	ctx, span := tracer.Start(ctx, stage.name,
		trace.WithAttributes(
			attribute.String("pipeline.stage", stage.name),
			attribute.Int("pipeline.stage_index", index),
		),
	)
	defer span.End()

	logger := telemetry.LoggerWithStage(ctx, p.logger, stage.name)
	logger.Debug("stage starting", slog.String("run_id", rc.RunID()))

	start := time.Now()
	out, err := stage.run(ctx, in, rc)
	elapsed := time.Since(start)

	bench := rc.RecordStage(stage.name, elapsed)

	if p.stageLatency != nil {
		p.stageLatency.Record(ctx, elapsed.Seconds(),
			metric.WithAttributes(attribute.String("stage", stage.name)),
		)
	}

	if err != nil {
		if p.stageFailures != nil {
			p.stageFailures.Add(ctx, 1,
				metric.WithAttributes(attribute.String("stage", stage.name)),
			)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		logger.Error("stage failed",
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
		return nil, &StageError{Stage: stage.name, Index: index, Err: err}
	}

	if p.stageSuccesses != nil {
		p.stageSuccesses.Add(ctx, 1,
			metric.WithAttributes(attribute.String("stage", stage.name)),
		)
	}
	span.SetStatus(codes.Ok, "")

	logger.Info("stage completed",
		slog.Duration("elapsed", elapsed),
		slog.Duration("total", bench.Total),
	)
	return out, nil
}
