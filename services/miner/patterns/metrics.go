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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for labeling operations.
var (
	tracer = otel.Tracer("aleutian.miner.patterns")
	meter  = otel.Meter("aleutian.miner.patterns")
)

var (
	labelLatency   metric.Float64Histogram
	labelsAttached metric.Int64Histogram
	labelsByType   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		labelLatency, err = meter.Float64Histogram(
			"patterns_label_duration_seconds",
			metric.WithDescription("Duration of pattern labeling passes"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		labelsAttached, err = meter.Int64Histogram(
			"patterns_labels_attached",
			metric.WithDescription("Number of pattern labels attached per pass"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		labelsByType, err = meter.Int64Counter(
			"patterns_labels_by_type_total",
			metric.WithDescription("Total pattern labels attached by type"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startLabelSpan(ctx context.Context, graphName string, entries int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Labeler.Label",
		trace.WithAttributes(
			attribute.String("patterns.graph", graphName),
			attribute.Int("patterns.entries", entries),
		),
	)
}

func setLabelSpanResult(span trace.Span, labels int) {
	span.SetAttributes(attribute.Int("patterns.labels", labels))
}

func recordLabelMetrics(ctx context.Context, duration time.Duration, labels int) {
	if err := initMetrics(); err != nil {
		return
	}
	labelLatency.Record(ctx, duration.Seconds())
	labelsAttached.Record(ctx, int64(labels))
}

func recordPatternByType(ctx context.Context, t PatternType) {
	if err := initMetrics(); err != nil {
		return
	}
	labelsByType.Add(ctx, 1, metric.WithAttributes(attribute.String("pattern", string(t))))
}
