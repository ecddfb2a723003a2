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
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Builder assembles a pipeline whose input is I and whose current output
// is O.
//
// Description:
//
//	Errors found while adding stages are collected and reported by Build,
//	so a chain of Then calls needs only one error check.
//
// Thread Safety:
//
//	Builder is NOT safe for concurrent use.
type Builder[I, O any] struct {
	name   string
	stages []erased
	names  map[string]bool
	errors []error
	logger *slog.Logger
}

// NewBuilder starts an empty pipeline accepting input of type I.
func NewBuilder[I any](name string) *Builder[I, I] {
	return &Builder[I, I]{
		name:  name,
		names: make(map[string]bool),
	}
}

// WithLogger sets the logger used by the built pipeline.
func (b *Builder[I, O]) WithLogger(logger *slog.Logger) *Builder[I, O] {
	b.logger = logger
	return b
}

// Then appends stage, whose input type must equal the builder's current
// output type.
//
// Description:
//
//	Then is a function rather than a method because Go methods cannot
//	introduce new type parameters. The returned builder shares no slice
//	storage with b, so b may still be extended independently.
//
// Inputs:
//
//	b - The builder to extend. Must not be nil.
//	stage - The next stage. Nil or duplicate names are recorded as errors.
//
// Outputs:
//
//	*Builder[I, N] - A builder whose output type is the stage's output.
func Then[I, O, N any](b *Builder[I, O], stage Stage[O, N]) *Builder[I, N] {
	next := &Builder[I, N]{
		name:   b.name,
		stages: slices.Clone(b.stages),
		names:  make(map[string]bool, len(b.names)+1),
		errors: slices.Clone(b.errors),
		logger: b.logger,
	}
	for n := range b.names {
		next.names[n] = true
	}

	if stage == nil {
		next.errors = append(next.errors, fmt.Errorf("%w: position %d", ErrNilStage, len(next.stages)))
		return next
	}

	name := stage.Name()
	switch {
	case name == "":
		next.errors = append(next.errors, fmt.Errorf("%w: position %d", ErrEmptyStageName, len(next.stages)))
	case next.names[name]:
		next.errors = append(next.errors, fmt.Errorf("%w: %s", ErrDuplicateStage, name))
	default:
		next.names[name] = true
		next.stages = append(next.stages, erase(stage))
	}
	return next
}

// Build validates the chain and returns a runnable pipeline.
//
// Outputs:
//
//	*Pipeline[I, O] - The pipeline.
//	error - ErrNoStages for an empty chain, or the joined errors
//	        recorded by Then.
func (b *Builder[I, O]) Build() (*Pipeline[I, O], error) {
	if len(b.errors) > 0 {
		return nil, errors.Join(b.errors...)
	}
	if len(b.stages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoStages, b.name)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline[I, O]{
		name:   b.name,
		stages: slices.Clone(b.stages),
		logger: logger,
	}, nil
}
