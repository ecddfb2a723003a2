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
)

// Sentinel errors for pipeline operations.
var (
	// ErrNoStages indicates Build was called on a builder with no stages.
	ErrNoStages = errors.New("pipeline has no stages")

	// ErrNilStage indicates a nil stage was appended.
	ErrNilStage = errors.New("stage must not be nil")

	// ErrDuplicateStage indicates two stages share a name.
	ErrDuplicateStage = errors.New("duplicate stage name")

	// ErrEmptyStageName indicates a stage reported an empty name.
	ErrEmptyStageName = errors.New("stage name must not be empty")

	// ErrNilContext indicates a nil context.Context was passed to Run.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNilRunContext indicates a nil run context was passed to Run.
	ErrNilRunContext = errors.New("run context must not be nil")
)

// StageError wraps a failure returned by a stage.
type StageError struct {
	// Stage is the name of the failing stage.
	Stage string

	// Index is the zero-based position of the stage in the pipeline.
	Index int

	// Err is the underlying error, returned unmodified by the stage.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (#%d) failed: %v", e.Stage, e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}
