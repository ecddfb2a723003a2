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
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMiner/services/miner/runctx"
)

var keyTrace = runctx.NewKey[[]string]("test.trace")

// tracing appends the stage name to the trace key so tests can observe
// execution order through the shared run context.
func tracing[I, O any](name string, fn func(I) (O, error)) Stage[I, O] {
	return NewStage(name, func(_ context.Context, in I, rc *runctx.Context) (O, error) {
		seen := runctx.GetOrDefault(rc, keyTrace, []string(nil))
		runctx.Set(rc, keyTrace, append(seen, name))
		return fn(in)
	})
}

func TestBuild_NoStages(t *testing.T) {
	_, err := NewBuilder[int]("empty").Build()
	if !errors.Is(err, ErrNoStages) {
		t.Fatalf("expected ErrNoStages, got: %v", err)
	}
}

func TestBuild_NilAndDuplicateStages(t *testing.T) {
	b := NewBuilder[int]("bad")
	b1 := Then(b, tracing("inc", func(i int) (int, error) { return i + 1, nil }))
	b2 := Then(b1, tracing("inc", func(i int) (int, error) { return i + 1, nil }))
	b3 := Then[int, int, int](b2, nil)

	_, err := b3.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateStage)
	assert.ErrorIs(t, err, ErrNilStage)

	// The earlier builder is unaffected.
	p, err := b1.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"inc"}, p.Stages())
}

func TestRun_ChainsTypes(t *testing.T) {
	b := NewBuilder[string]("chain")
	b1 := Then(b, tracing("parse", func(s string) (int, error) { return strconv.Atoi(s) }))
	b2 := Then(b1, tracing("double", func(i int) (int, error) { return i * 2, nil }))
	b3 := Then(b2, tracing("format", func(i int) (string, error) { return "n=" + strconv.Itoa(i), nil }))

	p, err := b3.Build()
	require.NoError(t, err)

	rc := runctx.New()
	out, err := p.Run(context.Background(), "21", rc)
	require.NoError(t, err)
	assert.Equal(t, "n=42", out)

	trace, ok := runctx.Get(rc, keyTrace)
	require.True(t, ok)
	assert.Equal(t, []string{"parse", "double", "format"}, trace)

	bench := rc.Benchmarks()
	require.Len(t, bench, 3)
	for i, name := range []string{"parse", "double", "format"} {
		assert.Equal(t, name, bench[i].Stage)
	}
	assert.Equal(t, bench[2].Total, rc.TotalProcessing())
	assert.GreaterOrEqual(t, bench[2].Total, bench[1].Total)
}

func TestRun_FirstFailureAborts(t *testing.T) {
	boom := errors.New("boom")

	b := NewBuilder[int]("fail")
	b1 := Then(b, tracing("ok", func(i int) (int, error) { return i, nil }))
	b2 := Then(b1, tracing("explode", func(int) (int, error) { return 0, boom }))
	b3 := Then(b2, tracing("never", func(i int) (int, error) { return i, nil }))

	p, err := b3.Build()
	require.NoError(t, err)

	rc := runctx.New()
	_, err = p.Run(context.Background(), 1, rc)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "explode", stageErr.Stage)
	assert.Equal(t, 1, stageErr.Index)

	trace, _ := runctx.Get(rc, keyTrace)
	assert.Equal(t, []string{"ok", "explode"}, trace)
	assert.Len(t, rc.Benchmarks(), 2, "failed stage is still timed")
}

func TestRun_NilArguments(t *testing.T) {
	p, err := Then(NewBuilder[int]("p"), tracing("id", func(i int) (int, error) { return i, nil })).Build()
	require.NoError(t, err)

	//nolint:staticcheck // nil context is the case under test
	_, err = p.Run(nil, 1, runctx.New())
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = p.Run(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrNilRunContext)
}

func TestRun_Reusable(t *testing.T) {
	p, err := Then(NewBuilder[string]("upper"), NewStage("upper",
		func(_ context.Context, s string, _ *runctx.Context) (string, error) {
			return strings.ToUpper(s), nil
		})).Build()
	require.NoError(t, err)

	for _, in := range []string{"a", "b"} {
		rc := runctx.New()
		out, err := p.Run(context.Background(), in, rc)
		require.NoError(t, err)
		assert.Equal(t, strings.ToUpper(in), out)
		assert.Len(t, rc.Benchmarks(), 1)
	}
}

func TestStageError_Message(t *testing.T) {
	err := &StageError{Stage: "mine", Index: 3, Err: errors.New("bad graph")}
	assert.Equal(t, "stage mine (#3) failed: bad graph", err.Error())
}
