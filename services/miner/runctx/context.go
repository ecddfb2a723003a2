// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runctx provides the typed key/value store threaded through one
// pipeline run.
//
// A Context is created once per run and passed explicitly to every stage.
// It is never persisted and never shared between runs.
//
// Thread Safety:
//
//	Context is NOT safe for concurrent use. Pipeline runs are sequential.
package runctx

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ErrMissingValue is returned by Require when a key is absent or holds a
// value of a different type.
var ErrMissingValue = errors.New("required context value missing")

// Key is a typed handle into a Context.
//
// Two keys with the same name address the same slot regardless of T; a
// Get through a key whose T does not match the stored value reports absent.
type Key[T any] struct {
	name string
}

// NewKey creates a typed key. Names are namespaced by convention
// ("miner.dataset").
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the key's string name.
func (k Key[T]) Name() string {
	return k.name
}

// String implements fmt.Stringer.
func (k Key[T]) String() string {
	return k.name
}

// Benchmark is one entry of the per-stage timing log.
type Benchmark struct {
	// Stage is the stage name.
	Stage string

	// Elapsed is the wall-clock time of this stage invocation.
	Elapsed time.Duration

	// Total is the running processing total including this entry.
	Total time.Duration
}

// Context is the run-scoped store.
type Context struct {
	runID   string
	started time.Time
	values  map[string]any
	bench   []Benchmark
	total   time.Duration
}

// New creates an empty Context with a fresh run ID.
func New() *Context {
	return &Context{
		runID:   uuid.NewString(),
		started: time.Now(),
		values:  make(map[string]any),
	}
}

// RunID returns the unique identifier of this run.
func (c *Context) RunID() string {
	return c.runID
}

// Started returns the time the Context was created.
func (c *Context) Started() time.Time {
	return c.started
}

// Has reports whether any value is stored under name.
func (c *Context) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Delete removes the value stored under name.
func (c *Context) Delete(name string) {
	delete(c.values, name)
}

// Keys returns the stored key names, sorted.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Set stores value under key, replacing any previous value.
func Set[T any](c *Context, key Key[T], value T) {
	c.values[key.name] = value
}

// Get returns the value stored under key.
//
// Outputs:
//
//	T - The value, or the zero value when absent.
//	bool - False both when the key is missing and when the stored value
//	       is not a T.
func Get[T any](c *Context, key Key[T]) (T, bool) {
	return Lookup[T](c, key.name)
}

// Lookup is Get by plain name. The caller names the expected type
// explicitly.
//
// Example:
//
//	depth, ok := runctx.Lookup[int](rc, "miner.path.maxDepth")
func Lookup[T any](c *Context, name string) (T, bool) {
	var zero T
	raw, ok := c.values[name]
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// GetOrDefault returns the stored value or def. It never fails.
func GetOrDefault[T any](c *Context, key Key[T], def T) T {
	if v, ok := Get(c, key); ok {
		return v
	}
	return def
}

// Require returns the stored value or an error wrapping ErrMissingValue.
//
// Stages use Require for inputs without which they cannot proceed; the
// error aborts the run.
func Require[T any](c *Context, key Key[T]) (T, error) {
	v, ok := Get(c, key)
	if !ok {
		var zero T
		if _, present := c.values[key.name]; present {
			return zero, fmt.Errorf("%w: %s holds %T, want %T", ErrMissingValue, key.name, c.values[key.name], zero)
		}
		return zero, fmt.Errorf("%w: %s", ErrMissingValue, key.name)
	}
	return v, nil
}

// RecordStage appends a benchmark entry and advances the running total.
func (c *Context) RecordStage(stage string, elapsed time.Duration) Benchmark {
	c.total += elapsed
	b := Benchmark{Stage: stage, Elapsed: elapsed, Total: c.total}
	c.bench = append(c.bench, b)
	return b
}

// Benchmarks returns a copy of the benchmark log in invocation order.
func (c *Context) Benchmarks() []Benchmark {
	return slices.Clone(c.bench)
}

// TotalProcessing returns the sum of all recorded stage times.
func (c *Context) TotalProcessing() time.Duration {
	return c.total
}
