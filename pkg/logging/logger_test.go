// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"Warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "level(9)", Level(9).String())
}

func TestNew_LevelFilterAndService(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Service: "miner", Output: &buf})

	l.Info("hidden")
	l.Warn("shown", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "service=miner")
	assert.Contains(t, out, "k=1")
}

func TestNew_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{JSON: true, Output: &buf})
	l.Slog().Info("hello")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())
}

func TestNew_FileLogging(t *testing.T) {
	var buf bytes.Buffer
	dir := filepath.Join(t.TempDir(), "logs")
	l := New(Config{LogDir: dir, Service: "unit", Output: &buf})

	child := l.With("run_id", "r1")
	child.Info("to both")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "second close is a no-op")

	require.NotEmpty(t, l.FilePath())
	assert.True(t, strings.HasPrefix(filepath.Base(l.FilePath()), "unit_"))

	data, err := os.ReadFile(l.FilePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to both"`)
	assert.Contains(t, string(data), `"run_id":"r1"`)
	assert.Contains(t, buf.String(), "to both")
}

func TestNew_QuietWithoutFileFallsBack(t *testing.T) {
	l := New(Config{Quiet: true})
	require.NotNil(t, l.Slog())
	assert.Empty(t, l.FilePath())
	assert.NoError(t, l.Close())
}
