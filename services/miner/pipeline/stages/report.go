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
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/AleutianAI/AleutianMiner/services/miner/interaction"
	"github.com/AleutianAI/AleutianMiner/services/miner/mining"
	"github.com/AleutianAI/AleutianMiner/services/miner/patterns"
	"github.com/AleutianAI/AleutianMiner/services/miner/runctx"
	"github.com/AleutianAI/AleutianMiner/services/miner/storage/badger"
)

// Report summarizes one pipeline run.
type Report struct {
	RunID   string    `json:"run_id"`
	Dataset string    `json:"dataset"`
	Started time.Time `json:"started"`

	Nodes       int            `json:"nodes"`
	Edges       int            `json:"edges"`
	Records     int            `json:"records"`
	EdgesByType map[string]int `json:"edges_by_type,omitempty"`

	ScopesStamped int `json:"scopes_stamped"`

	SourceRecords int `json:"source_records"`
	Paths         int `json:"paths"`

	Interactions       int            `json:"interactions"`
	Rejected           int            `json:"rejected"`
	InteractionsByType map[string]int `json:"interactions_by_type"`

	Labels     int                                          `json:"labels"`
	Comparison map[patterns.PatternType]patterns.Comparison `json:"comparison,omitempty"`

	Persisted *badger.SaveInfo `json:"persisted,omitempty"`

	// Benchmarks is filled by Run once the pipeline has returned, so that
	// it includes the summarize stage itself.
	Benchmarks      []runctx.Benchmark `json:"benchmarks,omitempty"`
	TotalProcessing time.Duration      `json:"total_processing_ns"`
}

func buildReport(in []interaction.Interaction, rc *runctx.Context) *Report {
	r := &Report{
		RunID:              rc.RunID(),
		Dataset:            runctx.GetOrDefault(rc, runctx.KeyDataset, ""),
		Started:            rc.Started(),
		Interactions:       len(in),
		Rejected:           runctx.GetOrDefault(rc, KeyRejected, 0),
		InteractionsByType: make(map[string]int),
	}

	if gs, ok := runctx.Get(rc, KeyGraphStats); ok {
		r.Nodes, r.Edges, r.Records = gs.NodeCount, gs.EdgeCount, gs.RecordCount
		r.EdgesByType = make(map[string]int, len(gs.EdgesByType))
		for t, n := range gs.EdgesByType {
			r.EdgesByType[t.String()] = n
		}
	}
	if ss, ok := runctx.Get(rc, KeyScopeStats); ok {
		r.ScopesStamped = ss.Stamped
	}
	if rp, ok := runctx.Get(rc, mining.KeyRecordPaths); ok {
		r.SourceRecords = len(rp.Sources())
		r.Paths = rp.Len()
	}
	for t, n := range interaction.CountByType(in) {
		r.InteractionsByType[t.String()] = n
	}
	if ps, ok := runctx.Get(rc, patterns.KeyStats); ok {
		r.Labels = ps.Total
	}
	if cmp, ok := runctx.Get(rc, patterns.KeyComparison); ok {
		r.Comparison = cmp
	}
	if info, ok := runctx.Get(rc, KeyPersisted); ok {
		r.Persisted = &info
	}
	return r
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Report palette.
var (
	colorAccent = lipgloss.Color("#2CD7C7")
	colorBorder = lipgloss.Color("#16858E")
	colorMuted  = lipgloss.Color("#2C4A54")
)

// WriteText writes a human-readable summary.
//
// Description:
//
//	Styles are resolved against w: a terminal gets colors, any other
//	writer gets the same layout as plain text. Per-type interaction
//	counts, the ground-truth comparison and the stage timings are
//	rendered as tables.
func (r *Report) WriteText(w io.Writer) error {
	re := lipgloss.NewRenderer(w)
	title := re.NewStyle().Bold(true).Foreground(colorAccent)
	key := re.NewStyle().Width(16).Foreground(colorMuted)

	var b strings.Builder
	line := func(k, v string) {
		b.WriteString(key.Render(k))
		b.WriteString(v)
		b.WriteByte('\n')
	}

	b.WriteString(title.Render("Mining report"))
	b.WriteByte('\n')
	line("Run", r.RunID)
	line("Dataset", r.Dataset)
	line("Graph", fmt.Sprintf("%d nodes, %d edges, %d records", r.Nodes, r.Edges, r.Records))
	line("Scopes stamped", strconv.Itoa(r.ScopesStamped))
	line("Paths", fmt.Sprintf("%d from %d records", r.Paths, r.SourceRecords))
	line("Interactions", fmt.Sprintf("%d accepted, %d rejected", r.Interactions, r.Rejected))
	line("Pattern labels", strconv.Itoa(r.Labels))
	if r.Persisted != nil {
		line("Persisted", fmt.Sprintf("%s (%d nodes, %d edges)", r.Persisted.Name, r.Persisted.Nodes, r.Persisted.Edges))
	}

	var byType [][]string
	for _, t := range interaction.AllTypes() {
		if n := r.InteractionsByType[t.String()]; n > 0 {
			byType = append(byType, []string{t.String(), strconv.Itoa(n)})
		}
	}
	if len(byType) > 0 {
		b.WriteString(renderTable(re, []string{"INTERACTION", "COUNT"}, byType))
		b.WriteByte('\n')
	}

	if len(r.Comparison) > 0 {
		rows := make([][]string, 0, len(r.Comparison))
		for _, t := range patterns.SortedTypes(r.Comparison) {
			c := r.Comparison[t]
			rows = append(rows, []string{string(t), strconv.Itoa(c.Expected), strconv.Itoa(c.Observed)})
		}
		b.WriteString(renderTable(re, []string{"PATTERN", "EXPECTED", "OBSERVED"}, rows))
		b.WriteByte('\n')
	}

	if len(r.Benchmarks) > 0 {
		rows := make([][]string, 0, len(r.Benchmarks))
		for _, bm := range r.Benchmarks {
			rows = append(rows, []string{
				bm.Stage,
				bm.Elapsed.Round(time.Microsecond).String(),
				bm.Total.Round(time.Microsecond).String(),
			})
		}
		b.WriteString(renderTable(re, []string{"STAGE", "ELAPSED", "TOTAL"}, rows))
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderTable(re *lipgloss.Renderer, headers []string, rows [][]string) string {
	header := re.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cell := re.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(re.NewStyle().Foreground(colorBorder)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}
