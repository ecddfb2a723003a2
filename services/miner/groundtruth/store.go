// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package groundtruth loads design-pattern ground truth from P-MARt style
// XML, CSV and YAML files.
//
// Entries with unrecognized pattern names are skipped and counted, but the
// dataset they name still becomes known, so a lookup returns an empty list
// rather than an unknown-dataset error. Repeated (pattern, class) rows are
// kept: each one is a separate ground-truth occurrence. Reader and parser
// errors are returned wrapped so errors.Is still matches the
// original cause.
package groundtruth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/AleutianAI/AleutianMiner/services/miner/patterns"
)

// ErrUnsupportedFormat is returned by LoadFile for an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported ground-truth format")

// Store holds pattern entries per dataset and implements
// patterns.GroundTruth.
//
// Thread Safety:
//
//	Store is NOT safe for concurrent mutation. Once loading is finished it
//	may be read concurrently.
type Store struct {
	entries map[string][]patterns.PatternEntry
	skipped int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string][]patterns.PatternEntry)}
}

// Add records one raw entry.
//
// Description:
//
//	The dataset is registered even when the entry is skipped. Duplicate
//	entries are appended again; the comparison counts occurrences.
//
// Outputs:
//
//	bool - False if the pattern name is unrecognized or the class name is
//	       empty.
func (s *Store) Add(dataset, patternName, className string) bool {
	s.register(dataset)

	t, ok := patterns.ParsePatternType(patternName)
	className = strings.TrimSpace(className)
	if !ok || className == "" {
		s.skipped++
		return false
	}

	s.entries[dataset] = append(s.entries[dataset], patterns.PatternEntry{Type: t, ClassName: className})
	return true
}

func (s *Store) register(dataset string) {
	if _, ok := s.entries[dataset]; !ok {
		s.entries[dataset] = nil
	}
}

// Lookup implements patterns.GroundTruth. A dataset that the loaded
// sources mentioned only through skipped rows yields an empty slice.
func (s *Store) Lookup(dataset string) ([]patterns.PatternEntry, error) {
	entries, ok := s.entries[dataset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", patterns.ErrUnknownDataset, dataset)
	}
	return slices.Clone(entries), nil
}

// Datasets returns the known dataset names, sorted, including datasets
// whose entries were all skipped.
func (s *Store) Datasets() []string {
	names := make([]string, 0, len(s.entries))
	for n := range s.entries {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Skipped returns the number of entries dropped for an unrecognized
// pattern or a missing class name.
func (s *Store) Skipped() int {
	return s.skipped
}

// LoadFile loads a ground-truth file, choosing the reader by extension
// (.xml, .csv, .yaml/.yml).
//
// Inputs:
//
//	path - File to read.
//	dataset - Dataset used for entries that do not name one.
func (s *Store) LoadFile(path, dataset string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open ground truth: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return s.LoadXML(f, dataset)
	case ".csv":
		return s.LoadCSV(f, dataset)
	case ".yaml", ".yml":
		return s.LoadYAML(f, dataset)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}
