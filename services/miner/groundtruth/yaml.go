// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package groundtruth

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

type yamlEntry struct {
	Pattern string `yaml:"pattern"`
	Class   string `yaml:"class"`
}

type yamlDocument struct {
	// Datasets maps dataset name to entries.
	Datasets map[string][]yamlEntry `yaml:"datasets"`

	// Entries belong to the default dataset.
	Entries []yamlEntry `yaml:"entries"`
}

// LoadYAML reads a document of the form:
//
//	entries:            # default dataset
//	  - {pattern: Singleton, class: Clipboard}
//	datasets:
//	  jhotdraw:
//	    - {pattern: Observer, class: FigureChangeListener}
func (s *Store) LoadYAML(r io.Reader, dataset string) error {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode ground-truth yaml: %w", err)
	}

	for _, e := range doc.Entries {
		s.Add(dataset, e.Pattern, e.Class)
	}

	names := make([]string, 0, len(doc.Datasets))
	for n := range doc.Datasets {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		for _, e := range doc.Datasets[n] {
			s.Add(n, e.Pattern, e.Class)
		}
	}
	return nil
}
