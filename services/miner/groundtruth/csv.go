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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LoadCSV reads "pattern,class[,dataset]" rows.
//
// Description:
//
//	A header row is recognized when its first cell is "pattern"
//	(case-insensitive); its column names then select the columns, in any
//	order. Rows without a dataset column use dataset. Short rows are
//	skipped but still register their dataset.
func (s *Store) LoadCSV(r io.Reader, dataset string) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	cols := map[string]int{"pattern": 0, "class": 1, "dataset": 2}
	first := true

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode ground-truth csv: %w", err)
		}

		if first {
			first = false
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "pattern") {
				cols = make(map[string]int)
				for i, name := range row {
					cols[strings.ToLower(strings.TrimSpace(name))] = i
				}
				continue
			}
		}

		patternName, ok1 := cell(row, cols, "pattern")
		className, ok2 := cell(row, cols, "class")
		ds := dataset
		if v, ok := cell(row, cols, "dataset"); ok && v != "" {
			ds = v
		}
		if !ok1 || !ok2 {
			s.register(ds)
			s.skipped++
			continue
		}
		s.Add(ds, patternName, className)
	}
}

func cell(row []string, cols map[string]int, name string) (string, bool) {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}
