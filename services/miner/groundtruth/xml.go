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
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LoadXML reads a P-MARt style micro-architecture description.
//
// Description:
//
//	The document is streamed. A <program name="..."> element selects the
//	dataset for everything nested in it; without one, dataset is used.
//	Every <entity> element nested in a <designPattern name="...">
//	contributes one entry, whatever role element wraps it:
//
//	  <program name="JHotDraw">
//	    <designPattern name="Composite">
//	      <microArchitecture number="1">
//	        <roles>
//	          <components><component><entity>CH.ifa.draw.Figure</entity></component></components>
//	        </roles>
//	      </microArchitecture>
//	    </designPattern>
//	  </program>
func (s *Store) LoadXML(r io.Reader, dataset string) error {
	dec := xml.NewDecoder(r)

	var (
		programs []string
		pattern  string
		inEntity bool
		text     strings.Builder
	)
	current := func() string {
		if len(programs) > 0 && programs[len(programs)-1] != "" {
			return programs[len(programs)-1]
		}
		return dataset
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode ground-truth xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "program":
				programs = append(programs, attr(t, "name"))
			case "designPattern":
				pattern = attr(t, "name")
			case "entity":
				inEntity = true
				text.Reset()
			}
		case xml.CharData:
			if inEntity {
				text.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "program":
				if len(programs) > 0 {
					programs = programs[:len(programs)-1]
				}
			case "designPattern":
				pattern = ""
			case "entity":
				inEntity = false
				if pattern != "" {
					s.Add(current(), pattern, text.String())
				}
			}
		}
	}
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}
