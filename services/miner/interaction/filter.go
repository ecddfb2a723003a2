// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package interaction

import (
	"fmt"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
)

// DefaultMaxDistinctScopes is the largest number of distinct scopedRecord
// values a valid path's interior may carry.
const DefaultMaxDistinctScopes = 2

// Filter decides whether a mined path is a sound interaction.
type Filter struct {
	// MaxDistinctScopes bounds the distinct scopedRecord values on interior
	// nodes. Zero or negative disables the check.
	MaxDistinctScopes int
}

// DefaultFilter returns a filter with the standard threshold.
func DefaultFilter() Filter {
	return Filter{MaxDistinctScopes: DefaultMaxDistinctScopes}
}

// Check explains why a path is rejected.
//
// Description:
//
//	A path is rejected when it has no edges, when any interior node (every
//	node except the two endpoints) is a record declaration, or when the
//	interior spans more than MaxDistinctScopes distinct scopedRecord
//	values. Unstamped interior nodes do not count toward the limit.
//
// Outputs:
//
//	error - nil for a valid path, otherwise ErrEmptyPath,
//	        ErrTransitsRecord or ErrTooManyScopes.
func (f Filter) Check(p graph.Path) error {
	if p.IsEmpty() {
		return ErrEmptyPath
	}

	scopes := make(map[string]struct{})
	for _, n := range p.Interior() {
		if n.IsRecord() {
			return fmt.Errorf("%w: %s", ErrTransitsRecord, n.ID)
		}
		if s, ok := n.ScopedRecord(); ok {
			scopes[s] = struct{}{}
		}
		if f.MaxDistinctScopes > 0 && len(scopes) > f.MaxDistinctScopes {
			return fmt.Errorf("%w: %d > %d", ErrTooManyScopes, len(scopes), f.MaxDistinctScopes)
		}
	}
	return nil
}

// IsValid reports whether Check accepts the path.
func (f Filter) IsValid(p graph.Path) bool {
	return f.Check(p) == nil
}
