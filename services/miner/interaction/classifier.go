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
	"slices"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
	"github.com/AleutianAI/AleutianMiner/services/miner/mining"
)

// Rule maps a pivot edge type to an interaction type.
type Rule struct {
	Pivot graph.EdgeType
	Type  Type
}

// DefaultRules is the standard priority order.
var DefaultRules = []Rule{
	{Pivot: graph.EdgeTypeInstantiates, Type: Creates},
	{Pivot: graph.EdgeTypeSupertypeDeclaration, Type: Extends},
	{Pivot: graph.EdgeTypeReturnType, Type: Returns},
}

// Classifier assigns an interaction type to a path.
//
// Thread Safety: Immutable after creation.
type Classifier struct {
	rules    []Rule
	fallback Type
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithRules replaces the rule table. Earlier rules have higher priority.
func WithRules(rules ...Rule) ClassifierOption {
	return func(c *Classifier) {
		c.rules = slices.Clone(rules)
	}
}

// WithFallback sets the type used when no rule matches.
func WithFallback(t Type) ClassifierOption {
	return func(c *Classifier) {
		c.fallback = t
	}
}

// NewClassifier creates a classifier with DefaultRules and a Knows
// fallback.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		rules:    slices.Clone(DefaultRules),
		fallback: Knows,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the type of the first rule whose pivot edge occurs
// anywhere in the path, or the fallback.
//
// Example:
//
//	// a path with refers_to and instantiates edges
//	c.Classify(p) // Creates
func (c *Classifier) Classify(p graph.Path) Type {
	for _, r := range c.rules {
		for _, e := range p.Edges {
			if e.Type == r.Pivot {
				return r.Type
			}
		}
	}
	return c.fallback
}

// Extract filters and classifies every mined path.
//
// Description:
//
//	Paths are visited in RecordPaths order. Each valid path becomes one
//	interaction from its source record to its terminal node.
//
// Outputs:
//
//	[]Interaction - Accepted interactions.
//	int - Number of rejected paths.
func Extract(rp *mining.RecordPaths, f Filter, c *Classifier) ([]Interaction, int) {
	var out []Interaction
	rejected := 0
	for _, p := range rp.All() {
		if !f.IsValid(p) {
			rejected++
			continue
		}
		out = append(out, New(c.Classify(p), p.Source(), p.Target(), p))
	}
	return out, rejected
}

// CountByType tallies interactions per type.
func CountByType(interactions []Interaction) map[Type]int {
	counts := make(map[Type]int)
	for _, i := range interactions {
		counts[i.Type]++
	}
	return counts
}
