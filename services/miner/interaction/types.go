// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package interaction filters mined record paths and classifies the
// survivors into interaction kinds between two records.
package interaction

import (
	"errors"
	"strings"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
	"github.com/AleutianAI/AleutianMiner/services/miner/runctx"
)

// KeyInteractions holds the accepted interactions of a run.
var KeyInteractions = runctx.NewKey[[]Interaction]("miner.interactions")

// Sentinel errors returned by Filter.Check.
var (
	// ErrEmptyPath indicates a path with no edges.
	ErrEmptyPath = errors.New("path is empty")

	// ErrTransitsRecord indicates an interior node is a record declaration.
	ErrTransitsRecord = errors.New("path passes through another record")

	// ErrTooManyScopes indicates the interior spans too many owning records.
	ErrTooManyScopes = errors.New("path spans too many scoped records")
)

// Type is the kind of relationship an interaction expresses.
type Type int

const (
	// Knows is the default: the source refers to the target.
	Knows Type = iota

	// Extends indicates a supertype relationship.
	Extends

	// Creates indicates the source instantiates the target.
	Creates

	// Calls indicates the source invokes the target. No default rule
	// produces it; it is available to custom rule tables.
	Calls

	// Returns indicates the source returns the target type.
	Returns
)

var typeNames = map[Type]string{
	Knows:   "Knows",
	Extends: "Extends",
	Creates: "Creates",
	Calls:   "Calls",
	Returns: "Returns",
}

// String returns the type name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// ParseType converts a name to a Type, case-insensitively.
func ParseType(s string) (Type, bool) {
	for t, name := range typeNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return t, true
		}
	}
	return Knows, false
}

// AllTypes lists the types in report order.
func AllTypes() []Type {
	return []Type{Extends, Creates, Calls, Returns, Knows}
}

// Interaction is a classified relationship between two records.
type Interaction struct {
	Type   Type
	Source *graph.Node
	Target *graph.Node
	Path   graph.Path

	// Reversed is true when Target is not the path's terminal node.
	Reversed bool
}

// New creates an interaction and derives Reversed from the path.
func New(t Type, source, target *graph.Node, path graph.Path) Interaction {
	reversed := false
	if end := path.Target(); target != nil && end != nil {
		reversed = target.ID != end.ID
	}
	return Interaction{
		Type:     t,
		Source:   source,
		Target:   target,
		Path:     path,
		Reversed: reversed,
	}
}

// String renders "Source -Type-> Target".
func (i Interaction) String() string {
	arrow := "->"
	if i.Reversed {
		arrow = "<-"
	}
	return nodeName(i.Source) + " -" + i.Type.String() + arrow + " " + nodeName(i.Target)
}

func nodeName(n *graph.Node) string {
	if n == nil {
		return "<nil>"
	}
	if fn := n.FullName(); fn != "" {
		return fn
	}
	return n.ID
}
