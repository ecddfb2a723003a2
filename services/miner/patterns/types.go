// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package patterns attaches known design-pattern labels to record nodes and
// compares the observed counts with ground truth.
//
// # Description
//
// Ground truth is a per-dataset list of (pattern, class name) entries
// supplied by an external collaborator. A record matches an entry when its
// fully-qualified name ends with the entry's class name.
//
// # Thread Safety
//
// Labeler holds no mutable state. Label mutates graph nodes and must not
// run concurrently on the same graph.
package patterns

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianMiner/services/miner/runctx"
)

// ErrUnknownDataset is returned by StaticGroundTruth for a dataset it does
// not hold.
var ErrUnknownDataset = errors.New("no ground truth for dataset")

// PatternType identifies a design pattern. The value doubles as the node
// label attached by the Labeler.
type PatternType string

const (
	PatternAbstractFactory       PatternType = "AbstractFactory"
	PatternAdapter               PatternType = "Adapter"
	PatternBridge                PatternType = "Bridge"
	PatternBuilder               PatternType = "Builder"
	PatternChainOfResponsibility PatternType = "ChainOfResponsibility"
	PatternCommand               PatternType = "Command"
	PatternComposite             PatternType = "Composite"
	PatternDecorator             PatternType = "Decorator"
	PatternFacade                PatternType = "Facade"
	PatternFactoryMethod         PatternType = "FactoryMethod"
	PatternFlyweight             PatternType = "Flyweight"
	PatternInterpreter           PatternType = "Interpreter"
	PatternIterator              PatternType = "Iterator"
	PatternMediator              PatternType = "Mediator"
	PatternMemento               PatternType = "Memento"
	PatternObserver              PatternType = "Observer"
	PatternPrototype             PatternType = "Prototype"
	PatternProxy                 PatternType = "Proxy"
	PatternSingleton             PatternType = "Singleton"
	PatternState                 PatternType = "State"
	PatternStrategy              PatternType = "Strategy"
	PatternTemplateMethod        PatternType = "TemplateMethod"
	PatternVisitor               PatternType = "Visitor"
)

// AllPatternTypes lists the catalogue in alphabetical order.
var AllPatternTypes = []PatternType{
	PatternAbstractFactory, PatternAdapter, PatternBridge, PatternBuilder,
	PatternChainOfResponsibility, PatternCommand, PatternComposite,
	PatternDecorator, PatternFacade, PatternFactoryMethod, PatternFlyweight,
	PatternInterpreter, PatternIterator, PatternMediator, PatternMemento,
	PatternObserver, PatternPrototype, PatternProxy, PatternSingleton,
	PatternState, PatternStrategy, PatternTemplateMethod, PatternVisitor,
}

// patternAliases maps normalized spellings that do not reduce to a
// catalogue name.
var patternAliases = map[string]PatternType{
	"objectadapter":    PatternAdapter,
	"classadapter":     PatternAdapter,
	"factory":          PatternFactoryMethod,
	"chain":            PatternChainOfResponsibility,
	"template":         PatternTemplateMethod,
	"policy":           PatternStrategy,
	"publishsubscribe": PatternObserver,
}

// ParsePatternType maps a ground-truth pattern name to a PatternType.
//
// Description:
//
//	Matching ignores case, spaces, hyphens, underscores and parentheses,
//	so "Factory Method", "factory-method" and "(Object)Adapter" are all
//	recognized.
//
// Outputs:
//
//	PatternType - The pattern, or "" when unrecognized.
//	bool - False for unrecognized names. Callers skip those entries.
func ParsePatternType(name string) (PatternType, bool) {
	norm := normalize(name)
	if norm == "" {
		return "", false
	}
	for _, t := range AllPatternTypes {
		if normalize(string(t)) == norm {
			return t, true
		}
	}
	if t, ok := patternAliases[norm]; ok {
		return t, true
	}
	return "", false
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '-', '_', '(', ')', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PatternEntry is one ground-truth occurrence.
type PatternEntry struct {
	// Type is the pattern.
	Type PatternType `json:"type" yaml:"type"`

	// ClassName is the (possibly partially qualified) name of the class
	// playing a role in the pattern.
	ClassName string `json:"class" yaml:"class"`
}

// GroundTruth supplies pattern entries per dataset. Implementations are
// read-only during a run.
type GroundTruth interface {
	// Lookup returns the entries for dataset.
	Lookup(dataset string) ([]PatternEntry, error)
}

// StaticGroundTruth is an in-memory GroundTruth.
type StaticGroundTruth map[string][]PatternEntry

// Lookup implements GroundTruth.
func (s StaticGroundTruth) Lookup(dataset string) ([]PatternEntry, error) {
	entries, ok := s[dataset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, dataset)
	}
	return entries, nil
}

// Stats counts labels attached during one labeling pass.
type Stats struct {
	// ByType counts labels per pattern type.
	ByType map[PatternType]int

	// Total is the sum of ByType.
	Total int
}

// Comparison pairs the ground-truth and observed counts for one pattern.
type Comparison struct {
	Expected int
	Observed int
}

// Context keys written by the labeling stage.
var (
	// KeyStats holds the Stats of the run.
	KeyStats = runctx.NewKey[Stats]("miner.patterns.stats")

	// KeyComparison holds the ground-truth comparison of the run.
	KeyComparison = runctx.NewKey[map[PatternType]Comparison]("miner.patterns.comparison")
)
