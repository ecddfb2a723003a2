// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianMiner/services/miner/graph"
)

var tracer = otel.Tracer("aleutian.miner.storage")

// Sentinel errors for graph storage.
var (
	// ErrGraphNotFound is returned by LoadGraph for an unknown graph name.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrInvalidGraphName is returned for empty names or names containing '/'.
	ErrInvalidGraphName = errors.New("invalid graph name")
)

// Key layout:
//
//	g/<name>/meta        graphMeta
//	g/<name>/n/<seq>     graph.NodeRecord
//	g/<name>/e/<seq>     graph.EdgeRecord
//
// seq is a zero-padded insertion index so prefix iteration restores
// insertion order.
const keyRoot = "g/"

func graphPrefix(name string) []byte { return []byte(keyRoot + name + "/") }
func metaKey(name string) []byte     { return []byte(keyRoot + name + "/meta") }
func nodePrefix(name string) []byte  { return []byte(keyRoot + name + "/n/") }
func edgePrefix(name string) []byte  { return []byte(keyRoot + name + "/e/") }

func seqKey(prefix []byte, i int) []byte {
	return append(append([]byte(nil), prefix...), fmt.Sprintf("%012d", i)...)
}

// graphMeta is stored alongside each graph.
type graphMeta struct {
	Name    string    `json:"name"`
	Nodes   int       `json:"nodes"`
	Edges   int       `json:"edges"`
	SavedAt time.Time `json:"saved_at"`
	RunID   string    `json:"run_id,omitempty"`
	Dataset string    `json:"dataset,omitempty"`
}

// SaveInfo describes a stored graph.
type SaveInfo struct {
	Name    string
	Nodes   int
	Edges   int
	SavedAt time.Time
	RunID   string
	Dataset string
}

// GraphStore writes and reads whole graphs.
//
// Thread Safety:
//
//	Safe for concurrent use; BadgerDB serializes conflicting writes.
type GraphStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewGraphStore wraps an open database.
//
// Inputs:
//
//	db - The database. Must not be nil. The caller keeps ownership.
//	logger - Logger. If nil, uses slog.Default().
func NewGraphStore(db *badger.DB, logger *slog.Logger) (*GraphStore, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphStore{db: db, logger: logger}, nil
}

// SaveOptions annotates a saved graph.
type SaveOptions struct {
	RunID   string
	Dataset string
}

// SaveGraph replaces any stored graph of the same name with g.
//
// Description:
//
//	Existing keys under the graph's prefix are deleted, then all nodes
//	and edges are written with a WriteBatch in insertion order, followed
//	by the metadata record. Values are JSON-encoded graph records.
//
// Outputs:
//
//	SaveInfo - What was written.
//	error - ErrInvalidGraphName, or the underlying BadgerDB or encoding
//	        error wrapped with %w.
func (s *GraphStore) SaveGraph(ctx context.Context, g *graph.Graph, opts SaveOptions) (SaveInfo, error) {
	if err := checkName(g.Name); err != nil {
		return SaveInfo{}, err
	}

	_, span := tracer.Start(ctx, "GraphStore.SaveGraph",
		trace.WithAttributes(
			attribute.String("graph.name", g.Name),
			attribute.Int("graph.nodes", g.NodeCount()),
			attribute.Int("graph.edges", g.EdgeCount()),
		),
	)
	defer span.End()

	info, err := s.save(g, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SaveInfo{}, err
	}

	s.logger.Info("graph persisted",
		slog.String("graph", info.Name),
		slog.Int("nodes", info.Nodes),
		slog.Int("edges", info.Edges),
	)
	return info, nil
}

func (s *GraphStore) save(g *graph.Graph, opts SaveOptions) (SaveInfo, error) {
	if err := s.deletePrefix(graphPrefix(g.Name)); err != nil {
		return SaveInfo{}, err
	}

	doc := g.Document()
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	np := nodePrefix(g.Name)
	for i, rec := range doc.Nodes {
		if err := setJSON(wb, seqKey(np, i), rec); err != nil {
			return SaveInfo{}, fmt.Errorf("write node %s: %w", rec.ID, err)
		}
	}
	ep := edgePrefix(g.Name)
	for i, rec := range doc.Edges {
		if err := setJSON(wb, seqKey(ep, i), rec); err != nil {
			return SaveInfo{}, fmt.Errorf("write edge %s: %w", rec.ID, err)
		}
	}

	meta := graphMeta{
		Name:    g.Name,
		Nodes:   len(doc.Nodes),
		Edges:   len(doc.Edges),
		SavedAt: time.Now().UTC(),
		RunID:   opts.RunID,
		Dataset: opts.Dataset,
	}
	if err := setJSON(wb, metaKey(g.Name), meta); err != nil {
		return SaveInfo{}, fmt.Errorf("write graph metadata: %w", err)
	}

	if err := wb.Flush(); err != nil {
		return SaveInfo{}, fmt.Errorf("flush graph batch: %w", err)
	}
	return meta.info(), nil
}

func setJSON(wb *badger.WriteBatch, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return wb.Set(key, data)
}

func (m graphMeta) info() SaveInfo {
	return SaveInfo{
		Name:    m.Name,
		Nodes:   m.Nodes,
		Edges:   m.Edges,
		SavedAt: m.SavedAt,
		RunID:   m.RunID,
		Dataset: m.Dataset,
	}
}

// LoadGraph reads a stored graph back.
//
// Outputs:
//
//	*graph.Graph - The graph with nodes and edges in their saved order.
//	error - ErrGraphNotFound if nothing is stored under name.
func (s *GraphStore) LoadGraph(ctx context.Context, name string, opts ...graph.GraphOption) (*graph.Graph, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	_, span := tracer.Start(ctx, "GraphStore.LoadGraph",
		trace.WithAttributes(attribute.String("graph.name", name)),
	)
	defer span.End()

	doc := graph.Document{Name: name}
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(metaKey(name)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrGraphNotFound, name)
			}
			return err
		}
		if err := scan(txn, nodePrefix(name), func(val []byte) error {
			var rec graph.NodeRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			doc.Nodes = append(doc.Nodes, rec)
			return nil
		}); err != nil {
			return fmt.Errorf("read nodes: %w", err)
		}
		return scan(txn, edgePrefix(name), func(val []byte) error {
			var rec graph.EdgeRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			doc.Edges = append(doc.Edges, rec)
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return graph.FromDocument(doc, opts...)
}

// Info returns the metadata of a stored graph.
func (s *GraphStore) Info(name string) (SaveInfo, error) {
	var meta graphMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrGraphNotFound, name)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return SaveInfo{}, err
	}
	return meta.info(), nil
}

// ListGraphs returns the names of all stored graphs in key order.
func (s *GraphStore) ListGraphs() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyRoot)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if rest, ok := strings.CutSuffix(strings.TrimPrefix(key, keyRoot), "/meta"); ok && !strings.Contains(rest, "/") {
				names = append(names, rest)
			}
		}
		return nil
	})
	return names, err
}

// DeleteGraph removes a stored graph. Deleting an unknown graph is a no-op.
func (s *GraphStore) DeleteGraph(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return s.deletePrefix(graphPrefix(name))
}

func (s *GraphStore) deletePrefix(prefix []byte) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush delete batch: %w", err)
	}
	return nil
}

func scan(txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

func checkName(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidGraphName, name)
	}
	return nil
}
