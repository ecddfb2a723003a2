// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
	"slices"
	"strings"
)

// Default configuration values.
const (
	// DefaultMaxNodes is the default maximum number of nodes a graph can hold.
	DefaultMaxNodes = 1_000_000

	// DefaultMaxEdges is the default maximum number of edges a graph can hold.
	DefaultMaxEdges = 10_000_000
)

// Well-known node labels.
const (
	// LabelRecordDeclaration marks a class-like type declaration ("record").
	LabelRecordDeclaration = "RecordDeclaration"

	// LabelScope marks any syntactic container (block, namespace, class body).
	LabelScope = "Scope"

	// LabelRecordScope marks the scope opened by a record declaration.
	LabelRecordScope = "RecordScope"
)

// Well-known attribute keys.
const (
	// AttrFullName is the fully-qualified name of a declaration.
	AttrFullName = "fullName"

	// AttrScopedName is the qualified name of a scope container.
	AttrScopedName = "scopedName"

	// AttrScopedRecord is the fully-qualified name of the record that
	// structurally owns a node. Assigned at most once.
	AttrScopedRecord = "scopedRecord"

	// AttrWeight overrides the default edge weight of 1.
	AttrWeight = "weight"
)

// EdgeType defines the type of relationship between two graph nodes.
type EdgeType int

const (
	// EdgeTypeUnknown indicates an unrecognized relationship type.
	EdgeTypeUnknown EdgeType = iota

	// EdgeTypeInstantiates indicates an expression creates an instance of a record.
	EdgeTypeInstantiates

	// EdgeTypeSupertypeDeclaration indicates a record declares a supertype.
	EdgeTypeSupertypeDeclaration

	// EdgeTypeReturnType indicates a method returns a type.
	EdgeTypeReturnType

	// EdgeTypeRefersTo indicates a reference resolves to a declaration.
	EdgeTypeRefersTo

	// EdgeTypeParent points from a node to its syntactic parent.
	EdgeTypeParent

	// EdgeTypeDeclaredIn points from a member declaration to its container.
	EdgeTypeDeclaredIn

	// EdgeTypeScope points from a declaration to the scope it opens.
	EdgeTypeScope

	// EdgeTypeInvokes indicates a call expression invokes a function.
	EdgeTypeInvokes

	// EdgeTypeType points from a typed node to its type declaration.
	EdgeTypeType

	// EdgeTypeAST is a generic abstract-syntax-tree child edge.
	EdgeTypeAST

	// EdgeTypeFields points from a record to its fields.
	EdgeTypeFields

	// EdgeTypeMethods points from a record to its methods.
	EdgeTypeMethods

	// EdgeTypeDFG is a data-flow edge.
	EdgeTypeDFG

	// EdgeTypeEOG is an evaluation-order edge.
	EdgeTypeEOG

	// NumEdgeTypes is the total number of edge types (for array sizing).
	NumEdgeTypes
)

// edgeTypeNames maps EdgeType values to their canonical string representations.
var edgeTypeNames = map[EdgeType]string{
	EdgeTypeUnknown:              "unknown",
	EdgeTypeInstantiates:         "instantiates",
	EdgeTypeSupertypeDeclaration: "supertype_declaration",
	EdgeTypeReturnType:           "return_type",
	EdgeTypeRefersTo:             "refers_to",
	EdgeTypeParent:               "parent",
	EdgeTypeDeclaredIn:           "declared_in",
	EdgeTypeScope:                "scope",
	EdgeTypeInvokes:              "invokes",
	EdgeTypeType:                 "type",
	EdgeTypeAST:                  "ast",
	EdgeTypeFields:               "fields",
	EdgeTypeMethods:              "methods",
	EdgeTypeDFG:                  "dfg",
	EdgeTypeEOG:                  "eog",
}

// edgeTypeAliases maps alternative spellings emitted by CPG generators.
var edgeTypeAliases = map[string]EdgeType{
	"super_type_declarations": EdgeTypeSupertypeDeclaration,
	"supertype_declarations":  EdgeTypeSupertypeDeclaration,
	"return_types":            EdgeTypeReturnType,
	"declared_in_scope":       EdgeTypeDeclaredIn,
	"types":                   EdgeTypeType,
}

// String returns the string representation of the EdgeType.
func (t EdgeType) String() string {
	if name, ok := edgeTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseEdgeType converts an edge type tag to an EdgeType.
//
// Description:
//
//	Accepts snake_case, kebab-case and upper-case spellings
//	("supertype-declaration", "SUPER_TYPE_DECLARATIONS", ...).
//
// Outputs:
//
//	EdgeType - The parsed type, EdgeTypeUnknown on failure.
//	error - ErrInvalidEdgeType if the tag is not part of the enumeration.
func ParseEdgeType(s string) (EdgeType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	for t, name := range edgeTypeNames {
		if t != EdgeTypeUnknown && name == norm {
			return t, nil
		}
	}
	if t, ok := edgeTypeAliases[norm]; ok {
		return t, nil
	}
	return EdgeTypeUnknown, fmt.Errorf("%w: %q", ErrInvalidEdgeType, s)
}

// Node is a labeled vertex of the program graph.
type Node struct {
	// ID is the unique identifier within a graph.
	ID string

	// Labels is the ordered set of role labels.
	Labels []string

	// Attributes holds arbitrary node properties.
	Attributes map[string]any
}

// HasLabel reports whether the node carries label.
func (n *Node) HasLabel(label string) bool {
	return slices.Contains(n.Labels, label)
}

// AddLabel attaches label if it is not already present.
//
// Outputs:
//
//	bool - True if the label was added.
func (n *Node) AddLabel(label string) bool {
	if label == "" || n.HasLabel(label) {
		return false
	}
	n.Labels = append(n.Labels, label)
	return true
}

// IsRecord reports whether the node is a class-like declaration.
func (n *Node) IsRecord() bool {
	return n.HasLabel(LabelRecordDeclaration)
}

// StringAttr returns a string attribute, or "" if absent or not a string.
func (n *Node) StringAttr(key string) string {
	if n.Attributes == nil {
		return ""
	}
	s, _ := n.Attributes[key].(string)
	return s
}

// FullName returns the node's fully-qualified name.
func (n *Node) FullName() string {
	return n.StringAttr(AttrFullName)
}

// ScopedName returns the qualified name of a scope container.
func (n *Node) ScopedName() string {
	return n.StringAttr(AttrScopedName)
}

// ScopedRecord returns the name of the owning record, if assigned.
func (n *Node) ScopedRecord() (string, bool) {
	s := n.StringAttr(AttrScopedRecord)
	return s, s != ""
}

// SetScopedRecord assigns the owning record name.
//
// Description:
//
//	First writer wins: once a non-empty scopedRecord exists the call is a
//	no-op. Empty names are ignored.
//
// Outputs:
//
//	bool - True if the attribute was written.
func (n *Node) SetScopedRecord(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := n.ScopedRecord(); ok {
		return false
	}
	if n.Attributes == nil {
		n.Attributes = make(map[string]any)
	}
	n.Attributes[AttrScopedRecord] = name
	return true
}

// Edge represents a directed, typed relationship between two nodes.
//
// Multiple edges of the same type between the same nodes are allowed.
type Edge struct {
	// ID is the unique identifier within a graph.
	ID string

	// FromID is the ID of the source node.
	FromID string

	// ToID is the ID of the target node.
	ToID string

	// Type is the relationship type.
	Type EdgeType

	// Attributes holds arbitrary edge properties.
	Attributes map[string]any
}

// Weight returns the edge weight used by shortest-path search.
//
// A positive numeric "weight" attribute overrides the default of 1.
func (e *Edge) Weight() float64 {
	if e.Attributes != nil {
		switch w := e.Attributes[AttrWeight].(type) {
		case float64:
			if w > 0 {
				return w
			}
		case float32:
			if w > 0 {
				return float64(w)
			}
		case int:
			if w > 0 {
				return float64(w)
			}
		case int64:
			if w > 0 {
				return float64(w)
			}
		}
	}
	return 1
}

// Other returns the endpoint of e opposite to nodeID.
func (e *Edge) Other(nodeID string) string {
	if e.FromID == nodeID {
		return e.ToID
	}
	return e.FromID
}

// GraphOptions configures Graph limits.
type GraphOptions struct {
	// MaxNodes is the maximum number of nodes the graph can hold.
	MaxNodes int

	// MaxEdges is the maximum number of edges the graph can hold.
	MaxEdges int
}

// DefaultGraphOptions returns sensible defaults for graph configuration.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// GraphOption is a functional option for configuring Graph.
type GraphOption func(*GraphOptions)

// WithMaxNodes sets the maximum number of nodes the graph can hold.
func WithMaxNodes(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxNodes = n
	}
}

// WithMaxEdges sets the maximum number of edges the graph can hold.
func WithMaxEdges(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxEdges = n
	}
}

// Graph is an arena of nodes and edges addressed by string handles.
//
// Thread Safety:
//
//	Graph is NOT safe for concurrent use.
type Graph struct {
	// Name identifies the graph (dataset or project name).
	Name string

	nodes     map[string]*Node
	nodeOrder []string

	edges     map[string]*Edge
	edgeOrder []string

	// outgoing and incoming hold edge handles in insertion order.
	outgoing map[string][]string
	incoming map[string][]string

	// byLabel maps a label to node handles in insertion order.
	byLabel map[string][]string

	options GraphOptions
}

// NewGraph creates a new empty graph.
//
// Example:
//
//	g := graph.NewGraph("jhotdraw", graph.WithMaxNodes(100_000))
func NewGraph(name string, opts ...GraphOption) *Graph {
	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Graph{
		Name:     name,
		nodes:    make(map[string]*Node),
		edges:    make(map[string]*Edge),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		byLabel:  make(map[string][]string),
		options:  options,
	}
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// AddNode adds a node to the graph.
//
// Inputs:
//
//	id - Unique node ID. Must not be empty.
//	labels - Role labels. Duplicates are collapsed.
//	attrs - Attributes. The map is owned by the graph after the call.
//
// Outputs:
//
//	*Node - The created node.
//	error - ErrInvalidNode, ErrDuplicateNode or ErrMaxNodesExceeded.
func (g *Graph) AddNode(id string, labels []string, attrs map[string]any) (*Node, error) {
	if id == "" {
		return nil, ErrInvalidNode
	}
	if _, exists := g.nodes[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	if len(g.nodes) >= g.options.MaxNodes {
		return nil, ErrMaxNodesExceeded
	}
	if attrs == nil {
		attrs = make(map[string]any)
	}

	node := &Node{ID: id, Attributes: attrs}
	for _, l := range labels {
		node.AddLabel(l)
	}
	g.insertNode(node)
	return node, nil
}

// AddNodeRef inserts an existing node value without copying it.
//
// Description:
//
//	Used to build subgraphs that share node values with their parent
//	graph. Inserting a node whose ID already exists is a no-op.
func (g *Graph) AddNodeRef(node *Node) error {
	if node == nil || node.ID == "" {
		return ErrInvalidNode
	}
	if _, exists := g.nodes[node.ID]; exists {
		return nil
	}
	if len(g.nodes) >= g.options.MaxNodes {
		return ErrMaxNodesExceeded
	}
	g.insertNode(node)
	return nil
}

func (g *Graph) insertNode(node *Node) {
	g.nodes[node.ID] = node
	g.nodeOrder = append(g.nodeOrder, node.ID)
	for _, l := range node.Labels {
		g.byLabel[l] = append(g.byLabel[l], node.ID)
	}
}

// AddEdge adds a directed edge between two existing nodes.
//
// Outputs:
//
//	*Edge - The created edge.
//	error - ErrInvalidEdge, ErrDuplicateEdge, ErrNodeNotFound or
//	        ErrMaxEdgesExceeded.
func (g *Graph) AddEdge(id, fromID, toID string, edgeType EdgeType, attrs map[string]any) (*Edge, error) {
	edge := &Edge{ID: id, FromID: fromID, ToID: toID, Type: edgeType, Attributes: attrs}
	if err := g.AddEdgeRef(edge); err != nil {
		return nil, err
	}
	return edge, nil
}

// AddEdgeRef inserts an existing edge value without copying it.
//
// Both endpoints must already exist in g. Inserting an edge whose ID
// already exists returns ErrDuplicateEdge.
func (g *Graph) AddEdgeRef(edge *Edge) error {
	if edge == nil || edge.ID == "" || edge.FromID == "" || edge.ToID == "" {
		return ErrInvalidEdge
	}
	if _, exists := g.edges[edge.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEdge, edge.ID)
	}
	if _, ok := g.nodes[edge.FromID]; !ok {
		return fmt.Errorf("%w: edge %s source %s", ErrNodeNotFound, edge.ID, edge.FromID)
	}
	if _, ok := g.nodes[edge.ToID]; !ok {
		return fmt.Errorf("%w: edge %s target %s", ErrNodeNotFound, edge.ID, edge.ToID)
	}
	if len(g.edges) >= g.options.MaxEdges {
		return ErrMaxEdgesExceeded
	}

	g.edges[edge.ID] = edge
	g.edgeOrder = append(g.edgeOrder, edge.ID)
	g.outgoing[edge.FromID] = append(g.outgoing[edge.FromID], edge.ID)
	g.incoming[edge.ToID] = append(g.incoming[edge.ToID], edge.ID)
	return nil
}

// HasEdge reports whether an edge with the given ID exists.
func (g *Graph) HasEdge(id string) bool {
	_, ok := g.edges[id]
	return ok
}

// RemoveEdge deletes an edge by ID.
//
// Outputs:
//
//	bool - False if the edge did not exist.
func (g *Graph) RemoveEdge(id string) bool {
	edge, ok := g.edges[id]
	if !ok {
		return false
	}
	delete(g.edges, id)
	g.edgeOrder = removeHandle(g.edgeOrder, id)
	g.outgoing[edge.FromID] = removeHandle(g.outgoing[edge.FromID], id)
	g.incoming[edge.ToID] = removeHandle(g.incoming[edge.ToID], id)
	return true
}

func removeHandle(handles []string, id string) []string {
	idx := slices.Index(handles, id)
	if idx < 0 {
		return handles
	}
	return slices.Delete(handles, idx, idx+1)
}

// GetNode returns a node by ID. A missing node is reported as absent, not
// as an error.
func (g *Graph) GetNode(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// GetEdge returns an edge by ID.
func (g *Graph) GetEdge(id string) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// Nodes iterates nodes in insertion order.
//
// Example:
//
//	for id, node := range g.Nodes() {
//	    ...
//	}
func (g *Graph) Nodes() func(yield func(string, *Node) bool) {
	return func(yield func(string, *Node) bool) {
		for _, id := range g.nodeOrder {
			if !yield(id, g.nodes[id]) {
				return
			}
		}
	}
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, g.edges[id])
	}
	return out
}

// Outgoing returns the edges leaving nodeID in insertion order.
func (g *Graph) Outgoing(nodeID string) []*Edge {
	return g.resolve(g.outgoing[nodeID])
}

// Incoming returns the edges entering nodeID in insertion order.
func (g *Graph) Incoming(nodeID string) []*Edge {
	return g.resolve(g.incoming[nodeID])
}

func (g *Graph) resolve(handles []string) []*Edge {
	if len(handles) == 0 {
		return nil
	}
	out := make([]*Edge, 0, len(handles))
	for _, id := range handles {
		out = append(out, g.edges[id])
	}
	return out
}

// NodesByLabel returns the nodes carrying label in insertion order.
//
// The label index is built at insertion time. Labels attached later through
// Node.AddLabel are not indexed; use HasLabel for those.
func (g *Graph) NodesByLabel(label string) []*Node {
	handles := g.byLabel[label]
	out := make([]*Node, 0, len(handles))
	for _, id := range handles {
		out = append(out, g.nodes[id])
	}
	return out
}

// Clone returns a structurally independent copy of the graph.
//
// Behavior:
//
//   - Adjacency, order and label indexes are copied
//   - *Node and *Edge values are shared with the original
//   - RemoveEdge on the clone does not affect the original
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		Name:      g.Name,
		nodes:     make(map[string]*Node, len(g.nodes)),
		nodeOrder: slices.Clone(g.nodeOrder),
		edges:     make(map[string]*Edge, len(g.edges)),
		edgeOrder: slices.Clone(g.edgeOrder),
		outgoing:  make(map[string][]string, len(g.outgoing)),
		incoming:  make(map[string][]string, len(g.incoming)),
		byLabel:   make(map[string][]string, len(g.byLabel)),
		options:   g.options,
	}
	for id, n := range g.nodes {
		clone.nodes[id] = n
	}
	for id, e := range g.edges {
		clone.edges[id] = e
	}
	for id, h := range g.outgoing {
		clone.outgoing[id] = slices.Clone(h)
	}
	for id, h := range g.incoming {
		clone.incoming[id] = slices.Clone(h)
	}
	for l, h := range g.byLabel {
		clone.byLabel[l] = slices.Clone(h)
	}
	return clone
}

// Validate checks the referential invariant: every edge endpoint exists.
//
// Outputs:
//
//	error - Wraps ErrDanglingEdge for the first offending edge.
func (g *Graph) Validate() error {
	for _, id := range g.edgeOrder {
		edge := g.edges[id]
		if _, ok := g.nodes[edge.FromID]; !ok {
			return fmt.Errorf("%w: edge %s source %q", ErrDanglingEdge, id, edge.FromID)
		}
		if _, ok := g.nodes[edge.ToID]; !ok {
			return fmt.Errorf("%w: edge %s target %q", ErrDanglingEdge, id, edge.ToID)
		}
	}
	return nil
}

// GraphStats contains summary statistics about the graph.
type GraphStats struct {
	NodeCount   int
	EdgeCount   int
	RecordCount int
	EdgesByType map[EdgeType]int
}

// Stats returns summary statistics about the graph.
func (g *Graph) Stats() GraphStats {
	stats := GraphStats{
		NodeCount:   len(g.nodes),
		EdgeCount:   len(g.edges),
		RecordCount: len(g.byLabel[LabelRecordDeclaration]),
		EdgesByType: make(map[EdgeType]int),
	}
	for _, e := range g.edges {
		stats.EdgesByType[e.Type]++
	}
	return stats
}
