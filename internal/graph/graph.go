// Package graph accumulates table lineage into a node/edge model.
//
// Nodes are identified by their display string and keep insertion order.
// Edges are kept in emission order and are never merged, so repeated
// lineage shows up as repeated edges.
package graph

import (
	"sql-lineage/internal/model"
)

// Shape is the visual shape of a node.
type Shape string

const (
	ShapeTable    Shape = "cylinder"
	ShapeArtifact Shape = "note"
)

// Outline colors of a written-to table node.
const (
	OutlineRead    = "white"
	OutlineWritten = "black"
)

var edgeColors = map[model.QueryType]string{
	model.QueryTypeDelete:  "#1b9e77",
	model.QueryTypeUpdate:  "#d95f02",
	model.QueryTypeInsert:  "#e6ab02",
	model.QueryTypeSelect:  "#e7298a",
	model.QueryTypeUnknown: "#ffffff",
}

// EdgeColor returns the edge color for a query type.
func EdgeColor(q model.QueryType) string {
	if c, ok := edgeColors[q]; ok {
		return c
	}
	return edgeColors[model.QueryTypeUnknown]
}

// Node represents a table or artifact in the graph.
type Node struct {
	// ID is the display string, which is also the node's identity
	ID    string
	Shape Shape
	// Color is the outline color; empty means the renderer default
	Color string
}

// Edge is a directed, colored link between two nodes.
type Edge struct {
	Tail      string
	Head      string
	Color     string
	QueryType model.QueryType
}

// Graph is the lineage model built during one run.
type Graph struct {
	nodes map[string]*Node
	order []string
	edges []Edge
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
	}
}

// AddNode ensures a node exists. A non-empty color replaces the current
// one, so the last explicit color wins.
func (g *Graph) AddNode(id string, shape Shape, color string) *Node {
	n, exists := g.nodes[id]
	if !exists {
		n = &Node{ID: id, Shape: shape}
		g.nodes[id] = n
		g.order = append(g.order, id)
	}
	n.Shape = shape
	if color != "" {
		n.Color = color
	}
	return n
}

// AddEdge appends an edge. Identical edges are kept.
func (g *Graph) AddEdge(tail, head string, q model.QueryType) {
	g.edges = append(g.edges, Edge{
		Tail:      tail,
		Head:      head,
		Color:     EdgeColor(q),
		QueryType: q,
	})
}

// AddLineage links a record's sources through its origin artifact to its target.
//
// The target node is outlined white for SELECT and black otherwise. When the
// record has no target only the source edges are drawn. Callers filter out
// records with neither sources nor target.
func (g *Graph) AddLineage(r model.LineageRecord) {
	if r.HasTarget() {
		outline := OutlineWritten
		if r.QueryType == model.QueryTypeSelect {
			outline = OutlineRead
		}
		g.AddNode(r.Target, ShapeTable, outline)
	}

	g.AddNode(r.OriginLabel, ShapeArtifact, "")

	if r.HasTarget() {
		g.AddEdge(r.OriginLabel, r.Target, r.QueryType)
	}

	for _, src := range r.Sources {
		g.AddNode(src, ShapeTable, "")
		g.AddEdge(src, r.OriginLabel, r.QueryType)
	}
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// Edges returns all edges in emission order.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}
