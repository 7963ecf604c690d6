// Package graph builds a directed knowledge graph from disaster events.
//
// Nodes come in three kinds, with identifiers
//
//	event:<id>         one per record (store ID, else "source|start_time")
//	country:<name>     one per distinct case-folded, trimmed country
//	type:<event_type>  one per distinct case-folded, trimmed event type
//
// and edges in three relations, all directed:
//
//	occurred_in        event -> country
//	is_a               event -> type
//	next_in_<key>      event -> event, adjacent in time within a bucket of
//	                   events sharing the same <key> field value
//
// Nodes and edges keep insertion order so builds and projections are
// deterministic for a given input order.
package graph

// Kind classifies a node.
type Kind string

const (
	KindEvent   Kind = "event"
	KindCountry Kind = "country"
	KindType    Kind = "type"
)

// Relation names.
const (
	RelOccurredIn = "occurred_in"
	RelIsA        = "is_a"

	// SequencePrefix is prepended to the bucket field name to form the
	// sequence relation, e.g. "next_in_country".
	SequencePrefix = "next_in_"
)

// Node is a vertex in the graph.
type Node struct {
	ID    string
	Kind  Kind
	Attrs map[string]any
}

// Edge is a directed, labelled connection between two nodes.
type Edge struct {
	From     string
	To       string
	Relation string
}

type edgeKey struct {
	from, to string
}

// Graph is a directed simple graph: at most one edge per ordered node pair.
// The zero value is not usable; call New.
type Graph struct {
	nodes     []Node
	nodeIndex map[string]int
	edges     []Edge
	edgeIndex map[edgeKey]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[edgeKey]int),
	}
}

// AddNode inserts a node, or replaces the kind and attributes of an existing
// node with the same id while keeping its original position.
func (g *Graph) AddNode(id string, kind Kind, attrs map[string]any) {
	n := Node{ID: id, Kind: kind, Attrs: attrs}
	if i, ok := g.nodeIndex[id]; ok {
		g.nodes[i] = n
		return
	}
	g.nodeIndex[id] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodeIndex[id]
	return ok
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// AddEdge connects two existing nodes. Adding an edge for an ordered pair that
// is already connected replaces its relation. It returns false, and does
// nothing, when either endpoint is missing.
func (g *Graph) AddEdge(from, to, relation string) bool {
	if !g.HasNode(from) || !g.HasNode(to) {
		return false
	}
	k := edgeKey{from: from, to: to}
	if i, ok := g.edgeIndex[k]; ok {
		g.edges[i].Relation = relation
		return true
	}
	g.edgeIndex[k] = len(g.edges)
	g.edges = append(g.edges, Edge{From: from, To: to, Relation: relation})
	return true
}

// HasEdge reports whether from is connected to to.
func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.edgeIndex[edgeKey{from: from, to: to}]
	return ok
}

// Nodes returns the nodes in insertion order. The slice is a copy.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the edges in insertion order. The slice is a copy.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

func (g *Graph) NodeCount() int { return len(g.nodes) }

func (g *Graph) EdgeCount() int { return len(g.edges) }
