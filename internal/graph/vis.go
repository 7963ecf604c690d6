package graph

// DefaultVisLimit caps a projection when no positive limit is given.
const DefaultVisLimit = 1000

// VisNode is a node in the rendering payload.
type VisNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
}

// VisEdge is an edge in the rendering payload.
type VisEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// VisPayload is the size-bounded node/edge projection of a graph.
type VisPayload struct {
	Nodes []VisNode `json:"nodes"`
	Edges []VisEdge `json:"edges"`
}

// ToVis keeps the first limit nodes in insertion order, then every edge whose
// endpoints both survived. Edges touching a dropped node are omitted.
func ToVis(g *Graph, limit int) VisPayload {
	if limit <= 0 {
		limit = DefaultVisLimit
	}

	out := VisPayload{Nodes: []VisNode{}, Edges: []VisEdge{}}
	kept := make(map[string]struct{})
	for _, n := range g.nodes {
		if len(out.Nodes) >= limit {
			break
		}
		out.Nodes = append(out.Nodes, VisNode{ID: n.ID, Label: label(n), Kind: n.Kind})
		kept[n.ID] = struct{}{}
	}

	for _, e := range g.edges {
		_, okFrom := kept[e.From]
		_, okTo := kept[e.To]
		if okFrom && okTo {
			out.Edges = append(out.Edges, VisEdge{Source: e.From, Target: e.To, Relation: e.Relation})
		}
	}
	return out
}

// label prefers a name, then a title, then the raw node id.
func label(n Node) string {
	for _, key := range []string{"name", "title"} {
		if s, ok := n.Attrs[key].(string); ok && s != "" {
			return s
		}
	}
	return n.ID
}
