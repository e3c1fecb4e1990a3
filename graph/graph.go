package graph

import (
	"sort"

	"github.com/BaSui01/fabricflow/types"
)

// Graph is a directed dependency graph over artifact identities. An edge
// from u to v means "u depends on v": v must be deployed before u.
type Graph struct {
	// nodes maps identity key → identity.
	nodes map[string]types.Identity
	// edges maps dependent key → set of dependency keys.
	edges map[string]map[string]struct{}
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]types.Identity),
		edges: make(map[string]map[string]struct{}),
	}
}

// AddNode adds an identity to the graph. Adding twice is a no-op.
func (g *Graph) AddNode(id types.Identity) {
	if _, ok := g.nodes[id.Key()]; !ok {
		g.nodes[id.Key()] = id
	}
}

// AddEdge records that from depends on to. Both endpoints are added as
// nodes if missing. Self-edges are ignored.
func (g *Graph) AddEdge(from, to types.Identity) {
	if from.Key() == to.Key() {
		return
	}
	g.AddNode(from)
	g.AddNode(to)
	deps, ok := g.edges[from.Key()]
	if !ok {
		deps = make(map[string]struct{})
		g.edges[from.Key()] = deps
	}
	deps[to.Key()] = struct{}{}
}

// HasNode reports whether the identity is in the graph.
func (g *Graph) HasNode(id types.Identity) bool {
	_, ok := g.nodes[id.Key()]
	return ok
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns all identities in lexicographic key order.
func (g *Graph) Nodes() []types.Identity {
	out := make([]types.Identity, 0, len(g.nodes))
	for _, id := range g.nodes {
		out = append(out, id)
	}
	sortIdentities(out)
	return out
}

// Dependencies returns what id depends on, in lexicographic key order.
func (g *Graph) Dependencies(id types.Identity) []types.Identity {
	var out []types.Identity
	for key := range g.edges[id.Key()] {
		out = append(out, g.nodes[key])
	}
	sortIdentities(out)
	return out
}

// DependsOn reports whether from has a direct edge to to.
func (g *Graph) DependsOn(from, to types.Identity) bool {
	_, ok := g.edges[from.Key()][to.Key()]
	return ok
}

func sortIdentities(ids []types.Identity) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Key() < ids[j].Key() })
}
