package graph

import (
	"sort"
	"strings"

	"github.com/BaSui01/fabricflow/types"
)

// TopologicalOrder returns all nodes dependency-first: for every edge
// (u → v), v appears before u. Nodes with no ordering constraint between
// them are emitted in lexicographic identity order, so repeated runs on
// unchanged input produce an identical sequence.
//
// A cycle yields DEPENDENCY_CYCLE naming the participating identities.
func (g *Graph) TopologicalOrder() ([]types.Identity, error) {
	// Kahn's algorithm over outstanding-dependency counts, popping the
	// lexicographically smallest ready node each step.
	pending := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for key := range g.nodes {
		pending[key] = len(g.edges[key])
		for dep := range g.edges[key] {
			dependents[dep] = append(dependents[dep], key)
		}
	}

	var ready []string
	for key, n := range pending {
		if n == 0 {
			ready = append(ready, key)
		}
	}
	sort.Strings(ready)

	order := make([]types.Identity, 0, len(g.nodes))
	for len(ready) > 0 {
		key := ready[0]
		ready = ready[1:]
		order = append(order, g.nodes[key])

		for _, dep := range dependents[key] {
			pending[dep]--
			if pending[dep] == 0 {
				// Insert keeping ready sorted; the set stays small.
				i := sort.SearchStrings(ready, dep)
				ready = append(ready, "")
				copy(ready[i+1:], ready[i:])
				ready[i] = dep
			}
		}
	}

	if len(order) < len(g.nodes) {
		return nil, g.cycleError()
	}
	return order, nil
}

// cycleError walks the unfinished subgraph to name one concrete cycle.
func (g *Graph) cycleError() *types.Error {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string
	var cycle []string

	var visit func(key string) bool
	visit = func(key string) bool {
		visited[key] = true
		onStack[key] = true
		stack = append(stack, key)
		for dep := range g.edges[key] {
			if !visited[dep] {
				if visit(dep) {
					return true
				}
			} else if onStack[dep] {
				// Back edge: the cycle is the stack suffix from dep.
				for i, k := range stack {
					if k == dep {
						cycle = append(cycle, stack[i:]...)
						break
					}
				}
				return true
			}
		}
		onStack[key] = false
		stack = stack[:len(stack)-1]
		return false
	}

	keys := make([]string, 0, len(g.nodes))
	for key := range g.nodes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !visited[key] && visit(key) {
			break
		}
	}

	names := make([]string, 0, len(cycle))
	for _, key := range cycle {
		names = append(names, g.nodes[key].String())
	}
	return types.NewError(types.ErrDependencyCycle,
		"dependency cycle involving: "+strings.Join(names, " -> "))
}

// Closure returns root plus everything it transitively depends on. The
// result is unordered; feed it through a Subgraph's TopologicalOrder for
// scheduling. Root must be in the graph.
func (g *Graph) Closure(root types.Identity) ([]types.Identity, error) {
	if !g.HasNode(root) {
		return nil, types.NewError(types.ErrRead, "requested artifact not found in local set").
			WithIdentity(root)
	}
	seen := map[string]bool{root.Key(): true}
	queue := []string{root.Key()}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		for dep := range g.edges[key] {
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	out := make([]types.Identity, 0, len(seen))
	for key := range seen {
		out = append(out, g.nodes[key])
	}
	sortIdentities(out)
	return out, nil
}

// Subgraph returns the induced subgraph over the given identities.
func (g *Graph) Subgraph(ids []types.Identity) *Graph {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id.Key()] = true
	}
	sub := NewGraph()
	for _, id := range ids {
		if !g.HasNode(id) {
			continue
		}
		sub.AddNode(g.nodes[id.Key()])
		for dep := range g.edges[id.Key()] {
			if keep[dep] {
				sub.AddEdge(g.nodes[id.Key()], g.nodes[dep])
			}
		}
	}
	return sub
}
