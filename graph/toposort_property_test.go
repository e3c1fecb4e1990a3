package graph

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/BaSui01/fabricflow/types"
)

// randomDAG builds a graph from an edge-probability matrix, directing
// every edge from higher index to lower index so the result is acyclic by
// construction.
func randomDAG(n int, edgeBits []bool) *Graph {
	g := NewGraph()
	ids := make([]types.Identity, n)
	for i := range ids {
		ids[i] = types.Identity{Name: fmt.Sprintf("Item%02d", i), Type: "Notebook"}
		g.AddNode(ids[i])
	}
	k := 0
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			if k < len(edgeBits) && edgeBits[k] {
				g.AddEdge(ids[i], ids[j])
			}
			k++
		}
	}
	return g
}

func TestProperty_TopologicalOrderRespectsDependencies(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("no node is scheduled before one of its dependencies", prop.ForAll(
		func(n int, edgeBits []bool) bool {
			g := randomDAG(n, edgeBits)
			order, err := g.TopologicalOrder()
			if err != nil {
				t.Logf("unexpected cycle error on acyclic input: %v", err)
				return false
			}
			if len(order) != g.Len() {
				t.Logf("order length %d != node count %d", len(order), g.Len())
				return false
			}
			position := make(map[string]int, len(order))
			for i, id := range order {
				position[id.Key()] = i
			}
			for _, from := range g.Nodes() {
				for _, to := range g.Dependencies(from) {
					if position[to.Key()] >= position[from.Key()] {
						t.Logf("%s scheduled before its dependency %s", from, to)
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("repeated ordering of the same DAG is identical", prop.ForAll(
		func(n int, edgeBits []bool) bool {
			first, err := randomDAG(n, edgeBits).TopologicalOrder()
			if err != nil {
				return false
			}
			second, err := randomDAG(n, edgeBits).TopologicalOrder()
			if err != nil {
				return false
			}
			if len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i] != second[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
