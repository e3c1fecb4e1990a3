package graph

import (
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/fabricflow/types"
)

// Resolver turns a local descriptor set into a dependency graph using
// per-type extractor strategies. Same input, same graph: extraction is
// pure and the graph's accessors are deterministically ordered.
type Resolver struct {
	extractors map[string]Extractor
	logger     *zap.Logger
}

// NewResolver creates a resolver with the given extractor strategies.
// Registering two extractors for one type keeps the last.
func NewResolver(logger *zap.Logger, extractors ...Extractor) *Resolver {
	m := make(map[string]Extractor, len(extractors))
	for _, e := range extractors {
		m[strings.ToLower(e.Type())] = e
	}
	return &Resolver{
		extractors: m,
		logger:     logger.With(zap.String("component", "graph_resolver")),
	}
}

// Resolve builds the dependency graph over the local set. Every
// descriptor becomes a node. References to identities outside the local
// set are dropped, not errors; an artifact with no recognizable reference
// pattern simply has no outgoing edges.
func (r *Resolver) Resolve(descriptors []*types.ArtifactDescriptor) *Graph {
	g := NewGraph()
	local := make(map[string]types.Identity, len(descriptors))
	for _, d := range descriptors {
		g.AddNode(d.Identity)
		local[d.Identity.Key()] = d.Identity
	}

	for _, d := range descriptors {
		extractor, ok := r.extractors[strings.ToLower(d.Identity.Type)]
		if !ok {
			continue
		}
		for _, ref := range extractor.References(d.Parts) {
			target, ok := local[ref.Key()]
			if !ok {
				r.logger.Debug("ignoring reference to identity outside local set",
					zap.String("from", d.Identity.String()),
					zap.String("to", ref.String()),
				)
				continue
			}
			g.AddEdge(d.Identity, target)
		}
	}
	return g
}
