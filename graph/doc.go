// Copyright (c) FabricFlow Authors.
// Licensed under the MIT License.

/*
Package graph builds and orders the cross-artifact dependency graph.

The Resolver inspects each descriptor's parts with a per-type extractor
strategy (notebook metadata blocks, semantic-model reference expressions,
report dataset references) and produces an edge only when the referenced
identity exists in the local set; unknown references are ignored. The
resulting graph must be acyclic (a cycle aborts the run before any remote
call) and is ordered dependency-first with a lexicographic tie-break so
unchanged input always yields an identical plan.

Adding support for a new artifact type means registering a new Extractor;
the Resolver's control flow never changes.
*/
package graph
