// Copyright (c) FabricFlow Authors.
// Licensed under the MIT License.

/*
Package types provides the shared type definitions for the fabricflow
reconciliation engine.

types is the lowest-level public package and depends on no other package in
the module. It defines the contracts shared by repo, graph, diff, plan,
fabric and deploy so none of them need to import each other for data.

# Core types

  - Identity: (displayName, type) pair naming one artifact
  - Part / PartKind: one file of an artifact definition, classified
  - ArtifactDescriptor: local artifact, identity plus ordered parts
  - RemoteItem: remote inventory entry, identity plus item id
  - DeploymentAction: planned create/update/delete/skip with reason
  - OperationHandle: deferred remote operation lifecycle
  - RemoteResult: completed-or-deferred sum for mutating calls
  - Error / ErrorCode: structured error model with chainable builders
*/
package types
