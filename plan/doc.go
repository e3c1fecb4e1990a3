// Copyright (c) FabricFlow Authors.
// Licensed under the MIT License.

/*
Package plan builds the reconciliation plan for one deployment run.

The planner compares the local descriptor set against the remote workspace
inventory and emits one action per artifact: create for local-only
artifacts, update when definitions differ, skip when they are equivalent,
and delete for remote-only artifacts in full-mirror mode. Upserts come out
in scheduler order, so dependencies always precede their dependents;
deletes execute only after every upsert.

In selective mode the plan covers the requested artifact plus its
transitive dependencies and never deletes anything. Metadata-only types
are created by name and type alone and, once present, never updated.
*/
package plan
