// Copyright (c) FabricFlow Authors.
// Licensed under the MIT License.

/*
Package deploy executes a reconciliation plan against the remote
workspace.

The executor walks the plan's upserts in schedule order, issuing one
remote call per action and resolving deferred operations through the
bounded polling loop. An action whose dependency failed is not attempted;
it fails with DEPENDENCY_NOT_SATISFIED and blocks its own dependents in
turn. Deletes run last and are withheld entirely when any upsert failed.

A failed action never aborts the run: failures accumulate into the
RunReport and the remaining independent actions still execute. The report
carries a unique run id, per-kind counters and the collected failures.
*/
package deploy
