// Copyright (c) FabricFlow Authors.
// Licensed under the MIT License.

/*
Command fabricflow deploys a local tree of workspace artifacts to a
remote workspace.

Usage:

	fabricflow deploy -config config.yaml
	fabricflow deploy -item Sales.Report
	fabricflow deploy -dry-run
	fabricflow pull -workspace <id> -source ./fabric
	fabricflow version

The deploy command reads artifact directories under the configured
source root, compares them with the remote inventory, and applies the
minimal set of creates, updates and deletes in dependency order. With
-item the run is restricted to one artifact plus its dependencies and
never deletes; with -dry-run the plan is printed without touching the
workspace. The process exits non-zero when any action fails.

The pull command runs the opposite direction: it exports the remote
workspace into the source root, one directory per item, and writes a
manifest recording what was pulled.
*/
package main
