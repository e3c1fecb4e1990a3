// Copyright (c) FabricFlow Authors.
// Licensed under the MIT License.

/*
Package repo converts between the on-disk artifact tree and in-memory
descriptors.

The Reader produces one descriptor per immediate "<displayName>.<type>"
subdirectory of the source root. The Git-integration control file is
excluded from the parts, part kinds are classified by extension, and types
on the unsupported deny-list yield no descriptor at all. Any unreadable
file or directory aborts the run with READ_ERROR before a single remote
call is made.

The Writer runs the opposite direction for workspace exports: one
directory per descriptor, replacing any previous contents, plus a
manifest at the tree root.
*/
package repo
