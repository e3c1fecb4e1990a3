// Copyright (c) FabricFlow Authors.
// Licensed under the MIT License.

/*
Package diff decides whether two artifact definitions are equivalent.

Non-archive parts compare byte for byte, and the two path sets must match
exactly. Archive parts cannot be compared by raw bytes: the service
regenerates the zip envelope (compression parameters, timestamps) on every
export, so two identical definitions rarely serialize to the same bytes.
Instead an archive is reduced to an unordered fingerprint map of
member name → (content checksum, uncompressed size), with members on the
volatile denylist removed, and the maps are compared.

A false "different" here causes pointless writes and item-id churn; a
false "same" silently leaves changes undeployed. Both directions are
covered by the package tests.
*/
package diff
