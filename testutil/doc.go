// Copyright (c) FabricFlow Authors.
// Licensed under the MIT License.

// Package testutil provides shared helpers for fabricflow tests.
package testutil
