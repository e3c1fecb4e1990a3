// Copyright (c) FabricFlow Authors.
// Licensed under the MIT License.

// Package mocks provides recording fakes for the remote inventory surface.
package mocks
