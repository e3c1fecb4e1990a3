// Copyright (c) FabricFlow Authors.
// Licensed under the MIT License.

/*
Package metrics provides Prometheus metrics for deployment runs.

The Collector registers counters, histograms and gauges through promauto
under one namespace: executed actions by kind and outcome, run totals and
durations, poll counts per long-running operation, and the remote
inventory size observed at run start.
*/
package metrics
