// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/fabricflow/types"
)

// Collector records deployment-run metrics.
type Collector struct {
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec

	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram

	operationPolls prometheus.Histogram
	inventorySize  *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector creates a metrics collector registered under the given
// namespace on the default registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Total number of executed deployment actions",
		},
		[]string{"kind", "outcome"},
	)

	c.actionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Deployment action duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	c.runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of deployment runs",
		},
		[]string{"status"},
	)

	c.runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Deployment run duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	c.operationPolls = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_polls",
			Help:      "Status polls needed per long-running operation",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 40, 72},
		},
	)

	c.inventorySize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remote_inventory_items",
			Help:      "Items in the remote workspace inventory at run start",
		},
		[]string{"workspace"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordAction records one executed deployment action.
func (c *Collector) RecordAction(kind types.ActionKind, outcome string, duration time.Duration) {
	c.actionsTotal.WithLabelValues(string(kind), outcome).Inc()
	c.actionDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

// RecordRun records one completed deployment run.
func (c *Collector) RecordRun(status string, duration time.Duration) {
	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.Observe(duration.Seconds())
}

// RecordOperationPolls records how many polls a deferred operation took.
func (c *Collector) RecordOperationPolls(polls int) {
	c.operationPolls.Observe(float64(polls))
}

// RecordInventorySize records the remote inventory size at run start.
func (c *Collector) RecordInventorySize(workspaceID string, items int) {
	c.inventorySize.WithLabelValues(workspaceID).Set(float64(items))
}
