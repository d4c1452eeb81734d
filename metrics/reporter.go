// Package metrics wires component counters into the shared MetricSet
// registry so every subsystem's JSONString() is reachable from one place.
package metrics

import (
	"fmt"

	"slotbft/libs/metric"
)

// Reporter owns the process-wide MetricSet. It is an append-only sink:
// concurrent emission from any component's goroutine is safe.
type Reporter struct {
	set *metric.MetricSet
}

func NewReporter() *Reporter {
	return &Reporter{set: metric.NewMetricSet()}
}

// Register attaches a component's MetricItem under label. A duplicate
// label is a programming error and returned as-is.
func (r *Reporter) Register(label string, item metric.MetricItem) error {
	return r.set.SetMetrics(label, item)
}

// Snapshot renders every registered component's JSONString() into one map
// keyed by label.
func (r *Reporter) Snapshot() map[string]string {
	out := make(map[string]string)
	for _, label := range r.set.GetAlllabels() {
		item := r.set.GetMetrics(label)
		if item == nil {
			continue
		}
		out[label] = item.JSONString()
	}
	return out
}

func (r *Reporter) String() string {
	return fmt.Sprintf("%v", r.Snapshot())
}
