package dht

import (
	"encoding/json"

	gometrics "github.com/rcrowley/go-metrics"
)

// Metrics counts node churn the overlay itself never surfaces as errors —
// adds, removals, and persistence failures are all logged-and-suppressed
// per spec §4.5, so a counter is the only visibility left.
type Metrics struct {
	NodesAdded        gometrics.Counter
	NodesRemoved      gometrics.Counter
	PersistenceErrors gometrics.Counter
	PublicIPChanges   gometrics.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		NodesAdded:        gometrics.NewCounter(),
		NodesRemoved:      gometrics.NewCounter(),
		PersistenceErrors: gometrics.NewCounter(),
		PublicIPChanges:   gometrics.NewCounter(),
	}
}

func (m *Metrics) JSONString() string {
	b, err := json.Marshal(struct {
		NodesAdded        int64 `json:"nodesAdded"`
		NodesRemoved      int64 `json:"nodesRemoved"`
		PersistenceErrors int64 `json:"persistenceErrors"`
		PublicIPChanges   int64 `json:"publicIpChanges"`
	}{m.NodesAdded.Count(), m.NodesRemoved.Count(), m.PersistenceErrors.Count(), m.PublicIPChanges.Count()})
	if err != nil {
		return "{}"
	}
	return string(b)
}
