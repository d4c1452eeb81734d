package consensus

import (
	"encoding/json"

	gometrics "github.com/rcrowley/go-metrics"

	"slotbft/libs/metric"
)

// Metrics is the consensus MetricItem: counters for dropped votes (stale,
// unverifiable or duplicate signatures), dropped proposals (any rejection in
// AcceptPropose), miner failures in CreatePropose, and blocks that crossed
// the commit threshold.
type Metrics struct {
	droppedVotes     gometrics.Counter
	droppedProposals gometrics.Counter
	minerTimeouts    gometrics.Counter
	committedBlocks  gometrics.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		droppedVotes:     gometrics.NewCounter(),
		droppedProposals: gometrics.NewCounter(),
		minerTimeouts:    gometrics.NewCounter(),
		committedBlocks:  gometrics.NewCounter(),
	}
}

func (m *Metrics) JSONString() string {
	snapshot := struct {
		DroppedVotes     int64 `json:"droppedVotes"`
		DroppedProposals int64 `json:"droppedProposals"`
		MinerTimeouts    int64 `json:"minerTimeouts"`
		CommittedBlocks  int64 `json:"committedBlocks"`
	}{
		DroppedVotes:     m.droppedVotes.Count(),
		DroppedProposals: m.droppedProposals.Count(),
		MinerTimeouts:    m.minerTimeouts.Count(),
		CommittedBlocks:  m.committedBlocks.Count(),
	}
	b, err := json.Marshal(snapshot)
	if err != nil {
		return "{}"
	}
	return string(b)
}

var _ metric.MetricItem = (*Metrics)(nil)
