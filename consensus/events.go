package consensus

import "slotbft/types"

// Event names fired on the state machine's EventSwitch: once when a
// proposal passes AcceptPropose, once per AddPendingVotes call that folds in
// at least one new signature, and once when a pending block crosses the
// vote threshold. The node
// wiring subscribes to these and republishes over gossip, instead of the
// state machine holding a reference back into gossip, which is what would
// otherwise create the DHT-to-consensus cyclic ownership the overlay and
// gossip layers are built to avoid.
const (
	EventNewProposal = "slotbft.consensus.newProposal"
	EventNewVote     = "slotbft.consensus.newVote"
	EventCommit      = "slotbft.consensus.commit"
)

// CommitEvent is the payload fired on EventCommit: the block module
// consumes this to know a pending block crossed the vote threshold.
type CommitEvent struct {
	Height types.Height
	Id     types.BlockId
}
