package cstype

import (
	"encoding/hex"

	"slotbft/types"
)

// PendingState is the consensus state machine's exclusive, single piece of
// mutable state: at most one pending block, its accumulating vote, and the
// set of signer keys already counted toward it. The consensus state
// machine is the only owner; nothing else may mutate it.
type PendingState struct {
	PendingBlock *types.BlockHeader
	PendingVotes *types.Vote
	VotesKeySet  map[string]struct{}
}

func NewPendingState() *PendingState {
	return &PendingState{
		VotesKeySet: make(map[string]struct{}),
	}
}

// SetPendingBlock installs a fresh pending block, clearing any previous
// vote accumulator. Atomic from the caller's perspective: both fields
// change together under the caller's lock.
func (ps *PendingState) SetPendingBlock(b *types.BlockHeader) {
	ps.PendingBlock = b
	ps.PendingVotes = nil
	ps.VotesKeySet = make(map[string]struct{})
}

// ClearState resets all three fields, returning to the empty round.
func (ps *PendingState) ClearState() {
	ps.PendingBlock = nil
	ps.PendingVotes = nil
	ps.VotesKeySet = make(map[string]struct{})
}

func (ps *PendingState) HasPendingBlock() bool {
	return ps.PendingBlock != nil
}

// AddSignature records one already-verified signature item. It reports
// false, without mutating anything, if the key was already counted — the
// caller is responsible for verification and for round matching before
// calling this.
func (ps *PendingState) AddSignature(height types.Height, id types.BlockId, timestamp types.SlotTime, item types.SignatureItem) bool {
	keyHex := hex.EncodeToString(item.Key.Bytes())
	if _, dup := ps.VotesKeySet[keyHex]; dup {
		return false
	}
	ps.VotesKeySet[keyHex] = struct{}{}
	if ps.PendingVotes == nil {
		ps.PendingVotes = &types.Vote{Height: height, Id: id, Timestamp: timestamp}
	}
	ps.PendingVotes.Signatures = append(ps.PendingVotes.Signatures, item)
	return true
}
