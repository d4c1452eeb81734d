package consensus

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/libs/events"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/libs/service"

	cstype "slotbft/consensus/types"
	"slotbft/codec"
	"slotbft/delegate"
	"slotbft/pow"
	"slotbft/slotclock"
	"slotbft/types"
)

// ConsensusState holds at most one pending block and its accumulating vote
// set, and implements the proposal/vote verification and aggregation
// operations that move it through IDLE -> PROPOSED -> COMMITTABLE -> IDLE.
// It is the exclusive owner of PendingState; nothing else may mutate it.
type ConsensusState struct {
	service.BaseService

	mtx     sync.Mutex
	pending *cstype.PendingState
	step    cstype.RoundStepType

	slotClock slotclock.SlotClock
	index     delegate.Index
	miner     pow.Miner
	env       codec.EnvContext

	eventSwitch events.EventSwitch
	metrics     *Metrics
}

func NewConsensusState(slotClock slotclock.SlotClock, index delegate.Index, miner pow.Miner, env codec.EnvContext) *ConsensusState {
	cs := &ConsensusState{
		pending:     cstype.NewPendingState(),
		step:        cstype.RoundStepIdle,
		slotClock:   slotClock,
		index:       index,
		miner:       miner,
		env:         env,
		eventSwitch: events.NewEventSwitch(),
		metrics:     NewMetrics(),
	}
	cs.BaseService = *service.NewBaseService(nil, "Consensus", cs)
	return cs
}

func (cs *ConsensusState) SetLogger(logger log.Logger) {
	cs.Logger = logger
}

func (cs *ConsensusState) EventSwitch() events.EventSwitch {
	return cs.eventSwitch
}

// Metrics exposes the state machine's MetricItem for registration with a
// metrics.Reporter.
func (cs *ConsensusState) Metrics() *Metrics {
	return cs.metrics
}

func (cs *ConsensusState) OnStart() error {
	if err := cs.eventSwitch.Start(); err != nil {
		return err
	}
	go cs.slotBoundaryLoop()
	return nil
}

func (cs *ConsensusState) OnStop() {
	if err := cs.eventSwitch.Stop(); err != nil {
		cs.Logger.Error("failed stopping event switch", "err", err)
	}
}

// slotBoundaryLoop implements the supplemented "any state + slot boundary
// -> IDLE" transition: a slot that elapses without a committed block
// clears whatever was pending so the next round starts clean.
func (cs *ConsensusState) slotBoundaryLoop() {
	for {
		select {
		case <-cs.Quit():
			return
		case slot := <-cs.slotClock.Chan():
			cs.mtx.Lock()
			if cs.pending.HasPendingBlock() && cs.pending.PendingBlock.Timestamp != types.SlotTime(0) {
				pendingSlot := cs.slotClock.SlotOf(time.Unix(int64(cs.pending.PendingBlock.Timestamp), 0))
				if pendingSlot != slot {
					cs.clearStateLocked()
				}
			}
			cs.mtx.Unlock()
		}
	}
}

// CreatePropose builds and signs a fresh proposal over block, asserting
// privKey's public key matches the block's declared generator.
func (cs *ConsensusState) CreatePropose(ctx context.Context, privKey crypto.PrivKey, block *types.BlockHeader, address string) (*types.Proposal, error) {
	pub := privKey.PubKey()
	if block.GeneratorPublicKey == nil || !pub.Equals(block.GeneratorPublicKey) {
		return nil, NewError(ErrMalformedKey, "keypair public key does not match block generator")
	}

	idx, err := cs.index.IndexOf(pub)
	if err != nil {
		return nil, NewError(ErrMalformedKey, err.Error())
	}

	leading := int(cs.slotClock.Leading())
	difficulty, err := pow.Difficulty(idx, leading)
	if err != nil {
		return nil, NewError(ErrMalformedKey, err.Error())
	}

	preHash, err := codec.ProposeHash(block.Height, block.Id, pub.Bytes(), block.Timestamp, address, cs.env)
	if err != nil {
		return nil, NewError(ErrMalformedKey, err.Error())
	}
	src := hex.EncodeToString(preHash)

	hash, nonce, err := cs.miner.Mint(ctx, src, difficulty, leading, cs.slotClock.PowTimeout())
	if err != nil {
		cs.metrics.minerTimeouts.Inc(1)
		return nil, NewError(ErrMinerTimeout, err.Error())
	}

	sig, err := privKey.Sign(hash)
	if err != nil {
		return nil, NewError(ErrMalformedKey, err.Error())
	}

	return &types.Proposal{
		Height:             block.Height,
		Id:                 block.Id,
		Timestamp:          block.Timestamp,
		GeneratorPublicKey: pub,
		Address:            address,
		Hash:               hash,
		Nonce:              nonce,
		Signature:          sig,
	}, nil
}

// AcceptPropose verifies a received proposal's PoW and signature. A
// verification failure is always normalized to a typed, local error —
// never relayed, never bubbled as a panic.
func (cs *ConsensusState) AcceptPropose(propose *types.Proposal) error {
	if err := propose.ValidateBasic(); err != nil {
		cs.metrics.droppedProposals.Inc(1)
		return NewError(ErrMalformedKey, err.Error())
	}

	idx, err := cs.index.IndexOf(propose.GeneratorPublicKey)
	if err != nil {
		cs.metrics.droppedProposals.Inc(1)
		return NewError(ErrMalformedKey, "index lookup failed: "+err.Error())
	}

	leading := int(cs.slotClock.Leading())
	difficulty, err := pow.Difficulty(idx, leading)
	if err != nil {
		return NewError(ErrMalformedKey, err.Error())
	}

	preHash, err := codec.ProposeHash(propose.Height, propose.Id, propose.GeneratorPublicKey.Bytes(), propose.Timestamp, propose.Address, cs.env)
	if err != nil {
		cs.metrics.droppedProposals.Inc(1)
		return NewError(ErrMalformedKey, err.Error())
	}
	src := hex.EncodeToString(preHash)

	if !pow.Verify(src, propose.Nonce, difficulty, propose.Hash, leading) {
		cs.metrics.droppedProposals.Inc(1)
		return NewError(ErrPowInvalid, "pow verification failed")
	}

	if !propose.GeneratorPublicKey.VerifySignature(propose.Hash, propose.Signature) {
		cs.metrics.droppedProposals.Inc(1)
		return NewError(ErrSignatureInvalid, "signature verification failed")
	}

	cs.eventSwitch.FireEvent(EventNewProposal, propose)
	return nil
}

// SetPendingBlock installs b as the pending block, clearing any previous
// vote accumulator, and moves the state machine to PROPOSED.
func (cs *ConsensusState) SetPendingBlock(b *types.BlockHeader) {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()
	cs.pending.SetPendingBlock(b)
	cs.step = cstype.RoundStepProposed
}

// HasPendingBlock reports whether a pending block exists for the same slot
// as ts, used to reject stale rounds.
func (cs *ConsensusState) HasPendingBlock(ts time.Time) bool {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()
	if !cs.pending.HasPendingBlock() {
		return false
	}
	pendingTs := time.Unix(int64(cs.pending.PendingBlock.Timestamp), 0)
	return cs.slotClock.SlotOf(pendingTs) == cs.slotClock.SlotOf(ts)
}

// CreateVotes produces one vote signature per supplied keypair over
// voteHash(height, id), aggregated into a single Vote.
func (cs *ConsensusState) CreateVotes(keys []crypto.PrivKey, block *types.BlockHeader) (*types.Vote, error) {
	digest, err := codec.VoteHash(block.Height, block.Id, cs.env)
	if err != nil {
		return nil, NewError(ErrMalformedKey, err.Error())
	}

	vote := &types.Vote{
		Height:    block.Height,
		Id:        block.Id,
		Timestamp: block.Timestamp,
	}
	for _, key := range keys {
		sig, err := key.Sign(digest)
		if err != nil {
			return nil, NewError(ErrMalformedKey, err.Error())
		}
		vote.Signatures = append(vote.Signatures, types.SignatureItem{Key: key.PubKey(), Sig: sig})
	}
	return vote, nil
}

// AddPendingVotes folds each signature item of v into the accumulator,
// dropping ones already counted or that fail verification, and leaving the
// accumulator untouched (without error) if v disagrees with the pending
// round. It returns the current accumulator.
func (cs *ConsensusState) AddPendingVotes(v *types.Vote) (*types.Vote, error) {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()

	if !cs.pending.HasPendingBlock() {
		return nil, NewError(ErrUnknownPending, "no pending block")
	}

	pb := cs.pending.PendingBlock
	if pb.Height != v.Height || pb.Id != v.Id {
		// Stale relative to the pending round: dropped, but this MUST NOT
		// clear state and MUST NOT be reported as an error.
		cs.metrics.droppedVotes.Inc(1)
		return cs.pending.PendingVotes, nil
	}

	digest, err := codec.VoteHash(v.Height, v.Id, cs.env)
	if err != nil {
		return cs.pending.PendingVotes, NewError(ErrMalformedKey, err.Error())
	}

	added := false
	for _, item := range v.Signatures {
		if item.Key == nil || !item.Key.VerifySignature(digest, item.Sig) {
			cs.metrics.droppedVotes.Inc(1)
			continue
		}
		if cs.pending.AddSignature(v.Height, v.Id, v.Timestamp, item) {
			added = true
		} else {
			cs.metrics.droppedVotes.Inc(1)
		}
	}

	if added {
		cs.eventSwitch.FireEvent(EventNewVote, v)
	}
	if added && cs.hasEnoughVotesLocked(cs.pending.PendingVotes) {
		cs.step = cstype.RoundStepCommittable
		cs.metrics.committedBlocks.Inc(1)
		cs.eventSwitch.FireEvent(EventCommit, CommitEvent{Height: pb.Height, Id: pb.Id})
	}

	return cs.pending.PendingVotes, nil
}

// HasEnoughVotes applies the strict local finality threshold: more than
// floor(2*D/3) distinct signatures, D the active delegate count.
func (cs *ConsensusState) HasEnoughVotes(v *types.Vote) bool {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()
	return cs.hasEnoughVotesLocked(v)
}

func (cs *ConsensusState) hasEnoughVotesLocked(v *types.Vote) bool {
	if v == nil {
		return false
	}
	d := int(cs.slotClock.Delegates())
	threshold := (2 * d) / 3
	return len(v.Signatures) > threshold
}

// HasEnoughVotesRemote is the lower bar used to justify relaying a remote
// vote bundle without claiming finality.
func (cs *ConsensusState) HasEnoughVotesRemote(v *types.Vote) bool {
	if v == nil {
		return false
	}
	return len(v.Signatures) >= 6
}

// ClearState resets the pending block, votes, and key set, returning the
// state machine to IDLE.
func (cs *ConsensusState) ClearState() {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()
	cs.clearStateLocked()
}

func (cs *ConsensusState) clearStateLocked() {
	cs.pending.ClearState()
	cs.step = cstype.RoundStepIdle
}

func (cs *ConsensusState) Step() cstype.RoundStepType {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()
	return cs.step
}
