package consensus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tendermint/tendermint/crypto"
	tmevents "github.com/tendermint/tendermint/libs/events"

	"slotbft/codec"
	cstype "slotbft/consensus/types"
	"slotbft/delegate"
	"slotbft/pow"
	"slotbft/slotclock"
	"slotbft/types"
)

const testLeading = 2

func newTestConsensus(t *testing.T, numDelegates int) (*ConsensusState, *types.ValidatorSet, []crypto.PrivKey) {
	vals, keys := types.RandValidatorSet(numDelegates)
	index := delegate.NewIndex(vals)
	clock := slotclock.New(time.Now().Add(-time.Hour), time.Minute, testLeading, uint32(numDelegates), 5*time.Second)
	cs := NewConsensusState(clock, index, pow.NewLocalMiner(), codec.EnvContext{})
	return cs, vals, keys
}

func testBlock(generator crypto.PubKey) *types.BlockHeader {
	return &types.BlockHeader{
		Height:             1,
		Id:                "100",
		Timestamp:          types.SlotTime(time.Now().Unix()),
		GeneratorPublicKey: generator,
	}
}

func TestCreateProposeThenAcceptPropose(t *testing.T) {
	cs, _, keys := newTestConsensus(t, 4)
	block := testBlock(keys[0].PubKey())

	propose, err := cs.CreatePropose(context.Background(), keys[0], block, "127.0.0.1:9000")
	assert.NoError(t, err)
	assert.NoError(t, propose.ValidateBasic())

	assert.NoError(t, cs.AcceptPropose(propose))
}

func TestCreateProposeRejectsMismatchedKey(t *testing.T) {
	cs, _, keys := newTestConsensus(t, 4)
	block := testBlock(keys[0].PubKey())

	_, err := cs.CreatePropose(context.Background(), keys[1], block, "127.0.0.1:9000")
	assert.Error(t, err)
}

func TestAcceptProposeRejectsTamperedPow(t *testing.T) {
	cs, _, keys := newTestConsensus(t, 4)
	block := testBlock(keys[0].PubKey())

	propose, err := cs.CreatePropose(context.Background(), keys[0], block, "127.0.0.1:9000")
	assert.NoError(t, err)

	propose.Hash[0] ^= 0xFF
	assert.Error(t, cs.AcceptPropose(propose))
}

func TestAcceptProposeRejectsForgedSignature(t *testing.T) {
	cs, _, keys := newTestConsensus(t, 4)
	block := testBlock(keys[0].PubKey())

	propose, err := cs.CreatePropose(context.Background(), keys[0], block, "127.0.0.1:9000")
	assert.NoError(t, err)

	otherSig, err := keys[1].Sign(propose.Hash)
	assert.NoError(t, err)
	propose.Signature = otherSig
	assert.Error(t, cs.AcceptPropose(propose))
}

func TestCreateVotesAndAddPendingVotesAccumulate(t *testing.T) {
	cs, _, keys := newTestConsensus(t, 6)
	block := testBlock(keys[0].PubKey())
	cs.SetPendingBlock(block)

	var acc *types.Vote
	for i := 0; i < 3; i++ {
		vote, err := cs.CreateVotes(keys[i:i+1], block)
		assert.NoError(t, err)
		acc, err = cs.AddPendingVotes(vote)
		assert.NoError(t, err)
	}
	assert.Len(t, acc.Signatures, 3)

	// 3 signatures out of 6 delegates does not exceed floor(2*6/3)=4, so the
	// round stays PROPOSED rather than flipping to COMMITTABLE.
	assert.Equal(t, cstype.RoundStepProposed, cs.Step())
}

func TestAddPendingVotesDropsStaleRoundWithoutError(t *testing.T) {
	cs, _, keys := newTestConsensus(t, 4)
	block := testBlock(keys[0].PubKey())
	cs.SetPendingBlock(block)

	staleBlock := &types.BlockHeader{Height: 999, Id: "999", GeneratorPublicKey: keys[0].PubKey()}
	staleVote, err := cs.CreateVotes(keys[0:1], staleBlock)
	assert.NoError(t, err)

	result, err := cs.AddPendingVotes(staleVote)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestAddPendingVotesDedupesSameSigner(t *testing.T) {
	cs, _, keys := newTestConsensus(t, 4)
	block := testBlock(keys[0].PubKey())
	cs.SetPendingBlock(block)

	vote, err := cs.CreateVotes(keys[0:1], block)
	assert.NoError(t, err)

	first, err := cs.AddPendingVotes(vote)
	assert.NoError(t, err)
	// first and second point at the same accumulator, so its size is
	// captured before the duplicate is submitted.
	firstCount := len(first.Signatures)
	second, err := cs.AddPendingVotes(vote)
	assert.NoError(t, err)
	assert.Equal(t, firstCount, len(second.Signatures))
}

func TestHasEnoughVotesStrictThreshold(t *testing.T) {
	cs, _, keys := newTestConsensus(t, 3)
	block := testBlock(keys[0].PubKey())
	cs.SetPendingBlock(block)

	partial, err := cs.CreateVotes(keys[0:2], block)
	assert.NoError(t, err)
	assert.False(t, cs.HasEnoughVotes(partial)) // 2 signatures, threshold floor(2*3/3)=2, need >2

	full, err := cs.CreateVotes(keys, block)
	assert.NoError(t, err)
	assert.True(t, cs.HasEnoughVotes(full)) // 3 signatures > 2
}

func TestHasEnoughVotesRemoteLowerBar(t *testing.T) {
	cs, _, keys := newTestConsensus(t, 10)
	block := testBlock(keys[0].PubKey())

	under, err := cs.CreateVotes(keys[0:5], block)
	assert.NoError(t, err)
	assert.False(t, cs.HasEnoughVotesRemote(under))

	over, err := cs.CreateVotes(keys[0:6], block)
	assert.NoError(t, err)
	assert.True(t, cs.HasEnoughVotesRemote(over))
}

func TestClearStateReturnsToIdle(t *testing.T) {
	cs, _, keys := newTestConsensus(t, 4)
	block := testBlock(keys[0].PubKey())
	cs.SetPendingBlock(block)
	cs.ClearState()

	assert.False(t, cs.HasPendingBlock(time.Now()))
}

func TestAcceptProposeFiresNewProposalEvent(t *testing.T) {
	cs, _, keys := newTestConsensus(t, 4)
	block := testBlock(keys[0].PubKey())
	propose, err := cs.CreatePropose(context.Background(), keys[0], block, "127.0.0.1:9000")
	assert.NoError(t, err)

	assert.NoError(t, cs.EventSwitch().Start())
	defer cs.EventSwitch().Stop() //nolint:errcheck

	fired := make(chan *types.Proposal, 1)
	cs.EventSwitch().AddListenerForEvent("test-proposal", EventNewProposal, func(data tmevents.EventData) {
		fired <- data.(*types.Proposal)
	})

	assert.NoError(t, cs.AcceptPropose(propose))

	select {
	case got := <-fired:
		assert.Equal(t, propose.Hash, got.Hash)
	case <-time.After(time.Second):
		t.Fatal("EventNewProposal was not fired")
	}
}

func TestAddPendingVotesFiresNewVoteEvent(t *testing.T) {
	cs, _, keys := newTestConsensus(t, 4)
	block := testBlock(keys[0].PubKey())
	cs.SetPendingBlock(block)

	assert.NoError(t, cs.EventSwitch().Start())
	defer cs.EventSwitch().Stop() //nolint:errcheck

	fired := make(chan *types.Vote, 1)
	cs.EventSwitch().AddListenerForEvent("test-vote", EventNewVote, func(data tmevents.EventData) {
		fired <- data.(*types.Vote)
	})

	vote, err := cs.CreateVotes(keys[0:1], block)
	assert.NoError(t, err)
	_, err = cs.AddPendingVotes(vote)
	assert.NoError(t, err)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("EventNewVote was not fired")
	}
}

func TestCommitTransitionsToCommittable(t *testing.T) {
	cs, _, keys := newTestConsensus(t, 3)
	block := testBlock(keys[0].PubKey())
	cs.SetPendingBlock(block)

	full, err := cs.CreateVotes(keys, block)
	assert.NoError(t, err)
	_, err = cs.AddPendingVotes(full)
	assert.NoError(t, err)

	assert.Equal(t, cstype.RoundStepCommittable, cs.Step())
}
