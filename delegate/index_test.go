package delegate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendermint/tendermint/crypto/ed25519"

	"slotbft/types"
)

func TestIndexOfFindsMember(t *testing.T) {
	vals, keys := types.RandValidatorSet(5)
	idx := NewIndex(vals)

	for i, key := range keys {
		got, err := idx.IndexOf(key.PubKey())
		assert.NoError(t, err)
		assert.Equal(t, i, got)
	}
}

func TestIndexOfRejectsNonMember(t *testing.T) {
	vals, _ := types.RandValidatorSet(3)
	idx := NewIndex(vals)

	stranger := ed25519.GenPrivKey()
	_, err := idx.IndexOf(stranger.PubKey())
	assert.ErrorIs(t, err, ErrIndexLookupFailed)
}

func TestIndexOfRejectsNilKey(t *testing.T) {
	vals, _ := types.RandValidatorSet(1)
	idx := NewIndex(vals)

	_, err := idx.IndexOf(nil)
	assert.Error(t, err)
}

func TestSizeMatchesValidatorSet(t *testing.T) {
	vals, _ := types.RandValidatorSet(7)
	idx := NewIndex(vals)
	assert.Equal(t, 7, idx.Size())
}

func TestProposerForRotatesWithSlot(t *testing.T) {
	vals, keys := types.RandValidatorSet(4)
	idx := NewIndex(vals)

	for slot := types.LTime(0); slot < 4; slot++ {
		pub, err := idx.ProposerFor(slot)
		assert.NoError(t, err)
		assert.True(t, pub.Equals(keys[slot].PubKey()))
	}
}
