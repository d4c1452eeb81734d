package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"slotbft/types"
)

func TestVoteHashDeterministic(t *testing.T) {
	env := EnvContext{EnableLongId: false}
	a, err := VoteHash(10, "42", env)
	assert.NoError(t, err)
	b, err := VoteHash(10, "42", env)
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestVoteHashDiffersOnHeightOrId(t *testing.T) {
	env := EnvContext{EnableLongId: false}
	base, err := VoteHash(10, "42", env)
	assert.NoError(t, err)

	otherHeight, err := VoteHash(11, "42", env)
	assert.NoError(t, err)
	assert.NotEqual(t, base, otherHeight)

	otherId, err := VoteHash(10, "43", env)
	assert.NoError(t, err)
	assert.NotEqual(t, base, otherId)
}

func TestVoteHashLongVsShortIdModesDiffer(t *testing.T) {
	longEnv := EnvContext{EnableLongId: true}
	shortEnv := EnvContext{EnableLongId: false}

	long, err := VoteHash(10, "42", longEnv)
	assert.NoError(t, err)
	short, err := VoteHash(10, "42", shortEnv)
	assert.NoError(t, err)
	assert.NotEqual(t, long, short)
}

func TestShortIdModeRejectsNonDecimal(t *testing.T) {
	_, err := VoteHash(10, "not-a-number", EnvContext{EnableLongId: false})
	assert.Error(t, err)
}

func TestShortIdModeRejectsOversizedInteger(t *testing.T) {
	_, err := VoteHash(10, types.BlockId("99999999999999999999999999"), EnvContext{EnableLongId: false})
	assert.Error(t, err)
}

func TestProposeHashRejectsMalformedAddress(t *testing.T) {
	pub := make([]byte, 32)
	_, err := ProposeHash(1, "1", pub, 0, "not-an-address", EnvContext{})
	assert.Error(t, err)
}

func TestProposeHashRejectsWrongSizedKey(t *testing.T) {
	_, err := ProposeHash(1, "1", []byte{1, 2, 3}, 0, "127.0.0.1:9000", EnvContext{})
	assert.Error(t, err)
}

func TestProposeHashDeterministic(t *testing.T) {
	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i)
	}
	a, err := ProposeHash(7, "100", pub, 123456, "127.0.0.1:9000", EnvContext{})
	assert.NoError(t, err)
	b, err := ProposeHash(7, "100", pub, 123456, "127.0.0.1:9000", EnvContext{})
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}
