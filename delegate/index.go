// Package delegate maps a proposal's generator public key to its position
// in the active delegate ring, the lookup the PoW difficulty derivation and
// the proposer-eligibility check both depend on.
package delegate

import (
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/crypto"

	"slotbft/types"
)

// ErrIndexLookupFailed is returned when a public key does not belong to
// the active delegate set.
var ErrIndexLookupFailed = errors.New("delegate index lookup failed")

// Index resolves a delegate's position in the active set.
type Index interface {
	IndexOf(pub crypto.PubKey) (int, error)
	Size() int
	ProposerFor(slot types.LTime) (crypto.PubKey, error)
}

// validatorSetIndex adapts a types.ValidatorSet into the Index contract.
type validatorSetIndex struct {
	vals *types.ValidatorSet
}

func NewIndex(vals *types.ValidatorSet) Index {
	return &validatorSetIndex{vals: vals}
}

func (i *validatorSetIndex) IndexOf(pub crypto.PubKey) (int, error) {
	if pub == nil {
		return -1, ErrIndexLookupFailed
	}
	idx, val := i.vals.GetByAddress(pub.Address())
	if idx < 0 || val == nil {
		return -1, ErrIndexLookupFailed
	}
	return int(idx), nil
}

func (i *validatorSetIndex) Size() int {
	return i.vals.Size()
}

func (i *validatorSetIndex) ProposerFor(slot types.LTime) (crypto.PubKey, error) {
	proposer := i.vals.GetProposer(slot)
	if proposer == nil {
		return nil, ErrIndexLookupFailed
	}
	return proposer.PubKey, nil
}
