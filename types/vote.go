package types

import (
	"fmt"

	"github.com/tendermint/tendermint/crypto"
)

// SignatureItem is one delegate's signature over a vote digest.
type SignatureItem struct {
	Key crypto.PubKey `json:"key"`
	Sig []byte        `json:"sig"`
}

// Vote carries one or more signatures over the same (height, id) pair. A
// freshly created local vote carries exactly one signature; an aggregated
// vote accumulated by the consensus state machine may carry many.
type Vote struct {
	Height     Height          `json:"height"`
	Id         BlockId         `json:"id"`
	Timestamp  SlotTime        `json:"timestamp"`
	Signatures []SignatureItem `json:"signatures"`
}

// SameRound reports whether two votes refer to the same (height, id) pair.
func (v *Vote) SameRound(other *Vote) bool {
	if v == nil || other == nil {
		return false
	}
	return v.Height == other.Height && v.Id == other.Id
}

func (v *Vote) ValidateBasic() error {
	if v == nil {
		return fmt.Errorf("nil vote")
	}
	if len(v.Signatures) == 0 {
		return fmt.Errorf("vote carries no signatures")
	}
	for i, sig := range v.Signatures {
		if sig.Key == nil {
			return fmt.Errorf("vote signature #%d has no key", i)
		}
		if len(sig.Sig) != 64 {
			return fmt.Errorf("vote signature #%d is %d bytes, want 64", i, len(sig.Sig))
		}
	}
	return nil
}
