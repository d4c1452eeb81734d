// fork from github.com/tendermint/tendermint/types/validator.go
package types

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/crypto/ed25519"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Validator is one member of the active delegate set: its address and
// public key. It carries no voting power or proposer priority.
type Validator struct {
	Address Address       `json:"address"`
	PubKey  crypto.PubKey `json:"pub_key"`
}

// NewValidator returns a new validator with the given pubkey, its address
// derived from that key.
func NewValidator(pubKey crypto.PubKey) *Validator {
	return &Validator{
		Address: GetAddress(pubKey),
		PubKey:  pubKey,
	}
}

// ValidateBasic performs basic validation.
func (v *Validator) ValidateBasic() error {
	if v == nil {
		return errors.New("nil validator")
	}
	if v.PubKey == nil {
		return errors.New("validator does not have a public key")
	}

	if len(v.Address) != crypto.AddressSize {
		return fmt.Errorf("validator address is the wrong size: %v", v.Address)
	}

	return nil
}

// Copy returns a shallow copy of the validator.
// Panics if the validator is nil.
func (v *Validator) Copy() *Validator {
	vCopy := *v
	return &vCopy
}

// String returns a string representation of the validator:
//
// 1. address
// 2. public key
func (v *Validator) String() string {
	if v == nil {
		return "nil-PrivVal"
	}
	return fmt.Sprintf("PrivVal{%v %v}",
		v.Address,
		v.PubKey)
}

// Bytes computes the unique encoding of a validator: the JSON encoding of
// its public key. These are the bytes ValidatorSet.Hash uses as leaves. It
// excludes address as it is redundant with the pubkey.
func (v *Validator) Bytes() []byte {

	pk, err := json.Marshal(v.PubKey)
	if err != nil {
		panic(err)
	}

	return pk
}

//----------------------------------------
// RandValidator

// RandValidator returns a randomized validator plus the Ed25519 private
// key backing it, useful for testing.
func RandValidator() (*Validator, crypto.PrivKey) {
	privKey := ed25519.GenPrivKey()
	val := NewValidator(privKey.PubKey())
	return val, privKey
}
