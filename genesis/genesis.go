// Package genesis loads the initial active delegate set from a JSON file
// at startup.
package genesis

import (
	"encoding/hex"
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/crypto/ed25519"

	jsoniter "github.com/json-iterator/go"

	"slotbft/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Doc is the genesis document: chain identity plus the bootstrap active
// delegate set.
type Doc struct {
	ChainID    string          `json:"chain_id"`
	GenesisTime int64          `json:"genesis_time"`
	Delegates  []DelegateEntry `json:"delegates"`
}

// DelegateEntry is one genesis delegate's hex-encoded Ed25519 public key.
type DelegateEntry struct {
	PubKey string `json:"pub_key"`
}

func LoadDoc(path string) (*Doc, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading genesis file")
	}
	doc := &Doc{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrap(err, "parsing genesis file")
	}
	if len(doc.Delegates) == 0 {
		return nil, errors.New("genesis file declares no delegates")
	}
	return doc, nil
}

// ValidatorSet materializes the genesis delegate set into the runtime
// ValidatorSet the delegate index service and slot proposer rotation read
// from.
func (d *Doc) ValidatorSet() (*types.ValidatorSet, error) {
	vals := make([]*types.Validator, 0, len(d.Delegates))
	for i, entry := range d.Delegates {
		pub, err := decodePubKey(entry.PubKey)
		if err != nil {
			return nil, errors.Wrapf(err, "delegate #%d", i)
		}
		vals = append(vals, types.NewValidator(pub))
	}
	return types.NewValidatorSet(vals), nil
}

func decodePubKey(hexKey string) (crypto.PubKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, "decoding hex public key")
	}
	if len(raw) != ed25519.PubKeySize {
		return nil, errors.Errorf("public key must be %d bytes, got %d", ed25519.PubKeySize, len(raw))
	}
	var pub ed25519.PubKey = raw
	return pub, nil
}
