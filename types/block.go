package types

import "github.com/tendermint/tendermint/crypto"

// Height is a block height, always encoded as an 8-byte big-endian signed
// integer by the codec regardless of id encoding mode.
type Height int64

// BlockId is either a short numeric id (decimal digits, re-encoded as an
// 8-byte big-endian integer by the codec) or an opaque UTF-8 string id. The
// two representations never decide themselves which mode applies — that is
// read once per hash operation from an EnvContext's enableLongId flag, so
// the same BlockId value hashes differently depending on the caller's flag
// state, by design.
type BlockId string

// SlotTime is seconds since the epoch, truncated to 4 bytes big-endian by
// the propose codec.
type SlotTime int64

// BlockHeader is owned by the block module; the consensus core only reads
// it, never constructs or mutates it beyond what a Propose carries forward.
type BlockHeader struct {
	Height             Height        `json:"height"`
	Id                 BlockId       `json:"id"`
	Timestamp          SlotTime      `json:"timestamp"`
	GeneratorPublicKey crypto.PubKey `json:"generatorPublicKey"`
}
