// Package codec implements the deterministic byte serializations that
// proposal and vote hashes are computed over. Every operation here is a
// pure function of its arguments plus an explicit EnvContext snapshot —
// never of a global flag — so two rounds racing on different goroutines
// can never straddle a flag flip mid-hash.
package codec

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"slotbft/crypto"
	"slotbft/types"
)

// EnvContext snapshots the process-wide feature flags the source relied on
// as globals. It is captured once per operation and threaded through
// explicitly instead of read from a package-level variable.
type EnvContext struct {
	// EnableLongId selects between the two BlockId encodings: true writes
	// the id as raw UTF-8 bytes, false parses it as a decimal integer and
	// writes it as an 8-byte big-endian integer.
	EnableLongId bool
}

// VoteHashBytes builds the deterministic buffer voteHash is computed over:
// height as 8-byte signed big-endian, followed by id in the mode selected
// by env.
func VoteHashBytes(height types.Height, id types.BlockId, env EnvContext) ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(height))

	idBytes, err := encodeID(id, env)
	if err != nil {
		return nil, err
	}
	return append(buf, idBytes...), nil
}

// VoteHash returns the 32-byte SHA-256 digest votes are signed over.
func VoteHash(height types.Height, id types.BlockId, env EnvContext) ([]byte, error) {
	b, err := VoteHashBytes(height, id, env)
	if err != nil {
		return nil, err
	}
	return crypto.Sha256(b), nil
}

// ProposeHashBytes builds the deterministic pre-PoW buffer: height (8B BE),
// id (per env), generatorPublicKey (raw 32 bytes), timestamp (4B BE
// signed), then the proposer's IPv4 address packed as a dotted-quad u32
// followed by its port, both 4B BE. It rejects any address that is not
// exactly "<ipv4>:<port>".
func ProposeHashBytes(height types.Height, id types.BlockId, generatorPublicKey []byte, timestamp types.SlotTime, address string, env EnvContext) ([]byte, error) {
	if len(generatorPublicKey) != 32 {
		return nil, fmt.Errorf("generator public key must be 32 bytes, got %d", len(generatorPublicKey))
	}

	ip, port, err := types.SplitIPv4Port(address)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(height))

	idBytes, err := encodeID(id, env)
	if err != nil {
		return nil, err
	}
	buf = append(buf, idBytes...)
	buf = append(buf, generatorPublicKey...)

	ts := make([]byte, 4)
	binary.BigEndian.PutUint32(ts, uint32(int32(timestamp)))
	buf = append(buf, ts...)

	ipBuf := make([]byte, 4)
	copy(ipBuf, ip.To4())
	buf = append(buf, ipBuf...)

	portBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(portBuf, uint32(port))
	buf = append(buf, portBuf...)

	return buf, nil
}

// ProposeHash returns the 32-byte SHA-256 pre-PoW digest.
func ProposeHash(height types.Height, id types.BlockId, generatorPublicKey []byte, timestamp types.SlotTime, address string, env EnvContext) ([]byte, error) {
	b, err := ProposeHashBytes(height, id, generatorPublicKey, timestamp, address, env)
	if err != nil {
		return nil, err
	}
	return crypto.Sha256(b), nil
}

func encodeID(id types.BlockId, env EnvContext) ([]byte, error) {
	if env.EnableLongId {
		return []byte(string(id)), nil
	}

	n, ok := new(big.Int).SetString(string(id), 10)
	if !ok {
		return nil, fmt.Errorf("block id %q is not a decimal integer, required in short-id mode", id)
	}
	if n.Sign() < 0 || n.BitLen() > 64 {
		return nil, fmt.Errorf("block id %q does not fit in 8 bytes", id)
	}
	buf := make([]byte, 8)
	n.FillBytes(buf)
	return buf, nil
}
