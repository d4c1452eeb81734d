package types

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/tendermint/tendermint/crypto"
)

// Proposal is a signed announcement by the elected delegate for a slot that
// it intends to extend the chain with a specific block, bound to its
// network address by a bounded proof-of-work puzzle.
type Proposal struct {
	Height             Height        `json:"height"`
	Id                 BlockId       `json:"id"`
	Timestamp          SlotTime      `json:"timestamp"`
	GeneratorPublicKey crypto.PubKey `json:"generatorPublicKey"`
	Address            string        `json:"address"` // "ipv4:port"
	Hash               []byte        `json:"hash"`     // 32-byte PoW-masked digest
	Nonce              uint64        `json:"nonce"`
	Signature          []byte        `json:"signature"` // 64-byte Ed25519 sig over Hash
}

// ValidateBasic performs cheap structural checks that do not require any
// external lookup (delegate index, PoW oracle). It does not verify PoW or
// the signature; acceptPropose does that.
func (p *Proposal) ValidateBasic() error {
	if p == nil {
		return fmt.Errorf("nil proposal")
	}
	if p.GeneratorPublicKey == nil {
		return fmt.Errorf("proposal has no generator public key")
	}
	if len(p.Hash) != 32 {
		return fmt.Errorf("proposal hash must be 32 bytes, got %d", len(p.Hash))
	}
	if len(p.Signature) != 64 {
		return fmt.Errorf("proposal signature must be 64 bytes, got %d", len(p.Signature))
	}
	if _, _, err := SplitIPv4Port(p.Address); err != nil {
		return fmt.Errorf("proposal address invalid: %w", err)
	}
	return nil
}

// SplitIPv4Port parses "ipv4:port" strictly; the codec rejects anything
// else, including IPv6 and hostnames.
func SplitIPv4Port(addr string) (ip net.IP, port uint16, err error) {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return nil, 0, fmt.Errorf("address %q is not exactly <ipv4>:<port>", addr)
	}
	ip4 := net.ParseIP(parts[0])
	if ip4 == nil || ip4.To4() == nil {
		return nil, 0, fmt.Errorf("address %q does not have a valid ipv4 host", addr)
	}
	p, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return nil, 0, fmt.Errorf("address %q has an invalid port: %w", addr, err)
	}
	return ip4.To4(), uint16(p), nil
}
