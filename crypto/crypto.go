package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/crypto/ed25519"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck

	"slotbft/types"
)

// GenPrivKey returns a fresh Ed25519 keypair. All signing in this module
// goes through tendermint's crypto.PrivKey/PubKey interfaces rather than a
// bespoke wrapper, the same way the teacher's privval package does.
func GenPrivKey() crypto.PrivKey {
	return ed25519.GenPrivKey()
}

// Sha256 is the one hash primitive every codec operation reduces to.
func Sha256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// NodeID computes the canonical 20-byte DHT id of a "host:port" pair.
// RIPEMD-160 is used verbatim rather than truncating SHA-256, matching the
// 160-bit Kademlia keyspace the overlay is built on.
func NodeID(host string, port uint16) types.NodeID {
	h := ripemd160.New()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", host, port)))
	var id types.NodeID
	copy(id[:], h.Sum(nil))
	return id
}

// Verify checks an Ed25519 signature over msg using pub, returning false
// for a nil key or signature instead of panicking. The consensus state
// machine does not call it; it checks keys for nil itself and calls
// VerifySignature directly.
func Verify(pub crypto.PubKey, msg, sig []byte) bool {
	if pub == nil || sig == nil {
		return false
	}
	return pub.VerifySignature(msg, sig)
}
