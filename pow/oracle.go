// Package pow implements the bounded proof-of-work puzzle that binds a
// proposal to its proposer's network address: mint finds a nonce, verify
// recomputes and checks it, and the difficulty derivation spreads distinct
// targets across the active delegate set.
package pow

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"slotbft/crypto"
)

// clearMask keeps only bits 0x77 of each masked byte, clearing bits 0x88.
const clearMask = 0x77

// Mask zeroes bits 0x88 in each of the first leading bytes of h, returning
// a new slice. Bytes beyond leading are left untouched.
func Mask(h []byte, leading int) []byte {
	out := make([]byte, len(h))
	copy(out, h)
	for i := 0; i < leading && i < len(out); i++ {
		out[i] &= clearMask
	}
	return out
}

// Difficulty derives the binary target string a delegate must satisfy:
// rawIndex = delegateIndex mod (2^leading - 1), rendered as a zero-padded
// binary string of width leading. Delegate indices below 2^leading - 1 get
// distinct patterns; indices that differ by a multiple of 2^leading - 1
// share the same target.
func Difficulty(delegateIndex int, leading int) (string, error) {
	if leading <= 0 {
		return "", fmt.Errorf("leading must be positive, got %d", leading)
	}
	modulus := (1 << leading) - 1
	if modulus <= 0 {
		return "", fmt.Errorf("leading %d produces a non-positive modulus", leading)
	}
	rawIndex := delegateIndex % modulus
	if rawIndex < 0 {
		rawIndex += modulus
	}
	bin := strconv.FormatInt(int64(rawIndex), 2)
	if len(bin) < leading {
		bin = strings.Repeat("0", leading-len(bin)) + bin
	}
	return bin, nil
}

// candidate recomputes mask(SHA256(src || asciiDecimal(nonce))).
func candidate(src string, nonce uint64, leading int) []byte {
	buf := append([]byte(src), []byte(strconv.FormatUint(nonce, 10))...)
	return Mask(crypto.Sha256(buf), leading)
}

// Verify recomputes the candidate hash for (src, nonce) and checks it both
// matches the submitted (masked) hash and satisfies the difficulty prefix.
// Masking the submitted hash too defends against tampering that sets bits
// the mask would otherwise have cleared.
func Verify(src string, nonce uint64, difficulty string, submittedHash []byte, leading int) bool {
	if len(submittedHash) == 0 {
		return false
	}
	cand := candidate(src, nonce, leading)
	submitted := Mask(submittedHash, leading)
	if len(cand) != len(submitted) {
		return false
	}
	for i := range cand {
		if cand[i] != submitted[i] {
			return false
		}
	}
	return strings.HasPrefix(hex.EncodeToString(cand), difficulty)
}
