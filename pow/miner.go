package pow

import (
	"context"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Miner is the opaque external worker contract: find a nonce so that
// hex(mask(SHA256(src||asciiDecimal(nonce)))) starts with difficulty,
// within timeout. The inner hashing loop itself is out of scope for this
// module; only the contract and a reference in-process implementation live
// here.
type Miner interface {
	Mint(ctx context.Context, src string, difficulty string, leading int, timeout time.Duration) (hash []byte, nonce uint64, err error)
}

// ErrMinerTimeout is returned when no satisfying nonce is found before the
// deadline. It is fatal for the current slot only; the next slot starts a
// fresh round.
var ErrMinerTimeout = errors.New("miner timeout")

// LocalMiner is a reference in-process Miner: a brute-force nonce search
// run on its own goroutine, cancellable by the caller's context or the
// wall-clock deadline, whichever comes first.
type LocalMiner struct{}

func NewLocalMiner() *LocalMiner {
	return &LocalMiner{}
}

func (m *LocalMiner) Mint(ctx context.Context, src string, difficulty string, leading int, timeout time.Duration) ([]byte, uint64, error) {
	deadline := time.Now().Add(timeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	type result struct {
		hash  []byte
		nonce uint64
	}
	found := make(chan result, 1)

	go func() {
		for nonce := uint64(0); ; nonce++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			cand := candidate(src, nonce, leading)
			if hasPrefix(hex.EncodeToString(cand), difficulty) {
				select {
				case found <- result{hash: cand, nonce: nonce}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	select {
	case r := <-found:
		return r.hash, r.nonce, nil
	case <-ctx.Done():
		return nil, 0, errors.Wrapf(ErrMinerTimeout, "no nonce found for difficulty %q within %s", difficulty, timeout)
	}
}

func hasPrefix(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return s[:len(prefix)] == prefix
}

// asciiDecimal renders a nonce as ASCII decimal digits, the same encoding
// candidate appends to src for mint and verify.
func asciiDecimal(nonce uint64) string {
	return strconv.FormatUint(nonce, 10)
}
