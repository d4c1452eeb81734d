package consensus

import "fmt"

// ErrKind is a tagged error kind, never a bare string, so callers can
// switch on failure category instead of matching error text. It mirrors
// the taxonomy the verification and state-machine paths are specified
// against.
type ErrKind string

const (
	// Cryptographic: dropped locally, never relayed.
	ErrSignatureInvalid ErrKind = "SignatureInvalid"
	ErrPowInvalid       ErrKind = "PowInvalid"
	ErrMalformedKey     ErrKind = "MalformedKey"

	// State: silently swallowed, metrics incremented.
	ErrStalePropose   ErrKind = "StalePropose"
	ErrDuplicateVote  ErrKind = "DuplicateVote"
	ErrUnknownPending ErrKind = "UnknownPending"

	// External: logged, current operation aborted, next tick retries.
	ErrMinerTimeout    ErrKind = "MinerTimeout"
	ErrMinerError      ErrKind = "MinerError"
	ErrPeerTimeout     ErrKind = "PeerTimeout"
	ErrPeerHttpError   ErrKind = "PeerHttpError"
	ErrPersistenceErr  ErrKind = "PersistenceError"

	// Fatal: startup only, aborts the process.
	ErrConfigInvalid ErrKind = "ConfigInvalid"
)

// Error is the typed error every consensus verification/state operation
// returns instead of a string-typed error, so policy (drop vs log vs
// abort) can be decided on Kind alone.
type Error struct {
	Kind ErrKind
	msg  string
}

func NewError(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Is lets errors.Is match on Kind alone, ignoring the message.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}
