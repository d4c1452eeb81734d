package rpc

import "github.com/pkg/errors"

// ErrTimeout, ErrHttpNon200 and ErrTransport are the three peer-RPC
// failure kinds spec §4.7 names; callers match on these with errors.Is
// rather than on error text.
var (
	ErrTimeout    = errors.New("peer rpc timeout")
	ErrHttpNon200 = errors.New("peer rpc returned non-200 status")
	ErrTransport  = errors.New("peer rpc transport error")
)
