package mac

import (
	"errors"
	"fmt"
)

// Resource errors: the stack ran out of some finite thing (a packet
// buffer, a free device slot, a queue slot).
var (
	ErrNoBuffer  = errors.New("mac: no packet buffer available")
	ErrQueueFull = errors.New("mac: tx queue full")
	ErrNoDevice  = errors.New("mac: device not found")
)

// Protocol errors: the frame or call was well-formed as Go values but
// violates an IEEE 802.15.4 MAC rule.
var (
	ErrUnsupportedSecurity = errors.New("mac: unsupported security parameters")
	ErrInvalidState        = errors.New("mac: operation not valid in current state")
	ErrInvalidParameter    = errors.New("mac: invalid parameter")
)

// Security errors surface supplicant/AES failures distinct from protocol
// validation failures.
var ErrAESFailed = errors.New("mac: AES CCM* operation failed")

// assertf panics on a violated invariant — a programmer error, mirroring
// the original's fatal ASSERT() macro. Never use this for malformed input
// arriving over the air; that is always a protocol error returned to the
// caller or logged and dropped.
func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("mac: assertion failed: "+format, args...))
	}
}
