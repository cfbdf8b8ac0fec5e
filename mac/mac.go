// Package mac is the small public facade over internal/mac: it
// re-exports the Stack type and the handful of value types its methods
// take and return. The Radio, MACTimer and AESEngine collaborators that
// NewStack takes, and their implementations, are not re-exported here.
package mac

import (
	"context"

	"github.com/wsmac/wsmac/internal/mac"
	"github.com/wsmac/wsmac/internal/radio"
	"github.com/wsmac/wsmac/internal/registry"
	"github.com/wsmac/wsmac/internal/security"
	"github.com/wsmac/wsmac/internal/wire"
)

type (
	Stack                        = mac.Stack
	Option                       = mac.Option
	State                        = mac.State
	TxStatus                     = mac.TxStatus
	MCPSStatus                   = mac.MCPSStatus
	ScanType                     = mac.ScanType
	ScanResult                   = mac.ScanResult
	AssociationStatus            = mac.AssociationStatus
	CapabilityInfo               = mac.CapabilityInfo
	RXCallback                   = mac.RXCallback
	ConfirmCallback              = mac.ConfirmCallback
	ScanCallback                 = mac.ScanCallback
	AssociateCallback            = mac.AssociateCallback
	CoordinatorAssociateCallback = mac.CoordinatorAssociateCallback
	Address                      = wire.Address
	Device                       = registry.Device
)

const (
	StateIdle         = mac.StateIdle
	StateScanning     = mac.StateScanning
	StateAssociating  = mac.StateAssociating
	StateAssociated   = mac.StateAssociated
	StateCoordinating = mac.StateCoordinating

	ScanTypePassive = mac.ScanTypePassive
	ScanTypeActive  = mac.ScanTypeActive

	AssociationSuccess = mac.AssociationSuccess
	AssociationNoAck   = mac.AssociationNoAck
	AssociationNoData  = mac.AssociationNoData
	AssociationDenied  = mac.AssociationDenied

	MCPSStatusSuccess              = mac.MCPSStatusSuccess
	MCPSStatusNoAck                = mac.MCPSStatusNoAck
	MCPSStatusChannelAccessFailure = mac.MCPSStatusChannelAccessFailure
	MCPSStatusUnsupportedSecurity  = mac.MCPSStatusUnsupportedSecurity
	MCPSStatusNotAllowed           = mac.MCPSStatusNotAllowed
)

// WithLogger re-exports mac.WithLogger.
var WithLogger = mac.WithLogger

// NewStack constructs a Stack bound to a Radio, MACTimer and AESEngine.
func NewStack(extendedAddress [8]byte, r radio.Radio, t radio.MACTimer, aes security.AESEngine, opts ...Option) *Stack {
	return mac.NewStack(extendedAddress, r, t, aes, opts...)
}

// ShortAddr re-exports wire.ShortAddr for building destination addresses.
func ShortAddr(pan, short uint16) Address { return wire.ShortAddr(pan, short) }

// ExtendedAddr re-exports wire.ExtendedAddr for building destination addresses.
func ExtendedAddr(pan uint16, ext [8]byte) Address { return wire.ExtendedAddr(pan, ext) }

// Run starts s's event loop and blocks until ctx is cancelled. Intended
// to be launched in its own goroutine by callers.
func Run(ctx context.Context, s *Stack) { s.Run(ctx) }
