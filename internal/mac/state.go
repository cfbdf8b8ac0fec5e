// Package mac implements the IEEE 802.15.4-2011 MAC sublayer: the packet
// scheduler, MLME scan/association/start, MCPS data transfer, and the
// coordinator role, all driven by a single event-loop goroutine per Stack.
package mac

import "github.com/wsmac/wsmac/internal/wire"

// State mirrors mac_state_t.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateAssociating
	StateAssociated
	StateCoordinating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateScanning:
		return "Scanning"
	case StateAssociating:
		return "Associating"
	case StateAssociated:
		return "Associated"
	case StateCoordinating:
		return "Coordinating"
	default:
		return "Unknown"
	}
}

// TxStatus mirrors mac_tx_status_t: the outcome of a transmission attempt
// as the packet scheduler's CSMA-CA/ACK state machine observes it.
type TxStatus int

const (
	TxStatusSuccess TxStatus = iota
	TxStatusNoAck
	TxStatusNotSent
)

// pib holds the MAC/PHY PAN Information Base fields mirroring mac_t.
type pib struct {
	state             State
	isPANCoordinator  bool

	ownKey [16]byte

	extendedAddress        [8]byte
	shortAddress           uint16
	panID                  uint16
	beaconOrder            uint8
	superframeOrder        uint8
	responseWaitTime       uint32
	coordExtendedAddress   [8]byte
	coordShortAddress      uint16
	battLifeExtension      bool
	minBackoffExponent     uint8
	maxBackoffExponent     uint8
	maxCSMABackoffs        uint8
	sqn                    uint8
	maxFrameRetries        uint8
	frameCounter           uint32
	associationPermitted   bool

	currentChannel uint8
}

// newPIB mirrors ws_mac_init's default PIB values.
func newPIB(extended [8]byte, sqnSeed uint8) pib {
	return pib{
		extendedAddress:      extended,
		beaconOrder:          15,
		panID:                wire.BroadcastPAN,
		shortAddress:         wire.BroadcastShort,
		superframeOrder:      15,
		responseWaitTime:     32,
		coordShortAddress:    wire.BroadcastShort,
		minBackoffExponent:   3,
		maxBackoffExponent:   5,
		maxCSMABackoffs:      4,
		sqn:                  sqnSeed,
		maxFrameRetries:      3,
		currentChannel:       11,
		state:                StateIdle,
	}
}

// nextSQN mirrors mac_mlme_get_sqn: read-then-increment.
func (p *pib) nextSQN() uint8 {
	s := p.sqn
	p.sqn++
	return s
}

// address mirrors ws_mac_mlme_get_address: short if assigned, else
// extended.
func (p *pib) address() wire.Address {
	if p.shortAddress < wire.ShortAddrUnassigned {
		return wire.ShortAddr(p.panID, p.shortAddress)
	}
	return wire.ExtendedAddr(p.panID, p.extendedAddress)
}
