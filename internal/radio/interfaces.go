// Package radio defines the transceiver and timer collaborator interfaces
// the MAC stack drives, plus an in-memory loopback implementation of both
// standing in for the out-of-scope hardware.
package radio

import "github.com/wsmac/wsmac/internal/wire"

// Radio is the PHY/transceiver abstraction: channel selection, clear
// channel assessment, and frame transmit/receive. Mirrors the external
// interface spec.md's §6 names for the radio driver.
type Radio interface {
	Init() error
	SetChannel(ch uint8) error
	SetRXCallback(cb func(data []byte))
	SetPower(on bool)
	CCA() bool
	Prepare(pkt *wire.Packet)
	Transmit()
	TXHasData() bool
	TXClear()
	SetPANID(pan uint16)
	SetShortAddress(addr uint16)
	SetExtendedAddress(addr [8]byte)
}

// MACTimer drives the superframe symbol clock: beacon synchronisation,
// slot-tick interrupts, and the 24-bit symbol counter frame timing is
// measured against.
type MACTimer interface {
	Init(cb func())
	Synchronise()
	SetSuperframeOrder(so uint8)
	EnableInterrupts()
	DisableInterrupts()
	GetTime() uint32
}
