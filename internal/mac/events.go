package mac

import (
	"github.com/wsmac/wsmac/internal/security"
	"github.com/wsmac/wsmac/internal/wire"
)

// Event is the sum type drained by a Stack's single event-loop goroutine.
// Every external collaborator (the radio's RX callback, the superframe
// timer's tick callback, the AES engine's completion callback) posts an
// Event onto the Stack's bounded queue instead of calling back into MAC
// state directly — this is what replaces the original's three interrupt
// sources plus interrupt masking (Design Note, §9).
type Event interface{ isEvent() }

// RxFrameEvent carries one received over-the-air frame, FCS already
// stripped, exactly as it arrived from the radio.
type RxFrameEvent struct {
	Data []byte
}

func (RxFrameEvent) isEvent() {}

// SlotTickEvent fires once per superframe slot boundary.
type SlotTickEvent struct{}

func (SlotTickEvent) isEvent() {}

// AesDoneEvent carries the result of an outstanding encrypt/decrypt
// operation the event loop dispatched earlier in the same tick. The
// supplicant's completion callback may fire from whatever goroutine the
// AESEngine uses internally; wrapping it as an Event and posting it back
// onto the Stack's own queue is what keeps the confirm/rx-callback logic
// itself running only on the event-loop goroutine.
type AesDoneEvent struct {
	Pkt    *wire.Packet
	Status security.Status
	Tag    []byte

	// Continuation identifies which in-flight operation this completion
	// belongs to (encrypt-for-send vs decrypt-on-receive), since both
	// funnel through the same event type.
	Continuation func(pkt *wire.Packet, status security.Status)
}

func (AesDoneEvent) isEvent() {}

// eventQueueCapacity bounds the channel every Stack drains from. A full
// queue means the event loop is falling behind; RxFrame posts from the
// radio drop the frame rather than block (O... "never block a radio RX
// interrupt on MAC processing").
const eventQueueCapacity = 64
