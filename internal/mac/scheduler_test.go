package mac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsmac/wsmac/internal/radio"
	"github.com/wsmac/wsmac/internal/security"
	"github.com/wsmac/wsmac/internal/wire"
)

// S4 — CCA-busy defers transmission: a transmission queued while the
// channel reads busy is not sent until CCA clears.
func TestCCABusyDefersTransmission(t *testing.T) {
	a, b := radio.LoopbackPair()
	lbA := a.(interface{ SetCCABusy(bool) })

	timer := radio.NewSimulatedMACTimer()
	aes := security.NewSoftwareAESEngine()
	s := NewStack([8]byte{1}, a, timer, aes)
	s.pib.state = StateAssociated

	var received []byte
	b.SetRXCallback(func(data []byte) { received = data })

	lbA.SetCCABusy(true)

	pkt := wire.NewPacket()
	require.True(t, pkt.PushBack([]byte{0x00, 0x00}))
	s.enqueueTX(pkt, false, 1, nil)

	assert.Nil(t, received, "busy channel must defer the transmission")
	assert.Equal(t, 1, len(s.sched.queue))

	lbA.SetCCABusy(false)
	s.handleSlotTick()

	assert.NotNil(t, received, "clear channel must let the deferred item through")
	assert.Equal(t, 0, len(s.sched.queue))
}

// S4 (exhaustion) — a channel that never clears across every CSMA-CA
// backoff attempt must surface TxStatusNotSent rather than leaving the
// item at the queue head to be silently retried forever.
func TestCSMAExhaustionReportsChannelAccessFailure(t *testing.T) {
	a, _ := radio.LoopbackPair()
	lbA := a.(interface{ SetCCABusy(bool) })

	timer := radio.NewSimulatedMACTimer()
	aes := security.NewSoftwareAESEngine()
	s := NewStack([8]byte{1}, a, timer, aes)
	s.pib.state = StateAssociated
	s.pib.maxFrameRetries = 0

	lbA.SetCCABusy(true)

	var status TxStatus
	done := false
	pkt := wire.NewPacket()
	require.True(t, pkt.PushBack([]byte{0x00, 0x00}))
	s.enqueueTX(pkt, false, 1, func(ts TxStatus) { status = ts; done = true })

	assert.True(t, done, "CSMA exhaustion must report failure rather than loop forever")
	assert.Equal(t, TxStatusNotSent, status)
	assert.Equal(t, 0, len(s.sched.queue))
}

// S5 — an ACK whose sequence number does not match the in-flight frame is
// ignored; the in-flight frame keeps waiting for its own ACK or a timeout.
func TestAckSequenceNumberMismatchIgnored(t *testing.T) {
	a, _ := radio.LoopbackPair()
	timer := radio.NewSimulatedMACTimer()
	aes := security.NewSoftwareAESEngine()
	s := NewStack([8]byte{1}, a, timer, aes)

	var status TxStatus
	done := false
	pkt := wire.NewPacket()
	require.True(t, pkt.PushBack([]byte{0x01}))
	s.enqueueTX(pkt, true, 7, func(ts TxStatus) { status = ts; done = true })

	require.NotNil(t, s.sched.inFlight)
	require.Equal(t, uint8(7), s.sched.inFlight.sqn)

	mismatchedAck := []byte{byte(wire.FrameTypeAck), 0x00, 0x09}
	s.handleRxFrame(mismatchedAck)
	assert.False(t, done, "a mismatched ACK must not complete the in-flight send")
	assert.NotNil(t, s.sched.inFlight)

	correctAck := []byte{byte(wire.FrameTypeAck), 0x00, 0x07}
	s.handleRxFrame(correctAck)
	assert.True(t, done)
	assert.Equal(t, TxStatusSuccess, status)
	assert.Nil(t, s.sched.inFlight)
}

// A send that never receives an ACK retries up to maxFrameRetries times
// before finally reporting TxStatusNoAck.
func TestRetryExhaustionReportsNoAck(t *testing.T) {
	a, _ := radio.LoopbackPair()
	timer := radio.NewSimulatedMACTimer()
	aes := security.NewSoftwareAESEngine()
	s := NewStack([8]byte{1}, a, timer, aes)
	s.pib.maxFrameRetries = 2

	var status TxStatus
	done := false
	pkt := wire.NewPacket()
	require.True(t, pkt.PushBack([]byte{0x01}))
	s.enqueueTX(pkt, true, 1, func(ts TxStatus) { status = ts; done = true })

	for i := 0; i < 3; i++ {
		require.False(t, done, "must not complete before retries are exhausted")
		timer.Advance(ackTimeoutSymbols)
		s.handleSlotTick()
	}

	assert.True(t, done)
	assert.Equal(t, TxStatusNoAck, status)
}
