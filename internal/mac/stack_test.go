package mac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsmac/wsmac/internal/radio"
	"github.com/wsmac/wsmac/internal/security"
	"github.com/wsmac/wsmac/internal/wire"
)

func newTestStack(ext [8]byte) (*Stack, radio.Radio, *radio.SimulatedMACTimer) {
	r, _ := radio.LoopbackPair()
	timer := radio.NewSimulatedMACTimer()
	aes := security.NewSoftwareAESEngine()
	return NewStack(ext, r, timer, aes), r, timer
}

func TestNewStackDefaults(t *testing.T) {
	s, _, _ := newTestStack([8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	assert.Equal(t, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, s.GetExtendedAddress())
	assert.Equal(t, wire.BroadcastPAN, s.GetPANID())
	assert.Equal(t, wire.BroadcastShort, s.GetShortAddress())
}

func TestRunDrainsPostedEvents(t *testing.T) {
	s, _, _ := newTestStack([8]byte{9})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	received := make(chan []byte, 1)
	s.RegisterRXCallback(func(src wire.Address, payload []byte) {
		received <- payload
	})

	// A bare, unsecured, no-addressing data frame: FCF (data, no
	// security, no ack, no addressing), SQN, payload.
	fcf := wire.FCF{FrameType: wire.FrameTypeData, FrameVersion: wire.FrameVersion}
	fcfBytes := fcf.Encode()
	frame := append([]byte{fcfBytes[0], fcfBytes[1], 0x42}, []byte("hello")...)

	s.onRadioRX(frame)

	require.Eventually(t, func() bool {
		select {
		case got := <-received:
			return string(got) == "hello"
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestSecurityAddDeviceKeyCreatesDevice(t *testing.T) {
	s, _, _ := newTestStack([8]byte{1})
	var ext [8]byte
	copy(ext[:], []byte{9, 9, 9})

	s.SecurityAddDeviceKey(ext, 0, [16]byte{0xAA})

	dev := s.registry.GetByExtended(ext)
	require.NotNil(t, dev)
	key, ok := dev.Key(0)
	require.True(t, ok)
	assert.Equal(t, byte(0xAA), key.Bytes[0])
}
