package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketPushFrontThenBackLeavesOrderIntact(t *testing.T) {
	pkt := NewPacket()
	defer pkt.Release()

	require.True(t, pkt.Reserve(4))
	require.True(t, pkt.PushFront([]byte{0xCA, 0xFE, 0xBE, 0xEF}))
	require.True(t, pkt.PushBack([]byte{0x01, 0x02}))

	assert.Equal(t, []byte{0xCA, 0xFE, 0xBE, 0xEF, 0x01, 0x02}, pkt.Data())
}

func TestPacketTrimFrontAndBack(t *testing.T) {
	pkt := NewPacket()
	defer pkt.Release()

	require.True(t, pkt.PushBack([]byte{1, 2, 3, 4, 5}))
	require.True(t, pkt.TrimFront(1))
	require.True(t, pkt.TrimBack(1))

	assert.Equal(t, []byte{2, 3, 4}, pkt.Data())
}

func TestPacketPushBackRejectsOverCapacity(t *testing.T) {
	pkt := NewPacket()
	defer pkt.Release()

	big := make([]byte, MaxPacketLen+1)
	assert.False(t, pkt.PushBack(big))
}

func TestPacketUseAfterReleasePanics(t *testing.T) {
	pkt := NewPacket()
	pkt.Release()

	assert.Panics(t, func() {
		pkt.Data()
	})
}
