package mac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsmac/wsmac/internal/radio"
	"github.com/wsmac/wsmac/internal/security"
	"github.com/wsmac/wsmac/internal/wire"
)

func beaconFrame(src wire.Address, beaconOrder, superframeOrder uint8, assocPermitted bool) []byte {
	pkt := wire.NewPacket()
	fcf := wire.FCF{FrameType: wire.FrameTypeBeacon, FrameVersion: wire.FrameVersion}
	_ = wire.AppendAddress(pkt, &fcf, wire.NoneAddr(), src)

	var superframeSpec byte = beaconOrder & 0x0f
	superframeSpec |= (superframeOrder & 0x0f) << 4
	var gtsAndPending byte
	if assocPermitted {
		gtsAndPending |= 1 << 6
	}
	pkt.PushBack([]byte{superframeSpec, gtsAndPending})
	pkt.PushFront([]byte{0x00}) // sqn
	fcfBytes := fcf.Encode()
	pkt.PushFront(fcfBytes[:])

	data := append([]byte{}, pkt.Data()...)
	pkt.Release()
	return data
}

func TestScanRecordsAndSortsResults(t *testing.T) {
	a, _ := radio.LoopbackPair()
	timer := radio.NewSimulatedMACTimer()
	aes := security.NewSoftwareAESEngine()
	s := NewStack([8]byte{1}, a, timer, aes)

	var captured []ScanResult
	err := s.MLMEScan(ScanTypePassive, 1<<11, 2, func(results []ScanResult) {
		captured = results
	})
	require.NoError(t, err)
	require.Equal(t, StateScanning, s.pib.state)

	coordB := wire.ShortAddr(0xBEEF, 0x0001)
	coordA := wire.ShortAddr(0xAAAA, 0x0002)

	fcf, err := wire.DecodeFCF(beaconFrame(coordB, 6, 6, true))
	require.NoError(t, err)
	s.scanHandleBeacon(fcf, beaconFrame(coordB, 6, 6, true))
	s.scanHandleBeacon(fcf, beaconFrame(coordA, 3, 3, false))

	s.finishScan()

	require.Len(t, captured, 2)
	assert.Equal(t, uint16(0xAAAA), captured[0].PANID, "results sort by PAN id ascending")
	assert.Equal(t, uint16(0xBEEF), captured[1].PANID)
	assert.True(t, captured[1].AssociationPermitted)
	assert.False(t, captured[0].AssociationPermitted)
}

func TestMLMEScanRejectsConcurrentScan(t *testing.T) {
	a, _ := radio.LoopbackPair()
	timer := radio.NewSimulatedMACTimer()
	aes := security.NewSoftwareAESEngine()
	s := NewStack([8]byte{1}, a, timer, aes)

	require.NoError(t, s.MLMEScan(ScanTypeActive, 1<<11, 2, nil))
	err := s.MLMEScan(ScanTypeActive, 1<<11, 2, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMLMEScanRejectsEmptyChannelMask(t *testing.T) {
	a, _ := radio.LoopbackPair()
	timer := radio.NewSimulatedMACTimer()
	aes := security.NewSoftwareAESEngine()
	s := NewStack([8]byte{1}, a, timer, aes)

	err := s.MLMEScan(ScanTypeActive, 0, 2, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
