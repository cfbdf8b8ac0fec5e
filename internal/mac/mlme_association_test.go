package mac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsmac/wsmac/internal/radio"
	"github.com/wsmac/wsmac/internal/registry"
	"github.com/wsmac/wsmac/internal/security"
)

// driveSlotTicks advances both timers together on a short interval until
// ctx is cancelled, standing in for the real superframe symbol clock in
// these end-to-end tests.
func driveSlotTicks(ctx context.Context, timers ...*radio.SimulatedMACTimer) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, t := range timers {
				t.Advance(60)
			}
		case <-ctx.Done():
			return
		}
	}
}

// End-to-end association: request -> ACK -> data-request -> ACK ->
// association response, mirroring the scenario's full handshake.
func TestAssociationHandshakeEndToEnd(t *testing.T) {
	radioCoord, radioDev := radio.LoopbackPair()
	timerCoord := radio.NewSimulatedMACTimer()
	timerDev := radio.NewSimulatedMACTimer()
	aesCoord := security.NewSoftwareAESEngine()
	aesDev := security.NewSoftwareAESEngine()

	coordExt := [8]byte{0xC0, 0, 0, 0, 0, 0, 0, 1}
	devExt := [8]byte{0xD0, 0, 0, 0, 0, 0, 0, 1}

	coord := NewStack(coordExt, radioCoord, timerCoord, aesCoord)
	dev := NewStack(devExt, radioDev, timerDev, aesDev)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go coord.Run(ctx)
	go dev.Run(ctx)
	go driveSlotTicks(ctx, timerCoord, timerDev)

	coord.MLMESetShortAddress(0)
	require.NoError(t, coord.MLMEStart(0xCAFE, 11, 8, 8))

	coordAssociated := make(chan *registry.Device, 1)
	coord.CoordinatorRegisterCallback(func(d *registry.Device) { coordAssociated <- d })

	devResult := make(chan struct {
		status AssociationStatus
		short  uint16
	}, 1)
	err := dev.MLMEAssociate(11, 0xCAFE, 0, coordExt, CapabilityInfo{AllocateAddress: true}, func(status AssociationStatus, short uint16) {
		devResult <- struct {
			status AssociationStatus
			short  uint16
		}{status, short}
	})
	require.NoError(t, err)

	select {
	case d := <-coordAssociated:
		assert.Equal(t, devExt, d.Addr.Extended)
	case <-time.After(time.Second):
		t.Fatal("coordinator never observed the association")
	}

	select {
	case r := <-devResult:
		assert.Equal(t, AssociationSuccess, r.status)
		assert.NotEqual(t, uint16(0xFFFE), r.short)
	case <-time.After(time.Second):
		t.Fatal("device never completed association")
	}

	// Safe to read without locking: the devResult receive above
	// happens-after the event-loop goroutine set this field and sent on
	// that channel.
	assert.Equal(t, StateAssociated, dev.pib.state)
	assert.Equal(t, uint16(0), dev.pib.coordShortAddress, "coordinator's short address must be the one tracked from MLMEAssociate, not guessed from the response frame")
}
