package mac

import "github.com/wsmac/wsmac/internal/wire"

// buildCommandFrame assembles a MAC command frame: FCF, sequence number,
// addressing, the one-octet command identifier, then any
// command-specific payload. Mirrors the common prefix every
// mac_mlme_send_* helper in the original builds by hand.
func (s *Stack) buildCommandFrame(dest, src wire.Address, ackReq bool, command wire.Command, extra []byte) (*wire.Packet, uint8, bool) {
	pkt := wire.NewPacket()
	fcf := wire.FCF{FrameType: wire.FrameTypeCommand, AckRequest: ackReq, FrameVersion: wire.FrameVersion}

	if err := wire.AppendAddress(pkt, &fcf, dest, src); err != nil {
		return nil, 0, false
	}
	if !pkt.PushBack([]byte{byte(command)}) {
		return nil, 0, false
	}
	if len(extra) > 0 && !pkt.PushBack(extra) {
		return nil, 0, false
	}

	sqn := s.pib.nextSQN()
	if !pkt.PushFront([]byte{sqn}) {
		return nil, 0, false
	}
	fcfBytes := fcf.Encode()
	if !pkt.PushFront(fcfBytes[:]) {
		return nil, 0, false
	}
	return pkt, sqn, true
}

// sendBeaconRequest mirrors mac_mlme_send_beacon_request: a command frame
// broadcast to the all-ones short address, no source address, no ACK
// requested (broadcasts are never acknowledged).
func (s *Stack) sendBeaconRequest() {
	dest := wire.ShortAddr(wire.BroadcastPAN, wire.BroadcastShort)
	pkt, _, ok := s.buildCommandFrame(dest, wire.NoneAddr(), false, wire.CommandBeaconRequest, nil)
	if !ok {
		s.log.Error("no buffer for beacon request")
		return
	}
	s.enqueueTX(pkt, false, 0, nil)
}

// CapabilityInfo mirrors mac_capability_info_t packed into one octet:
// bit 1 device type (0=RFD,1=FFD), bit 2 power source, bit 6 security
// capable, bit 7 allocate address.
type CapabilityInfo struct {
	FFD             bool
	MainsPowered    bool
	SecurityCapable bool
	AllocateAddress bool
}

func (c CapabilityInfo) encode() byte {
	var b byte
	if c.FFD {
		b |= 1 << 1
	}
	if c.MainsPowered {
		b |= 1 << 2
	}
	if c.SecurityCapable {
		b |= 1 << 6
	}
	if c.AllocateAddress {
		b |= 1 << 7
	}
	return b
}

// sendAssociationRequest mirrors mac_mlme_send_association_request:
// addressed to the coordinator by extended address, always ACK-requested.
func (s *Stack) sendAssociationRequest(coordPAN uint16, coordExtended [8]byte, cap CapabilityInfo) (uint8, bool) {
	dest := wire.ExtendedAddr(coordPAN, coordExtended)
	src := wire.ExtendedAddr(coordPAN, s.pib.extendedAddress)
	pkt, sqn, ok := s.buildCommandFrame(dest, src, true, wire.CommandAssociationRequest, []byte{cap.encode()})
	if !ok {
		return 0, false
	}
	s.enqueueTX(pkt, true, sqn, s.onAssocReqStatusImpl)
	return sqn, true
}

// sendDataRequest mirrors mac_mlme_send_data_request: the poll frame an
// associating (or already-associated, indirect-reception) device sends
// to retrieve pending data held at the coordinator.
func (s *Stack) sendDataRequest(dest wire.Address, onStatus func(TxStatus)) (uint8, bool) {
	src := s.pib.address()
	pkt, sqn, ok := s.buildCommandFrame(dest, src, true, wire.CommandDataRequest, nil)
	if !ok {
		return 0, false
	}
	s.enqueueTX(pkt, true, sqn, onStatus)
	return sqn, true
}

// MLMEStart validates superframe parameters and transitions this device
// into the Coordinating state, mirroring ws_mac_mlme_start.
func (s *Stack) MLMEStart(panID uint16, channel uint8, beaconOrder, superframeOrder uint8) error {
	if channel < 11 || channel > 26 {
		return ErrInvalidParameter
	}
	if beaconOrder > 16 || superframeOrder > 16 {
		return ErrInvalidParameter
	}
	if panID == wire.BroadcastPAN {
		return ErrInvalidParameter
	}
	if s.pib.shortAddress == wire.BroadcastShort {
		return ErrInvalidParameter
	}

	s.pib.panID = panID
	s.pib.currentChannel = channel
	s.pib.beaconOrder = beaconOrder
	s.pib.superframeOrder = superframeOrder
	s.pib.isPANCoordinator = true
	s.pib.state = StateCoordinating
	s.pib.associationPermitted = true

	if err := s.radio.SetChannel(channel); err != nil {
		return err
	}
	s.radio.SetPANID(panID)
	s.timer.SetSuperframeOrder(superframeOrder)
	s.timer.Synchronise()
	s.timer.EnableInterrupts()

	s.sched.slotCount = 0
	s.cleanTXState()

	return nil
}
