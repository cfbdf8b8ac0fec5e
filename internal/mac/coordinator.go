package mac

import (
	"encoding/binary"

	"github.com/wsmac/wsmac/internal/registry"
	"github.com/wsmac/wsmac/internal/wire"
)

// maxPendingAddresses is the beacon's pending-address-list capacity
// (the one-octet pending address spec's count field is 3 bits, 0-7).
const maxPendingAddresses = 7

type coordAssocState int

const (
	coordDevAssociating coordAssocState = iota
	coordDevAssociated
)

// coordDeviceData is the coordinator-side bookkeeping kept per device,
// parallel to the registry.Device record rather than folded into it,
// since it is meaningful only while this stack is acting as coordinator
// for that device.
type coordDeviceData struct {
	pending      *wire.Packet
	pendingSQN   uint8
	pendingStatus func(TxStatus)
	state        coordAssocState
}

type coordinatorState struct {
	devices     map[*registry.Device]*coordDeviceData
	associateCb CoordinatorAssociateCallback
}

func (s *Stack) coordData(dev *registry.Device) *coordDeviceData {
	if s.coord.devices == nil {
		s.coord.devices = make(map[*registry.Device]*coordDeviceData)
	}
	cd, ok := s.coord.devices[dev]
	if !ok {
		cd = &coordDeviceData{}
		s.coord.devices[dev] = cd
	}
	return cd
}

// pendingShortAddresses collects the short addresses of devices holding
// indirect data, for the beacon's pending-address list.
func (s *Stack) pendingShortAddresses() []uint16 {
	var out []uint16
	for dev, cd := range s.coord.devices {
		if cd.pending != nil && dev.HasShort {
			out = append(out, dev.Short)
		}
	}
	return out
}

// sendBeacon mirrors mac_coordinator_request_beacon: built and
// transmitted directly, bypassing the CSMA-CA queue entirely — beacon
// transmission stays unslotted/uncontended, a deliberate policy carried
// over unchanged rather than redesigned (Open Question resolution).
func (s *Stack) sendBeacon() {
	pkt := wire.NewPacket()
	fcf := wire.FCF{FrameType: wire.FrameTypeBeacon, FrameVersion: wire.FrameVersion}
	src := s.pib.address()
	if err := wire.AppendAddress(pkt, &fcf, wire.NoneAddr(), src); err != nil {
		s.log.Error("no buffer for beacon")
		return
	}

	superframeSpec := (s.pib.beaconOrder & 0x0f) | (s.pib.superframeOrder&0x0f)<<4
	var capByte byte
	if s.pib.associationPermitted {
		capByte |= 1 << 6
	}
	if s.pib.isPANCoordinator {
		capByte |= 1 << 7
	}
	if !pkt.PushBack([]byte{superframeSpec, capByte}) {
		s.log.Error("no buffer for beacon superframe spec")
		return
	}
	if !pkt.PushBack([]byte{0}) { // GTS spec: unsupported, always zeroed
		s.log.Error("no buffer for beacon gts spec")
		return
	}

	pending := s.pendingShortAddresses()
	if len(pending) > maxPendingAddresses {
		s.log.Warn("pending address list truncated", "count", len(pending))
		pending = pending[:maxPendingAddresses]
	}
	if !pkt.PushBack([]byte{byte(len(pending))}) {
		s.log.Error("no buffer for beacon pending address spec")
		return
	}
	for _, addr := range pending {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], addr)
		if !pkt.PushBack(b[:]) {
			break
		}
	}

	sqn := s.pib.nextSQN()
	if !pkt.PushFront([]byte{sqn}) {
		return
	}
	fcfBytes := fcf.Encode()
	if !pkt.PushFront(fcfBytes[:]) {
		return
	}

	s.radio.Prepare(pkt)
	s.radio.Transmit()
	pkt.Release()
}

// coordHandleBeacon mirrors the BEACON branch of mac_coordinator_handle_packet:
// a coordinator hearing another beacon on its own PAN logs it; an
// associated device hearing its own coordinator's beacon resyncs and
// checks whether it is named in the pending-address list.
func (s *Stack) coordHandleBeacon(fcf wire.FCF, data []byte) {
	if s.pib.state == StateCoordinating {
		s.log.Warn("beacon heard while coordinating, possible PAN collision")
		return
	}
	if s.pib.state != StateAssociated {
		return
	}

	_, _, src, rest, err := parseFrameHeader(fcf, data)
	if err != nil {
		return
	}
	if !(src.Mode == wire.AddrModeShort && src.Short == s.pib.coordShortAddress) {
		return
	}
	s.timer.Synchronise()

	if len(rest) < 4 {
		return
	}
	pendingCount := int(rest[3] & 0x07)
	rest = rest[4:]
	own := s.pib.shortAddress
	for i := 0; i < pendingCount && len(rest) >= 2; i++ {
		addr := binary.LittleEndian.Uint16(rest)
		rest = rest[2:]
		if addr == own {
			s.sendDataRequest(wire.ShortAddr(s.pib.panID, s.pib.coordShortAddress), nil)
			return
		}
	}
}

// coordHandleCommand mirrors mac_coordinator_handle_packet's MAC-command
// branch, dispatching by command identifier.
func (s *Stack) coordHandleCommand(fcf wire.FCF, data []byte) {
	_, dest, src, rest, err := parseFrameHeader(fcf, data)
	if err != nil || len(rest) < 1 {
		return
	}
	command := wire.Command(rest[0])
	rest = rest[1:]

	switch command {
	case wire.CommandAssociationRequest:
		s.handleAssociationRequest(src, rest)
	case wire.CommandDataRequest:
		s.handleDataRequest(src)
	case wire.CommandBeaconRequest:
		if s.pib.state == StateCoordinating {
			s.sendBeacon()
		}
	default:
		_ = dest
	}
}

// handleAssociationRequest mirrors handle_association_request: a new
// device is appended to the registry and assigned the next short
// address; a re-association reuses the existing record and drops any
// stale pending data.
func (s *Stack) handleAssociationRequest(src wire.Address, rest []byte) {
	if src.Mode != wire.AddrModeExtended || len(rest) < 1 {
		return
	}

	dev := s.registry.GetByExtended(src.Extended)
	if dev != nil {
		cd := s.coordData(dev)
		if cd.pending != nil {
			cd.pending.Release()
			cd.pending = nil
		}
	} else {
		dev = s.registry.CreateCoordDevice(src.Extended)
		dev.Short = uint16(s.registry.Len())
		dev.HasShort = true
	}

	cd := s.coordData(dev)
	cd.state = coordDevAssociating

	respPkt, sqn, ok := s.buildCommandFrame(
		wire.ExtendedAddr(s.pib.panID, src.Extended),
		wire.ExtendedAddr(s.pib.panID, s.pib.extendedAddress),
		true,
		wire.CommandAssociationResponse,
		associationResponsePayload(dev.Short, 0),
	)
	if !ok {
		s.log.Error("no buffer for association response")
		return
	}
	cd.pending = respPkt
	cd.pendingSQN = sqn
	cd.pendingStatus = func(status TxStatus) {
		if status != TxStatusSuccess {
			return
		}
		cd.state = coordDevAssociated
		if s.coord.associateCb != nil {
			s.coord.associateCb(dev)
		}
	}
}

func associationResponsePayload(short uint16, status byte) []byte {
	var b [3]byte
	binary.LittleEndian.PutUint16(b[0:2], short)
	b[2] = status
	return b[:]
}

// handleDataRequest mirrors handle_data_request: dispatch a device's
// pending indirect data, if any, now that it has polled for it.
func (s *Stack) handleDataRequest(src wire.Address) {
	dev := s.registry.GetByAddr(src)
	if dev == nil {
		return
	}
	cd := s.coordData(dev)
	if cd.pending == nil {
		return
	}
	pkt := cd.pending
	sqn := cd.pendingSQN
	onStatus := cd.pendingStatus
	cd.pending = nil
	cd.pendingStatus = nil
	s.enqueueTX(pkt, true, sqn, onStatus)
}

// CoordinatorSendData mirrors mac_coordinator_send_data: install pkt as
// the named device's pending indirect data, overwriting (and logging) any
// data already waiting there. onStatus is invoked once the device polls
// for and the frame is actually transmitted (or never, if it never
// polls — matching the original's "no queuing, no timeout" limitation).
func (s *Stack) CoordinatorSendData(dest wire.Address, pkt *wire.Packet, sqn uint8, onStatus func(TxStatus)) error {
	dev := s.registry.GetByAddr(dest)
	if dev == nil {
		return ErrNoDevice
	}
	cd := s.coordData(dev)
	if cd.state != coordDevAssociated {
		return ErrInvalidState
	}
	if cd.pending != nil {
		s.log.Warn("overwriting existing pending data", "dest", dest)
		cd.pending.Release()
	}
	cd.pending = pkt
	cd.pendingSQN = sqn
	cd.pendingStatus = onStatus
	return nil
}
