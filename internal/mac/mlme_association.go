package mac

import "github.com/wsmac/wsmac/internal/wire"

// AssociationStatus mirrors ws_mac_association_status_t.
type AssociationStatus int

const (
	AssociationSuccess AssociationStatus = iota
	AssociationNoAck
	AssociationNoData
	AssociationDenied
)

func (a AssociationStatus) String() string {
	switch a {
	case AssociationSuccess:
		return "Success"
	case AssociationNoAck:
		return "NoAck"
	case AssociationNoData:
		return "NoData"
	case AssociationDenied:
		return "Denied"
	default:
		return "Unknown"
	}
}

type assocPhase int

const (
	assocPhaseIdle assocPhase = iota
	assocPhaseReqSent
	assocPhaseReqAcked
	assocPhaseDataReqSent
	assocPhaseWaitResponse
)

// associationState mirrors association_t: the two-phase handshake this
// device drives as an associating child.
type associationState struct {
	phase assocPhase

	coordPAN      uint16
	coordShort    uint16
	coordExtended [8]byte
	cap           CapabilityInfo
	cb            AssociateCallback

	deadline uint32
}

// MLMEAssociate mirrors ws_mac_mlme_associate: configures the radio for
// the coordinator's channel/PAN and immediately begins the handshake.
// coordShort is the coordinator's short address as discovered by
// MLMEScan's ScanResult.CoordShortAddress (wire.BroadcastShort if unknown),
// mirroring how the original copies pan->addr out of the PAN descriptor
// passed to ws_mac_mlme_associate rather than guessing it from the
// association response frame.
func (s *Stack) MLMEAssociate(channel uint8, coordPAN, coordShort uint16, coordExtended [8]byte, cap CapabilityInfo, cb AssociateCallback) error {
	if s.pib.state == StateAssociating {
		return ErrInvalidState
	}

	s.pib.state = StateAssociating
	s.pib.currentChannel = channel
	s.pib.panID = coordPAN
	s.pib.coordExtendedAddress = coordExtended

	s.assoc = associationState{
		phase:         assocPhaseReqSent,
		coordPAN:      coordPAN,
		coordShort:    coordShort,
		coordExtended: coordExtended,
		cap:           cap,
		cb:            cb,
	}

	if err := s.radio.SetChannel(channel); err != nil {
		return err
	}
	s.radio.SetPANID(coordPAN)

	if _, ok := s.sendAssociationRequest(coordPAN, coordExtended, cap); !ok {
		s.failAssociation(AssociationNoAck)
	}
	return nil
}

func (s *Stack) failAssociation(status AssociationStatus) {
	cb := s.assoc.cb
	s.assoc = associationState{}
	s.pib.state = StateIdle
	if cb != nil {
		cb(status, wire.ShortAddrUnassigned)
	}
}

// onAssocReqStatusImpl is the TX-status continuation for the association
// request frame, mirroring mac_mlme_association_handle_status's
// ASSOC_REQ_SENT branch.
func (s *Stack) onAssocReqStatusImpl(status TxStatus) {
	if s.assoc.phase != assocPhaseReqSent {
		return
	}
	if status != TxStatusSuccess {
		s.failAssociation(AssociationNoAck)
		return
	}
	s.assoc.phase = assocPhaseReqAcked

	dest := wire.ExtendedAddr(s.assoc.coordPAN, s.assoc.coordExtended)
	if _, ok := s.sendDataRequest(dest, s.onDataReqStatusImpl); !ok {
		s.failAssociation(AssociationNoAck)
		return
	}
	s.assoc.phase = assocPhaseDataReqSent
}

func (s *Stack) onDataReqStatusImpl(status TxStatus) {
	if s.assoc.phase != assocPhaseDataReqSent {
		return
	}
	if status != TxStatusSuccess {
		s.failAssociation(AssociationNoAck)
		return
	}
	s.assoc.phase = assocPhaseWaitResponse
	s.assoc.deadline = s.timer.GetTime() + s.pib.responseWaitTime*60
}

// onAssocSlotTick checks the association-response deadline while waiting
// in assocPhaseWaitResponse.
func (s *Stack) onAssocSlotTick() {
	if s.assoc.phase != assocPhaseWaitResponse {
		return
	}
	if int32(s.timer.GetTime()-s.assoc.deadline) >= 0 {
		s.failAssociation(AssociationNoData)
	}
}

// assocHandlePacket mirrors mac_mlme_association_handle_packet.
func (s *Stack) assocHandlePacket(fcf wire.FCF, data []byte) {
	if fcf.FrameType == wire.FrameTypeBeacon {
		_, _, src, _, err := parseFrameHeader(fcf, data)
		if err != nil {
			return
		}
		if src.Mode == wire.AddrModeShort && src.Short == s.pib.coordShortAddress {
			s.timer.Synchronise()
		}
		return
	}

	if fcf.FrameType != wire.FrameTypeCommand || s.assoc.phase != assocPhaseWaitResponse {
		return
	}

	_, dest, src, rest, err := parseFrameHeader(fcf, data)
	if err != nil || dest.Mode == wire.AddrModeNone {
		return
	}
	if src.Mode != wire.AddrModeExtended {
		return
	}
	if len(rest) < 1 || wire.Command(rest[0]) != wire.CommandAssociationResponse {
		return
	}
	rest = rest[1:]
	if len(rest) < 3 {
		return
	}

	newShort := uint16(rest[0]) | uint16(rest[1])<<8
	status := rest[2]

	s.pib.panID = dest.PANID
	s.pib.coordExtendedAddress = src.Extended
	s.pib.shortAddress = newShort
	s.pib.coordShortAddress = s.assoc.coordShort

	if status != 0 {
		s.failAssociation(AssociationDenied)
		return
	}

	dev := s.registry.CreateCoordDevice(src.Extended)
	dev.SetKey(s.ownKeyIndex, s.pib.ownKey)
	if s.assoc.coordShort != wire.BroadcastShort {
		dev.Short = s.assoc.coordShort
		dev.HasShort = true
	}

	s.pib.state = StateAssociated
	cb := s.assoc.cb
	s.assoc = associationState{}
	if cb != nil {
		cb(AssociationSuccess, newShort)
	}
}
