package mac

import (
	"github.com/wsmac/wsmac/internal/security"
	"github.com/wsmac/wsmac/internal/wire"
)

// MCPSStatus mirrors ws_mac_mcps_status_t: the outcome reported to a
// MCPSSendData caller via ConfirmCallback.
type MCPSStatus int

const (
	MCPSStatusSuccess MCPSStatus = iota
	MCPSStatusNoAck
	MCPSStatusChannelAccessFailure
	MCPSStatusUnsupportedSecurity
	MCPSStatusNotAllowed
)

func (m MCPSStatus) String() string {
	switch m {
	case MCPSStatusSuccess:
		return "Success"
	case MCPSStatusNoAck:
		return "NoAck"
	case MCPSStatusChannelAccessFailure:
		return "ChannelAccessFailure"
	case MCPSStatusUnsupportedSecurity:
		return "UnsupportedSecurity"
	case MCPSStatusNotAllowed:
		return "NotAllowed"
	default:
		return "Unknown"
	}
}

// MCPSSendData mirrors ws_mac_mcps_send_data. Unlike the original, this
// always returns a valid handle and only ever invokes the confirm
// callback if one is registered — the original calls a NULL confirm_cb
// function pointer on its invalid-state path
// (`if (confirm_cb == NULL) confirm_cb(...)`), which is a crash rather
// than a guard; every exit path here checks s.confirmCb != nil instead.
func (s *Stack) MCPSSendData(dest wire.Address, payload []byte, ackReq, secure bool) uint8 {
	handle := s.nextHandle
	s.nextHandle++

	if s.pib.state != StateAssociated && s.pib.state != StateCoordinating {
		s.confirm(handle, MCPSStatusNotAllowed)
		return handle
	}

	pkt := wire.NewPacket()
	fcf := wire.FCF{FrameType: wire.FrameTypeData, AckRequest: ackReq, FrameVersion: wire.FrameVersion, SecurityEnabled: secure}
	src := s.pib.address()
	if err := wire.AppendAddress(pkt, &fcf, dest, src); err != nil {
		s.confirm(handle, MCPSStatusNotAllowed)
		return handle
	}
	sqn := s.pib.nextSQN()

	if !secure {
		if !pkt.PushBack(payload) {
			s.confirm(handle, MCPSStatusNotAllowed)
			return handle
		}
		if !pkt.PushFront([]byte{sqn}) {
			s.confirm(handle, MCPSStatusNotAllowed)
			return handle
		}
		fcfBytes := fcf.Encode()
		pkt.PushFront(fcfBytes[:])
		s.dispatchOutbound(pkt, dest, sqn, handle)
		return handle
	}

	if !pkt.PushFront([]byte{sqn}) {
		s.confirm(handle, MCPSStatusNotAllowed)
		return handle
	}
	fcfBytes := fcf.Encode()
	pkt.PushFront(fcfBytes[:])

	dev := s.registry.GetByAddr(dest)
	if dev == nil {
		s.confirm(handle, MCPSStatusUnsupportedSecurity)
		pkt.Release()
		return handle
	}
	key, ok := dev.Key(s.ownKeyIndex)
	if !ok {
		s.confirm(handle, MCPSStatusUnsupportedSecurity)
		pkt.Release()
		return handle
	}

	status := s.supplicant.EncryptFrame(pkt, payload, s.pib.extendedAddress, &s.pib.frameCounter, key.Bytes,
		s.postAesDone(func(p *wire.Packet, st security.Status) {
			s.mcpsEncDone(p, st, dest, sqn, handle)
		}))
	if status == security.StatusInProgress {
		return handle
	}
	s.mcpsEncDone(pkt, status, dest, sqn, handle)
	return handle
}

func (s *Stack) mcpsEncDone(pkt *wire.Packet, status security.Status, dest wire.Address, sqn uint8, handle uint8) {
	if status != security.StatusSuccess {
		s.confirm(handle, MCPSStatusUnsupportedSecurity)
		pkt.Release()
		return
	}
	s.dispatchOutbound(pkt, dest, sqn, handle)
}

// dispatchOutbound mirrors dispatch_packet's outbound half: route to the
// coordinator's indirect-transmission path while Coordinating, or the
// packet scheduler's CSMA-CA queue while Associated.
func (s *Stack) dispatchOutbound(pkt *wire.Packet, dest wire.Address, sqn uint8, handle uint8) {
	onStatus := func(ts TxStatus) {
		switch ts {
		case TxStatusSuccess:
			s.confirm(handle, MCPSStatusSuccess)
		case TxStatusNoAck:
			s.confirm(handle, MCPSStatusNoAck)
		case TxStatusNotSent:
			s.confirm(handle, MCPSStatusChannelAccessFailure)
		}
	}

	switch s.pib.state {
	case StateCoordinating:
		if err := s.CoordinatorSendData(dest, pkt, sqn, onStatus); err != nil {
			s.confirm(handle, MCPSStatusNotAllowed)
			pkt.Release()
		}
	case StateAssociated:
		s.enqueueTX(pkt, true, sqn, onStatus)
	default:
		s.confirm(handle, MCPSStatusNotAllowed)
		pkt.Release()
	}
}

func (s *Stack) confirm(handle uint8, status MCPSStatus) {
	if s.confirmCb != nil {
		s.confirmCb(handle, status)
	}
}

// mcpsHandleData mirrors mac_mcps_handle_packet: a received DATA frame is
// decrypted (if secured) and passed up, or dropped if no RX callback is
// registered.
func (s *Stack) mcpsHandleData(fcf wire.FCF, data []byte) {
	if s.rxCb == nil {
		s.log.Warn("no rx callback registered, dropping data frame")
		return
	}

	_, _, src, rest, err := parseFrameHeader(fcf, data)
	if err != nil {
		return
	}

	if !fcf.SecurityEnabled {
		s.passUpPacket(src, rest)
		return
	}

	s.mcpsDecryptAndPassUp(fcf, data, src, rest)
}

// mcpsDecryptAndPassUp decrypts a secured DATA frame. The AAD is
// everything preceding the ciphertext+MIC — FCF, sequence number,
// addressing, security control, frame counter — exactly the prefix
// EncryptFrame authenticated on the sending side, so it is computed from
// the raw received frame rather than reconstructed field by field.
func (s *Stack) mcpsDecryptAndPassUp(fcf wire.FCF, data []byte, src wire.Address, rest []byte) {
	if len(rest) < 5 {
		return
	}
	sc, err := wire.DecodeSecurityControl(rest[0])
	if err != nil {
		s.log.Warn("unsupported security parameters, dropping", "err", err)
		return
	}
	frameCounter := wire.DecodeFrameCounter(rest[1:5])
	ciphertextAndTag := rest[5:]
	if len(ciphertextAndTag) < wire.MICLen {
		return
	}

	if src.Mode != wire.AddrModeExtended {
		s.log.Warn("secured frame from non-extended source, dropping")
		return
	}
	dev := s.registry.GetByExtended(src.Extended)
	if dev == nil {
		s.log.Warn("secured frame from unknown device, dropping")
		return
	}
	key, ok := dev.Key(s.ownKeyIndex)
	if !ok {
		s.log.Warn("no key for device, dropping secured frame")
		return
	}

	aad := make([]byte, len(data)-len(ciphertextAndTag))
	copy(aad, data[:len(data)-len(ciphertextAndTag)])

	pkt := wire.NewPacket()
	pkt.PushBack(ciphertextAndTag)

	status := s.supplicant.DecryptFrame(pkt, sc, frameCounter, src.Extended, key.Bytes, pkt.Data(), aad,
		s.postAesDone(func(p *wire.Packet, st security.Status) {
			s.mcpsDecDone(p, st, src)
		}))
	if status != security.StatusInProgress {
		s.mcpsDecDone(pkt, status, src)
	}
}

func (s *Stack) mcpsDecDone(pkt *wire.Packet, status security.Status, src wire.Address) {
	if status != security.StatusSuccess {
		s.log.Warn("ccm decrypt failed, dropping frame", "status", status)
		pkt.Release()
		return
	}
	plaintext := pkt.Data()[:pkt.Len()-wire.MICLen]
	s.passUpPacket(src, plaintext)
	pkt.Release()
}

func (s *Stack) passUpPacket(src wire.Address, payload []byte) {
	if s.rxCb == nil {
		return
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.rxCb(src, cp)
}
