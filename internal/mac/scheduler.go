package mac

import "github.com/wsmac/wsmac/internal/wire"

// ackTimeoutSymbols is how long the scheduler waits for an ACK after a
// transmission requesting one, one superframe slot period (WS_RADIO_SLOT_DURATION).
const ackTimeoutSymbols = 60

// capSlots is the number of slots in the superframe's contention access
// period; only within the first capSlots slots of a beacon interval does
// the scheduler attempt CSMA-CA transmission.
const capSlots = 15

type txState int

const (
	txIdle txState = iota
	txSent
)

// txItem is one queued outbound transmission. onStatus is invoked exactly
// once, with the final outcome, from the event-loop goroutine — the
// enqueuing layer (mcps/coordinator/mlme_association) supplies whatever
// closure it needs instead of the scheduler routing completions back out
// by frame type.
type txItem struct {
	pkt      *wire.Packet
	ackReq   bool
	sqn      uint8
	onStatus func(TxStatus)
}

// schedulerState is the packet scheduler's TX-side state: a FIFO queue of
// outbound frames, the in-flight retry/timeout bookkeeping, and the
// superframe slot counter. RX-side state lives entirely in the event
// queue — there is no separate RX ring here since internal/radio.Radio
// already delivers complete frames rather than a raw byte stream (the
// original's ring-buffer-plus-FCS-stripping step is absorbed at that
// boundary; internal/wire.RingBuffer is still exercised by the optional
// pty-backed Radio transport, where frames do arrive as a raw stream).
type schedulerState struct {
	queue []txItem

	state         txState
	inFlight      *txItem
	inFlightSince uint32
	retries       uint8

	slotCount  uint16
	csmaActive bool
}

// enqueueTX appends pkt to the TX queue and, if the scheduler is idle,
// attempts to send immediately rather than waiting for the next slot
// tick — mirrors mac_packet_scheduler_send_data firing its background
// task right away.
func (s *Stack) enqueueTX(pkt *wire.Packet, ackReq bool, sqn uint8, onStatus func(TxStatus)) {
	s.sched.queue = append(s.sched.queue, txItem{pkt: pkt, ackReq: ackReq, sqn: sqn, onStatus: onStatus})
	if s.sched.state == txIdle && !s.sched.csmaActive {
		s.attemptCSMA()
	}
}

func (s *Stack) handleSlotTick() {
	if s.pib.state == StateScanning {
		s.onScanSlotTick()
		return
	}
	if s.pib.state == StateAssociating {
		s.onAssocSlotTick()
	}

	if s.pib.state == StateCoordinating {
		limit := uint16(1) << s.pib.superframeOrder
		if s.pib.superframeOrder >= 16 {
			limit = 1 << 15
		}
		if s.sched.slotCount >= limit {
			s.sched.slotCount = 0
			s.cleanTXState()
			s.sendBeacon()
		} else {
			s.sched.slotCount++
		}
	} else if s.sched.slotCount < 100 {
		s.sched.slotCount++
	}

	if s.sched.state == txSent && s.sched.inFlight != nil {
		elapsed := int32(s.timer.GetTime() - s.sched.inFlightSince)
		if elapsed >= ackTimeoutSymbols {
			s.retryOrFail(TxStatusNoAck)
		}
	}

	if s.sched.slotCount < capSlots && len(s.sched.queue) > 0 && s.sched.state == txIdle && !s.sched.csmaActive {
		s.attemptCSMA()
	}
}

// attemptCSMA is a synchronous, slot-tick-granularity rendition of the
// original's csma_timer: it checks CCA twice in a row, backing off the
// exponent on each failure, up to maxCSMABackoffs attempts. The original's
// per-attempt random wait (UNIT_BACKOFF_PERIOD * 2^BE symbols) has no
// equivalent here since MACTimer only exposes one tick granularity and a
// busy-wait would block the event loop; this trades that timing fidelity
// for a bounded number of immediate CCA retries with the same backoff
// exponent bookkeeping.
func (s *Stack) attemptCSMA() {
	if s.pib.battLifeExtension {
		s.log.Warn("battery life extension mode unsupported")
		return
	}

	s.sched.csmaActive = true
	defer func() { s.sched.csmaActive = false }()

	be := s.pib.minBackoffExponent
	for nb := uint8(0); nb < s.pib.maxCSMABackoffs; nb++ {
		if s.radio.CCA() && s.radio.CCA() {
			s.transmitHead()
			return
		}
		if be < s.pib.maxBackoffExponent {
			be++
		}
	}

	if len(s.sched.queue) == 0 {
		return
	}
	s.log.Warn("csma-ca backoff exhausted, reporting channel access failure")
	item := s.sched.queue[0]
	s.sched.queue = s.sched.queue[1:]
	s.sched.inFlight = &item
	s.sched.state = txSent
	s.retryOrFail(TxStatusNotSent)
}

func (s *Stack) transmitHead() {
	if len(s.sched.queue) == 0 {
		return
	}
	item := s.sched.queue[0]
	s.sched.queue = s.sched.queue[1:]

	s.radio.Prepare(item.pkt)
	s.radio.Transmit()

	if !item.ackReq {
		item.pkt.Release()
		s.sched.state = txIdle
		if item.onStatus != nil {
			item.onStatus(TxStatusSuccess)
		}
		return
	}

	it := item
	s.sched.inFlight = &it
	s.sched.inFlightSince = s.timer.GetTime()
	s.sched.state = txSent
}

func (s *Stack) retryOrFail(status TxStatus) {
	item := s.sched.inFlight
	if item == nil {
		return
	}
	s.sched.inFlight = nil
	s.sched.state = txIdle

	if s.sched.retries < s.pib.maxFrameRetries {
		s.sched.retries++
		requeued := append([]txItem{*item}, s.sched.queue...)
		s.sched.queue = requeued
		return
	}

	s.sched.retries = 0
	item.pkt.Release()
	if item.onStatus != nil {
		item.onStatus(status)
	}
}

// cleanTXState mirrors clean_tx_state: abandon whatever is in flight
// (used when a beacon wraparound supersedes it) and clear the radio's TX
// holding register.
func (s *Stack) cleanTXState() {
	if s.sched.inFlight != nil {
		s.sched.inFlight.pkt.Release()
		s.sched.inFlight = nil
	}
	s.sched.state = txIdle
	s.sched.retries = 0
	s.radio.TXClear()
}

// handleRxFrame mirrors the non-ACK half of packet_scheduler_timer's
// drain loop: decode the FCF, correlate ACKs against the in-flight send,
// and otherwise route by current MAC state.
func (s *Stack) handleRxFrame(data []byte) {
	fcf, err := wire.DecodeFCF(data)
	if err != nil {
		s.log.Warn("dropping undersized frame", "err", err)
		return
	}

	if fcf.FrameType == wire.FrameTypeAck {
		s.handleAck(data)
		return
	}

	s.dispatchFrame(fcf, data)
}

func (s *Stack) handleAck(data []byte) {
	if len(data) < 3 {
		return
	}
	sqn := data[2]

	if s.sched.state == txSent && s.sched.inFlight != nil && s.sched.inFlight.sqn == sqn {
		item := s.sched.inFlight
		s.sched.inFlight = nil
		s.sched.state = txIdle
		s.sched.retries = 0
		item.pkt.Release()
		if item.onStatus != nil {
			item.onStatus(TxStatusSuccess)
		}
		return
	}
	s.log.Debug("ack sqn mismatch, ignoring", "sqn", sqn)
}

// dispatchFrame routes a received non-ACK frame by the stack's current
// state, mirroring dispatch_packet.
func (s *Stack) dispatchFrame(fcf wire.FCF, data []byte) {
	switch s.pib.state {
	case StateScanning:
		if fcf.FrameType == wire.FrameTypeBeacon {
			s.scanHandleBeacon(fcf, data)
		}
		return
	case StateAssociating:
		if fcf.FrameType == wire.FrameTypeBeacon || fcf.FrameType == wire.FrameTypeCommand {
			s.assocHandlePacket(fcf, data)
		}
		return
	}

	switch fcf.FrameType {
	case wire.FrameTypeBeacon:
		s.coordHandleBeacon(fcf, data)
	case wire.FrameTypeCommand:
		s.coordHandleCommand(fcf, data)
	case wire.FrameTypeData:
		s.mcpsHandleData(fcf, data)
	}
}
