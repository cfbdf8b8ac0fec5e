package mac

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/wsmac/wsmac/internal/radio"
	"github.com/wsmac/wsmac/internal/registry"
	"github.com/wsmac/wsmac/internal/security"
	"github.com/wsmac/wsmac/internal/wire"
)

// RXCallback is invoked once per successfully received (and, if secured,
// decrypted) MCPS data indication, mirroring ws_mac_mcps_register_rx_callback.
type RXCallback func(src wire.Address, payload []byte)

// ConfirmCallback is invoked once per MCPSSendData call with the outcome,
// mirroring ws_mac_mcps_register_confirm_callback.
type ConfirmCallback func(handle uint8, status MCPSStatus)

// ScanCallback is invoked once a scan completes, mirroring the
// ws_mac_mlme_scan cb parameter. A scan that MLMEScan rejects returns an
// error and never invokes it.
type ScanCallback func(results []ScanResult)

// AssociateCallback is invoked once association completes, mirroring the
// ws_mac_mlme_associate cb parameter.
type AssociateCallback func(status AssociationStatus, shortAddress uint16)

// CoordinatorAssociateCallback is invoked on the coordinator side once a
// device finishes associating, mirroring mac_coordinator_register_associate_callback.
type CoordinatorAssociateCallback func(dev *registry.Device)

// Option configures a Stack at construction time.
type Option func(*Stack)

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Stack) { s.log = l }
}

// Stack is the IEEE 802.15.4 MAC sublayer, driven entirely by its own
// Run(ctx) event-loop goroutine. Every exported method other than Run
// posts onto the internal command path or touches only thread-safe
// collaborators (the registry), so callers may invoke them from any
// goroutine; all MAC-internal state (pib, scheduler queues, association
// and scan state) is touched only from the event loop itself.
type Stack struct {
	log *log.Logger

	radio radio.Radio
	timer radio.MACTimer
	aes   security.AESEngine

	registry    *registry.Registry
	supplicant  *security.Supplicant
	ownKeyIndex uint8

	events chan Event

	mu  sync.Mutex // guards pib fields touched from outside the event loop (getters)
	pib pib

	sched schedulerState
	scan  scanState
	assoc associationState
	coord coordinatorState

	rxCb      RXCallback
	confirmCb ConfirmCallback

	nextHandle uint8
}

// NewStack constructs a Stack bound to the given collaborators. The Stack
// does nothing until Run is called.
func NewStack(extendedAddress [8]byte, r radio.Radio, t radio.MACTimer, aes security.AESEngine, opts ...Option) *Stack {
	s := &Stack{
		log:      log.Default(),
		radio:    r,
		timer:    t,
		aes:      aes,
		registry: registry.New(),
		events:   make(chan Event, eventQueueCapacity),
		pib:      newPIB(extendedAddress, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.supplicant = security.NewSupplicant(aes, s.log)

	r.SetRXCallback(s.onRadioRX)
	t.Init(s.onSlotTick)

	return s
}

// onRadioRX is the Radio's RX callback — it may run on any goroutine, so
// it only ever posts an Event; it never touches pib/scheduler state
// directly.
func (s *Stack) onRadioRX(data []byte) {
	frame := make([]byte, len(data))
	copy(frame, data)
	select {
	case s.events <- RxFrameEvent{Data: frame}:
	default:
		s.log.Warn("event queue full, dropping rx frame")
	}
}

// onSlotTick is the MACTimer's tick callback — same cross-goroutine rule
// as onRadioRX.
func (s *Stack) onSlotTick() {
	select {
	case s.events <- SlotTickEvent{}:
	default:
		s.log.Warn("event queue full, dropping slot tick")
	}
}

// postAesDone is handed to the supplicant as the completion callback for
// every encrypt/decrypt operation; it funnels back onto the event loop
// rather than running continuation logic in the AES engine's own
// callback context.
func (s *Stack) postAesDone(continuation func(pkt *wire.Packet, status security.Status)) security.CompletionFunc {
	return func(pkt *wire.Packet, status security.Status) {
		ev := AesDoneEvent{Pkt: pkt, Status: status, Continuation: continuation}
		select {
		case s.events <- ev:
		default:
			s.log.Error("event queue full, dropping aes completion", "status", status)
			pkt.Release()
		}
	}
}

// Run drains the event queue until ctx is cancelled. Exactly one
// goroutine must call Run for a given Stack.
func (s *Stack) Run(ctx context.Context) {
	for {
		select {
		case ev := <-s.events:
			s.handleEvent(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Stack) handleEvent(ev Event) {
	switch e := ev.(type) {
	case RxFrameEvent:
		s.handleRxFrame(e.Data)
	case SlotTickEvent:
		s.handleSlotTick()
	case AesDoneEvent:
		if e.Continuation != nil {
			e.Continuation(e.Pkt, e.Status)
		}
	}
}

// postEvent lets sibling files in this package (scheduler, mlme, ...)
// re-enter the event loop from within a callback that is not itself
// running on it (used sparingly; most logic already runs inline during
// handleEvent).
func (s *Stack) postEvent(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn("event queue full, dropping internally-generated event")
	}
}

// GetShortAddress mirrors ws_mac_mlme_get_short_address.
func (s *Stack) GetShortAddress() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pib.shortAddress
}

// MLMESetShortAddress mirrors ws_mac_mlme_set_short_address.
func (s *Stack) MLMESetShortAddress(addr uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pib.shortAddress = addr
	s.radio.SetShortAddress(addr)
}

// GetExtendedAddress mirrors ws_mac_mlme_get_extended_address.
func (s *Stack) GetExtendedAddress() [8]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pib.extendedAddress
}

// GetPANID mirrors ws_mac_mlme_get_pan_id.
func (s *Stack) GetPANID() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pib.panID
}

// GetAddress mirrors ws_mac_mlme_get_address.
func (s *Stack) GetAddress() wire.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pib.address()
}

// RegisterRXCallback mirrors ws_mac_mcps_register_rx_callback.
func (s *Stack) RegisterRXCallback(cb RXCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rxCb = cb
}

// RegisterConfirmCallback mirrors ws_mac_mcps_register_confirm_callback.
func (s *Stack) RegisterConfirmCallback(cb ConfirmCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmCb = cb
}

// SecurityAddOwnKey records this device's own symmetric key and its index.
// The index selects which peer key secured sends and receives look up; the
// key bytes are installed as the coordinator's peer key when association
// succeeds.
func (s *Stack) SecurityAddOwnKey(index uint8, key [16]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pib.ownKey = key
	s.ownKeyIndex = index
}

// SecurityAddDeviceKey installs a peer device's symmetric key, creating
// the device record if it does not already exist.
func (s *Stack) SecurityAddDeviceKey(extended [8]byte, index uint8, key [16]byte) {
	dev := s.registry.GetByExtended(extended)
	if dev == nil {
		dev = s.registry.CreateCoordDevice(extended)
	}
	dev.SetKey(index, key)
}

// CoordinatorRegisterCallback mirrors mac_coordinator_register_associate_callback.
func (s *Stack) CoordinatorRegisterCallback(cb CoordinatorAssociateCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coord.associateCb = cb
}
