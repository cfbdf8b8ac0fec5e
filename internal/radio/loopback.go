package radio

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"

	"github.com/wsmac/wsmac/internal/wire"
)

// loopbackRadio is an in-memory Radio wired to a peer loopbackRadio, used
// by the tests — the role the teacher's pty-backed virtual KISS TNC plays
// for a real TNC serial port, minus the pty. The cmd/ demos use PTYRadio
// instead.
type loopbackRadio struct {
	mu       sync.Mutex
	channel  uint8
	powered  bool
	pan      uint16
	short    uint16
	extended [8]byte

	peer *loopbackRadio
	rxCb func(data []byte)

	ccaBusy   atomic.Bool // forced CCA-busy injection, for S4
	corruptFn atomic.Pointer[func([]byte) []byte]

	txPending []byte
}

// LoopbackPair returns two Radio implementations, each delivering what the
// other transmits to its registered RX callback.
func LoopbackPair() (Radio, Radio) {
	a := &loopbackRadio{}
	b := &loopbackRadio{}
	a.peer = b
	b.peer = a
	return a, b
}

func (r *loopbackRadio) Init() error { return nil }

func (r *loopbackRadio) SetChannel(ch uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channel = ch
	return nil
}

func (r *loopbackRadio) SetRXCallback(cb func(data []byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rxCb = cb
}

func (r *loopbackRadio) SetPower(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.powered = on
}

// CCA reports the channel clear, unless SetCCABusy(true) has forced a busy
// reading for S4 (deferred-transmission-on-busy-channel) testing.
func (r *loopbackRadio) CCA() bool {
	return !r.ccaBusy.Load()
}

// SetCCABusy forces CCA() to report a busy channel until cleared.
func (r *loopbackRadio) SetCCABusy(busy bool) {
	r.ccaBusy.Store(busy)
}

// SetCorruption installs a function applied to every frame the peer
// transmits to this radio, before it reaches this radio's RX callback —
// nil restores normal delivery. Used for S5's ACK-sequence-number-mismatch
// scenario.
func (r *loopbackRadio) SetCorruption(fn func([]byte) []byte) {
	if fn == nil {
		r.corruptFn.Store(nil)
		return
	}
	r.corruptFn.Store(&fn)
}

func (r *loopbackRadio) Prepare(pkt *wire.Packet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txPending = append([]byte{}, pkt.Data()...)
}

func (r *loopbackRadio) Transmit() {
	r.mu.Lock()
	data := r.txPending
	r.txPending = nil
	peer := r.peer
	r.mu.Unlock()

	if data == nil || peer == nil {
		return
	}
	if fn := peer.corruptFn.Load(); fn != nil {
		data = (*fn)(data)
	}

	peer.mu.Lock()
	cb := peer.rxCb
	peer.mu.Unlock()
	if cb != nil {
		cb(data)
	}

	// Real radio hardware (e.g. the cc2538's RFCORE_XREG_FRMCTRL0_AUTOACK
	// bit) generates and transmits the ACK within the SIFS period entirely
	// in hardware, below the MAC sublayer — there is no mac_*
	// ack-generation routine in the original to port. This loopback
	// Radio emulates that hardware behavior so the MAC-level ACK
	// correlation/timeout logic has something to actually exercise.
	if ackReq(data) {
		ack := buildAck(data)
		r.mu.Lock()
		cb := r.rxCb
		r.mu.Unlock()
		if cb != nil {
			cb(ack)
		}
	}
}

func ackReq(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return data[0]&(1<<5) != 0
}

// buildAck constructs the 3-octet ACK frame (FCF + sequence number) the
// original's hardware auto-ack logic would send in response to data.
func buildAck(data []byte) []byte {
	if len(data) < 3 {
		return nil
	}
	return []byte{byte(wire.FrameTypeAck), 0x00, data[2]}
}

func (r *loopbackRadio) TXHasData() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.txPending != nil
}

func (r *loopbackRadio) TXClear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txPending = nil
}

func (r *loopbackRadio) SetPANID(pan uint16)             { r.mu.Lock(); r.pan = pan; r.mu.Unlock() }
func (r *loopbackRadio) SetShortAddress(addr uint16)     { r.mu.Lock(); r.short = addr; r.mu.Unlock() }
func (r *loopbackRadio) SetExtendedAddress(a [8]byte)    { r.mu.Lock(); r.extended = a; r.mu.Unlock() }

// SimulatedMACTimer is a MACTimer whose symbol clock advances only when
// Advance is called — either explicitly by tests, for deterministic
// superframe timing, or by RunRealtime on a wall-clock ticker.
type SimulatedMACTimer struct {
	mu    sync.Mutex
	cb    func()
	so    uint8
	clock uint32
	on    bool
}

func NewSimulatedMACTimer() *SimulatedMACTimer { return &SimulatedMACTimer{} }

func (t *SimulatedMACTimer) Init(cb func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cb = cb
}

func (t *SimulatedMACTimer) Synchronise() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clock = 0
}

func (t *SimulatedMACTimer) SetSuperframeOrder(so uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.so = so
}

func (t *SimulatedMACTimer) EnableInterrupts() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.on = true
}

func (t *SimulatedMACTimer) DisableInterrupts() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.on = false
}

func (t *SimulatedMACTimer) GetTime() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clock & 0xFFFFFF
}

// Advance moves the simulated symbol clock forward by symbols and fires
// the slot-tick callback once if interrupts are enabled — tests drive the
// superframe state machine with this instead of a real ticker.
func (t *SimulatedMACTimer) Advance(symbols uint32) {
	t.mu.Lock()
	t.clock += symbols
	cb := t.cb
	enabled := t.on
	t.mu.Unlock()

	if enabled && cb != nil {
		cb()
	}
}

// RunRealtime drives the symbol clock from real wall time instead of
// explicit Advance calls, for the cmd/ demo binaries that talk over a
// real pty rather than an in-process test harness: every tickInterval of
// wall time, the clock advances by symbolsPerTick and the slot-tick
// callback fires if interrupts are enabled. Blocks until ctx is
// cancelled; intended to be launched in its own goroutine.
func (t *SimulatedMACTimer) RunRealtime(ctx context.Context, tickInterval time.Duration, symbolsPerTick uint32) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.Advance(symbolsPerTick)
		case <-ctx.Done():
			return
		}
	}
}

// PTYLoopback opens a master/slave pseudo-terminal pair, the way the
// teacher's kisspt_init stands up a virtual TNC serial port, for demos
// that want two separate wsmac-* processes talking over a real file
// descriptor instead of in-process channels. The caller owns both
// returned files and is responsible for closing them.
func PTYLoopback() (master, slave *os.File, err error) {
	return pty.Open()
}
