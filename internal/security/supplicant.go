// Package security implements the per-device CCM* supplicant: nonce
// construction, encrypt/decrypt dispatch to an AESEngine, and the
// single-slot state machine guarding reentrancy.
package security

import (
	"errors"

	"github.com/charmbracelet/log"

	"github.com/wsmac/wsmac/internal/wire"
)

// Status mirrors mac_security_status_t.
type Status int

const (
	StatusSuccess Status = iota
	StatusInProgress
	StatusNoKey
	StatusAESError
	StatusBusy
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusInProgress:
		return "InProgress"
	case StatusNoKey:
		return "NoKey"
	case StatusAESError:
		return "AesError"
	case StatusBusy:
		return "Busy"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

var ErrReentrant = errors.New("security: supplicant busy")

// KeySource looks up a device's key by extended address — satisfied by
// internal/registry.Registry in the Stack wiring, kept as an interface
// here so this package doesn't import the registry package directly.
type KeySource interface {
	KeyForExtended(ext [8]byte, index uint8) (Key, bool)
}

// Key is a 16-octet symmetric key plus its index, duplicated here (rather
// than importing internal/registry's type) to keep this package's public
// surface self-contained; Stack wiring converts between the two.
type Key struct {
	Index uint8
	Bytes [16]byte
}

type slotState int

const (
	slotIdle slotState = iota
	slotEncrypting
	slotDecrypting
)

// CompletionFunc is invoked once for each EncryptFrame/DecryptFrame call
// that returned StatusInProgress, from the AES engine's callback; on any
// other return status it is not invoked and the caller handles the
// failure itself. The Stack wraps its continuations with postAesDone so
// they run on its single event-loop goroutine rather than in the AES
// completion context.
type CompletionFunc func(pkt *wire.Packet, status Status)

// Supplicant is the single-slot encrypt/decrypt state machine. It is not
// safe for concurrent use from more than the owning Stack's event loop.
type Supplicant struct {
	engine AESEngine
	logger *log.Logger

	state slotState
	pkt   *wire.Packet
}

func NewSupplicant(engine AESEngine, logger *log.Logger) *Supplicant {
	if logger == nil {
		logger = log.Default()
	}
	return &Supplicant{engine: engine, logger: logger}
}

// Busy reports whether the supplicant is mid-operation.
func (s *Supplicant) Busy() bool { return s.state != slotIdle }

// DeriveKeyFromPSK is the explicit placeholder key-derivation algorithm
// spec.md calls out as needing real replacement in a production
// deployment: copy up to 16 octets of the pre-shared secret, zero-padded.
func DeriveKeyFromPSK(psk []byte) [16]byte {
	var key [16]byte
	n := len(psk)
	if n > 16 {
		n = 16
	}
	copy(key[:n], psk[:n])
	return key
}

// nonce builds the 13-octet CCM* nonce: reverse(extended address) ||
// frame counter (least-significant octet first) || security level (I5).
func nonce(ext [8]byte, frameCounter uint32, level wire.SecurityLevel) [13]byte {
	var n [13]byte
	rev := wire.ReversedExtended(ext)
	copy(n[0:8], rev[:])
	n[8] = byte(frameCounter)
	n[9] = byte(frameCounter >> 8)
	n[10] = byte(frameCounter >> 16)
	n[11] = byte(frameCounter >> 24)
	n[12] = byte(level)
	return n
}

// EncryptFrame appends a security-control octet and a big-endian frame
// counter, copies plaintext into the packet behind them, dispatches
// in-place encryption of it to the AES engine, and on completion appends
// the MIC before calling done. pkt must already hold the FCF/SQN/addressing
// prefix with fcf.SecurityEnabled set. Once the security header is in
// place, EncryptFrame itself increments *frameCounter exactly once, after
// building the nonce from the pre-increment value (I5).
func (s *Supplicant) EncryptFrame(pkt *wire.Packet, plaintext []byte, ownExtended [8]byte, frameCounter *uint32, key [16]byte, done CompletionFunc) Status {
	if s.Busy() {
		return StatusBusy
	}

	sc := wire.SecurityControl{Level: wire.SecurityLevelEncMIC32, KeyIDMode: wire.KeyIDModeImplicit}
	if !pkt.PushBack([]byte{sc.Encode()}) {
		return StatusError
	}
	fc := wire.EncodeFrameCounter(*frameCounter)
	if !pkt.PushBack(fc[:]) {
		return StatusError
	}

	aad := append([]byte{}, pkt.Data()...)
	n := nonce(ownExtended, *frameCounter, wire.SecurityLevelEncMIC32)
	*frameCounter++

	if !pkt.GrowBack(len(plaintext)) {
		return StatusError
	}
	msgSlot := pkt.Data()[len(pkt.Data())-len(plaintext):]
	copy(msgSlot, plaintext)

	s.state = slotEncrypting
	s.pkt = pkt

	s.engine.Encrypt(true, wire.MICLen, 2, n[:], msgSlot, aad, key[:], func(status AESStatus, tag []byte) {
		s.state = slotIdle
		p := s.pkt
		s.pkt = nil

		if status != AESStatusSuccess {
			s.logger.Warn("ccm encrypt failed", "status", status)
			done(p, StatusAESError)
			return
		}
		if !p.PushBack(tag) {
			done(p, StatusError)
			return
		}
		done(p, StatusSuccess)
	})

	return StatusInProgress
}

// DecryptFrame is the symmetric inverse: ciphertext (with trailing MIC)
// in place, nonce built from the peer's extended address, decrypting to
// plaintext in place on success.
func (s *Supplicant) DecryptFrame(pkt *wire.Packet, sc wire.SecurityControl, wireFrameCounter uint32, peerExtended [8]byte, key [16]byte, ciphertextAndTag []byte, aad []byte, done CompletionFunc) Status {
	if s.Busy() {
		return StatusBusy
	}
	if sc.Level != wire.SecurityLevelEncMIC32 || sc.KeyIDMode != wire.KeyIDModeImplicit {
		return StatusError
	}

	n := nonce(peerExtended, wireFrameCounter, wire.SecurityLevelEncMIC32)

	s.state = slotDecrypting
	s.pkt = pkt

	s.engine.Decrypt(true, wire.MICLen, 2, n[:], ciphertextAndTag, aad, key[:], func(status AESStatus, _ []byte) {
		s.state = slotIdle
		p := s.pkt
		s.pkt = nil

		if status != AESStatusSuccess {
			s.logger.Warn("ccm decrypt failed")
			done(p, StatusAESError)
			return
		}
		done(p, StatusSuccess)
	})

	return StatusInProgress
}
