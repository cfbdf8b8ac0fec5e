package security

import (
	"crypto/aes"
	"encoding/binary"
)

// AESStatus mirrors ws_aes_status_t: the three outcomes the hardware CCM
// engine can report to its completion callback.
type AESStatus int

const (
	AESStatusSuccess AESStatus = iota
	AESStatusKeyWriteError
	AESStatusEncryptError
)

// AESEngine is the external collaborator interface for the CCM* engine
// (spec §6's aes_ccm_encrypt/aes_ccm_decrypt). The real hardware engine is
// out of scope; SoftwareAESEngine below is the one implementation this
// repo ships, suitable for tests and for demos that have no AES
// coprocessor to talk to.
//
// Both methods are asynchronous in contract (the callback may be invoked
// from a different goroutine than the caller, exactly as the hardware
// engine would complete from an interrupt) even though SoftwareAESEngine
// happens to call back before returning.
type AESEngine interface {
	// Encrypt performs CCM* encryption (or authentication-only if
	// encrypt is false) of m in place, and invokes cb with the
	// resulting tag.
	Encrypt(encrypt bool, m, l uint8, nonce, m_ []byte, a []byte, key []byte, cb func(status AESStatus, tag []byte))
	// Decrypt is the symmetric inverse.
	Decrypt(decrypt bool, m, l uint8, nonce, c []byte, a []byte, key []byte, cb func(status AESStatus, tag []byte))
}

// SoftwareAESEngine implements CCM* (IEEE 802.15.4 Annex B / RFC 3610)
// directly on top of crypto/aes, in the spirit of the hand-rolled
// CBC-MAC-over-raw-cipher construction used elsewhere in this ecosystem for
// protocols without a first-class AEAD package (crypto/cipher ships GCM,
// not CCM). There is no general-purpose CCM* package among the available
// third-party dependencies, so this one component is grounded on the
// standard library plus the bespoke block construction rather than an
// imported library — see DESIGN.md.
type SoftwareAESEngine struct{}

func NewSoftwareAESEngine() *SoftwareAESEngine { return &SoftwareAESEngine{} }

func ccmFlags(hasAAD bool, mTagLen, l uint8) byte {
	lPrime := (l - 1) & 0x7
	mPrime := ((mTagLen - 2) / 2) & 0x7
	f := lPrime | mPrime<<3
	if hasAAD {
		f |= 1 << 6
	}
	return f
}

func ccmCounterBlock(flags byte, nonce []byte, l uint8, counter uint64) [16]byte {
	var b [16]byte
	b[0] = flags
	copy(b[1:], nonce)
	// Encode counter big-endian into the trailing L octets.
	var cbuf [8]byte
	binary.BigEndian.PutUint64(cbuf[:], counter)
	copy(b[1+len(nonce):], cbuf[8-int(l):])
	return b
}

func xorInto(dst *[16]byte, src []byte) {
	for i := 0; i < len(src) && i < 16; i++ {
		dst[i] ^= src[i]
	}
}

// cbcMAC runs the CCM* authentication pass over aad and message, returning
// the full 16-octet CBC-MAC output (the caller truncates to M octets).
func cbcMAC(block interface{ Encrypt(dst, src []byte) }, nonce []byte, l uint8, mTagLen uint8, msgLen int, aad, message []byte) [16]byte {
	b0 := ccmCounterBlock(ccmFlags(len(aad) > 0, mTagLen, l), nonce, l, 0)
	// B0's trailing L octets carry the message length, not a counter —
	// overwrite them now that ccmCounterBlock has placed the flags/nonce.
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(msgLen))
	copy(b0[1+len(nonce):], lenBuf[8-int(l):])

	var x [16]byte
	block.Encrypt(x[:], b0[:])

	feed := func(data []byte) {
		for len(data) > 0 {
			n := len(data)
			if n > 16 {
				n = 16
			}
			var blk [16]byte
			copy(blk[:], x[:])
			xorInto(&blk, data[:n])
			block.Encrypt(x[:], blk[:])
			data = data[n:]
		}
	}

	if len(aad) > 0 {
		var prefixed []byte
		var lenPrefix [2]byte
		binary.BigEndian.PutUint16(lenPrefix[:], uint16(len(aad)))
		prefixed = append(prefixed, lenPrefix[:]...)
		prefixed = append(prefixed, aad...)
		if pad := len(prefixed) % 16; pad != 0 {
			prefixed = append(prefixed, make([]byte, 16-pad)...)
		}
		feed(prefixed)
	}

	if len(message) > 0 {
		padded := message
		if pad := len(padded) % 16; pad != 0 {
			padded = append(append([]byte{}, message...), make([]byte, 16-pad)...)
		}
		feed(padded)
	}

	return x
}

func ctrKeystream(block interface{ Encrypt(dst, src []byte) }, nonce []byte, l uint8, n int) []byte {
	flags := ccmFlags(false, 0, l) &^ (0x7 << 3) // Adata/M' cleared for Ai blocks
	out := make([]byte, 0, n+16)
	for counter := uint64(1); len(out) < n; counter++ {
		ai := ccmCounterBlock(flags, nonce, l, counter)
		var s [16]byte
		block.Encrypt(s[:], ai[:])
		out = append(out, s[:]...)
	}
	return out[:n]
}

func s0Keystream(block interface{ Encrypt(dst, src []byte) }, nonce []byte, l uint8) [16]byte {
	flags := ccmFlags(false, 0, l) &^ (0x7 << 3)
	a0 := ccmCounterBlock(flags, nonce, l, 0)
	var s0 [16]byte
	block.Encrypt(s0[:], a0[:])
	return s0
}

// Encrypt implements AESEngine.Encrypt.
func (e *SoftwareAESEngine) Encrypt(encrypt bool, mTagLen, l uint8, nonce, m []byte, a []byte, key []byte, cb func(status AESStatus, tag []byte)) {
	block, err := aes.NewCipher(key)
	if err != nil {
		cb(AESStatusKeyWriteError, nil)
		return
	}

	mac := cbcMAC(block, nonce, l, mTagLen, len(m), a, m)
	s0 := s0Keystream(block, nonce, l)
	var tag [16]byte
	for i := range mac {
		tag[i] = mac[i] ^ s0[i]
	}

	if encrypt && len(m) > 0 {
		ks := ctrKeystream(block, nonce, l, len(m))
		for i := range m {
			m[i] ^= ks[i]
		}
	}

	cb(AESStatusSuccess, tag[:mTagLen])
}

// Decrypt implements AESEngine.Decrypt. The tag to verify against is
// appended after the ciphertext proper, in c[len(c)-M:] — callers arrange
// this the same way the encrypt side leaves it, mirroring how the
// hardware engine's fixed-size calling convention is used on both paths.
func (e *SoftwareAESEngine) Decrypt(decrypt bool, mTagLen, l uint8, nonce, c []byte, a []byte, key []byte, cb func(status AESStatus, tag []byte)) {
	if len(c) < int(mTagLen) {
		cb(AESStatusEncryptError, nil)
		return
	}
	ciphertext := c[:len(c)-int(mTagLen)]
	wantTag := c[len(c)-int(mTagLen):]

	block, err := aes.NewCipher(key)
	if err != nil {
		cb(AESStatusKeyWriteError, nil)
		return
	}

	if decrypt && len(ciphertext) > 0 {
		ks := ctrKeystream(block, nonce, l, len(ciphertext))
		for i := range ciphertext {
			ciphertext[i] ^= ks[i]
		}
	}

	mac := cbcMAC(block, nonce, l, mTagLen, len(ciphertext), a, ciphertext)
	s0 := s0Keystream(block, nonce, l)
	var tag [16]byte
	for i := range mac {
		tag[i] = mac[i] ^ s0[i]
	}

	ok := true
	for i := 0; i < int(mTagLen); i++ {
		if tag[i] != wantTag[i] {
			ok = false
		}
	}
	if !ok {
		cb(AESStatusEncryptError, nil)
		return
	}

	cb(AESStatusSuccess, tag[:mTagLen])
}
