package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/wsmac/wsmac/internal/wire"
)

func TestCCMRoundTrip(t *testing.T) {
	eng := NewSoftwareAESEngine()
	key := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	nonce := make([]byte, 13)
	for i := range nonce {
		nonce[i] = byte(i)
	}
	aad := []byte("header-prefix")
	plaintext := []byte("sensor-reading-42")

	msg := append([]byte{}, plaintext...)
	var gotTag []byte
	eng.Encrypt(true, 4, 2, nonce, msg, aad, key[:], func(status AESStatus, tag []byte) {
		require.Equal(t, AESStatusSuccess, status)
		gotTag = append([]byte{}, tag...)
	})
	require.NotEqual(t, plaintext, msg) // actually encrypted

	cipherAndTag := append(append([]byte{}, msg...), gotTag...)
	var decryptStatus AESStatus
	eng.Decrypt(true, 4, 2, nonce, cipherAndTag, aad, key[:], func(status AESStatus, _ []byte) {
		decryptStatus = status
	})
	assert.Equal(t, AESStatusSuccess, decryptStatus)
	assert.Equal(t, plaintext, cipherAndTag[:len(plaintext)])
}

func TestCCMDecryptFailsOnCorruption(t *testing.T) {
	eng := NewSoftwareAESEngine()
	key := [16]byte{}
	nonce := make([]byte, 13)
	aad := []byte("aad")
	plaintext := []byte("data")

	msg := append([]byte{}, plaintext...)
	var tag []byte
	eng.Encrypt(true, 4, 2, nonce, msg, aad, key[:], func(status AESStatus, t []byte) {
		tag = append([]byte{}, t...)
	})

	corrupted := append(append([]byte{}, msg...), tag...)
	corrupted[0] ^= 0xFF

	var status AESStatus
	eng.Decrypt(true, 4, 2, nonce, corrupted, aad, key[:], func(s AESStatus, _ []byte) {
		status = s
	})
	assert.Equal(t, AESStatusEncryptError, status)
}

// P2 — security round trip: decrypt(encrypt(k, n, p, a)) == p for all
// payload/key/aad within the size this stack uses; corrupting any byte of
// ciphertext, tag, or aad causes decryption to fail.
func TestPropertyCCMRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keyBytes := rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(t, "key")
		nonceBytes := rapid.SliceOfN(rapid.Byte(), 13, 13).Draw(t, "nonce")
		aad := rapid.SliceOfN(rapid.Byte(), 0, 20).Draw(t, "aad")
		plaintext := rapid.SliceOfN(rapid.Byte(), 0, 100).Draw(t, "plaintext")

		eng := NewSoftwareAESEngine()
		msg := append([]byte{}, plaintext...)
		var tag []byte
		eng.Encrypt(true, 4, 2, nonceBytes, msg, aad, keyBytes, func(status AESStatus, tg []byte) {
			if status != AESStatusSuccess {
				t.Fatalf("encrypt failed: %v", status)
			}
			tag = append([]byte{}, tg...)
		})

		cipherAndTag := append(append([]byte{}, msg...), tag...)
		var status AESStatus
		var recovered []byte
		out := append([]byte{}, cipherAndTag...)
		eng.Decrypt(true, 4, 2, nonceBytes, out, aad, keyBytes, func(s AESStatus, _ []byte) {
			status = s
			recovered = out[:len(out)-4]
		})
		if status != AESStatusSuccess {
			t.Fatalf("decrypt failed: %v", status)
		}
		if string(recovered) != string(plaintext) {
			t.Fatalf("round trip mismatch: got %x want %x", recovered, plaintext)
		}

		if len(cipherAndTag) > 0 {
			corrupted := append([]byte{}, cipherAndTag...)
			corrupted[0] ^= 0x01
			var corruptStatus AESStatus
			eng.Decrypt(true, 4, 2, nonceBytes, corrupted, aad, keyBytes, func(s AESStatus, _ []byte) {
				corruptStatus = s
			})
			if corruptStatus == AESStatusSuccess {
				t.Fatalf("corrupted ciphertext/tag unexpectedly verified")
			}
		}
	})
}

func TestSupplicantRefusesReentry(t *testing.T) {
	eng := &blockingAESEngine{}
	sup := NewSupplicant(eng, nil)

	pkt := wire.NewPacket()
	defer pkt.Release()
	var fc uint32
	var ext [8]byte

	status := sup.EncryptFrame(pkt, []byte("x"), ext, &fc, [16]byte{}, func(*wire.Packet, Status) {})
	require.Equal(t, StatusInProgress, status)

	pkt2 := wire.NewPacket()
	defer pkt2.Release()
	status2 := sup.EncryptFrame(pkt2, []byte("y"), ext, &fc, [16]byte{}, func(*wire.Packet, Status) {})
	assert.Equal(t, StatusBusy, status2)
}

// blockingAESEngine never calls back, so the supplicant stays Busy —
// used only to exercise the reentrancy guard.
type blockingAESEngine struct{}

func (b *blockingAESEngine) Encrypt(encrypt bool, m, l uint8, nonce, m_ []byte, a []byte, key []byte, cb func(status AESStatus, tag []byte)) {
}
func (b *blockingAESEngine) Decrypt(decrypt bool, m, l uint8, nonce, c []byte, a []byte, key []byte, cb func(status AESStatus, tag []byte)) {
}
