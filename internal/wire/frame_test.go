package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFCFEncodeDecodeRoundTrip(t *testing.T) {
	fcf := FCF{
		FrameType:        FrameTypeData,
		SecurityEnabled:  true,
		AckRequest:       true,
		PANIDCompression: true,
		DestAddrMode:     AddrModeShort,
		FrameVersion:     FrameVersion,
		SrcAddrMode:      AddrModeExtended,
	}

	encoded := fcf.Encode()
	decoded, err := DecodeFCF(encoded[:])
	require.NoError(t, err)
	assert.Equal(t, fcf, decoded)
}

func TestAppendExtractAddress_CompressionWhenPANsMatch(t *testing.T) {
	pkt := NewPacket()
	defer pkt.Release()

	dest := ShortAddr(0xDC00, 0x0001)
	src := ShortAddr(0xDC00, 0x0002)

	var fcf FCF
	require.NoError(t, AppendAddress(pkt, &fcf, dest, src))
	assert.True(t, fcf.PANIDCompression)

	gotDest, gotSrc, rest, err := ExtractAddress(fcf, pkt.Data())
	require.NoError(t, err)
	assert.True(t, gotDest.Equal(dest))
	assert.True(t, gotSrc.Equal(src))
	assert.Empty(t, rest)
}

func TestAppendExtractAddress_NoCompressionWhenPANsDiffer(t *testing.T) {
	pkt := NewPacket()
	defer pkt.Release()

	dest := ShortAddr(0xDC00, 0x0001)
	src := ShortAddr(0xAAAA, 0x0002)

	var fcf FCF
	require.NoError(t, AppendAddress(pkt, &fcf, dest, src))
	assert.False(t, fcf.PANIDCompression)

	gotDest, gotSrc, _, err := ExtractAddress(fcf, pkt.Data())
	require.NoError(t, err)
	assert.True(t, gotDest.Equal(dest))
	assert.True(t, gotSrc.Equal(src))
}

func TestDataPointer_TrimsMICWhenSecured(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	mic := []byte{1, 2, 3, 4}

	var rest []byte
	rest = append(rest, SecurityControl{Level: SecurityLevelEncMIC32, KeyIDMode: KeyIDModeImplicit}.Encode())
	fc := EncodeFrameCounter(7)
	rest = append(rest, fc[:]...)
	rest = append(rest, payload...)
	rest = append(rest, mic...)

	fcf := FCF{SecurityEnabled: true}
	got, err := DataPointer(fcf, rest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDataPointer_RejectsUnsupportedSecurityLevel(t *testing.T) {
	rest := []byte{SecurityControl{Level: SecurityLevelNone}.Encode(), 0, 0, 0, 0}
	fcf := FCF{SecurityEnabled: true}
	_, err := DataPointer(fcf, rest)
	assert.ErrorIs(t, err, ErrUnsupportedSecurity)
}

// P1 — frame round trip: for all (dest, src, payload), appending addresses
// then extracting them recovers the same addresses, and PAN-id compression
// is chosen iff PANs match.
func TestPropertyFrameRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		destPAN := rapid.Uint16().Draw(t, "destPAN")
		srcPAN := rapid.Uint16().Draw(t, "srcPAN")

		genAddr := func(label string, pan uint16) Address {
			mode := rapid.SampledFrom([]AddrMode{AddrModeNone, AddrModeShort, AddrModeExtended}).Draw(t, label)
			switch mode {
			case AddrModeShort:
				return ShortAddr(pan, rapid.Uint16().Draw(t, label+"_short"))
			case AddrModeExtended:
				var ext [8]byte
				b := rapid.SliceOfN(rapid.Byte(), 8, 8).Draw(t, label+"_ext")
				copy(ext[:], b)
				return ExtendedAddr(pan, ext)
			default:
				return NoneAddr()
			}
		}

		dest := genAddr("dest", destPAN)
		src := genAddr("src", srcPAN)

		pkt := NewPacket()
		defer pkt.Release()

		var fcf FCF
		if err := AppendAddress(pkt, &fcf, dest, src); err != nil {
			t.Skip("buffer too small for this combination")
		}

		gotDest, gotSrc, _, err := ExtractAddress(fcf, pkt.Data())
		if err != nil {
			t.Fatalf("extract failed: %v", err)
		}

		if !gotDest.Equal(dest) {
			t.Fatalf("dest mismatch: got %v want %v", gotDest, dest)
		}
		if !gotSrc.Equal(src) {
			t.Fatalf("src mismatch: got %v want %v", gotSrc, src)
		}

		wantCompress := dest.Mode != AddrModeNone && src.Mode != AddrModeNone && dest.PANID == src.PANID
		if fcf.PANIDCompression != wantCompress {
			t.Fatalf("compression mismatch: got %v want %v", fcf.PANIDCompression, wantCompress)
		}
	})
}
