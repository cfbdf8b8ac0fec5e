// Package wire implements the IEEE 802.15.4 frame codec: addressing,
// the Frame Control Field, the security header, and the fixed-size
// packet buffer frames are built and parsed into.
package wire

import "fmt"

// AddrMode is the two-bit addressing mode carried in the FCF.
type AddrMode uint8

const (
	AddrModeNone     AddrMode = 0
	AddrModeShort    AddrMode = 2
	AddrModeExtended AddrMode = 3
)

func (m AddrMode) String() string {
	switch m {
	case AddrModeNone:
		return "none"
	case AddrModeShort:
		return "short"
	case AddrModeExtended:
		return "extended"
	default:
		return fmt.Sprintf("AddrMode(%d)", uint8(m))
	}
}

// BroadcastPAN and BroadcastShort are both the all-ones sentinel 0xFFFF.
const (
	BroadcastPAN   uint16 = 0xFFFF
	BroadcastShort uint16 = 0xFFFF
	// ShortAddrUnassigned means "associated but no short address assigned yet".
	ShortAddrUnassigned uint16 = 0xFFFE
)

// Address is a tagged variant of {none, short, extended}. Extended
// addresses are stored in the same byte order they appear on the wire
// (little-endian); reversing them is the nonce construction's job, not
// this type's.
type Address struct {
	Mode     AddrMode
	PANID    uint16
	Short    uint16
	Extended [8]byte
}

// NoneAddr returns the empty address.
func NoneAddr() Address { return Address{Mode: AddrModeNone} }

// ShortAddr builds a short address.
func ShortAddr(pan, short uint16) Address {
	return Address{Mode: AddrModeShort, PANID: pan, Short: short}
}

// ExtendedAddr builds an extended address.
func ExtendedAddr(pan uint16, ext [8]byte) Address {
	return Address{Mode: AddrModeExtended, PANID: pan, Extended: ext}
}

// Equal compares two addresses by mode and value. Two AddrModeNone
// addresses are always equal regardless of PAN/value.
func (a Address) Equal(b Address) bool {
	if a.Mode != b.Mode {
		return false
	}
	switch a.Mode {
	case AddrModeNone:
		return true
	case AddrModeShort:
		return a.PANID == b.PANID && a.Short == b.Short
	case AddrModeExtended:
		return a.PANID == b.PANID && a.Extended == b.Extended
	default:
		return false
	}
}

func (a Address) String() string {
	switch a.Mode {
	case AddrModeNone:
		return "none"
	case AddrModeShort:
		return fmt.Sprintf("%#04x:%#04x", a.PANID, a.Short)
	case AddrModeExtended:
		return fmt.Sprintf("%#04x:%x", a.PANID, a.Extended)
	default:
		return "invalid"
	}
}

// ReversedExtended returns the extended address octets in reverse order,
// as required by the CCM* nonce construction (I5).
func ReversedExtended(ext [8]byte) [8]byte {
	var out [8]byte
	for i := range ext {
		out[i] = ext[len(ext)-1-i]
	}
	return out
}
