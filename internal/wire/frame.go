package wire

import (
	"encoding/binary"
	"errors"
)

// FrameType is the 3-bit frame_type field of the FCF (IEEE 802.15.4-2011
// 5.2.1.1.1).
type FrameType uint8

const (
	FrameTypeBeacon  FrameType = 0x00
	FrameTypeData    FrameType = 0x01
	FrameTypeAck     FrameType = 0x02
	FrameTypeCommand FrameType = 0x03
)

// Command is the one-octet MAC command frame identifier (5.3).
type Command uint8

const (
	CommandAssociationRequest  Command = 0x01
	CommandAssociationResponse Command = 0x02
	CommandDisassocRequest     Command = 0x03
	CommandDataRequest         Command = 0x04
	CommandPANIDCollectInfo    Command = 0x05
	CommandOrphanNotification  Command = 0x06
	CommandBeaconRequest       Command = 0x07
	CommandCoordinatorRealign  Command = 0x08
	CommandGTSRequest          Command = 0x09
)

// FrameVersion is the version (0x01) this stack writes into every FCF it
// builds; DecodeFCF returns whatever version a received frame carries
// without rejecting it.
const FrameVersion uint8 = 0x01

// FCF is the two-octet Frame Control Field, little-endian on the wire.
type FCF struct {
	FrameType         FrameType
	SecurityEnabled   bool
	FramePending      bool
	AckRequest        bool
	PANIDCompression  bool
	DestAddrMode      AddrMode
	FrameVersion      uint8
	SrcAddrMode       AddrMode
}

var (
	ErrShortFrame           = errors.New("wire: frame too short")
	ErrUnsupportedSecurity  = errors.New("wire: unsupported security level or key-id mode")
	ErrFrameVersion         = errors.New("wire: unsupported frame version")
	ErrBufferFull           = errors.New("wire: packet buffer full")
)

// Encode packs the FCF into its two-octet little-endian wire form.
func (f FCF) Encode() [2]byte {
	var v uint16
	v |= uint16(f.FrameType&0x7) << 0
	if f.SecurityEnabled {
		v |= 1 << 3
	}
	if f.FramePending {
		v |= 1 << 4
	}
	if f.AckRequest {
		v |= 1 << 5
	}
	if f.PANIDCompression {
		v |= 1 << 6
	}
	v |= uint16(f.DestAddrMode&0x3) << 10
	v |= uint16(f.FrameVersion&0x3) << 12
	v |= uint16(f.SrcAddrMode&0x3) << 14

	var out [2]byte
	binary.LittleEndian.PutUint16(out[:], v)
	return out
}

// DecodeFCF parses the two leading octets of a frame.
func DecodeFCF(data []byte) (FCF, error) {
	if len(data) < 2 {
		return FCF{}, ErrShortFrame
	}
	v := binary.LittleEndian.Uint16(data)
	return FCF{
		FrameType:        FrameType((v >> 0) & 0x7),
		SecurityEnabled:  (v>>3)&1 != 0,
		FramePending:     (v>>4)&1 != 0,
		AckRequest:       (v>>5)&1 != 0,
		PANIDCompression: (v>>6)&1 != 0,
		DestAddrMode:     AddrMode((v >> 10) & 0x3),
		FrameVersion:     uint8((v >> 12) & 0x3),
		SrcAddrMode:      AddrMode((v >> 14) & 0x3),
	}, nil
}

// SecurityLevel is the 3-bit security level field (7.4.1.1 Table 58).
type SecurityLevel uint8

const (
	SecurityLevelNone        SecurityLevel = 0x00
	SecurityLevelMIC32       SecurityLevel = 0x01
	SecurityLevelMIC64       SecurityLevel = 0x02
	SecurityLevelMIC128      SecurityLevel = 0x03
	SecurityLevelEnc         SecurityLevel = 0x04
	SecurityLevelEncMIC32    SecurityLevel = 0x05
	SecurityLevelEncMIC64    SecurityLevel = 0x06
	SecurityLevelEncMIC128   SecurityLevel = 0x07
)

// KeyIDMode is the 2-bit key identifier mode field (7.4.1.2 Table 59).
type KeyIDMode uint8

const (
	KeyIDModeImplicit  KeyIDMode = 0x00
	KeyIDModeDefault   KeyIDMode = 0x01
	KeyIDModeSource4   KeyIDMode = 0x02
	KeyIDModeSource8   KeyIDMode = 0x03
)

// MICLen is the fixed authentication tag length this stack supports
// (security level ENC_MIC_32 only — see DecodeSecurityControl).
const MICLen = 4

// SecurityControl is the one-octet security control field.
type SecurityControl struct {
	Level     SecurityLevel
	KeyIDMode KeyIDMode
}

func (s SecurityControl) Encode() byte {
	return byte(s.Level&0x7) | byte(s.KeyIDMode&0x3)<<3
}

// DecodeSecurityControl parses the security control octet and rejects
// anything other than level=ENC_MIC_32, key-id-mode=Implicit — the only
// combination this stack implements.
func DecodeSecurityControl(b byte) (SecurityControl, error) {
	sc := SecurityControl{
		Level:     SecurityLevel(b & 0x7),
		KeyIDMode: KeyIDMode((b >> 3) & 0x3),
	}
	if sc.Level != SecurityLevelEncMIC32 || sc.KeyIDMode != KeyIDModeImplicit {
		return sc, ErrUnsupportedSecurity
	}
	return sc, nil
}

// EncodeFrameCounter renders a frame counter in the wire's big-endian
// byte order — the one field on the wire that is not little-endian (I5 /
// spec "Endianness").
func EncodeFrameCounter(counter uint32) [4]byte {
	var out [4]byte
	binary.BigEndian.PutUint32(out[:], counter)
	return out
}

// DecodeFrameCounter is the inverse of EncodeFrameCounter.
func DecodeFrameCounter(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// AppendAddress writes the destination and (if not PAN-ID-compressed)
// source PAN id and address fields to the back of pkt, and fills in
// fcf.DestAddrMode / fcf.SrcAddrMode / fcf.PANIDCompression to match.
// Mirrors mac_frame_append_address: PAN-ID compression is used whenever
// both endpoints carry a real (non-None) address with matching PAN ids.
func AppendAddress(pkt *Packet, fcf *FCF, dest, src Address) error {
	fcf.DestAddrMode = dest.Mode
	fcf.SrcAddrMode = src.Mode

	compress := dest.Mode != AddrModeNone && src.Mode != AddrModeNone &&
		dest.PANID == src.PANID
	fcf.PANIDCompression = compress

	if dest.Mode != AddrModeNone {
		var panBuf [2]byte
		binary.LittleEndian.PutUint16(panBuf[:], dest.PANID)
		if !pkt.PushBack(panBuf[:]) {
			return ErrBufferFull
		}
		if err := appendAddrValue(pkt, dest); err != nil {
			return err
		}
	}

	if src.Mode != AddrModeNone {
		if !compress {
			var panBuf [2]byte
			binary.LittleEndian.PutUint16(panBuf[:], src.PANID)
			if !pkt.PushBack(panBuf[:]) {
				return ErrBufferFull
			}
		}
		if err := appendAddrValue(pkt, src); err != nil {
			return err
		}
	}

	return nil
}

func appendAddrValue(pkt *Packet, a Address) error {
	switch a.Mode {
	case AddrModeShort:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], a.Short)
		if !pkt.PushBack(b[:]) {
			return ErrBufferFull
		}
	case AddrModeExtended:
		if !pkt.PushBack(a.Extended[:]) {
			return ErrBufferFull
		}
	}
	return nil
}

// ExtractAddress is the inverse of AppendAddress: it reads destination and
// source addressing fields starting at data (which must begin immediately
// after the FCF and sequence number) and returns the slice following them.
// When fcf.PANIDCompression is set, the source PAN id is inferred from the
// destination PAN id rather than read from the wire.
func ExtractAddress(fcf FCF, data []byte) (dest, src Address, rest []byte, err error) {
	ptr := data

	if fcf.DestAddrMode != AddrModeNone {
		if len(ptr) < 2 {
			return dest, src, nil, ErrShortFrame
		}
		dest.PANID = binary.LittleEndian.Uint16(ptr)
		ptr = ptr[2:]
		dest.Mode = fcf.DestAddrMode
		switch fcf.DestAddrMode {
		case AddrModeShort:
			if len(ptr) < 2 {
				return dest, src, nil, ErrShortFrame
			}
			dest.Short = binary.LittleEndian.Uint16(ptr)
			ptr = ptr[2:]
		case AddrModeExtended:
			if len(ptr) < 8 {
				return dest, src, nil, ErrShortFrame
			}
			copy(dest.Extended[:], ptr[:8])
			ptr = ptr[8:]
		}
	}

	if fcf.SrcAddrMode != AddrModeNone {
		src.Mode = fcf.SrcAddrMode
		if fcf.PANIDCompression {
			src.PANID = dest.PANID
		} else {
			if len(ptr) < 2 {
				return dest, src, nil, ErrShortFrame
			}
			src.PANID = binary.LittleEndian.Uint16(ptr)
			ptr = ptr[2:]
		}
		switch fcf.SrcAddrMode {
		case AddrModeShort:
			if len(ptr) < 2 {
				return dest, src, nil, ErrShortFrame
			}
			src.Short = binary.LittleEndian.Uint16(ptr)
			ptr = ptr[2:]
		case AddrModeExtended:
			if len(ptr) < 8 {
				return dest, src, nil, ErrShortFrame
			}
			copy(src.Extended[:], ptr[:8])
			ptr = ptr[8:]
		}
	}

	return dest, src, ptr, nil
}

// DataPointer locates the user payload within a parsed frame's remaining
// data (the slice ExtractAddress returned), accounting for an optional
// security header. It returns the payload slice with the trailing MIC
// trimmed off when security is enabled. Mirrors mac_frame_get_data_ptr.
func DataPointer(fcf FCF, rest []byte) ([]byte, error) {
	if !fcf.SecurityEnabled {
		return rest, nil
	}

	if len(rest) < 1 {
		return nil, ErrShortFrame
	}
	if _, err := DecodeSecurityControl(rest[0]); err != nil {
		return nil, err
	}
	rest = rest[1:]

	if len(rest) < 4 {
		return nil, ErrShortFrame
	}
	rest = rest[4:]

	if len(rest) > 0 {
		if len(rest) < MICLen {
			return nil, ErrShortFrame
		}
		rest = rest[:len(rest)-MICLen]
	}

	return rest, nil
}
