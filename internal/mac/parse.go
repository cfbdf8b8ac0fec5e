package mac

import "github.com/wsmac/wsmac/internal/wire"

// parseFrameHeader extracts the sequence number and addressing fields
// common to every frame type, given its already-decoded FCF. data must
// start at the FCF (i.e. be the raw received frame).
func parseFrameHeader(fcf wire.FCF, data []byte) (sqn uint8, dest, src wire.Address, rest []byte, err error) {
	if len(data) < 3 {
		return 0, wire.Address{}, wire.Address{}, nil, wire.ErrShortFrame
	}
	sqn = data[2]
	dest, src, rest, err = wire.ExtractAddress(fcf, data[3:])
	return
}
