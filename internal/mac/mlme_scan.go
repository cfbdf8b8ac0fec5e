package mac

import (
	"sort"

	"github.com/wsmac/wsmac/internal/wire"
)

// ScanType mirrors the subset of ws_mac_scan_type_t this stack
// implements. ED and Orphan scans are rejected, matching the original's
// own "not implemented yet" restriction.
type ScanType int

const (
	ScanTypePassive ScanType = iota
	ScanTypeActive
)

// ScanResult mirrors ws_mac_scan_result_t: one beacon observed during a
// channel scan.
type ScanResult struct {
	PANID                uint16
	CoordShortAddress     uint16
	CoordExtendedAddress  [8]byte
	Channel               uint8
	BeaconOrder           uint8
	SuperframeOrder       uint8
	AssociationPermitted  bool
}

// scanResultsLess sorts scan results by PAN id then channel, matching
// compare_scan_result.
func scanResultsLess(results []ScanResult) func(i, j int) bool {
	return func(i, j int) bool {
		if results[i].PANID != results[j].PANID {
			return results[i].PANID < results[j].PANID
		}
		return results[i].Channel < results[j].Channel
	}
}

type scanState struct {
	active      bool
	scanType    ScanType
	channels    uint32 // bitmask, bit n = channel n
	channel     uint8
	duration    uint32 // symbols per channel
	deadline    uint32
	cb          ScanCallback
	results     []ScanResult
}

// MLMEScan mirrors ws_mac_mlme_scan: channels is a bitmask over channels
// 11-26, duration is the macScanDuration exponent ((1<<duration)+1) *
// slot-symbols per channel, per the IEEE formula. ED and Orphan scans (any
// ScanType other than Passive and Active) are rejected synchronously with
// ErrInvalidParameter rather than queued, since the underlying original
// never implements them either.
func (s *Stack) MLMEScan(scanType ScanType, channels uint32, duration uint8, cb ScanCallback) error {
	if s.scan.active {
		return ErrInvalidState
	}
	if channels == 0 {
		return ErrInvalidParameter
	}
	if scanType != ScanTypePassive && scanType != ScanTypeActive {
		return ErrInvalidParameter
	}

	s.scan = scanState{
		active:   true,
		scanType: scanType,
		channels: channels,
		duration: (uint32(1)<<duration + 1) * 60,
		cb:       cb,
	}
	s.pib.state = StateScanning

	s.advanceToNextChannel()
	return nil
}

func (s *Stack) advanceToNextChannel() {
	for ch := s.scan.channel; ch <= 26; ch++ {
		if s.scan.channels&(1<<ch) == 0 {
			continue
		}
		s.scan.channel = ch
		s.scan.channels &^= 1 << ch
		s.radio.SetChannel(ch)
		s.scan.deadline = s.timer.GetTime() + s.scan.duration
		if s.scan.scanType == ScanTypeActive {
			s.sendBeaconRequest()
		}
		return
	}
	s.finishScan()
}

func (s *Stack) finishScan() {
	results := s.scan.results
	sort.Slice(results, scanResultsLess(results))
	cb := s.scan.cb
	s.scan = scanState{}
	s.pib.state = StateIdle
	if cb != nil {
		cb(results)
	}
}

// onScanSlotTick is called from handleSlotTick while scanning to detect
// the current channel's dwell time elapsing.
func (s *Stack) onScanSlotTick() {
	if !s.scan.active {
		return
	}
	if int32(s.timer.GetTime()-s.scan.deadline) >= 0 {
		s.advanceToNextChannel()
	}
}

// scanHandleBeacon mirrors mac_mlme_scan_handle_packet: secured beacons
// are unsupported during scan and dropped; otherwise a PAN descriptor is
// recorded, and finishScan sorts the results once the scan ends.
func (s *Stack) scanHandleBeacon(fcf wire.FCF, data []byte) {
	if fcf.SecurityEnabled {
		s.log.Warn("secured beacon during scan unsupported, dropping")
		return
	}

	_, _, src, rest, err := parseFrameHeader(fcf, data)
	if err != nil {
		return
	}
	if len(rest) < 2 {
		return
	}
	beaconOrder := rest[0] & 0x0f
	superframeOrder := (rest[0] >> 4) & 0x0f
	assocPermitted := rest[1]&(1<<6) != 0

	result := ScanResult{
		PANID:                src.PANID,
		Channel:              s.scan.channel,
		BeaconOrder:          beaconOrder,
		SuperframeOrder:      superframeOrder,
		AssociationPermitted: assocPermitted,
	}
	switch src.Mode {
	case wire.AddrModeShort:
		result.CoordShortAddress = src.Short
	case wire.AddrModeExtended:
		result.CoordExtendedAddress = src.Extended
	}

	s.scan.results = append(s.scan.results, result)
}
