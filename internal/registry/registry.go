// Package registry implements the coordinator's device table: the set of
// associated devices and their per-device key material, scanned linearly
// exactly as the original's intrusive device list did.
package registry

import (
	"sync"

	"github.com/wsmac/wsmac/internal/security"
	"github.com/wsmac/wsmac/internal/wire"
)

// Key is a 16-octet symmetric key stored at a given index, mirroring
// mac_key_t.
type Key struct {
	Index uint8
	Bytes [16]byte
}

// Device is one entry of the coordinator's device table, mirroring
// mac_device_t: address, last-seen bookkeeping fields (sequence number,
// timestamp, frame counter), and that device's key list. Nothing in this
// module reads or updates the bookkeeping fields; incoming sequence
// numbers and frame counters are not validated against them.
type Device struct {
	Addr             wire.Address
	Short            uint16
	HasShort         bool
	LastSQN          uint8
	LastSeen         uint32
	LastFrameCounter uint32
	SecMinExempt     bool

	mu   sync.Mutex
	keys []Key
}

// KeyForExtended satisfies internal/security.KeySource.
func (r *Registry) KeyForExtended(ext [8]byte, index uint8) (security.Key, bool) {
	dev := r.GetByExtended(ext)
	if dev == nil {
		return security.Key{}, false
	}
	k, ok := dev.Key(index)
	if !ok {
		return security.Key{}, false
	}
	return security.Key{Index: k.Index, Bytes: k.Bytes}, true
}

// Key returns the key stored at index, if any.
func (d *Device) Key(index uint8) (Key, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, k := range d.keys {
		if k.Index == index {
			return k, true
		}
	}
	return Key{}, false
}

// SetKey inserts a new key at index, or overwrites the bytes of an existing
// one at that index — mac_device_set_key's update-in-place-or-append.
func (d *Device) SetKey(index uint8, bytes [16]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.keys {
		if d.keys[i].Index == index {
			d.keys[i].Bytes = bytes
			return
		}
	}
	d.keys = append(d.keys, Key{Index: index, Bytes: bytes})
}

// RemoveKey deletes the key at index, if present.
func (d *Device) RemoveKey(index uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.keys {
		if d.keys[i].Index == index {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			return
		}
	}
}

// Registry is the coordinator's device table, a linearly-scanned slice
// under a single mutex (spec §4.2: "Implemented as a Go slice
// ([]*Device) under a sync.Mutex scanned linearly" — the original's
// device count per PAN is small enough that a linked-list scan was never
// a bottleneck, and neither is this).
type Registry struct {
	mu      sync.Mutex
	devices []*Device
}

func New() *Registry {
	return &Registry{}
}

// GetByShort mirrors mac_device_get_by_short.
func (r *Registry) GetByShort(short uint16) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.HasShort && d.Short == short {
			return d
		}
	}
	return nil
}

// GetByExtended mirrors mac_device_get_by_extended.
func (r *Registry) GetByExtended(ext [8]byte) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.Addr.Mode == wire.AddrModeExtended && d.Addr.Extended == ext {
			return d
		}
	}
	return nil
}

// GetByAddr mirrors mac_device_get_by_addr: dispatch on address mode, with
// None treated as "unknown" rather than matching everything.
func (r *Registry) GetByAddr(addr wire.Address) *Device {
	switch addr.Mode {
	case wire.AddrModeShort:
		return r.GetByShort(addr.Short)
	case wire.AddrModeExtended:
		return r.GetByExtended(addr.Extended)
	default:
		return nil
	}
}

// CreateCoordDevice always inserts a fresh record into the registry for
// ext and returns it, even if a device with that extended address already
// exists. The original's mac_coordinator_create_device only allocated a
// new node when mac_device_get_by_extended found nothing; here that lookup
// is left to the callers (handleAssociationRequest and
// SecurityAddDeviceKey both call GetByExtended first and reuse what they
// find). If a duplicate is inserted anyway, every lookup here
// (GetByExtended, GetByShort) returns the first match and new entries are
// appended, so the earliest record keeps winning later lookups. See
// DESIGN.md.
func (r *Registry) CreateCoordDevice(ext [8]byte) *Device {
	dev := &Device{Addr: wire.Address{Mode: wire.AddrModeExtended, Extended: ext}}
	r.mu.Lock()
	r.devices = append(r.devices, dev)
	r.mu.Unlock()
	return dev
}

// Remove deletes dev from the table, if present.
func (r *Registry) Remove(dev *Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, d := range r.devices {
		if d == dev {
			r.devices = append(r.devices[:i], r.devices[i+1:]...)
			return
		}
	}
}

// Len reports how many devices are currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// All returns a snapshot slice of every registered device, in insertion
// order. Nothing in this module calls it.
func (r *Registry) All() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Device, len(r.devices))
	copy(out, r.devices)
	return out
}
