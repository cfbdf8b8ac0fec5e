// Package config loads the YAML device/key provisioning file this stack
// uses in place of hardcoded test AES keys (Open Question a).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// searchLocations mirrors deviceid_init's OS-independent search list:
// current directory first, then a couple of conventional install paths.
// If this list's order changes, keep cmd/ usage docs in sync.
var searchLocations = []string{
	"keys.yaml",
	"config/keys.yaml",
	"../config/keys.yaml",
	"/usr/local/share/wsmac/keys.yaml",
	"/usr/share/wsmac/keys.yaml",
}

// KeyEntry is one provisioned symmetric key for a device.
type KeyEntry struct {
	Index uint8  `yaml:"index"`
	Hex   string `yaml:"key_hex"`
}

// DeviceEntry provisions one device's extended address and its keys.
type DeviceEntry struct {
	Name          string     `yaml:"name"`
	ExtendedHex   string     `yaml:"extended_hex"`
	ShortAddress  *uint16    `yaml:"short_address,omitempty"`
	Keys          []KeyEntry `yaml:"keys"`
}

// Provisioning is the top-level shape of keys.yaml: this stack's own
// extended address/keys, plus the devices it is allowed to associate
// with or talk to as a coordinator.
type Provisioning struct {
	Own struct {
		ExtendedHex string     `yaml:"extended_hex"`
		Keys        []KeyEntry `yaml:"keys"`
	} `yaml:"own"`
	Devices []DeviceEntry `yaml:"devices"`
}

// Load searches searchLocations in order and parses the first file found.
// An explicit path, if non-empty, is tried first and any error there is
// fatal (no silent fallthrough to the search list) since the caller asked
// for that file specifically.
func Load(explicitPath string) (*Provisioning, error) {
	if explicitPath != "" {
		return loadFile(explicitPath)
	}

	var lastErr error
	for _, loc := range searchLocations {
		p, err := loadFile(loc)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("config: no provisioning file found in %v: %w", searchLocations, lastErr)
}

func loadFile(path string) (*Provisioning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Provisioning
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &p, nil
}

// ParseExtended decodes a 16-hex-character extended address.
func ParseExtended(hex string) ([8]byte, error) {
	var out [8]byte
	if len(hex) != 16 {
		return out, fmt.Errorf("config: extended address %q must be 16 hex characters", hex)
	}
	for i := 0; i < 8; i++ {
		b, err := parseHexByte(hex[i*2 : i*2+2])
		if err != nil {
			return out, fmt.Errorf("config: extended address %q: %w", hex, err)
		}
		out[i] = b
	}
	return out, nil
}

// ParseKey decodes a 32-hex-character 16-octet symmetric key.
func ParseKey(hex string) ([16]byte, error) {
	var out [16]byte
	if len(hex) != 32 {
		return out, fmt.Errorf("config: key %q must be 32 hex characters", hex)
	}
	for i := 0; i < 16; i++ {
		b, err := parseHexByte(hex[i*2 : i*2+2])
		if err != nil {
			return out, fmt.Errorf("config: key %q: %w", hex, err)
		}
		out[i] = b
	}
	return out, nil
}

func parseHexByte(s string) (byte, error) {
	var b byte
	_, err := fmt.Sscanf(s, "%02x", &b)
	return b, err
}
