package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
own:
  extended_hex: "0102030405060708"
  keys:
    - index: 0
      key_hex: "000102030405060708090a0b0c0d0e0f"
devices:
  - name: sensor-1
    extended_hex: "1112131415161718"
    keys:
      - index: 0
        key_hex: "101112131415161718191a1b1c1d1e1f"
`

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0102030405060708", p.Own.ExtendedHex)
	require.Len(t, p.Devices, 1)
	assert.Equal(t, "sensor-1", p.Devices[0].Name)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseExtendedAndKey(t *testing.T) {
	ext, err := ParseExtended("0102030405060708")
	require.NoError(t, err)
	assert.Equal(t, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, ext)

	_, err = ParseExtended("too-short")
	assert.Error(t, err)

	key, err := ParseKey("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)
	assert.Equal(t, byte(0x0f), key[15])
}
