package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCoordDeviceAlwaysInsertsAndFirstWins(t *testing.T) {
	r := New()
	ext := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}

	first := r.CreateCoordDevice(ext)
	first.SetKey(0, [16]byte{0xAA})

	second := r.CreateCoordDevice(ext)
	second.SetKey(0, [16]byte{0xBB})

	assert.Equal(t, 2, r.Len())

	found := r.GetByExtended(ext)
	require.NotNil(t, found)
	assert.Same(t, first, found, "GetByExtended returns the first match in insertion order")
}

func TestGetByShortAndExtended(t *testing.T) {
	r := New()
	ext := [8]byte{9, 9, 9, 9, 9, 9, 9, 9}
	dev := r.CreateCoordDevice(ext)
	dev.Short = 0x1234
	dev.HasShort = true

	assert.Same(t, dev, r.GetByShort(0x1234))
	assert.Same(t, dev, r.GetByExtended(ext))
}

func TestSetKeyUpdatesInPlace(t *testing.T) {
	d := &Device{}
	d.SetKey(1, [16]byte{1})
	d.SetKey(1, [16]byte{2})

	k, ok := d.Key(1)
	require.True(t, ok)
	assert.Equal(t, [16]byte{2}, k.Bytes)
}

func TestRemoveKey(t *testing.T) {
	d := &Device{}
	d.SetKey(1, [16]byte{1})
	d.RemoveKey(1)

	_, ok := d.Key(1)
	assert.False(t, ok)
}

func TestKeyForExtendedSatisfiesSecurityKeySource(t *testing.T) {
	r := New()
	ext := [8]byte{1}
	dev := r.CreateCoordDevice(ext)
	dev.SetKey(3, [16]byte{7, 7})

	k, ok := r.KeyForExtended(ext, 3)
	require.True(t, ok)
	assert.Equal(t, uint8(3), k.Index)
	assert.Equal(t, [16]byte{7, 7}, k.Bytes)

	_, ok = r.KeyForExtended(ext, 9)
	assert.False(t, ok)
}

func TestRemoveDevice(t *testing.T) {
	r := New()
	ext := [8]byte{1}
	dev := r.CreateCoordDevice(ext)
	require.Equal(t, 1, r.Len())

	r.Remove(dev)
	assert.Equal(t, 0, r.Len())
}
