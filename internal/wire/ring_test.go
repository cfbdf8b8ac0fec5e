package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingBufferWriteReadRoundTrip(t *testing.T) {
	rb := NewRingBuffer(16)
	n := rb.Write([]byte("hello"))
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, rb.Len())

	out := make([]byte, 5)
	got := rb.Read(out)
	assert.Equal(t, 5, got)
	assert.Equal(t, "hello", string(out))
	assert.False(t, rb.HasData())
}

// P8 — writes beyond capacity are truncated, and reads never return data
// that was overwritten (because the truncated tail was never written).
func TestRingBufferOverflowTruncates(t *testing.T) {
	rb := NewRingBuffer(4)
	n := rb.Write([]byte{1, 2, 3, 4, 5, 6})
	assert.Equal(t, 4, n)
	assert.Equal(t, 0, rb.Space())

	out := make([]byte, 4)
	got := rb.Read(out)
	assert.Equal(t, 4, got)
	assert.Equal(t, []byte{1, 2, 3, 4}, out)
}

func TestRingBufferWrapsAround(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Write([]byte{1, 2, 3})
	out := make([]byte, 2)
	rb.Read(out)
	rb.Write([]byte{4, 5})

	all := make([]byte, rb.Len())
	rb.Read(all)
	assert.Equal(t, []byte{3, 4, 5}, all)
}
