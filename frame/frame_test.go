package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	b, err := New(9, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, 9, b.Width())
	assert.Equal(t, 2, b.Height())
	assert.Equal(t, 1, b.Depth())
	assert.Equal(t, 2, b.RowBytes())
	assert.Equal(t, 4, len(b.Bytes()))
	assert.Equal(t, 18, b.Bits())
}

func TestNewInvalid(t *testing.T) {
	_, err := New(8, 8, 3)
	assert.Error(t, err)

	_, err = New(-1, 8, 1)
	assert.Error(t, err)
}

func TestPackingOrder(t *testing.T) {
	b, err := New(8, 1, 1)
	require.NoError(t, err)

	// Pixels pack LSB-first within each byte.
	b.Set(0, 0, 1)
	assert.Equal(t, []byte{0x01}, b.Bytes())

	b.Set(7, 0, 1)
	assert.Equal(t, []byte{0x81}, b.Bytes())

	b.Set(0, 0, 0)
	assert.Equal(t, []byte{0x80}, b.Bytes())
}

func TestRowAlignment(t *testing.T) {
	b, err := New(9, 2, 1)
	require.NoError(t, err)

	// Second row starts on a byte boundary.
	b.Set(0, 1, 1)
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x00}, b.Bytes())

	b.Set(8, 0, 1)
	assert.Equal(t, []byte{0x00, 0x01, 0x01, 0x00}, b.Bytes())
}

func TestMultiBitPixels(t *testing.T) {
	b, err := New(4, 1, 4)
	require.NoError(t, err)

	b.Set(0, 0, 0x3)
	b.Set(1, 0, 0xa)
	assert.Equal(t, uint8(0x3), b.At(0, 0))
	assert.Equal(t, uint8(0xa), b.At(1, 0))
	assert.Equal(t, []byte{0xa3, 0x00}, b.Bytes())

	// Values wider than the depth are masked off.
	b.Set(2, 0, 0xff)
	assert.Equal(t, uint8(0xf), b.At(2, 0))
	assert.Equal(t, uint8(0xa), b.At(1, 0))
}

func TestFlipRun(t *testing.T) {
	b, err := New(9, 2, 1)
	require.NoError(t, err)

	// Logical bits skip row padding: flipping all 18 bits must leave the
	// padding bits of each row untouched.
	b.FlipRun(0, 18)
	for y := 0; y < 2; y++ {
		for x := 0; x < 9; x++ {
			assert.Equal(t, uint8(1), b.At(x, y), "pixel (%d, %d)", x, y)
		}
	}
	assert.Equal(t, []byte{0xff, 0x01, 0xff, 0x01}, b.Bytes())

	b.FlipRun(8, 2)
	assert.Equal(t, uint8(0), b.At(8, 0))
	assert.Equal(t, uint8(0), b.At(0, 1))
	assert.Equal(t, uint8(1), b.At(1, 1))
}

func TestBitAt(t *testing.T) {
	b, err := New(9, 2, 1)
	require.NoError(t, err)

	b.Set(0, 1, 1)
	assert.False(t, b.BitAt(8))
	assert.True(t, b.BitAt(9))
}

func TestCloneEqualClear(t *testing.T) {
	b, err := New(4, 4, 2)
	require.NoError(t, err)
	b.Set(2, 3, 0x2)

	dup := b.Clone()
	assert.True(t, b.Equal(dup))

	dup.Set(0, 0, 0x1)
	assert.False(t, b.Equal(dup))

	dup.Clear()
	assert.Equal(t, uint8(0), dup.At(2, 3))
	assert.False(t, b.Equal(dup))

	other, err := New(4, 4, 4)
	require.NoError(t, err)
	assert.False(t, b.Equal(other))
	assert.False(t, b.Equal(nil))
}
