/*
Package frame implements the packed bitmap that every stage of the video
pipeline trades in.

A Bitmap is row-major with each row padded to a byte boundary. Pixels are
stored LSB-first within each byte, which is the order the display driver
blits rows straight out of flash. Depths of 1, 2, 4 and 8 bits per pixel
are supported; a pixel value is an index into an implied grayscale ramp,
darkest first.
*/
package frame

import (
	"bytes"
	"fmt"
)

// Depths permitted in a video. Anything else fails New.
var validDepths = map[int]bool{1: true, 2: true, 4: true, 8: true}

// Bitmap is one frame at the working resolution and bit depth. The zero
// value is not usable; use New.
type Bitmap struct {
	width    int
	height   int
	depth    int
	rowBytes int
	buf      []byte
}

// New returns a zeroed Bitmap of the given dimensions and bits-per-pixel
// depth.
func New(width, height, depth int) (*Bitmap, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("frame: invalid dimensions %dx%d", width, height)
	}
	if !validDepths[depth] {
		return nil, fmt.Errorf("frame: invalid bit depth %d", depth)
	}
	rowBytes := (width*depth + 7) >> 3
	return &Bitmap{
		width:    width,
		height:   height,
		depth:    depth,
		rowBytes: rowBytes,
		buf:      make([]byte, rowBytes*height),
	}, nil
}

func (b *Bitmap) Width() int  { return b.width }
func (b *Bitmap) Height() int { return b.height }
func (b *Bitmap) Depth() int  { return b.depth }

// RowBytes returns the byte stride of one row.
func (b *Bitmap) RowBytes() int { return b.rowBytes }

// Bytes returns the backing buffer. The caller must not resize it.
func (b *Bitmap) Bytes() []byte { return b.buf }

// Bits returns the number of logical pixel bits, excluding row padding.
func (b *Bitmap) Bits() int { return b.width * b.height * b.depth }

// At returns the pixel value at (x, y).
func (b *Bitmap) At(x, y int) uint8 {
	idx, shift := b.index(x, y)
	mask := byte(1<<b.depth - 1)
	return b.buf[idx] >> shift & mask
}

// Set stores the pixel value v at (x, y). Bits of v above the depth are
// discarded.
func (b *Bitmap) Set(x, y int, v uint8) {
	idx, shift := b.index(x, y)
	mask := byte(1<<b.depth-1) << shift
	b.buf[idx] = b.buf[idx]&^mask | v<<shift&mask
}

func (b *Bitmap) index(x, y int) (int, uint8) {
	bit := x * b.depth
	return y*b.rowBytes + bit>>3, uint8(bit & 7)
}

// bitIndex maps a logical bit position, counted across rows with padding
// skipped, to a byte offset and bit shift.
func (b *Bitmap) bitIndex(i int) (int, uint8) {
	rowBits := b.width * b.depth
	row := i / rowBits
	bit := i % rowBits
	return row*b.rowBytes + bit>>3, uint8(bit & 7)
}

// BitAt reports whether logical bit i is set.
func (b *Bitmap) BitAt(i int) bool {
	idx, shift := b.bitIndex(i)
	return b.buf[idx]>>shift&1 != 0
}

// FlipRun inverts n logical bits starting at bit start. Used to apply
// delta runs in place.
func (b *Bitmap) FlipRun(start, n int) {
	for i := start; i < start+n; i++ {
		idx, shift := b.bitIndex(i)
		b.buf[idx] ^= 1 << shift
	}
}

// Clear zeroes every pixel.
func (b *Bitmap) Clear() {
	for i := range b.buf {
		b.buf[i] = 0
	}
}

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap {
	dup := *b
	dup.buf = append([]byte(nil), b.buf...)
	return &dup
}

// Equal reports whether two bitmaps have identical geometry and pixels.
func (b *Bitmap) Equal(o *Bitmap) bool {
	if o == nil {
		return false
	}
	return b.width == o.width && b.height == o.height &&
		b.depth == o.depth && bytes.Equal(b.buf, o.buf)
}
