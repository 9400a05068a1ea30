/*
Package container implements the bitvid container format, version 1.

A container is a fixed 15 byte header followed by one self-describing
record per frame, all integers little-endian:

	Header:  magic "BITV" | version (1B) | width (u16) | height (u16) |
	         frame_count (u32) | frame_rate_div (1B) | bit_depth (1B)
	Record:  tag (1B: 0=Full, 1=Delta) | payload_len (u32) | payload

A Full payload is the packed bitmap exactly as held by a frame.Bitmap. A
Delta payload is a run-length encoding of the bitwise XOR between the
previous and current frame: a sequence of uvarints, each holding
length<<1 | value, whose lengths sum to exactly width*height*depth bits.
Runs with value 1 flip the corresponding bits of the previous frame.

The package is dependency-free so that decode-only builds for constrained
targets can import it together with frame and nothing else.
*/
package container

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Version is the only container format revision this package reads or
// writes. Any change to the record layout or the run-length encoding
// requires a bump.
const Version = 1

// HeaderSize is the encoded size of a Header in bytes.
const HeaderSize = 15

// Record tags.
const (
	TagFull  = 0
	TagDelta = 1
)

// recordHeaderSize covers the tag byte and the u32 payload length.
const recordHeaderSize = 5

var magic = [4]byte{'B', 'I', 'T', 'V'}

var (
	// ErrBadMagic means the buffer does not start with a bitvid container.
	ErrBadMagic = errors.New("container: bad magic")

	// ErrUnsupportedVersion means the container was written by an
	// incompatible format revision.
	ErrUnsupportedVersion = errors.New("container: unsupported version")

	// ErrTruncated means the buffer ended before the header did.
	ErrTruncated = errors.New("container: truncated")

	// ErrCorruptFrame means a record is malformed: its payload runs past
	// the end of the buffer, its run lengths do not cover the frame
	// exactly, or its tag is unknown. The cursor that hit it is dead.
	ErrCorruptFrame = errors.New("container: corrupt frame record")
)

// Header describes one video. It is written once and never changes for
// the lifetime of a container. It implements encoding.BinaryMarshaler and
// encoding.BinaryUnmarshaler.
type Header struct {
	Width        uint16
	Height       uint16
	FrameCount   uint32
	FrameRateDiv uint8
	Depth        uint8
}

// MarshalBinary encodes the header into its fixed 15 byte layout.
func (h *Header) MarshalBinary() ([]byte, error) {
	if h.Depth != 1 && h.Depth != 2 && h.Depth != 4 && h.Depth != 8 {
		return nil, fmt.Errorf("container: invalid bit depth %d", h.Depth)
	}
	if h.FrameRateDiv == 0 {
		return nil, errors.New("container: frame rate divisor must be at least 1")
	}

	b := make([]byte, HeaderSize)
	copy(b, magic[:])
	b[4] = Version
	binary.LittleEndian.PutUint16(b[5:], h.Width)
	binary.LittleEndian.PutUint16(b[7:], h.Height)
	binary.LittleEndian.PutUint32(b[9:], h.FrameCount)
	b[13] = h.FrameRateDiv
	b[14] = h.Depth

	return b, nil
}

// UnmarshalBinary decodes and validates a header from the start of b.
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return ErrTruncated
	}
	if magic != [4]byte(b[:4]) {
		return ErrBadMagic
	}
	if b[4] != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, b[4])
	}

	h.Width = binary.LittleEndian.Uint16(b[5:])
	h.Height = binary.LittleEndian.Uint16(b[7:])
	h.FrameCount = binary.LittleEndian.Uint32(b[9:])
	h.FrameRateDiv = b[13]
	h.Depth = b[14]

	if h.Depth != 1 && h.Depth != 2 && h.Depth != 4 && h.Depth != 8 {
		return fmt.Errorf("%w: bit depth %d", ErrUnsupportedVersion, h.Depth)
	}
	if h.FrameRateDiv == 0 {
		return fmt.Errorf("%w: zero frame rate divisor", ErrUnsupportedVersion)
	}

	return nil
}
