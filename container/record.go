package container

import (
	"encoding/binary"

	"github.com/bodgit/bitvid/frame"
)

// Record is one encoded frame, ready to be written by a Writer. Records
// are produced independently per frame and carry no internal ordering, so
// parallel workers can build them out of order as long as the serializer
// writes them back in frame order.
type Record struct {
	Tag     byte
	Payload []byte
}

// Size returns the serialized size of the record including its tag and
// length prefix.
func (r Record) Size() int {
	return recordHeaderSize + len(r.Payload)
}

// EncodeRecord compresses curr against prev and returns whichever of the
// Full or Delta encodings is smaller. A nil prev means this is the first
// frame of the video and the delta is taken against an all-zero bitmap.
// Equal sizes prefer Full: a Full record is self-contained, which keeps
// the option of seeking to it open.
//
// Both bitmaps must share the video's geometry; prev is only read.
func EncodeRecord(prev, curr *frame.Bitmap) Record {
	full := curr.Bytes()
	delta := encodeDelta(prev, curr)

	if len(delta) < len(full) {
		return Record{Tag: TagDelta, Payload: delta}
	}

	payload := make([]byte, len(full))
	copy(payload, full)
	return Record{Tag: TagFull, Payload: payload}
}

// encodeDelta run-length encodes the XOR bit stream between prev and
// curr. Each maximal run becomes one uvarint of length<<1 | value.
func encodeDelta(prev, curr *frame.Bitmap) []byte {
	bits := curr.Bits()
	if bits == 0 {
		return nil
	}

	var (
		buf    []byte
		tmp    [binary.MaxVarintLen64]byte
		runVal = xorBit(prev, curr, 0)
		runLen = 1
	)
	for i := 1; i < bits; i++ {
		if xorBit(prev, curr, i) == runVal {
			runLen++
			continue
		}
		buf = append(buf, tmp[:putRun(tmp[:], runLen, runVal)]...)
		runVal = !runVal
		runLen = 1
	}
	return append(buf, tmp[:putRun(tmp[:], runLen, runVal)]...)
}

func xorBit(prev, curr *frame.Bitmap, i int) bool {
	if prev == nil {
		return curr.BitAt(i)
	}
	return prev.BitAt(i) != curr.BitAt(i)
}

func putRun(b []byte, length int, value bool) int {
	v := uint64(length) << 1
	if value {
		v |= 1
	}
	return binary.PutUvarint(b, v)
}

// applyDelta mutates dst in place by flipping the value-1 runs of
// payload. dst must already hold the previous frame. The run lengths must
// cover dst's logical bits exactly and the payload must hold nothing
// else; any violation is ErrCorruptFrame and dst is left in an undefined
// state.
func applyDelta(payload []byte, dst *frame.Bitmap) error {
	var (
		bits = dst.Bits()
		pos  int
	)
	for len(payload) > 0 {
		v, n := binary.Uvarint(payload)
		if n <= 0 {
			return ErrCorruptFrame
		}
		payload = payload[n:]

		length := int(v >> 1)
		if length == 0 || length > bits-pos {
			return ErrCorruptFrame
		}
		if v&1 != 0 {
			dst.FlipRun(pos, length)
		}
		pos += length
	}
	if pos != bits {
		return ErrCorruptFrame
	}
	return nil
}
