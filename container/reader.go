package container

import (
	"encoding/binary"
	"io"

	"github.com/bodgit/bitvid/frame"
)

// Reader is the frame cursor: a forward-only, restartable decoder over a
// borrowed container buffer. It owns exactly one frame buffer, allocated
// at construction and mutated in place by every NextFrame call; nothing
// is allocated after that, and the input buffer is never written to, so
// it may be memory-mapped flash shared with other readers.
type Reader struct {
	buf    []byte
	pos    int
	header Header
	bitmap *frame.Bitmap
	frame  uint32
	err    error
}

// NewReader parses and validates the header at the start of buf and
// returns a cursor positioned before the first frame.
func NewReader(buf []byte) (*Reader, error) {
	var header Header
	if err := header.UnmarshalBinary(buf); err != nil {
		return nil, err
	}

	bitmap, err := frame.New(int(header.Width), int(header.Height), int(header.Depth))
	if err != nil {
		return nil, err
	}

	return &Reader{
		buf:    buf,
		pos:    HeaderSize,
		header: header,
		bitmap: bitmap,
	}, nil
}

// Header returns the container header.
func (r *Reader) Header() Header {
	return r.header
}

// NextFrame decodes exactly one record into the cursor-owned frame buffer
// and returns it. The same *frame.Bitmap is returned every call; its
// contents are only valid until the next call. io.EOF signals the end of
// the video. After any other error the cursor is dead: there are no
// resync markers mid-stream, so every subsequent call reports the same
// failure.
func (r *Reader) NextFrame() (*frame.Bitmap, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.frame == r.header.FrameCount {
		return nil, io.EOF
	}

	tag, payload, err := r.nextRecord()
	if err != nil {
		r.err = err
		return nil, err
	}

	switch tag {
	case TagFull:
		if len(payload) != len(r.bitmap.Bytes()) {
			r.err = ErrCorruptFrame
			return nil, r.err
		}
		copy(r.bitmap.Bytes(), payload)
	case TagDelta:
		if err := applyDelta(payload, r.bitmap); err != nil {
			r.err = err
			return nil, err
		}
	default:
		r.err = ErrCorruptFrame
		return nil, r.err
	}

	r.frame++
	return r.bitmap, nil
}

// nextRecord slices the next length-prefixed record out of the buffer.
func (r *Reader) nextRecord() (byte, []byte, error) {
	if len(r.buf)-r.pos < recordHeaderSize {
		return 0, nil, ErrCorruptFrame
	}

	tag := r.buf[r.pos]
	length := int(binary.LittleEndian.Uint32(r.buf[r.pos+1:]))
	if len(r.buf)-r.pos-recordHeaderSize < length {
		return 0, nil, ErrCorruptFrame
	}

	payload := r.buf[r.pos+recordHeaderSize : r.pos+recordHeaderSize+length]
	r.pos += recordHeaderSize + length

	return tag, payload, nil
}

// Reset rewinds the cursor to the first frame, for looped playback. A
// cursor that has reported a corrupt record stays dead; rewinding cannot
// make the underlying bytes valid.
func (r *Reader) Reset() {
	if r.err != nil {
		return
	}
	r.pos = HeaderSize
	r.frame = 0
	r.bitmap.Clear()
}
