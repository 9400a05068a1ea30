package container

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Writer serializes a container to an io.Writer. The header is emitted at
// construction; records must then be written in playback order, exactly
// FrameCount of them.
type Writer struct {
	w       io.Writer
	header  Header
	written uint32
}

// NewWriter validates the header, writes it to w and returns a Writer for
// the records that follow.
func NewWriter(w io.Writer, header Header) (*Writer, error) {
	b, err := header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	return &Writer{w: w, header: header}, nil
}

// WriteRecord appends one frame record. Write failures are propagated,
// not retried; the caller is expected to abandon the output.
func (w *Writer) WriteRecord(r Record) error {
	if w.written == w.header.FrameCount {
		return fmt.Errorf("container: more than %d records written", w.header.FrameCount)
	}

	var hdr [recordHeaderSize]byte
	hdr[0] = r.Tag
	binary.LittleEndian.PutUint32(hdr[1:], uint32(len(r.Payload)))

	if _, err := w.w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(r.Payload); err != nil {
		return err
	}

	w.written++
	return nil
}

// Close verifies that every record promised by the header was written. It
// does not close the underlying writer.
func (w *Writer) Close() error {
	if w.written != w.header.FrameCount {
		return fmt.Errorf("container: wrote %d of %d records", w.written, w.header.FrameCount)
	}
	return nil
}
