package container

import "encoding/binary"

// RecordInfo describes one record's framing without decoding its payload.
type RecordInfo struct {
	Tag        byte
	PayloadLen int
}

// Records scans the record framing of a whole container. It validates the
// header and that each record lies within the buffer, but not the
// payloads themselves. Used for reporting, not playback.
func Records(buf []byte) (Header, []RecordInfo, error) {
	var header Header
	if err := header.UnmarshalBinary(buf); err != nil {
		return Header{}, nil, err
	}

	records := make([]RecordInfo, 0, header.FrameCount)
	pos := HeaderSize
	for i := uint32(0); i < header.FrameCount; i++ {
		if len(buf)-pos < recordHeaderSize {
			return header, records, ErrCorruptFrame
		}
		length := int(binary.LittleEndian.Uint32(buf[pos+1:]))
		if len(buf)-pos-recordHeaderSize < length {
			return header, records, ErrCorruptFrame
		}
		records = append(records, RecordInfo{Tag: buf[pos], PayloadLen: length})
		pos += recordHeaderSize + length
	}

	return header, records, nil
}
