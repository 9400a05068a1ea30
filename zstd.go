package bitvid

import (
	"bytes"
	"os"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ReadContainer loads a container file into memory, transparently
// decompressing it when it was written with EncodeOptions.Compress. The
// returned buffer is the raw container stream a Reader expects.
func ReadContainer(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(b, zstdMagic) {
		return b, nil
	}

	zr, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return zr.DecodeAll(b, nil)
}
