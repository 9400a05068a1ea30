package bitvid

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodgit/bitvid/container"
)

func discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// writeFrames writes n 16x16 grayscale PNGs where frame i has its top i
// rows white, so consecutive frames differ by exactly one row.
func writeFrames(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		img := image.NewGray(image.Rect(0, 0, 16, 16))
		for y := 0; y < i && y < 16; y++ {
			for x := 0; x < 16; x++ {
				img.Pix[y*img.Stride+x] = 0xff
			}
		}

		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame_%04d.png", i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
}

func decodeAll(t *testing.T, path string) (container.Header, []*[16 * 2]byte) {
	t.Helper()

	buf, err := ReadContainer(path)
	require.NoError(t, err)

	cur, err := container.NewReader(buf)
	require.NoError(t, err)

	var frames []*[16 * 2]byte
	for {
		f, err := cur.NextFrame()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Len(t, f.Bytes(), 32)
		var b [32]byte
		copy(b[:], f.Bytes())
		frames = append(frames, &b)
	}

	return cur.Header(), frames
}

func TestEncodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 8)
	out := filepath.Join(dir, "out.biv")

	m := New(nil, discard())
	stats, err := m.Encode(dir, EncodeOptions{Output: out, Height: 16})
	require.NoError(t, err)

	assert.Equal(t, 8, stats.Frames)
	assert.Equal(t, 8, stats.FullRecords+stats.DeltaRecords)
	// One row changes per frame; deltas dominate.
	assert.Greater(t, stats.DeltaRecords, stats.FullRecords)
	assert.Less(t, stats.EncodedBytes, stats.RawBytes)

	header, frames := decodeAll(t, out)
	assert.Equal(t, uint16(16), header.Width)
	assert.Equal(t, uint16(16), header.Height)
	assert.Equal(t, uint32(8), header.FrameCount)
	assert.Equal(t, uint8(1), header.FrameRateDiv)
	assert.Equal(t, uint8(1), header.Depth)

	require.Len(t, frames, 8)
	for i, f := range frames {
		for y := 0; y < 16; y++ {
			want := byte(0x00)
			if y < i {
				want = 0xff
			}
			assert.Equal(t, want, f[y*2], "frame %d row %d", i, y)
			assert.Equal(t, want, f[y*2+1], "frame %d row %d", i, y)
		}
	}

	// No temporary file left behind.
	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestEncodeFrameSelection(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 10)
	out := filepath.Join(dir, "out.biv")

	m := New(nil, discard())
	stats, err := m.Encode(dir, EncodeOptions{
		Output:       out,
		Height:       16,
		SkipFirst:    2,
		FrameRateDiv: 2,
		NFrames:      3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Frames)

	header, frames := decodeAll(t, out)
	assert.Equal(t, uint32(3), header.FrameCount)
	assert.Equal(t, uint8(2), header.FrameRateDiv)

	// Skip 2 then keep every 2nd: source frames 2, 4, 6.
	for i, src := range []int{2, 4, 6} {
		assert.Equal(t, byte(0xff), frames[i][(src-1)*2], "frame %d", i)
		assert.Equal(t, byte(0x00), frames[i][src*2], "frame %d", i)
	}
}

func TestEncodeCompress(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 4)
	out := filepath.Join(dir, "out.biv.zst")

	m := New(nil, discard())
	_, err := m.Encode(dir, EncodeOptions{Output: out, Height: 16, Compress: true})
	require.NoError(t, err)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 4)
	assert.Equal(t, zstdMagic, raw[:4])

	// ReadContainer unwraps transparently.
	header, frames := decodeAll(t, out)
	assert.Equal(t, uint32(4), header.FrameCount)
	assert.Len(t, frames, 4)
}

func TestEncodeUnreadableImage(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 3)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame_0003.png"), []byte("not a png"), 0o644))
	out := filepath.Join(dir, "out.biv")

	m := New(nil, discard())
	_, err := m.Encode(dir, EncodeOptions{Output: out, Height: 16})
	assert.ErrorIs(t, err, ErrUnreadableImage)

	// A failed run leaves nothing that looks like a finished container.
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestEncodeExplicitWidth(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 4)
	out := filepath.Join(dir, "out.biv")

	// 16x16 sources derive width 16 at height 16; an explicit 8 must
	// win and resize rather than fail.
	m := New(nil, discard())
	stats, err := m.Encode(dir, EncodeOptions{Output: out, Height: 16, Width: 8})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Frames)

	buf, err := ReadContainer(out)
	require.NoError(t, err)
	cur, err := container.NewReader(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(8), cur.Header().Width)
	assert.Equal(t, uint16(16), cur.Header().Height)

	f, err := cur.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, 8, f.Width())
	assert.Equal(t, 16, f.Height())
}

func TestEncodeThresholdRange(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 1)
	out := filepath.Join(dir, "out.biv")

	m := New(nil, discard())

	// Out-of-range thresholds are rejected, not wrapped modulo 256.
	_, err := m.Encode(dir, EncodeOptions{Output: out, Height: 16, Threshold: 300})
	assert.Error(t, err)
	_, err = m.Encode(dir, EncodeOptions{Output: out, Height: 16, Threshold: -1})
	assert.Error(t, err)
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))

	_, err = m.Encode(dir, EncodeOptions{Output: out, Height: 16, Threshold: 255})
	assert.NoError(t, err)
}

func TestEncodeNoFrames(t *testing.T) {
	m := New(nil, discard())
	_, err := m.Encode(t.TempDir(), EncodeOptions{Output: "out.biv", Height: 16})
	assert.Error(t, err)
}

func TestFindFramesOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"shot_10.png", "shot_2.png", "shot_1.png", "notes.txt", "cover.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	paths, err := findFrames(dir, discard())
	require.NoError(t, err)

	// Numeric order, not lexical; files without a frame number are
	// ignored.
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "shot_1.png"), paths[0])
	assert.Equal(t, filepath.Join(dir, "shot_2.png"), paths[1])
	assert.Equal(t, filepath.Join(dir, "shot_10.png"), paths[2])
}
