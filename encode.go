package bitvid

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"

	"github.com/klauspost/compress/zstd"

	"github.com/bodgit/bitvid/container"
	"github.com/bodgit/bitvid/quant"
)

// ErrUnreadableImage means a source frame could not be opened or decoded.
var ErrUnreadableImage = errors.New("bitvid: unreadable source image")

// Source frames are numbered image files, e.g. "bad_apple_0123.png".
var framePattern = regexp.MustCompile(`([0-9]+)\.(?:png|gif|jpe?g)$`)

// EncodeOptions configures one encode run. Every option is fixed for the
// whole run.
type EncodeOptions struct {
	// Output is the container path to write.
	Output string

	// Height of the video. Width is derived from the first frame's
	// aspect ratio unless set explicitly.
	Height int
	Width  int

	// Depth is bits per pixel; defaults to 1.
	Depth int

	// Dither enables Floyd-Steinberg dithering at depth 1. Threshold
	// overrides the default luminance cut and must lie in 0..255, with
	// 0 meaning the default; a literal threshold of 0 (every pixel set)
	// is therefore not expressible, the lowest effective cut is 1.
	Dither    bool
	Threshold int

	// SkipFirst drops the leading N source frames; NFrames truncates the
	// video after N frames (0 = no limit); FrameRateDiv keeps every Nth
	// frame and is recorded in the header for playback pacing.
	SkipFirst    int
	NFrames      int
	FrameRateDiv int

	// Compress wraps the container in a zstd stream on disk. The inner
	// stream is unchanged; firmware images embed the raw container.
	Compress bool

	// Jobs is the worker count for the parallel passes; defaults to
	// GOMAXPROCS.
	Jobs int
}

// EncodeStats reports what one encode run produced.
type EncodeStats struct {
	Frames       int
	FullRecords  int
	DeltaRecords int
	RawBytes     int64
	EncodedBytes int64
}

// Ratio returns encoded size relative to raw packed bitmaps.
func (s *EncodeStats) Ratio() float64 {
	if s.RawBytes == 0 {
		return 0
	}
	return float64(s.EncodedBytes) / float64(s.RawBytes)
}

// Encode converts the numbered image frames in dir into a container at
// opts.Output. Any unreadable image, dimension mismatch or write failure
// aborts the whole run; the output path never holds a partial container.
func (m *BitVid) Encode(dir string, opts EncodeOptions) (*EncodeStats, error) {
	if opts.Height <= 0 {
		return nil, errors.New("bitvid: target height must be positive")
	}
	if opts.Threshold < 0 || opts.Threshold > 0xff {
		return nil, fmt.Errorf("bitvid: threshold %d out of range 0..255", opts.Threshold)
	}
	if opts.FrameRateDiv <= 0 {
		opts.FrameRateDiv = 1
	}
	if opts.Depth == 0 {
		opts.Depth = 1
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}

	paths, err := findFrames(dir, m.logger)
	if err != nil {
		return nil, err
	}

	if opts.SkipFirst > 0 {
		if opts.SkipFirst > len(paths) {
			opts.SkipFirst = len(paths)
		}
		paths = paths[opts.SkipFirst:]
	}
	if opts.FrameRateDiv > 1 {
		kept := paths[:0]
		for i, p := range paths {
			if i%opts.FrameRateDiv == 0 {
				kept = append(kept, p)
			}
		}
		paths = kept
	}
	if opts.NFrames > 0 && opts.NFrames < len(paths) {
		paths = paths[:opts.NFrames]
	}
	if len(paths) == 0 {
		return nil, errors.New("bitvid: no source frames found")
	}
	m.logger.Printf("Encoding %d frames from %s\n", len(paths), dir)

	// The video geometry is frozen by the first frame.
	first, err := loadImage(paths[0])
	if err != nil {
		return nil, err
	}
	width := opts.Width
	if width == 0 {
		width = quant.DeriveWidth(first.Bounds().Dx(), first.Bounds().Dy(), opts.Height)
	}

	q, err := quant.New(quant.Config{
		Width:        width,
		Height:       opts.Height,
		DerivedWidth: opts.Width == 0,
		Depth:        opts.Depth,
		Dither:       opts.Dither,
		Threshold:    uint8(opts.Threshold),
	})
	if err != nil {
		return nil, err
	}
	m.logger.Printf("Video is %dx%d at %d bpp\n", width, opts.Height, opts.Depth)

	frames, err := m.quantizePass(q, paths, opts.Jobs)
	if err != nil {
		return nil, err
	}

	records, err := m.deltaPass(frames, opts.Jobs)
	if err != nil {
		return nil, err
	}

	header := container.Header{
		Width:        uint16(width),
		Height:       uint16(opts.Height),
		FrameCount:   uint32(len(records)),
		FrameRateDiv: uint8(opts.FrameRateDiv),
		Depth:        uint8(opts.Depth),
	}
	if err := m.writeContainer(opts.Output, header, records, opts.Compress); err != nil {
		return nil, err
	}

	stats := &EncodeStats{Frames: len(records)}
	for i, r := range records {
		if r.Tag == container.TagDelta {
			stats.DeltaRecords++
		} else {
			stats.FullRecords++
		}
		stats.RawBytes += int64(len(frames[i].Bytes()))
		stats.EncodedBytes += int64(r.Size())
	}
	stats.EncodedBytes += container.HeaderSize
	m.logger.Printf("Wrote %s: %d full, %d delta, %.1f%% of raw\n",
		opts.Output, stats.FullRecords, stats.DeltaRecords, stats.Ratio()*100)

	if m.db != nil {
		if err := m.catalog(opts.Output, header); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

// writeContainer serializes records to a temporary file and renames it
// into place, so a failed run never leaves an output that looks complete.
func (m *BitVid) writeContainer(path string, header container.Header, records []container.Record, compress bool) (err error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	var w io.Writer = f
	var zw *zstd.Encoder
	if compress {
		if zw, err = zstd.NewWriter(f); err != nil {
			return err
		}
		w = zw
	}

	cw, err := container.NewWriter(w, header)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err = cw.WriteRecord(r); err != nil {
			return err
		}
	}
	if err = cw.Close(); err != nil {
		return err
	}

	if zw != nil {
		if err = zw.Close(); err != nil {
			return err
		}
	}
	if err = f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// catalog records the finished container in the asset database.
func (m *BitVid) catalog(path string, header container.Header) error {
	crc, err := crcFile(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	return m.db.Record(Asset{
		Path:   path,
		CRC:    crc,
		Width:  int(header.Width),
		Height: int(header.Height),
		Depth:  int(header.Depth),
		Frames: int(header.FrameCount),
		Size:   info.Size(),
	})
}

// findFrames collects the numbered image files directly inside dir,
// ordered by frame number. Gaps in the numbering are worth knowing about
// but not fatal; a dropped source frame just plays through.
func findFrames(dir string, logger *log.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type numbered struct {
		id   int
		path string
	}
	var files []numbered
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		matches := framePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}
		id, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("bitvid: bad frame number in %q: %w", entry.Name(), err)
		}
		files = append(files, numbered{id: id, path: filepath.Join(dir, entry.Name())})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].id < files[j].id })

	paths := make([]string, 0, len(files))
	for i, f := range files {
		if i > 0 && f.id != files[i-1].id+1 {
			logger.Printf("Missing frames between %d and %d\n", files[i-1].id, f.id)
		}
		paths = append(paths, f.path)
	}

	return paths, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableImage, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableImage, path, err)
	}
	return img, nil
}
