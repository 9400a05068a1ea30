/*
Package quant reduces arbitrary source images to the working resolution
and bit depth of a video.

Scaling uses a box filter so that detail is averaged away rather than
aliased before quantization. Quantization at 1 bit is either a fixed
luminance threshold or Floyd-Steinberg error diffusion; at higher depths
a median-cut palette is built per frame and mapped onto the implied
grayscale ramp. The quantization mode is fixed for a whole encode run,
never chosen per frame.
*/
package quant

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/gift"
	"github.com/ericpauley/go-quantize/quantize"

	"github.com/bodgit/bitvid/frame"
)

// DefaultThreshold is the 1-bit luminance cut: pixels at or above it are
// set.
const DefaultThreshold = 0x80

// ErrDimensionMismatch means a source image does not scale to the video
// dimensions frozen by the first frame.
var ErrDimensionMismatch = errors.New("quant: frame dimensions do not match video")

// Config freezes the scaling and quantization parameters for one encode
// run.
type Config struct {
	// Width and Height of the video. Use DeriveWidth to compute Width
	// from the first source image's aspect ratio.
	Width  int
	Height int

	// DerivedWidth marks Width as derived from the first frame's aspect
	// ratio rather than requested outright. Later frames whose own
	// derivation disagrees then fail with ErrDimensionMismatch. An
	// explicitly requested Width resizes any source geometry.
	DerivedWidth bool

	// Depth is bits per pixel: 1, 2, 4 or 8.
	Depth int

	// Dither selects Floyd-Steinberg error diffusion instead of a fixed
	// threshold. Only meaningful at depth 1.
	Dither bool

	// Threshold overrides DefaultThreshold when non-zero. A literal
	// threshold of 0 (every pixel set) is not expressible; the lowest
	// effective cut is 1.
	Threshold uint8
}

// DeriveWidth computes the video width that preserves the source aspect
// ratio at the target height, rounded to nearest.
func DeriveWidth(srcWidth, srcHeight, targetHeight int) int {
	return int(math.Round(float64(srcWidth) * float64(targetHeight) / float64(srcHeight)))
}

// Quantizer converts source images to quantized frames. It is a pure
// function of its configuration and safe for concurrent use across
// encode workers.
type Quantizer struct {
	cfg       Config
	threshold uint8
	resize    *gift.GIFT
}

// New validates cfg and returns a Quantizer.
func New(cfg Config) (*Quantizer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("quant: invalid video dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Depth != 1 && cfg.Depth != 2 && cfg.Depth != 4 && cfg.Depth != 8 {
		return nil, fmt.Errorf("quant: invalid bit depth %d", cfg.Depth)
	}

	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	return &Quantizer{
		cfg:       cfg,
		threshold: threshold,
		resize:    gift.New(gift.Resize(cfg.Width, cfg.Height, gift.BoxResampling)),
	}, nil
}

// Frame scales and quantizes one source image. With a derived width,
// source images whose own aspect derivation disagrees with the video
// width fail with ErrDimensionMismatch; an explicit width accepts any
// source geometry.
func (q *Quantizer) Frame(src image.Image) (*frame.Bitmap, error) {
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrDimensionMismatch
	}
	if q.cfg.DerivedWidth {
		if w := DeriveWidth(b.Dx(), b.Dy(), q.cfg.Height); w != q.cfg.Width {
			return nil, fmt.Errorf("%w: derived width %d, video width %d",
				ErrDimensionMismatch, w, q.cfg.Width)
		}
	}

	gray := image.NewGray(q.resize.Bounds(b))
	q.resize.Draw(gray, src)

	bm, err := frame.New(q.cfg.Width, q.cfg.Height, q.cfg.Depth)
	if err != nil {
		return nil, err
	}

	switch {
	case q.cfg.Depth == 1 && q.cfg.Dither:
		q.dither1(gray, bm)
	case q.cfg.Depth == 1:
		q.threshold1(gray, bm)
	default:
		q.palette(gray, bm)
	}

	return bm, nil
}

func (q *Quantizer) threshold1(gray *image.Gray, bm *frame.Bitmap) {
	for y := 0; y < q.cfg.Height; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < q.cfg.Width; x++ {
			if row[x] >= q.threshold {
				bm.Set(x, y, 1)
			}
		}
	}
}

// dither1 runs Floyd-Steinberg error diffusion against the configured
// threshold, scanning left to right on every row.
func (q *Quantizer) dither1(gray *image.Gray, bm *frame.Bitmap) {
	w, h := q.cfg.Width, q.cfg.Height

	lum := make([]int16, w*h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < w; x++ {
			lum[y*w+x] = int16(row[x])
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			old := lum[y*w+x]
			var set int16
			if old >= int16(q.threshold) {
				set = 0xff
				bm.Set(x, y, 1)
			}
			diff := old - set

			// Classic 7/16, 3/16, 5/16, 1/16 split.
			if x+1 < w {
				lum[y*w+x+1] += diff * 7 / 16
			}
			if y+1 < h {
				if x > 0 {
					lum[(y+1)*w+x-1] += diff * 3 / 16
				}
				lum[(y+1)*w+x] += diff * 5 / 16
				if x+1 < w {
					lum[(y+1)*w+x+1] += diff * 1 / 16
				}
			}
		}
	}
}

// palette quantizes depth >1 frames: a median-cut palette of 2^depth
// colors is built from the frame and sorted darkest first, then each
// pixel stores its palette index. Players reconstruct with an evenly
// spaced grayscale ramp, which is close enough at these depths.
func (q *Quantizer) palette(gray *image.Gray, bm *frame.Bitmap) {
	mc := quantize.MedianCutQuantizer{}
	p := mc.Quantize(make(color.Palette, 0, 1<<q.cfg.Depth), gray)

	sort.Slice(p, func(i, j int) bool {
		return color.GrayModel.Convert(p[i]).(color.Gray).Y <
			color.GrayModel.Convert(p[j]).(color.Gray).Y
	})

	for y := 0; y < q.cfg.Height; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < q.cfg.Width; x++ {
			bm.Set(x, y, uint8(p.Index(color.Gray{Y: row[x]})))
		}
	}
}
