package kernel

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/luminance/internal/parallel"
)

// ErrShortBuffer is returned when a pixel buffer is smaller than its
// declared dimensions.
var ErrShortBuffer = errors.New("kernel: pixel buffer too small")

// Rec.709 luma weights, matching the WGSL kernel.
const (
	lumaR float32 = 0.2126
	lumaG float32 = 0.7152
	lumaB float32 = 0.0722
)

// Luma returns the Rec.709 luminance of an 8-bit RGB triple in [0, 1].
func Luma(r, g, b uint8) float32 {
	return lumaR*(float32(r)/255) + lumaG*(float32(g)/255) + lumaB*(float32(b)/255)
}

// Contribution returns the fixed-point value one pixel adds to the
// accumulator: the luminance scaled by ScaleFactor and truncated.
func Contribution(r, g, b uint8) uint32 {
	return uint32(max(Luma(r, g, b), 0) * ScaleFactor)
}

// CheckPixels verifies that pix holds g.Height rows of g.Width RGBA8 pixels
// at the given row stride.
func CheckPixels(pix []uint8, stride int, g Grid) error {
	if stride < g.Width*4 {
		return fmt.Errorf("%w: stride %d < %d", ErrShortBuffer, stride, g.Width*4)
	}
	need := (g.Height-1)*stride + g.Width*4
	if len(pix) < need {
		return fmt.Errorf("%w: %d bytes, need %d", ErrShortBuffer, len(pix), need)
	}
	return nil
}

// Reduce computes on the CPU what one dispatch of the kernel accumulates:
// the sum of Contribution over every sampled pixel of an RGBA8 image.
//
// Sampled rows are split into bands across pool; each band sums locally and
// merges into a shared accumulator with one atomic add. The sum wraps on
// uint32 overflow exactly as the GPU accumulator does. A nil pool reduces on
// the calling goroutine.
func Reduce(pool *parallel.WorkerPool, pix []uint8, stride int, g Grid) (uint32, error) {
	if err := CheckPixels(pix, stride, g); err != nil {
		return 0, err
	}

	var acc atomic.Uint32
	sumBand := func(b parallel.Band) {
		var local uint32
		for sy := b.Start; sy < b.End; sy++ {
			row := sy * g.Factor * stride
			for sx := 0; sx < g.SampleWidth; sx++ {
				i := row + sx*g.Factor*4
				local += Contribution(pix[i], pix[i+1], pix[i+2])
			}
		}
		acc.Add(local)
	}

	if pool == nil {
		sumBand(parallel.Band{Start: 0, End: g.SampleHeight})
		return acc.Load(), nil
	}

	bands := parallel.Bands(g.SampleHeight, pool.Workers()*2)
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() { sumBand(b) }
	}
	pool.ExecuteAll(work)
	return acc.Load(), nil
}

// PackPixels returns the sampled-source buffer layout the kernel binds:
// tightly packed rows of RGBA8 pixels, one little-endian u32 per pixel.
// When the rows are already tight the input slice is returned as is.
func PackPixels(pix []uint8, stride int, g Grid) ([]byte, error) {
	if err := CheckPixels(pix, stride, g); err != nil {
		return nil, err
	}
	rowBytes := g.Width * 4
	if stride == rowBytes {
		return pix[:g.Height*rowBytes], nil
	}
	out := make([]byte, g.Height*rowBytes)
	for y := 0; y < g.Height; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], pix[y*stride:y*stride+rowBytes])
	}
	return out, nil
}
