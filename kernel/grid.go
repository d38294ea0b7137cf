package kernel

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DefaultDownsample is the default sampling stride in both dimensions.
// A factor of 2 reads one pixel out of every 2x2 block, a quarter of the image.
const DefaultDownsample = 2

// ParamsSize is the byte size of the uniform block built by Grid.Params.
const ParamsSize = 32

// Grid errors.
var (
	// ErrInvalidSize is returned for non-positive image dimensions.
	ErrInvalidSize = errors.New("kernel: invalid image size")

	// ErrInvalidFactor is returned for a downsampling factor below 1.
	ErrInvalidFactor = errors.New("kernel: invalid downsample factor")

	// ErrEmptyGrid is returned when the image is smaller than one sample
	// in either dimension, which would leave nothing to average.
	ErrEmptyGrid = errors.New("kernel: image too small for downsample factor")
)

// Grid is a planned dispatch over a source image.
type Grid struct {
	// Width and Height are the source image dimensions.
	Width, Height int

	// Factor is the sampling stride in both dimensions.
	Factor int

	// SampleWidth and SampleHeight are the sampled region in samples
	// (Width/Factor and Height/Factor, integer division).
	SampleWidth, SampleHeight int

	// X, Y, Z are the workgroup counts to dispatch.
	X, Y, Z uint32
}

// PlanGrid sizes a dispatch of WorkgroupSize x WorkgroupSize tiles over a
// width x height image sampled every factor pixels.
//
// For dimensions that are multiples of WorkgroupSize*factor the workgroup
// counts equal ceil(width/8)/factor and ceil(height/8)/factor. Otherwise the
// counts are rounded up from the sample dimensions so the sampled region is
// always fully covered. A 1600x900 image at factor 2 samples 800x450 and
// dispatches 100x57 workgroups, where halving ceil(900/8) would give 56 and
// leave the last two sample rows unread.
func PlanGrid(width, height, factor int) (Grid, error) {
	if width <= 0 || height <= 0 {
		return Grid{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if factor < 1 {
		return Grid{}, fmt.Errorf("%w: %d", ErrInvalidFactor, factor)
	}
	sw, sh := width/factor, height/factor
	if sw == 0 || sh == 0 {
		return Grid{}, fmt.Errorf("%w: %dx%d at factor %d", ErrEmptyGrid, width, height, factor)
	}
	return Grid{
		Width:        width,
		Height:       height,
		Factor:       factor,
		SampleWidth:  sw,
		SampleHeight: sh,
		X:            uint32((sw + WorkgroupSize - 1) / WorkgroupSize), //nolint:gosec // bounded by image size
		Y:            uint32((sh + WorkgroupSize - 1) / WorkgroupSize), //nolint:gosec // bounded by image size
		Z:            1,
	}, nil
}

// PixelCount returns the number of pixels the dispatch reads.
// This is the divisor for the average.
func (g Grid) PixelCount() int {
	return g.SampleWidth * g.SampleHeight
}

// Threads returns the number of invocations launched in X and Y.
func (g Grid) Threads() (x, y int) {
	return int(g.X) * WorkgroupSize, int(g.Y) * WorkgroupSize
}

// Covered returns the number of launched invocations that pass the kernel's
// bounds check and read a pixel. It always equals PixelCount.
func (g Grid) Covered() int {
	tx, ty := g.Threads()
	return min(tx, g.SampleWidth) * min(ty, g.SampleHeight)
}

// Params encodes the uniform block the kernel reads at BindingParams.
func (g Grid) Params() []byte {
	buf := make([]byte, ParamsSize)
	binary.LittleEndian.PutUint32(buf[0:], uint32(g.Width))         //nolint:gosec // positive by construction
	binary.LittleEndian.PutUint32(buf[4:], uint32(g.Height))        //nolint:gosec // positive by construction
	binary.LittleEndian.PutUint32(buf[8:], uint32(g.Factor))        //nolint:gosec // positive by construction
	binary.LittleEndian.PutUint32(buf[12:], uint32(g.SampleWidth))  //nolint:gosec // positive by construction
	binary.LittleEndian.PutUint32(buf[16:], uint32(g.SampleHeight)) //nolint:gosec // positive by construction
	return buf
}
