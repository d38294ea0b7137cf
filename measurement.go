package luminance

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/luminance/kernel"
)

// Digits of precision kept in a published measurement.
const precision = 1000

// EffectivePixelCount returns the number of pixels a dispatch reads from a
// width x height image downsampled by factor in both dimensions:
// (width/factor) * (height/factor), integer division. It returns 0 for
// non-positive arguments.
func EffectivePixelCount(width, height, factor int) int {
	if width <= 0 || height <= 0 || factor <= 0 {
		return 0
	}
	return (width / factor) * (height / factor)
}

// AverageLuminance converts an accumulator value into the average
// per-pixel luminance: result / (ScaleFactor * pixels). The value is not
// clamped; HDR targets can exceed 1.
func AverageLuminance(result uint32, pixels int) (float64, error) {
	if pixels <= 0 {
		return 0, fmt.Errorf("%w: pixel count %d", ErrNoPixels, pixels)
	}
	return float64(result) / (kernel.ScaleFactor * float64(pixels)), nil
}

// Quantize truncates x to three decimal digits and clamps it to [0, 1]:
// floor(x*1000)/1000. NaN maps to 0.
func Quantize(x float64) float32 {
	if math.IsNaN(x) {
		return 0
	}
	v := math.Floor(x*precision) / precision
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return float32(v)
}

// Measure computes the published measurement for an accumulator value
// over pixels sampled pixels. It equals Quantize(AverageLuminance(...))
// but truncates in integer arithmetic, so values such as 0.3 are not
// pushed below their exact thousandth by float rounding.
func Measure(result uint32, pixels int) (float32, error) {
	if pixels <= 0 {
		return 0, fmt.Errorf("%w: pixel count %d", ErrNoPixels, pixels)
	}
	// thousandths of the average, truncated
	units := uint64(result) * precision / (kernel.ScaleFactor * uint64(pixels))
	if units > precision {
		units = precision
	}
	return float32(units) / precision, nil
}

// decodeResult reads the accumulator value from a readback payload.
func decodeResult(data []byte) (uint32, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("%w: %d bytes", ErrReadbackSize, len(data))
	}
	return binary.LittleEndian.Uint32(data), nil
}
