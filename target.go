package luminance

import (
	"image"
	"sync/atomic"
)

// Target is a render target owned by an upstream pipeline. The sampler
// holds a non-owning reference and never mutates it.
//
// Valid reports false once the upstream owner has destroyed the target.
// It may change at any time, independently of the sampler.
type Target interface {
	Width() int
	Height() int
	Valid() bool
}

// PixelTarget is a Target whose pixels are readable on the host as
// RGBA8 rows.
type PixelTarget interface {
	Target

	// Pixels returns the pixel data, Stride bytes per row.
	Pixels() []uint8

	// Stride returns the byte distance between rows.
	Stride() int
}

// TargetSource locates the current render target, or returns nil when
// none exists yet.
type TargetSource interface {
	CurrentTarget() Target
}

// TargetSourceFunc adapts a function to TargetSource.
type TargetSourceFunc func() Target

// CurrentTarget calls f.
func (f TargetSourceFunc) CurrentTarget() Target { return f() }

// StaticSource returns a TargetSource that always yields t.
// A nil t yields a source that never has a target.
func StaticSource(t Target) TargetSource {
	return TargetSourceFunc(func() Target { return t })
}

// ImageTarget is a PixelTarget backed by an *image.RGBA.
type ImageTarget struct {
	img         *image.RGBA
	invalidated atomic.Bool
}

// NewImageTarget wraps img. The image must not be reallocated while the
// target is in use; draw into img.Pix in place.
func NewImageTarget(img *image.RGBA) *ImageTarget {
	return &ImageTarget{img: img}
}

// Image returns the wrapped image.
func (t *ImageTarget) Image() *image.RGBA { return t.img }

// Width returns the image width in pixels.
func (t *ImageTarget) Width() int { return t.img.Rect.Dx() }

// Height returns the image height in pixels.
func (t *ImageTarget) Height() int { return t.img.Rect.Dy() }

// Stride returns the row stride in bytes.
func (t *ImageTarget) Stride() int { return t.img.Stride }

// Pixels returns the pixel data starting at the image origin.
func (t *ImageTarget) Pixels() []uint8 {
	return t.img.Pix[t.img.PixOffset(t.img.Rect.Min.X, t.img.Rect.Min.Y):]
}

// Valid reports whether the target can still be read.
func (t *ImageTarget) Valid() bool {
	return t != nil && t.img != nil && !t.invalidated.Load()
}

// Invalidate marks the target destroyed. Safe to call from any goroutine.
func (t *ImageTarget) Invalidate() {
	t.invalidated.Store(true)
}
