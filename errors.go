package luminance

import "errors"

// Sampler errors.
var (
	// ErrAlreadyInitialized is returned by Init on a sampler that was
	// already initialized.
	ErrAlreadyInitialized = errors.New("luminance: sampler already initialized")

	// ErrClosed is returned by Init on a closed sampler.
	ErrClosed = errors.New("luminance: sampler closed")

	// ErrInvalidDownsample is returned by Init for a downsample factor below 1.
	ErrInvalidDownsample = errors.New("luminance: invalid downsample factor")
)

// Device errors.
var (
	// ErrNoDevice is returned when no device is registered or none of the
	// registered factories produced a device.
	ErrNoDevice = errors.New("luminance: no device available")

	// ErrUnknownDevice is returned by NewDevice for an unregistered name.
	ErrUnknownDevice = errors.New("luminance: unknown device")

	// ErrNotPrepared is returned by device operations before Prepare.
	ErrNotPrepared = errors.New("luminance: device not prepared")

	// ErrInvalidTarget is returned when dispatching against a target that
	// is no longer valid.
	ErrInvalidTarget = errors.New("luminance: invalid target")

	// ErrUnsupportedTarget is returned when a device cannot read the
	// target's pixels.
	ErrUnsupportedTarget = errors.New("luminance: unsupported target")

	// ErrScaleMismatch is returned by Prepare when a program's fixed-point
	// scale differs from the host's.
	ErrScaleMismatch = errors.New("luminance: kernel scale does not match host scale")

	// ErrReadbackReleased is reported by a readback used after Release.
	ErrReadbackReleased = errors.New("luminance: readback released")
)

// Measurement errors.
var (
	// ErrNoPixels is returned when averaging over an empty pixel set.
	ErrNoPixels = errors.New("luminance: no sampled pixels")

	// ErrReadbackSize is returned when a readback payload is not a
	// single u32.
	ErrReadbackSize = errors.New("luminance: unexpected readback size")
)
