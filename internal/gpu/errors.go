//go:build !nogpu

package gpu

import "errors"

var (
	// ErrNoBackend is returned by Open when the requested HAL backend is not
	// compiled in.
	ErrNoBackend = errors.New("gpu: backend not available")

	// ErrNoAdapter is returned by Open when no adapter is found.
	ErrNoAdapter = errors.New("gpu: no adapters found")

	// ErrNoHAL is returned by FromProvider for a provider that does not
	// expose HAL device and queue.
	ErrNoHAL = errors.New("gpu: provider does not expose HAL types")

	// ErrWorkgroupMismatch is returned by Prepare for a program whose
	// workgroup size differs from the one the dispatch grid is planned for.
	ErrWorkgroupMismatch = errors.New("gpu: program workgroup size does not match dispatch grid")

	// ErrReleased is returned by operations on a released device.
	ErrReleased = errors.New("gpu: device released")
)
