//go:build !nogpu

// Package gpu implements the luminance reduction device on gogpu/wgpu HAL.
//
// The device compiles the kernel program into a compute pipeline, owns the
// u32 result accumulator and issues readbacks as submitted copies into a
// host-readable staging buffer. Readbacks compare their submission index
// with the queue's completed index, so the frame loop never blocks on the
// GPU.
package gpu
