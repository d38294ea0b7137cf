//go:build !nogpu

// Package gpu registers the "gpu" luminance device, which runs the
// reduction kernel through gogpu/wgpu HAL compute shaders.
//
// If GPU initialization fails (no Vulkan available), creating the device
// fails and luminance.DefaultDevice falls back to the software device.
//
// Usage:
//
//	import _ "github.com/gogpu/luminance/gpu" // enable GPU reduction
//
// To share the GPU device of a host application instead of opening one:
//
//	gpu.SetDeviceProvider(app) // gpucontext.DeviceProvider with HAL access
package gpu

import (
	"sync"

	"github.com/gogpu/luminance"
	gpuimpl "github.com/gogpu/luminance/internal/gpu"
)

// ShaderFormat selects how the kernel source reaches the driver.
type ShaderFormat = gpuimpl.ShaderFormat

// Shader formats.
const (
	ShaderWGSL  = gpuimpl.ShaderWGSL
	ShaderSPIRV = gpuimpl.ShaderSPIRV
)

// Options configures devices created by the registered factory.
type Options = gpuimpl.Options

// BufferTarget is a target already resident in a GPU storage buffer.
type BufferTarget = gpuimpl.BufferTarget

var (
	mu       sync.Mutex
	opts     = gpuimpl.DefaultOptions()
	provider any
)

func init() {
	luminance.RegisterDevice(luminance.DeviceGPU, newDevice)
}

func newDevice() (luminance.Device, error) {
	mu.Lock()
	o, p := opts, provider
	mu.Unlock()

	if p != nil {
		d, err := gpuimpl.FromProvider(p, o)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	d, err := gpuimpl.Open(o)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// SetDeviceProvider makes devices created afterwards share the GPU device
// of an external provider (e.g., gogpu) instead of opening their own.
//
// The provider should be a gpucontext.DeviceProvider that also implements
// HalDevice() any and HalQueue() any. Pass nil to go back to opening a
// dedicated device.
func SetDeviceProvider(p any) {
	mu.Lock()
	defer mu.Unlock()
	provider = p
}

// Configure sets the options used by devices created afterwards.
func Configure(o Options) {
	mu.Lock()
	defer mu.Unlock()
	opts = o
}

// DefaultOptions returns the options registered devices start with.
func DefaultOptions() Options {
	return gpuimpl.DefaultOptions()
}
