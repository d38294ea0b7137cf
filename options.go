package luminance

import (
	"log/slog"

	"github.com/gogpu/luminance/kernel"
)

// Option configures a Sampler during creation.
//
// Example:
//
//	// Default device, default kernel, half-resolution sampling
//	s := luminance.New(source)
//
//	// CPU reduction over every pixel
//	s := luminance.New(source,
//	    luminance.WithDeviceName(luminance.DeviceSoftware),
//	    luminance.WithDownsample(1))
type Option func(*options)

// options holds optional configuration for Sampler creation.
type options struct {
	device     Device
	deviceName string
	kernelName string
	downsample int
	logger     *slog.Logger
}

// defaultOptions returns the default sampler options.
func defaultOptions() options {
	return options{
		kernelName: kernel.DefaultName,
		downsample: kernel.DefaultDownsample,
	}
}

// WithDevice uses d instead of creating a device from the registry.
// The caller keeps ownership: Close does not release d.
func WithDevice(d Device) Option {
	return func(o *options) {
		o.device = d
	}
}

// WithDeviceName creates the named registered device on Init instead of
// DefaultDevice. Ignored when WithDevice is also given.
func WithDeviceName(name string) Option {
	return func(o *options) {
		o.deviceName = name
	}
}

// WithKernel selects the reduction kernel by its registry name.
func WithKernel(name string) Option {
	return func(o *options) {
		o.kernelName = name
	}
}

// WithDownsample sets the sampling stride in both dimensions.
// The default of 2 reads a quarter of the pixels.
func WithDownsample(factor int) Option {
	return func(o *options) {
		o.downsample = factor
	}
}

// WithLogger sets a logger for this sampler instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
