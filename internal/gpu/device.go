//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/luminance"
	"github.com/gogpu/luminance/kernel"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// ShaderFormat selects how the kernel source reaches the driver.
type ShaderFormat int

const (
	// ShaderWGSL hands the WGSL source to the HAL backend.
	ShaderWGSL ShaderFormat = iota

	// ShaderSPIRV compiles WGSL to SPIR-V with naga first.
	ShaderSPIRV
)

// String returns the format name.
func (f ShaderFormat) String() string {
	if f == ShaderSPIRV {
		return "spirv"
	}
	return "wgsl"
}

// Options configures a Device.
type Options struct {
	// Backend is the HAL backend Open uses.
	Backend gputypes.Backend

	// Shader selects WGSL or SPIR-V shader modules.
	Shader ShaderFormat

	// ReleaseTimeout bounds how long releasing an incomplete readback waits
	// for its submission to complete.
	ReleaseTimeout time.Duration

	// Host is the device token of a host application sharing its device.
	// When its concrete type has a Poll(wait bool) method it is polled
	// without blocking before every completion check.
	Host gpucontext.Device
}

// DefaultOptions returns Vulkan, WGSL modules and a five second release
// timeout.
func DefaultOptions() Options {
	return Options{
		Backend:        gputypes.BackendVulkan,
		Shader:         ShaderWGSL,
		ReleaseTimeout: 5 * time.Second,
	}
}

// BufferTarget is a luminance.Target already resident in a GPU storage
// buffer of packed RGBA8 pixels, tightly packed rows. The device binds it
// directly instead of uploading host pixels.
//
// BufferSize reports the buffer's byte size. It must cover the whole image,
// Width*Height*4 bytes; Dispatch rejects smaller buffers with
// luminance.ErrUnsupportedTarget.
type BufferTarget interface {
	luminance.Target
	Buffer() hal.Buffer
	BufferSize() uint64
}

// Device runs the luminance kernel on a wgpu HAL device.
// It implements luminance.Device and is not safe for concurrent use.
type Device struct {
	opts Options

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool // shared device: don't destroy on Release
	released bool

	program    *kernel.Program
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	params hal.Buffer // uniform grid parameters
	result hal.Buffer // single u32 accumulator

	// Upload buffer for host-pixel targets, grown on demand.
	upload     hal.Buffer
	uploadSize uint64

	// Bind group for the currently bound source buffer.
	bindGroup hal.BindGroup
	boundSrc  hal.Buffer

	// Recorded dispatch waiting for RequestReadback to submit it.
	encoder hal.CommandEncoder

	inflight []*readback
}

var _ luminance.Device = (*Device)(nil)

// Open creates a HAL instance on opts.Backend, picks a discrete or
// integrated adapter when available and opens a device on it.
func Open(opts Options) (*Device, error) {
	backend, ok := hal.GetBackend(opts.Backend)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNoBackend, opts.Backend)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open device: %w", err)
	}

	slogger().Info("gpu: luminance device opened", "adapter", selected.Info.Name)
	return &Device{
		opts:     opts,
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
	}, nil
}

// NewShared wraps a device and queue owned by someone else. Release frees
// only the resources this Device created.
func NewShared(device hal.Device, queue hal.Queue, opts Options) *Device {
	return &Device{
		opts:     opts,
		device:   device,
		queue:    queue,
		external: true,
	}
}

// FromProvider shares the HAL device of a host application. The provider
// must implement HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue. When it is also a gpucontext.DeviceProvider its device token
// becomes Options.Host.
func FromProvider(provider any, opts Options) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	if dp, ok := provider.(gpucontext.DeviceProvider); ok && opts.Host == nil {
		opts.Host = dp.Device()
	}
	slogger().Info("gpu: using shared device for luminance")
	return NewShared(device, queue, opts), nil
}

// Name returns luminance.DeviceGPU.
func (d *Device) Name() string { return luminance.DeviceGPU }

// SetLogger sets the logger for this package.
// Called by the sampler on Init.
func (d *Device) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// Prepare builds the compute pipeline for p and allocates the parameter and
// accumulator buffers. Calling it again replaces the previous program.
func (d *Device) Prepare(p *kernel.Program) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Scale != kernel.ScaleFactor {
		return fmt.Errorf("%w: %s has %d, host %d", luminance.ErrScaleMismatch, p.Name, p.Scale, kernel.ScaleFactor)
	}
	if p.Workgroup != [2]uint32{kernel.WorkgroupSize, kernel.WorkgroupSize} {
		return fmt.Errorf("%w: %s has %v", ErrWorkgroupMismatch, p.Name, p.Workgroup)
	}
	if d.released {
		return ErrReleased
	}

	d.destroyPipeline()
	if err := d.createPipeline(p); err != nil {
		d.destroyPipeline()
		return err
	}
	d.program = p
	slogger().Debug("gpu: pipeline ready", "kernel", p.Name, "shader", d.opts.Shader)
	return nil
}

func (d *Device) shaderSource(p *kernel.Program) (hal.ShaderSource, error) {
	if d.opts.Shader == ShaderSPIRV {
		words, err := kernel.Compile(p)
		if err != nil {
			return hal.ShaderSource{}, err
		}
		return hal.ShaderSource{SPIRV: words}, nil
	}
	return hal.ShaderSource{WGSL: p.Source}, nil
}

func (d *Device) createPipeline(p *kernel.Program) error {
	src, err := d.shaderSource(p)
	if err != nil {
		return err
	}
	d.shader, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  p.Name,
		Source: src,
	})
	if err != nil {
		return fmt.Errorf("gpu: compile %s shader: %w", p.Name, err)
	}

	d.bindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: p.Name + "_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: p.Params, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: p.Input, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: p.Result, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group layout: %w", err)
	}

	d.pipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: p.Name + "_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{d.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("gpu: create pipeline layout: %w", err)
	}

	d.pipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: p.Name + "_pipeline", Layout: d.pipeLayout,
		Compute: hal.ComputeState{Module: d.shader, EntryPoint: p.EntryPoint},
	})
	if err != nil {
		return fmt.Errorf("gpu: create compute pipeline: %w", err)
	}

	d.params, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: p.Name + "_params", Size: kernel.ParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create params buffer: %w", err)
	}

	d.result, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: p.Name + "_result", Size: 4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create result buffer: %w", err)
	}
	return nil
}

func (d *Device) destroyPipeline() {
	if d.device == nil {
		return
	}
	if d.encoder != nil {
		d.encoder.DiscardEncoding()
		d.encoder = nil
	}
	if d.bindGroup != nil {
		d.device.DestroyBindGroup(d.bindGroup)
		d.bindGroup = nil
		d.boundSrc = nil
	}
	if d.upload != nil {
		d.device.DestroyBuffer(d.upload)
		d.upload = nil
		d.uploadSize = 0
	}
	if d.result != nil {
		d.device.DestroyBuffer(d.result)
		d.result = nil
	}
	if d.params != nil {
		d.device.DestroyBuffer(d.params)
		d.params = nil
	}
	if d.pipeline != nil {
		d.device.DestroyComputePipeline(d.pipeline)
		d.pipeline = nil
	}
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.bindLayout != nil {
		d.device.DestroyBindGroupLayout(d.bindLayout)
		d.bindLayout = nil
	}
	if d.shader != nil {
		d.device.DestroyShaderModule(d.shader)
		d.shader = nil
	}
	d.program = nil
}

func (d *Device) ready() error {
	if d.released {
		return ErrReleased
	}
	if d.program == nil {
		return luminance.ErrNotPrepared
	}
	return nil
}

// ResetAccumulator queues a zero write to the accumulator. Queue writes
// land before any later submission.
func (d *Device) ResetAccumulator() error {
	if err := d.ready(); err != nil {
		return err
	}
	if err := d.queue.WriteBuffer(d.result, 0, make([]byte, 4)); err != nil {
		return fmt.Errorf("gpu: reset accumulator: %w", err)
	}
	return nil
}

// Dispatch uploads the grid parameters and, for host-pixel targets, the
// pixels, then records the compute pass. The recorded work is submitted
// together with the readback copy by RequestReadback.
func (d *Device) Dispatch(target luminance.Target, g kernel.Grid) error {
	if err := d.ready(); err != nil {
		return err
	}
	if target == nil || !target.Valid() {
		return luminance.ErrInvalidTarget
	}
	if d.encoder != nil {
		d.encoder.DiscardEncoding()
		d.encoder = nil
	}

	src, srcSize, err := d.sourceBuffer(target, g)
	if err != nil {
		return err
	}
	if err := d.bindSource(src, srcSize); err != nil {
		return err
	}
	if err := d.queue.WriteBuffer(d.params, 0, g.Params()); err != nil {
		return fmt.Errorf("gpu: write params: %w", err)
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "luminance_encoder"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("luminance"); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "luminance_pass"})
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, d.bindGroup, nil)
	pass.Dispatch(g.X, g.Y, g.Z)
	pass.End()
	d.encoder = encoder

	slogger().Debug("gpu: dispatch recorded", "x", g.X, "y", g.Y, "pixels", g.PixelCount())
	return nil
}

// sourceBuffer returns the storage buffer holding target's pixels,
// uploading host pixels when needed.
func (d *Device) sourceBuffer(target luminance.Target, g kernel.Grid) (hal.Buffer, uint64, error) {
	need := uint64(g.Width) * uint64(g.Height) * 4 //nolint:gosec // dimensions validated by PlanGrid

	if bt, ok := target.(BufferTarget); ok {
		if bt.Buffer() == nil || bt.BufferSize() < need {
			return nil, 0, fmt.Errorf("%w: buffer holds %d bytes, grid reads %d",
				luminance.ErrUnsupportedTarget, bt.BufferSize(), need)
		}
		return bt.Buffer(), need, nil
	}
	pt, ok := target.(luminance.PixelTarget)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %T is neither a buffer nor a pixel target", luminance.ErrUnsupportedTarget, target)
	}
	packed, err := kernel.PackPixels(pt.Pixels(), pt.Stride(), g)
	if err != nil {
		return nil, 0, err
	}

	if d.upload == nil || d.uploadSize < need {
		if d.upload != nil {
			if d.boundSrc == d.upload {
				d.device.DestroyBindGroup(d.bindGroup)
				d.bindGroup = nil
				d.boundSrc = nil
			}
			d.device.DestroyBuffer(d.upload)
			d.upload = nil
		}
		buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "luminance_source", Size: need,
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("gpu: create source buffer: %w", err)
		}
		d.upload = buf
		d.uploadSize = need
		slogger().Debug("gpu: source buffer allocated", "bytes", need)
	}
	if err := d.queue.WriteBuffer(d.upload, 0, packed); err != nil {
		return nil, 0, fmt.Errorf("gpu: upload pixels: %w", err)
	}
	return d.upload, need, nil
}

// bindSource rebuilds the bind group when the source buffer changes.
func (d *Device) bindSource(src hal.Buffer, size uint64) error {
	if d.bindGroup != nil && d.boundSrc == src {
		return nil
	}
	if d.bindGroup != nil {
		d.device.DestroyBindGroup(d.bindGroup)
		d.bindGroup = nil
	}
	p := d.program
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: p.Name + "_bind_group", Layout: d.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: p.Params, Resource: gputypes.BufferBinding{Buffer: d.params.NativeHandle(), Offset: 0, Size: kernel.ParamsSize}},
			{Binding: p.Input, Resource: gputypes.BufferBinding{Buffer: src.NativeHandle(), Offset: 0, Size: size}},
			{Binding: p.Result, Resource: gputypes.BufferBinding{Buffer: d.result.NativeHandle(), Offset: 0, Size: 4}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group: %w", err)
	}
	d.bindGroup = bg
	d.boundSrc = src
	return nil
}

// RequestReadback appends a copy of the accumulator into a fresh staging
// buffer to the recorded dispatch, if any, and submits it. The readback
// completes once the queue reports the submission index done.
func (d *Device) RequestReadback() (luminance.Readback, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}

	encoder := d.encoder
	d.encoder = nil
	if encoder == nil {
		var err error
		encoder, err = d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "luminance_readback"})
		if err != nil {
			return nil, fmt.Errorf("gpu: create command encoder: %w", err)
		}
		if err := encoder.BeginEncoding("luminance_readback"); err != nil {
			return nil, fmt.Errorf("gpu: begin encoding: %w", err)
		}
	}

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "luminance_staging", Size: 4,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	encoder.CopyBufferToBuffer(d.result, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: 4},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		d.device.DestroyBuffer(staging)
		return nil, fmt.Errorf("gpu: end encoding: %w", err)
	}

	index, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		d.device.FreeCommandBuffer(cmdBuf)
		d.device.DestroyBuffer(staging)
		return nil, fmt.Errorf("gpu: submit: %w", err)
	}

	rb := &readback{dev: d, index: index, cmdBuf: cmdBuf, staging: staging}
	d.inflight = append(d.inflight, rb)
	return rb, nil
}

// forget drops rb from the in-flight list.
func (d *Device) forget(rb *readback) {
	for i, r := range d.inflight {
		if r == rb {
			d.inflight = append(d.inflight[:i], d.inflight[i+1:]...)
			return
		}
	}
}

// Release frees every resource the device created, waiting up to
// ReleaseTimeout for readbacks still in flight. A shared device and queue
// stay alive.
func (d *Device) Release() {
	if d.released {
		return
	}
	for len(d.inflight) > 0 {
		d.inflight[0].Release()
	}
	d.destroyPipeline()
	if !d.external {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
	d.released = true
}
