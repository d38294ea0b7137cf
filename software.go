package luminance

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/luminance/internal/parallel"
	"github.com/gogpu/luminance/kernel"
)

func init() {
	RegisterDevice(DeviceSoftware, func() (Device, error) {
		return NewSoftwareDevice(), nil
	})
}

// SoftwareOption configures a SoftwareDevice.
type SoftwareOption func(*SoftwareDevice)

// SoftwareLatency makes every readback report pending for n polls before
// completing, emulating a GPU transfer that spans several frames.
func SoftwareLatency(n int) SoftwareOption {
	return func(d *SoftwareDevice) {
		d.latency = max(n, 0)
	}
}

// SoftwareWorkers sets the number of reduction workers.
// Zero or negative uses GOMAXPROCS.
func SoftwareWorkers(n int) SoftwareOption {
	return func(d *SoftwareDevice) {
		d.workers = n
	}
}

// SoftwareDevice reduces PixelTargets on the CPU with the kernel's
// fixed-point arithmetic. Its results match the GPU kernel bit for bit as
// long as both compute the same per-pixel luminance in float32.
type SoftwareDevice struct {
	program *kernel.Program
	pool    *parallel.WorkerPool
	workers int
	latency int
	acc     uint32
}

// NewSoftwareDevice creates a CPU reduction device.
func NewSoftwareDevice(opts ...SoftwareOption) *SoftwareDevice {
	d := &SoftwareDevice{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns DeviceSoftware.
func (d *SoftwareDevice) Name() string { return DeviceSoftware }

// Prepare checks the program and starts the worker pool. The CPU path
// evaluates the built-in luminance formula, so only the program's scale
// is consulted.
func (d *SoftwareDevice) Prepare(p *kernel.Program) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Scale != kernel.ScaleFactor {
		return fmt.Errorf("%w: %s has %d, host %d", ErrScaleMismatch, p.Name, p.Scale, kernel.ScaleFactor)
	}
	d.program = p
	if d.pool == nil {
		d.pool = parallel.NewWorkerPool(d.workers)
	}
	d.acc = 0
	return nil
}

// ResetAccumulator sets the accumulator to zero.
func (d *SoftwareDevice) ResetAccumulator() error {
	if d.program == nil {
		return ErrNotPrepared
	}
	d.acc = 0
	return nil
}

// Dispatch reduces target into the accumulator. The sum wraps on overflow
// like the kernel's atomicAdd.
func (d *SoftwareDevice) Dispatch(target Target, g kernel.Grid) error {
	if d.program == nil {
		return ErrNotPrepared
	}
	if target == nil || !target.Valid() {
		return ErrInvalidTarget
	}
	pt, ok := target.(PixelTarget)
	if !ok {
		return fmt.Errorf("%w: %T has no host pixels", ErrUnsupportedTarget, target)
	}
	sum, err := kernel.Reduce(d.pool, pt.Pixels(), pt.Stride(), g)
	if err != nil {
		return err
	}
	d.acc += sum
	return nil
}

// RequestReadback snapshots the accumulator. The snapshot becomes
// visible after the configured latency.
func (d *SoftwareDevice) RequestReadback() (Readback, error) {
	if d.program == nil {
		return nil, ErrNotPrepared
	}
	rb := &softwareReadback{remaining: d.latency, data: make([]byte, 4)}
	binary.LittleEndian.PutUint32(rb.data, d.acc)
	return rb, nil
}

// Release stops the worker pool.
func (d *SoftwareDevice) Release() {
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
	d.program = nil
}

type softwareReadback struct {
	remaining int
	data      []byte
	done      bool
	released  bool
}

func (r *softwareReadback) Poll() ReadbackStatus {
	if r.released {
		return ReadbackFailed
	}
	if r.remaining > 0 {
		r.remaining--
		return ReadbackPending
	}
	r.done = true
	return ReadbackDone
}

func (r *softwareReadback) Data() []byte {
	if !r.done || r.released {
		return nil
	}
	return r.data
}

func (r *softwareReadback) Err() error {
	if r.released {
		return ErrReadbackReleased
	}
	return nil
}

func (r *softwareReadback) Release() {
	r.released = true
}
