//go:build !nogpu

package gpu

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/luminance"
)

// releasePollInterval is the sleep between completion checks while Release
// waits for an incomplete submission.
const releasePollInterval = time.Millisecond

// hostPoller is implemented by host device types that need pumping for
// their submissions to progress.
type hostPoller interface {
	Poll(wait bool)
}

// readback is a submitted copy of the accumulator into a staging buffer.
// It implements luminance.Readback.
type readback struct {
	dev     *Device
	index   uint64 // queue submission index
	cmdBuf  hal.CommandBuffer
	staging hal.Buffer

	status   luminance.ReadbackStatus
	data     []byte
	err      error
	released bool
}

// Poll checks the submission without blocking and, once complete, maps the
// staging buffer and copies the accumulator out.
func (r *readback) Poll() luminance.ReadbackStatus {
	if r.status != luminance.ReadbackPending {
		return r.status
	}
	if r.released {
		r.fail(luminance.ErrReadbackReleased)
		return r.status
	}

	if p, ok := r.dev.opts.Host.(hostPoller); ok {
		p.Poll(false)
	}
	if !r.complete() {
		return luminance.ReadbackPending
	}

	data, err := r.read()
	if err != nil {
		r.fail(err)
		return r.status
	}
	r.data = data
	r.status = luminance.ReadbackDone
	return r.status
}

func (r *readback) complete() bool {
	return r.dev.queue.PollCompleted() >= r.index
}

func (r *readback) read() ([]byte, error) {
	device := r.dev.device
	mapping, err := device.MapBuffer(r.staging, 0, 4)
	if err != nil {
		return nil, fmt.Errorf("gpu: map staging buffer: %w", err)
	}
	data := make([]byte, 4)
	copy(data, unsafe.Slice((*byte)(mapping.Ptr), 4))
	if err := device.UnmapBuffer(r.staging); err != nil {
		return nil, fmt.Errorf("gpu: unmap staging buffer: %w", err)
	}
	return data, nil
}

func (r *readback) fail(err error) {
	r.err = err
	r.status = luminance.ReadbackFailed
	slogger().Debug("gpu: readback failed", "err", err)
}

// Data returns the accumulator bytes after ReadbackDone.
func (r *readback) Data() []byte { return r.data }

// Err returns the failure after ReadbackFailed.
func (r *readback) Err() error { return r.err }

// Release frees the command buffer and staging buffer. A readback still in
// flight is waited on for up to ReleaseTimeout first, since the GPU may
// still write the staging buffer.
func (r *readback) Release() {
	if r.released {
		return
	}
	r.released = true
	d := r.dev
	d.forget(r)
	if d.device == nil {
		return
	}

	if r.status == luminance.ReadbackPending && !r.awaitCompletion(d.opts.ReleaseTimeout) {
		slogger().Warn("gpu: readback still in flight at release", "submission", r.index)
	}
	d.device.FreeCommandBuffer(r.cmdBuf)
	d.device.DestroyBuffer(r.staging)
}

func (r *readback) awaitCompletion(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for !r.complete() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(releasePollInterval)
	}
	return true
}
