package luminance

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gogpu/luminance/kernel"
)

// State is the position of a Sampler in its measurement cycle.
type State int

const (
	// StateTargetPending is idle with no target held yet.
	StateTargetPending State = iota

	// StateIdle holds a target and has no readback outstanding.
	StateIdle

	// StateInFlight has a readback outstanding.
	StateInFlight
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateTargetPending:
		return "TargetPending"
	case StateIdle:
		return "Idle"
	case StateInFlight:
		return "InFlight"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsIdle reports whether no readback is outstanding.
func (s State) IsIdle() bool { return s != StateInFlight }

// Outcome is the result of one PollMeasurement call.
type Outcome int

const (
	// OutcomeNone means no readback was outstanding.
	OutcomeNone Outcome = iota

	// OutcomePending means the readback has not completed.
	OutcomePending

	// OutcomeUpdated means a new measurement was published.
	OutcomeUpdated

	// OutcomeTransferError means the readback failed and was discarded.
	OutcomeTransferError

	// OutcomeTargetInvalid means the target disappeared while the readback
	// was in flight and the result was discarded.
	OutcomeTargetInvalid

	// OutcomeFault means finalize failed unexpectedly and the result was
	// discarded.
	OutcomeFault
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "None"
	case OutcomePending:
		return "Pending"
	case OutcomeUpdated:
		return "Updated"
	case OutcomeTransferError:
		return "TransferError"
	case OutcomeTargetInvalid:
		return "TargetInvalid"
	case OutcomeFault:
		return "Fault"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Retired reports whether the outcome ended a measurement cycle.
func (o Outcome) Retired() bool {
	return o >= OutcomeUpdated
}

// Sampler measures the average luminance of a render target once per tick
// without blocking on the device.
//
// Init, Close, Tick and the other cycle methods must be called from a single
// goroutine. Luminance and Stats may be called from any goroutine.
type Sampler struct {
	source TargetSource
	opts   options

	device     Device
	ownsDevice bool
	program    *kernel.Program

	target  Target
	pending Readback
	grid    kernel.Grid

	ticks    uint64
	issuedAt uint64

	initialized bool
	closed      bool

	// measurement holds the float32 bits of the published value.
	measurement atomic.Uint32

	statsMu sync.Mutex
	stats   Stats
}

// New creates a sampler that reads targets from source.
// Call Init before the first Tick.
func New(source TargetSource, opts ...Option) *Sampler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Sampler{source: source, opts: o}
}

// log returns the sampler logger, falling back to the package logger.
func (s *Sampler) log() *slog.Logger {
	if s.opts.logger != nil {
		return s.opts.logger
	}
	return Logger()
}

// Init looks up the kernel program, creates or adopts the device and lets
// it allocate and bind the accumulator. It must be called once.
func (s *Sampler) Init() error {
	if s.closed {
		return ErrClosed
	}
	if s.initialized {
		return ErrAlreadyInitialized
	}
	if s.opts.downsample < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidDownsample, s.opts.downsample)
	}

	program, err := kernel.Lookup(s.opts.kernelName)
	if err != nil {
		return fmt.Errorf("luminance: init: %w", err)
	}

	device, owned := s.opts.device, false
	if device == nil {
		if s.opts.deviceName != "" {
			device, err = NewDevice(s.opts.deviceName)
		} else {
			device, err = DefaultDevice()
		}
		if err != nil {
			return fmt.Errorf("luminance: init: %w", err)
		}
		owned = true
	}

	propagateLogger(device, s.log())
	if err := device.Prepare(program); err != nil {
		if owned {
			device.Release()
		}
		return fmt.Errorf("luminance: prepare %s on %s: %w", program.Name, device.Name(), err)
	}

	s.device = device
	s.ownsDevice = owned
	s.program = program
	s.initialized = true

	s.log().Info("luminance: sampler initialized",
		"device", device.Name(),
		"kernel", program.Name,
		"downsample", s.opts.downsample)
	return nil
}

// Close releases the outstanding readback, if any, and the device when the
// sampler created it. The target reference is dropped. Close is idempotent.
func (s *Sampler) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.pending != nil {
		s.releasePending()
	}
	if s.device != nil && s.ownsDevice {
		s.device.Release()
	}
	s.device = nil
	s.target = nil
}

// Tick advances the sampler by one frame: it polls the outstanding
// readback if there is one and otherwise begins a new measurement.
// Tick before Init or after Close does nothing.
func (s *Sampler) Tick() {
	if !s.ready() {
		return
	}
	s.ticks++
	if s.pending != nil {
		s.PollMeasurement()
		return
	}
	s.BeginMeasurement()
}

func (s *Sampler) ready() bool {
	return s.initialized && !s.closed
}

// State returns the current cycle state.
func (s *Sampler) State() State {
	switch {
	case s.pending != nil:
		return StateInFlight
	case s.target == nil:
		return StateTargetPending
	default:
		return StateIdle
	}
}

// Luminance returns the most recently published measurement in [0, 1].
// It is 0 until the first measurement completes.
func (s *Sampler) Luminance() float32 {
	return math.Float32frombits(s.measurement.Load())
}

// Stats returns a snapshot of the sampler counters.
func (s *Sampler) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

func (s *Sampler) count(fn func(*Stats)) {
	s.statsMu.Lock()
	fn(&s.stats)
	s.statsMu.Unlock()
}

// Target returns the held target, or nil.
func (s *Sampler) Target() Target {
	return s.target
}

// AcquireTarget takes a reference to the source's current target if none is
// held. It does nothing when the source has no valid target yet.
func (s *Sampler) AcquireTarget() {
	if s.target != nil || s.source == nil {
		return
	}
	t := s.source.CurrentTarget()
	if t == nil || !t.Valid() {
		return
	}
	s.target = t
	s.count(func(st *Stats) { st.Acquisitions++ })
	s.log().Debug("luminance: target acquired", "width", t.Width(), "height", t.Height())
}

// ReleaseTarget drops the held target reference. Use it when the upstream
// pipeline tears the target down; a readback in flight is then discarded
// at finalize and a new target is acquired on a later tick.
func (s *Sampler) ReleaseTarget() {
	s.target = nil
}

// BeginMeasurement starts a measurement cycle and reports whether a
// readback was issued. It resets the accumulator, acquires a target if none
// is held (returning without dispatch), dispatches the kernel over the
// downsampled grid and requests the readback.
//
// It returns false without side effects while a readback is outstanding.
func (s *Sampler) BeginMeasurement() bool {
	if !s.ready() || s.pending != nil {
		return false
	}

	if err := s.device.ResetAccumulator(); err != nil {
		s.deviceError("reset accumulator", err)
		return false
	}

	if s.target != nil && !s.target.Valid() {
		s.log().Debug("luminance: dropping invalid target")
		s.target = nil
	}
	if s.target == nil {
		s.AcquireTarget()
		return false
	}

	g, err := kernel.PlanGrid(s.target.Width(), s.target.Height(), s.opts.downsample)
	if err != nil {
		s.log().Debug("luminance: target cannot be sampled", "err", err)
		return false
	}

	if err := s.device.Dispatch(s.target, g); err != nil {
		s.deviceError("dispatch", err)
		return false
	}
	rb, err := s.device.RequestReadback()
	if err != nil {
		s.deviceError("request readback", err)
		return false
	}

	s.pending = rb
	s.grid = g
	s.issuedAt = s.ticks
	s.count(func(st *Stats) { st.Dispatches++ })
	s.log().Debug("luminance: dispatched",
		"workgroups_x", g.X, "workgroups_y", g.Y, "pixels", g.PixelCount())
	return true
}

// PollMeasurement checks the outstanding readback without blocking and
// finalizes it when complete. Every outcome other than OutcomeNone and
// OutcomePending returns the sampler to idle. A panic raised by the readback
// or by finalize is reported as OutcomeFault.
func (s *Sampler) PollMeasurement() (outcome Outcome) {
	if s.pending == nil {
		return OutcomeNone
	}
	defer func() {
		if r := recover(); r != nil {
			s.fault("poll", fmt.Errorf("panic: %v", r))
			outcome = OutcomeFault
		}
		if outcome.Retired() {
			s.retire()
		}
	}()

	switch status := s.pending.Poll(); status {
	case ReadbackPending:
		return OutcomePending
	case ReadbackFailed:
		err := s.pending.Err()
		s.count(func(st *Stats) { st.TransferErrors++ })
		s.log().Warn("luminance: readback failed, measurement discarded", "err", err)
		return OutcomeTransferError
	case ReadbackDone:
		return s.finalize()
	default:
		s.fault("poll", fmt.Errorf("unknown readback status %v", status))
		return OutcomeFault
	}
}

// finalize converts the completed readback into a published measurement.
func (s *Sampler) finalize() Outcome {
	if s.target == nil || !s.target.Valid() {
		s.target = nil
		s.count(func(st *Stats) { st.InvalidTargets++ })
		s.log().Warn("luminance: target gone before readback completed, measurement discarded")
		return OutcomeTargetInvalid
	}

	result, err := decodeResult(s.pending.Data())
	if err != nil {
		s.fault("finalize", err)
		return OutcomeFault
	}
	value, err := Measure(result, s.grid.PixelCount())
	if err != nil {
		s.fault("finalize", err)
		return OutcomeFault
	}

	s.measurement.Store(math.Float32bits(value))
	s.count(func(st *Stats) { st.Completed++ })
	s.log().Debug("luminance: measurement published",
		"result", result, "pixels", s.grid.PixelCount(), "luminance", value)
	return OutcomeUpdated
}

// retire releases the outstanding readback and returns to idle.
func (s *Sampler) retire() {
	s.releasePending()
	latency := s.ticks - s.issuedAt
	s.count(func(st *Stats) { st.LastLatency = latency })
}

// releasePending drops the outstanding readback even if its Release panics.
func (s *Sampler) releasePending() {
	rb := s.pending
	s.pending = nil
	defer func() {
		if r := recover(); r != nil {
			s.deviceError("release readback", fmt.Errorf("panic: %v", r))
		}
	}()
	rb.Release()
}

// deviceError records a device failure outside a dispatched cycle.
func (s *Sampler) deviceError(op string, err error) {
	s.count(func(st *Stats) { st.DeviceErrors++ })
	s.log().Warn("luminance: "+op+" failed", "err", err)
}

func (s *Sampler) fault(op string, err error) {
	s.count(func(st *Stats) { st.Faults++ })
	s.log().Warn("luminance: "+op+" failed", "err", err)
}
