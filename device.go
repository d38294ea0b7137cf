package luminance

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/luminance/kernel"
)

// Registered device names.
const (
	DeviceGPU      = "gpu"
	DeviceSoftware = "software"
)

// ReadbackStatus is the completion state of a readback request.
type ReadbackStatus int

const (
	// ReadbackPending means the transfer has not completed yet.
	ReadbackPending ReadbackStatus = iota

	// ReadbackDone means Data holds the accumulator value.
	ReadbackDone

	// ReadbackFailed means the transfer failed; Err describes why.
	ReadbackFailed
)

// String returns the status name.
func (s ReadbackStatus) String() string {
	switch s {
	case ReadbackPending:
		return "pending"
	case ReadbackDone:
		return "done"
	case ReadbackFailed:
		return "failed"
	default:
		return fmt.Sprintf("ReadbackStatus(%d)", int(s))
	}
}

// Readback is an in-flight transfer of the accumulator to the host.
type Readback interface {
	// Poll reports the transfer state without blocking. Once it returns
	// ReadbackDone or ReadbackFailed it keeps returning that value.
	Poll() ReadbackStatus

	// Data returns the transferred bytes after ReadbackDone.
	Data() []byte

	// Err returns the transfer error after ReadbackFailed.
	Err() error

	// Release frees the staging resources. It is safe to call on a
	// readback that has not completed.
	Release()
}

// Device runs the reduction kernel and owns the result accumulator.
//
// Devices are driven from a single goroutine and are not safe for
// concurrent use.
type Device interface {
	// Name returns the registry name of the device.
	Name() string

	// Prepare binds the kernel program and allocates the accumulator.
	Prepare(p *kernel.Program) error

	// ResetAccumulator sets the accumulator to zero.
	ResetAccumulator() error

	// Dispatch runs the kernel over target with the planned grid,
	// adding into the accumulator.
	Dispatch(target Target, g kernel.Grid) error

	// RequestReadback starts a non-blocking copy of the accumulator to
	// the host. It is ordered after every earlier Dispatch.
	RequestReadback() (Readback, error)

	// Release frees the accumulator and all device resources.
	Release()
}

// DeviceFactory creates a device instance.
type DeviceFactory func() (Device, error)

var (
	registryMu sync.RWMutex
	devices    = make(map[string]DeviceFactory)
	// First successfully created device wins.
	devicePriority = []string{DeviceGPU, DeviceSoftware}
)

// RegisterDevice registers a device factory under name, replacing any
// existing registration. Typically called from init functions.
func RegisterDevice(name string, factory DeviceFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	devices[name] = factory
}

// UnregisterDevice removes a device from the registry.
func UnregisterDevice(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(devices, name)
}

// Devices returns the registered device names in sorted order.
func Devices() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a device with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := devices[name]
	return ok
}

// NewDevice creates the device registered under name.
func NewDevice(name string) (Device, error) {
	registryMu.RLock()
	factory, ok := devices[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
	}
	d, err := factory()
	if err != nil {
		return nil, fmt.Errorf("luminance: create device %q: %w", name, err)
	}
	return d, nil
}

// DefaultDevice creates the best available device.
// Priority order: gpu > software, then any other registered device.
func DefaultDevice() (Device, error) {
	tried := make(map[string]bool, len(devicePriority))
	for _, name := range devicePriority {
		tried[name] = true
		if !IsRegistered(name) {
			continue
		}
		d, err := NewDevice(name)
		if err != nil {
			Logger().Warn("luminance: device unavailable, trying next", "device", name, "err", err)
			continue
		}
		return d, nil
	}

	for _, name := range Devices() {
		if tried[name] {
			continue
		}
		if d, err := NewDevice(name); err == nil {
			return d, nil
		}
	}
	return nil, ErrNoDevice
}
