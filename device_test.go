package luminance

import (
	"errors"
	"slices"
	"testing"
)

func TestSoftwareDeviceRegistered(t *testing.T) {
	if !IsRegistered(DeviceSoftware) {
		t.Fatal("software device not registered")
	}
	if !slices.Contains(Devices(), DeviceSoftware) {
		t.Errorf("Devices() = %v, missing %q", Devices(), DeviceSoftware)
	}
	d, err := NewDevice(DeviceSoftware)
	if err != nil {
		t.Fatalf("NewDevice(software) failed: %v", err)
	}
	defer d.Release()
	if d.Name() != DeviceSoftware {
		t.Errorf("Name() = %q, want %q", d.Name(), DeviceSoftware)
	}
}

func TestNewDeviceUnknown(t *testing.T) {
	if _, err := NewDevice("no-such-device"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("NewDevice(unknown) error = %v, want ErrUnknownDevice", err)
	}
}

func TestNewDeviceFactoryError(t *testing.T) {
	RegisterDevice("broken", func() (Device, error) { return nil, errTransfer })
	t.Cleanup(func() { UnregisterDevice("broken") })

	if _, err := NewDevice("broken"); !errors.Is(err, errTransfer) {
		t.Errorf("NewDevice(broken) error = %v, want wrapped factory error", err)
	}
}

func TestDefaultDevicePriority(t *testing.T) {
	gpu := newMockDevice()
	orig, hadGPU := lookupFactory(DeviceGPU)
	t.Cleanup(func() {
		if hadGPU {
			RegisterDevice(DeviceGPU, orig)
		} else {
			UnregisterDevice(DeviceGPU)
		}
	})

	RegisterDevice(DeviceGPU, func() (Device, error) { return gpu, nil })
	d, err := DefaultDevice()
	if err != nil {
		t.Fatalf("DefaultDevice failed: %v", err)
	}
	if d != gpu {
		t.Errorf("DefaultDevice() = %v, want the gpu device", d.Name())
	}

	// A failing gpu factory falls back to software.
	RegisterDevice(DeviceGPU, func() (Device, error) { return nil, errTransfer })
	d, err = DefaultDevice()
	if err != nil {
		t.Fatalf("DefaultDevice failed: %v", err)
	}
	defer d.Release()
	if d.Name() != DeviceSoftware {
		t.Errorf("DefaultDevice() = %q, want software fallback", d.Name())
	}
}

func TestDefaultDeviceNone(t *testing.T) {
	saved := snapshotRegistry()
	t.Cleanup(func() { restoreRegistry(saved) })
	restoreRegistry(map[string]DeviceFactory{})

	if _, err := DefaultDevice(); !errors.Is(err, ErrNoDevice) {
		t.Errorf("DefaultDevice() error = %v, want ErrNoDevice", err)
	}

	other := newMockDevice()
	RegisterDevice("custom", func() (Device, error) { return other, nil })
	d, err := DefaultDevice()
	if err != nil || d != other {
		t.Errorf("DefaultDevice() = %v, %v, want the only registered device", d, err)
	}
}

func lookupFactory(name string) (DeviceFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := devices[name]
	return f, ok
}

func snapshotRegistry() map[string]DeviceFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make(map[string]DeviceFactory, len(devices))
	for k, v := range devices {
		out[k] = v
	}
	return out
}

func restoreRegistry(m map[string]DeviceFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	devices = make(map[string]DeviceFactory, len(m))
	for k, v := range m {
		devices[k] = v
	}
}
