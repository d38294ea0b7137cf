//go:build !nogpu

package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/luminance"
	gpuimpl "github.com/gogpu/luminance/internal/gpu"
)

func TestDeviceRegistered(t *testing.T) {
	if !luminance.IsRegistered(luminance.DeviceGPU) {
		t.Fatal("gpu device not registered")
	}
}

func TestSetDeviceProviderWithoutHAL(t *testing.T) {
	t.Cleanup(func() { SetDeviceProvider(nil) })

	SetDeviceProvider(struct{}{})
	if _, err := luminance.NewDevice(luminance.DeviceGPU); !errors.Is(err, gpuimpl.ErrNoHAL) {
		t.Errorf("NewDevice with HAL-less provider = %v, want ErrNoHAL", err)
	}
}

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { Configure(DefaultOptions()) })

	o := DefaultOptions()
	o.Shader = ShaderSPIRV
	Configure(o)

	mu.Lock()
	got := opts.Shader
	mu.Unlock()
	if got != ShaderSPIRV {
		t.Errorf("configured shader = %v, want spirv", got)
	}
}
