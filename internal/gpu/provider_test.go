//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

type mockQueue struct{}
type mockAdapter struct{}

// mockProvider implements gpucontext.DeviceProvider and exposes HAL types.
type mockProvider struct {
	host     *mockHostDevice
	halDev   any
	halQueue any
}

func (m *mockProvider) Device() gpucontext.Device   { return m.host }
func (m *mockProvider) Queue() gpucontext.Queue     { return &mockQueue{} }
func (m *mockProvider) Adapter() gpucontext.Adapter { return &mockAdapter{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}
func (m *mockProvider) AdapterInfo() gpucontext.AdapterInfo { return gpucontext.AdapterInfo{} }
func (m *mockProvider) HalDevice() any                      { return m.halDev }
func (m *mockProvider) HalQueue() any                       { return m.halQueue }

func TestFromProvider(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	host := &mockHostDevice{}
	d, err := FromProvider(&mockProvider{host: host, halDev: device, halQueue: queue}, DefaultOptions())
	if err != nil {
		t.Fatalf("FromProvider failed: %v", err)
	}
	if !d.external {
		t.Error("shared device not marked external")
	}
	if d.opts.Host != gpucontext.Device(host) {
		t.Error("provider device not used as host")
	}

	// Releasing a shared device leaves the provider's device usable.
	d.Release()
	if _, err := device.CreateFence(); err != nil {
		t.Errorf("shared device unusable after Release: %v", err)
	}
}

func TestFromProviderErrors(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	tests := []struct {
		name     string
		provider any
	}{
		{"no HAL methods", struct{}{}},
		{"wrong device type", &mockProvider{host: &mockHostDevice{}, halDev: "device", halQueue: queue}},
		{"wrong queue type", &mockProvider{host: &mockHostDevice{}, halDev: device, halQueue: 42}},
		{"nil device", &mockProvider{host: &mockHostDevice{}, halDev: hal.Device(nil), halQueue: queue}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromProvider(tt.provider, DefaultOptions()); !errors.Is(err, ErrNoHAL) {
				t.Errorf("FromProvider error = %v, want ErrNoHAL", err)
			}
		})
	}
}
