// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/dssim"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// gpuContext owns the HAL instance, device and queue for one executor.
type gpuContext struct {
	instance    hal.Instance
	device      hal.Device
	queue       hal.Queue
	adapterName string
}

// initGPU creates a standalone compute-only device: backend lookup,
// instance creation, adapter enumeration preferring discrete then
// integrated GPUs, and device open with default limits.
func initGPU() (*gpuContext, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", dssim.ErrGPUInit)
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %v", dssim.ErrGPUInit, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no GPU adapters found", dssim.ErrGPUInit)
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		for i := range adapters {
			if adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
				selected = &adapters[i]
				break
			}
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %v", dssim.ErrGPUInit, err)
	}

	dssim.Logger().Info("GPU initialized", "adapter", selected.Info.Name)

	return &gpuContext{
		instance:    instance,
		device:      openDev.Device,
		queue:       openDev.Queue,
		adapterName: selected.Info.Name,
	}, nil
}

// destroy releases the device and instance. Safe to call more than once.
func (c *gpuContext) destroy() {
	if c.device != nil {
		c.device.Destroy()
		c.device = nil
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
	c.queue = nil
}
