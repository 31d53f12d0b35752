// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vulkan

import (
	"errors"

	"cogentcore.org/vhal/driver"
	vk "github.com/goki/vulkan"
)

// Device is a logical Vulkan device with one queue that supports both
// graphics and presentation to a given surface. It implements
// [driver.Device].
type Device struct {

	// Instance the device was created on.
	Instance *Instance

	// Device is the native logical device.
	Device vk.Device

	family uint32
	queue  *Queue

	// render passes and framebuffers standing in for dynamic rendering
	passes       map[passKey]vk.RenderPass
	framebuffers map[framebufferKey]vk.Framebuffer
}

var _ driver.Device = (*Device)(nil)

// SwapchainExtension is the device extension needed for presentation.
const SwapchainExtension = "VK_KHR_swapchain"

// NewDevice creates a logical device on the instance's GPU, with a
// queue family that can render and present to the given surface.
func NewDevice(in *Instance, surface vk.Surface) (*Device, error) {
	dv := &Device{Instance: in, passes: map[passKey]vk.RenderPass{}, framebuffers: map[framebufferKey]vk.Framebuffer{}}
	if err := dv.findQueue(surface); err != nil {
		return nil, err
	}
	exts := safeStrings([]string{SwapchainExtension})
	var layers []string
	if in.Debug {
		layers = safeStrings([]string{ValidationLayer})
	}
	var device vk.Device
	ret := vk.CreateDevice(in.GPU, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: dv.family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}},
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: vk.True,
		}},
	}, nil, &device)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	dv.Device = device
	var queue vk.Queue
	vk.GetDeviceQueue(device, dv.family, 0, &queue)
	dv.queue = &Queue{dev: dv, Queue: queue}
	return dv, nil
}

// findQueue finds a graphics queue family that can present to the surface.
func (dv *Device) findQueue(surface vk.Surface) error {
	gpu := dv.Instance.GPU
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	if count == 0 {
		return errors.New("vulkan: no queue families found on the GPU")
	}
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)
	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		if props[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		if surface != vk.NullSurface {
			var present vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(gpu, i, surface, &present)
			if !present.B() {
				continue
			}
		}
		dv.family = i
		return nil
	}
	return errors.New("vulkan: no queue family with graphics and present capabilities")
}

func (dv *Device) Queue() driver.Queue {
	return dv.queue
}

func (dv *Device) QueueFamily() uint32 {
	return dv.family
}

func (dv *Device) MaxSampleCount() driver.SampleCount {
	lim := dv.Instance.Limits
	counts := lim.FramebufferColorSampleCounts & lim.FramebufferDepthSampleCounts
	for _, n := range []driver.SampleCount{64, 32, 16, 8, 4, 2} {
		if counts&vk.SampleCountFlags(n) != 0 {
			return n
		}
	}
	return 1
}

func (dv *Device) FindDepthFormat() (driver.Format, error) {
	for _, f := range []driver.Format{driver.FormatD32Sfloat, driver.FormatD32SfloatS8Uint, driver.FormatD24UnormS8Uint} {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(dv.Instance.GPU, Formats[f], &props)
		props.Deref()
		if props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit) != 0 {
			return f, nil
		}
	}
	return driver.FormatUndefined, errors.New("vulkan: no supported depth format")
}

func (dv *Device) WaitIdle() error {
	return NewError(vk.DeviceWaitIdle(dv.Device))
}

// Destroy waits for the device to go idle and destroys it, along with
// the cached render passes and framebuffers.
func (dv *Device) Destroy() {
	if dv.Device == nil {
		return
	}
	vk.DeviceWaitIdle(dv.Device)
	for k, fb := range dv.framebuffers {
		vk.DestroyFramebuffer(dv.Device, fb, nil)
		delete(dv.framebuffers, k)
	}
	for k, rp := range dv.passes {
		vk.DestroyRenderPass(dv.Device, rp, nil)
		delete(dv.passes, k)
	}
	vk.DestroyDevice(dv.Device, nil)
	dv.Device = nil
}
