// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vulkan

import (
	"errors"
	"log/slog"
	"strings"

	vk "github.com/goki/vulkan"
)

// ValidationLayer is enabled on instances and devices created in debug mode.
const ValidationLayer = "VK_LAYER_KHRONOS_validation"

// Instance is a Vulkan instance plus the physical device selected on it.
type Instance struct {

	// Instance is the native instance.
	Instance vk.Instance

	// GPU is the selected physical device, preferring a discrete GPU.
	GPU vk.PhysicalDevice

	// Name is the device name reported by the driver.
	Name string

	// Limits from the physical device properties.
	Limits vk.PhysicalDeviceLimits

	// MemoryProps are the memory types and heaps of the GPU.
	MemoryProps vk.PhysicalDeviceMemoryProperties

	// Debug enables the validation layer.
	Debug bool
}

// safeStrings returns null-terminated copies of the names.
func safeStrings(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		if !strings.HasSuffix(n, "\x00") {
			n += "\x00"
		}
		out[i] = n
	}
	return out
}

// NewInstance creates an instance enabling the given extensions, which
// must include those the window system requires for presentation, and
// selects a physical device.
func NewInstance(appName string, exts []string, debug bool) (*Instance, error) {
	in := &Instance{Debug: debug}
	var layers []string
	if debug {
		layers = safeStrings([]string{ValidationLayer})
	}
	exts = safeStrings(exts)
	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   appName + "\x00",
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        "vhal\x00",
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			ApiVersion:         vk.MakeVersion(1, 2, 0),
		},
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &instance)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	in.Instance = instance
	vk.InitInstance(instance)
	if err := in.selectGPU(); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}
	return in, nil
}

func (in *Instance) selectGPU() error {
	var count uint32
	if err := NewError(vk.EnumeratePhysicalDevices(in.Instance, &count, nil)); err != nil {
		return err
	}
	if count == 0 {
		return errors.New("vulkan: no GPU with Vulkan support found")
	}
	gpus := make([]vk.PhysicalDevice, count)
	if err := NewError(vk.EnumeratePhysicalDevices(in.Instance, &count, gpus)); err != nil {
		return err
	}
	best := -1
	for i, gp := range gpus {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gp, &props)
		props.Deref()
		if best < 0 || props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			best = i
			in.Name = vk.ToString(props.DeviceName[:])
			props.Limits.Deref()
			in.Limits = props.Limits
		}
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			break
		}
	}
	in.GPU = gpus[best]
	vk.GetPhysicalDeviceMemoryProperties(in.GPU, &in.MemoryProps)
	in.MemoryProps.Deref()
	slog.Info("vulkan: selected GPU", "name", in.Name, "count", count)
	return nil
}

// findMemoryType returns the index of a memory type allowed by typeBits
// that has all of the given properties.
func (in *Instance) findMemoryType(typeBits uint32, props vk.MemoryPropertyFlagBits) (uint32, error) {
	want := vk.MemoryPropertyFlags(props)
	for i := uint32(0); i < in.MemoryProps.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		mt := in.MemoryProps.MemoryTypes[i]
		mt.Deref()
		if mt.PropertyFlags&want == want {
			return i, nil
		}
	}
	return 0, errors.New("vulkan: no suitable memory type")
}

// DestroySurface destroys a window surface created on this instance.
func (in *Instance) DestroySurface(s vk.Surface) {
	vk.DestroySurface(in.Instance, s, nil)
}

// Destroy destroys the instance.
func (in *Instance) Destroy() {
	if in.Instance == nil {
		return
	}
	vk.DestroyInstance(in.Instance, nil)
	in.Instance = nil
}
