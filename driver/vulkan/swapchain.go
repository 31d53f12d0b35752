// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vulkan

import (
	"fmt"

	"cogentcore.org/vhal/driver"
	vk "github.com/goki/vulkan"
)

// Swapchain is a native swapchain and the images it owns.
type Swapchain struct {
	Swapchain vk.Swapchain
	Images    []*Image
	Desc      driver.SwapchainDesc
}

func (dv *Device) SurfaceCapabilities(s driver.Surface) (driver.SurfaceCapabilities, error) {
	surface, ok := s.(vk.Surface)
	if !ok {
		return driver.SurfaceCapabilities{}, fmt.Errorf("vulkan: unsupported surface type %T", s)
	}
	gpu := dv.Instance.GPU
	var caps vk.SurfaceCapabilities
	if err := NewError(vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &caps)); err != nil {
		return driver.SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	sc := driver.SurfaceCapabilities{
		MinImageCount: caps.MinImageCount,
		MaxImageCount: caps.MaxImageCount,
		CurrentExtent: driver.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinExtent:     driver.Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxExtent:     driver.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
	}

	var n uint32
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &n, nil)
	formats := make([]vk.SurfaceFormat, n)
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &n, formats)
	for _, f := range formats {
		f.Deref()
		df := FormatFromNative(f.Format)
		if df == driver.FormatUndefined {
			continue
		}
		cs := driver.ColorSpaceOther
		if f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			cs = driver.ColorSpaceSrgbNonlinear
		}
		sc.Formats = append(sc.Formats, driver.SurfaceFormat{Format: df, ColorSpace: cs})
	}

	vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &n, nil)
	modes := make([]vk.PresentMode, n)
	vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &n, modes)
	for _, m := range modes {
		for dm, vm := range presentModes {
			if vm == m {
				sc.PresentModes = append(sc.PresentModes, dm)
			}
		}
	}
	return sc, nil
}

func (dv *Device) CreateSwapchain(desc driver.SwapchainDesc) (driver.Swapchain, []driver.Image, error) {
	surface := desc.Surface.(vk.Surface)
	var caps vk.SurfaceCapabilities
	if err := NewError(vk.GetPhysicalDeviceSurfaceCapabilities(dv.Instance.GPU, surface, &caps)); err != nil {
		return nil, nil, err
	}
	caps.Deref()

	preTransform := caps.CurrentTransform
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}
	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, a := range []vk.CompositeAlphaFlagBits{vk.CompositeAlphaOpaqueBit, vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit, vk.CompositeAlphaInheritBit} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(a) != 0 {
			compositeAlpha = a
			break
		}
	}

	old := vk.NullSwapchain
	if desc.Old != nil {
		old = desc.Old.(*Swapchain).Swapchain
	}
	colorSpace := vk.ColorSpaceSrgbNonlinear
	sc := &Swapchain{Desc: desc}
	ret := vk.CreateSwapchain(dv.Device, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    desc.MinImageCount,
		ImageFormat:      Formats[desc.Format.Format],
		ImageColorSpace:  colorSpace,
		ImageExtent:      extent2D(desc.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      presentModes[desc.PresentMode],
		Clipped:          vk.True,
		OldSwapchain:     old,
	}, nil, &sc.Swapchain)
	if err := NewError(ret); err != nil {
		return nil, nil, err
	}

	var n uint32
	if err := NewError(vk.GetSwapchainImages(dv.Device, sc.Swapchain, &n, nil)); err != nil {
		vk.DestroySwapchain(dv.Device, sc.Swapchain, nil)
		return nil, nil, err
	}
	vimgs := make([]vk.Image, n)
	vk.GetSwapchainImages(dv.Device, sc.Swapchain, &n, vimgs)
	imgs := make([]driver.Image, n)
	for i, vi := range vimgs {
		im := &Image{Image: vi, swapchain: true, Desc: driver.ImageDesc{
			Type:      driver.ImageColorAttachment,
			Extent:    driver.Extent3D{Width: desc.Extent.Width, Height: desc.Extent.Height, Depth: 1},
			Format:    desc.Format.Format,
			MipLevels: 1,
			Samples:   1,
		}}
		sc.Images = append(sc.Images, im)
		imgs[i] = im
	}
	return sc, imgs, nil
}

func (dv *Device) DestroySwapchain(s driver.Swapchain) {
	sc := s.(*Swapchain)
	if sc.Swapchain == vk.NullSwapchain {
		return
	}
	vk.DestroySwapchain(dv.Device, sc.Swapchain, nil)
	sc.Swapchain = vk.NullSwapchain
	sc.Images = nil
}

func (dv *Device) AcquireNextImage(s driver.Swapchain, timeout uint64, signal driver.Semaphore) (uint32, driver.Result) {
	var idx uint32
	ret := vk.AcquireNextImage(dv.Device, s.(*Swapchain).Swapchain, timeout, signal.(vk.Semaphore), vk.NullFence, &idx)
	return idx, toResult(ret)
}
