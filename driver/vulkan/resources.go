// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vulkan

import (
	"fmt"
	"unsafe"

	"cogentcore.org/vhal/driver"
	vk "github.com/goki/vulkan"
)

// Buffer is a buffer with its own memory allocation. Host-visible
// buffers stay mapped for their lifetime.
type Buffer struct {
	Buffer vk.Buffer
	Memory vk.DeviceMemory
	Desc   driver.BufferDesc
	mapped unsafe.Pointer
}

var bufferUsages = [...]vk.BufferUsageFlagBits{
	driver.BufferStaging: vk.BufferUsageTransferSrcBit,
	driver.BufferVertex:  vk.BufferUsageVertexBufferBit | vk.BufferUsageTransferDstBit,
	driver.BufferIndex:   vk.BufferUsageIndexBufferBit | vk.BufferUsageTransferDstBit,
	driver.BufferUniform: vk.BufferUsageUniformBufferBit,
}

func (dv *Device) CreateBuffer(desc driver.BufferDesc) (driver.Buffer, error) {
	if desc.Size <= 0 {
		return nil, fmt.Errorf("vulkan: invalid buffer size %d", desc.Size)
	}
	b := &Buffer{Desc: desc}
	ret := vk.CreateBuffer(dv.Device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Usage:       vk.BufferUsageFlags(bufferUsages[desc.Usage]),
		Size:        vk.DeviceSize(desc.Size),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &b.Buffer)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dv.Device, b.Buffer, &reqs)
	reqs.Deref()
	props := vk.MemoryPropertyDeviceLocalBit
	if desc.Usage.HostVisible() {
		props = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}
	mem, err := dv.allocate(reqs, props)
	if err != nil {
		vk.DestroyBuffer(dv.Device, b.Buffer, nil)
		return nil, err
	}
	b.Memory = mem
	if err := NewError(vk.BindBufferMemory(dv.Device, b.Buffer, mem, 0)); err != nil {
		dv.DestroyBuffer(b)
		return nil, err
	}
	if desc.Usage.HostVisible() {
		if err := NewError(vk.MapMemory(dv.Device, mem, 0, vk.DeviceSize(desc.Size), 0, &b.mapped)); err != nil {
			dv.DestroyBuffer(b)
			return nil, err
		}
	}
	return b, nil
}

func (dv *Device) allocate(reqs vk.MemoryRequirements, props vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	typ, err := dv.Instance.findMemoryType(reqs.MemoryTypeBits, props)
	if err != nil {
		return vk.NullDeviceMemory, err
	}
	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(dv.Device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typ,
	}, nil, &mem)
	return mem, NewError(ret)
}

func (dv *Device) DestroyBuffer(buf driver.Buffer) {
	b := buf.(*Buffer)
	if b.mapped != nil {
		vk.UnmapMemory(dv.Device, b.Memory)
		b.mapped = nil
	}
	vk.DestroyBuffer(dv.Device, b.Buffer, nil)
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(dv.Device, b.Memory, nil)
	}
	b.Buffer, b.Memory = vk.NullBuffer, vk.NullDeviceMemory
}

// hostBytes returns the mapped memory of a host-visible buffer.
func (b *Buffer) hostBytes() ([]byte, error) {
	if b.mapped == nil {
		return nil, fmt.Errorf("vulkan: %v buffer is not host visible", b.Desc.Usage)
	}
	return unsafe.Slice((*byte)(b.mapped), b.Desc.Size), nil
}

func (dv *Device) WriteBuffer(buf driver.Buffer, offset int, data []byte) error {
	mem, err := buf.(*Buffer).hostBytes()
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > len(mem) {
		return fmt.Errorf("vulkan: write of %d bytes at %d past buffer size %d", len(data), offset, len(mem))
	}
	copy(mem[offset:], data)
	return nil
}

func (dv *Device) ReadBuffer(buf driver.Buffer, offset int, data []byte) error {
	mem, err := buf.(*Buffer).hostBytes()
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > len(mem) {
		return fmt.Errorf("vulkan: read of %d bytes at %d past buffer size %d", len(data), offset, len(mem))
	}
	copy(data, mem[offset:])
	return nil
}

// Image is a 2D image. Swapchain images are owned by their swapchain
// and have no memory of their own.
type Image struct {
	Image     vk.Image
	Memory    vk.DeviceMemory
	Desc      driver.ImageDesc
	swapchain bool
}

var imageUsages = [...]vk.ImageUsageFlagBits{
	driver.ImageTexture:         vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit | vk.ImageUsageTransferSrcBit,
	driver.ImageColorAttachment: vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransientAttachmentBit,
	driver.ImageDepthAttachment: vk.ImageUsageDepthStencilAttachmentBit,
}

func (dv *Device) CreateImage(desc driver.ImageDesc) (driver.Image, error) {
	if desc.Extent.Width == 0 || desc.Extent.Height == 0 || desc.MipLevels < 1 {
		return nil, fmt.Errorf("vulkan: invalid image extent %v with %d mips", desc.Extent, desc.MipLevels)
	}
	im := &Image{Desc: desc}
	ret := vk.CreateImage(dv.Device, &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    Formats[desc.Format],
		Extent: vk.Extent3D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
			Depth:  max(desc.Extent.Depth, 1),
		},
		MipLevels:     uint32(desc.MipLevels),
		ArrayLayers:   1,
		Samples:       sampleCount(desc.Samples),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(imageUsages[desc.Type]),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &im.Image)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(dv.Device, im.Image, &reqs)
	reqs.Deref()
	mem, err := dv.allocate(reqs, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(dv.Device, im.Image, nil)
		return nil, err
	}
	im.Memory = mem
	if err := NewError(vk.BindImageMemory(dv.Device, im.Image, mem, 0)); err != nil {
		dv.DestroyImage(im)
		return nil, err
	}
	return im, nil
}

func (dv *Device) DestroyImage(img driver.Image) {
	im := img.(*Image)
	if im.swapchain {
		panic("vulkan: swapchain images are destroyed with their swapchain")
	}
	vk.DestroyImage(dv.Device, im.Image, nil)
	vk.FreeMemory(dv.Device, im.Memory, nil)
	im.Image, im.Memory = vk.NullImage, vk.NullDeviceMemory
}

// ImageView is a 2D view of an [Image].
type ImageView struct {
	View  vk.ImageView
	Image *Image
	Desc  driver.ImageViewDesc
}

func (dv *Device) CreateImageView(desc driver.ImageViewDesc) (driver.ImageView, error) {
	im := desc.Image.(*Image)
	v := &ImageView{Image: im, Desc: desc}
	ret := vk.CreateImageView(dv.Device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    im.Image,
		ViewType: vk.ImageViewType2d,
		Format:   Formats[desc.Format],
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspectFlags(desc.Aspect),
			LevelCount: uint32(max(desc.MipLevels, 1)),
			LayerCount: 1,
		},
	}, nil, &v.View)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	return v, nil
}

// DestroyImageView destroys the view and any framebuffer built on it.
func (dv *Device) DestroyImageView(view driver.ImageView) {
	v := view.(*ImageView)
	dv.dropFramebuffers(v.View)
	vk.DestroyImageView(dv.Device, v.View, nil)
	v.View = vk.NullImageView
}

func (dv *Device) CreateSampler(desc driver.SamplerDesc) (driver.Sampler, error) {
	info := &vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterLinear,
		MinFilter:    vk.FilterLinear,
		MipmapMode:   vk.SamplerMipmapModeLinear,
		AddressModeU: vk.SamplerAddressModeRepeat,
		AddressModeV: vk.SamplerAddressModeRepeat,
		AddressModeW: vk.SamplerAddressModeRepeat,
		CompareOp:    vk.CompareOpAlways,
		MaxLod:       desc.MaxLod,
		BorderColor:  vk.BorderColorIntOpaqueBlack,
	}
	if desc.Anisotropy {
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = dv.Instance.Limits.MaxSamplerAnisotropy
	}
	var s vk.Sampler
	if err := NewError(vk.CreateSampler(dv.Device, info, nil, &s)); err != nil {
		return nil, err
	}
	return s, nil
}

func (dv *Device) DestroySampler(s driver.Sampler) {
	vk.DestroySampler(dv.Device, s.(vk.Sampler), nil)
}

// CreateShader creates a shader module from SPIR-V code.
func (dv *Device) CreateShader(code []byte) (driver.Shader, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("vulkan: shader code size %d is not a positive multiple of 4", len(code))
	}
	var mod vk.ShaderModule
	ret := vk.CreateShaderModule(dv.Device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    unsafe.Slice((*uint32)(unsafe.Pointer(&code[0])), len(code)/4),
	}, nil, &mod)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	return mod, nil
}

func (dv *Device) DestroyShader(s driver.Shader) {
	vk.DestroyShaderModule(dv.Device, s.(vk.ShaderModule), nil)
}

func (dv *Device) CreateDescriptorPool(desc driver.DescriptorPoolDesc) (driver.DescriptorPool, error) {
	sizes := make([]vk.DescriptorPoolSize, len(desc.Sizes))
	for i, s := range desc.Sizes {
		sizes[i] = vk.DescriptorPoolSize{Type: descriptorTypes[s.Type], DescriptorCount: uint32(s.Count)}
	}
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(dv.Device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       uint32(desc.MaxSets),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &pool)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	return pool, nil
}

func (dv *Device) DestroyDescriptorPool(p driver.DescriptorPool) {
	vk.DestroyDescriptorPool(dv.Device, p.(vk.DescriptorPool), nil)
}

func (dv *Device) CreateDescriptorSetLayout(desc driver.DescriptorSetLayoutDesc) (driver.DescriptorSetLayout, error) {
	binds := make([]vk.DescriptorSetLayoutBinding, len(desc.Bindings))
	for i, b := range desc.Bindings {
		binds[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(b.Binding),
			DescriptorType:  descriptorTypes[b.Type],
			DescriptorCount: uint32(max(b.Count, 1)),
			StageFlags:      shaderStages(b.Stages),
		}
	}
	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(dv.Device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(binds)),
		PBindings:    binds,
	}, nil, &layout)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	return layout, nil
}

func (dv *Device) DestroyDescriptorSetLayout(l driver.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(dv.Device, l.(vk.DescriptorSetLayout), nil)
}

func (dv *Device) AllocateDescriptorSets(pool driver.DescriptorPool, layout driver.DescriptorSetLayout, count int) ([]driver.DescriptorSet, error) {
	if count < 1 {
		return nil, fmt.Errorf("vulkan: invalid descriptor set count %d", count)
	}
	sets := make([]driver.DescriptorSet, 0, count)
	for range count {
		var set vk.DescriptorSet
		ret := vk.AllocateDescriptorSets(dv.Device, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pool.(vk.DescriptorPool),
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout.(vk.DescriptorSetLayout)},
		}, &set)
		if err := NewError(ret); err != nil {
			dv.FreeDescriptorSets(pool, sets...)
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func (dv *Device) FreeDescriptorSets(pool driver.DescriptorPool, sets ...driver.DescriptorSet) {
	if len(sets) == 0 {
		return
	}
	vs := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		vs[i] = s.(vk.DescriptorSet)
	}
	vk.FreeDescriptorSets(dv.Device, pool.(vk.DescriptorPool), uint32(len(vs)), &vs[0])
}

func (dv *Device) WriteDescriptorSet(w driver.DescriptorWrite) {
	set := w.Set.(vk.DescriptorSet)
	writes := make([]vk.WriteDescriptorSet, 0, len(w.Uniforms)+len(w.Textures))
	for i, u := range w.Uniforms {
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uint32(w.UniformBinding + i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: u.Buffer.(*Buffer).Buffer,
				Offset: vk.DeviceSize(u.Offset),
				Range:  vk.DeviceSize(u.Size),
			}},
		})
	}
	for i, t := range w.Textures {
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uint32(w.TextureBinding + i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo: []vk.DescriptorImageInfo{{
				ImageView:   t.View.(*ImageView).View,
				Sampler:     t.Sampler.(vk.Sampler),
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}},
		})
	}
	if len(writes) == 0 {
		return
	}
	vk.UpdateDescriptorSets(dv.Device, uint32(len(writes)), writes, 0, nil)
}
