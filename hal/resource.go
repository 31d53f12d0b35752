// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"cogentcore.org/vhal/driver"
)

func (be *Backend) makeBuffer(op string, usage driver.BufferUsage, size int) (Buffer, error) {
	if size <= 0 {
		return Buffer{}, preconditionf("%s: size must be positive, got %d", op, size)
	}
	desc := driver.BufferDesc{Size: size, Usage: usage}
	nb, err := be.Device.Native.CreateBuffer(desc)
	if err != nil {
		return Buffer{}, opError(op, err)
	}
	return be.buffers.Add(&bufferEntry{native: nb, desc: desc}), nil
}

// MakeStagingBuffer returns a host visible buffer for uploads.
func (be *Backend) MakeStagingBuffer(size int) (Buffer, error) {
	return be.makeBuffer("make staging buffer", driver.BufferStaging, size)
}

// MakeVertexBuffer returns a device local vertex buffer,
// filled by copying from a staging buffer.
func (be *Backend) MakeVertexBuffer(size int) (Buffer, error) {
	return be.makeBuffer("make vertex buffer", driver.BufferVertex, size)
}

// MakeIndexBuffer returns a device local index buffer of uint32 indices,
// filled by copying from a staging buffer.
func (be *Backend) MakeIndexBuffer(size int) (Buffer, error) {
	return be.makeBuffer("make index buffer", driver.BufferIndex, size)
}

// MakeUniformBuffer returns a host visible uniform buffer.
func (be *Backend) MakeUniformBuffer(size int) (Buffer, error) {
	return be.makeBuffer("make uniform buffer", driver.BufferUniform, size)
}

// MakeCommandBuffers returns n command buffers from [Backend.Cmds].
func (be *Backend) MakeCommandBuffers(n int) ([]CommandBuffer, error) {
	return be.Cmds.MakeBuffers(n)
}

// MakeDescriptorPool returns a descriptor pool. With no sizes it holds
// Buffering uniform buffers and image samplers, and zero counts and
// MaxSets also default to Buffering.
func (be *Backend) MakeDescriptorPool(desc driver.DescriptorPoolDesc) (DescriptorPool, error) {
	b := be.Options.Buffering
	if len(desc.Sizes) == 0 {
		desc.Sizes = []driver.DescriptorPoolSize{{Type: driver.DescriptorUniformBuffer}, {Type: driver.DescriptorCombinedImageSampler}}
	}
	for i := range desc.Sizes {
		if desc.Sizes[i].Count == 0 {
			desc.Sizes[i].Count = b
		}
	}
	if desc.MaxSets == 0 {
		desc.MaxSets = b
	}
	np, err := be.Device.Native.CreateDescriptorPool(desc)
	if err != nil {
		return DescriptorPool{}, opError("make descriptor pool", err)
	}
	return be.descriptorPools.Add(np), nil
}

// MakeDescriptorSetLayout returns a descriptor set layout.
// Bindings with a zero Count have one descriptor.
func (be *Backend) MakeDescriptorSetLayout(desc driver.DescriptorSetLayoutDesc) (DescriptorSetLayout, error) {
	bindings := make([]driver.DescriptorBinding, len(desc.Bindings))
	for i, b := range desc.Bindings {
		if b.Count == 0 {
			b.Count = 1
		}
		bindings[i] = b
	}
	desc.Bindings = bindings
	nl, err := be.Device.Native.CreateDescriptorSetLayout(desc)
	if err != nil {
		return DescriptorSetLayout{}, opError("make descriptor set layout", err)
	}
	return be.descriptorSetLayouts.Add(nl), nil
}

// MakeDescriptorSets allocates n descriptor sets with the given layout.
// Each set keeps its pool alive.
func (be *Backend) MakeDescriptorSets(pool DescriptorPool, layout DescriptorSetLayout, n int) ([]DescriptorSet, error) {
	np, err := be.descriptorPools.Get(pool)
	if err != nil {
		return nil, err
	}
	nl, err := be.descriptorSetLayouts.Get(layout)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, preconditionf("make descriptor sets: count must be at least 1, got %d", n)
	}
	sets, err := be.Device.Native.AllocateDescriptorSets(np, nl, n)
	if err != nil {
		return nil, opError("make descriptor sets", err)
	}
	refs := make([]DescriptorSet, n)
	for i, s := range sets {
		refs[i] = be.descriptorSets.Add(&descriptorSetEntry{native: s, pool: pool.Clone()})
	}
	return refs, nil
}

// PipelineDesc describes a graphics pipeline in terms of handles.
type PipelineDesc struct {
	SetLayouts    []DescriptorSetLayout
	Vertex        Shader
	Fragment      Shader
	Bindings      []driver.VertexBinding
	Attributes    []driver.VertexAttribute
	PushConstants []driver.PushConstantRange
	ColorFormat   driver.Format
	DepthFormat   driver.Format
	Samples       driver.SampleCount
}

// MakeGraphicsPipeline returns a pipeline drawing indexed triangle lists.
// The shaders and layouts are only needed during this call.
func (be *Backend) MakeGraphicsPipeline(desc PipelineDesc) (Pipeline, error) {
	nd := driver.PipelineDesc{
		Bindings:      desc.Bindings,
		Attributes:    desc.Attributes,
		PushConstants: desc.PushConstants,
		ColorFormat:   desc.ColorFormat,
		DepthFormat:   desc.DepthFormat,
		Samples:       desc.Samples,
	}
	for _, l := range desc.SetLayouts {
		nl, err := be.descriptorSetLayouts.Get(l)
		if err != nil {
			return Pipeline{}, opError("make graphics pipeline", err)
		}
		nd.SetLayouts = append(nd.SetLayouts, nl)
	}
	var err error
	if nd.Vertex, err = be.shaders.Get(desc.Vertex); err != nil {
		return Pipeline{}, opError("make graphics pipeline", err)
	}
	if nd.Fragment, err = be.shaders.Get(desc.Fragment); err != nil {
		return Pipeline{}, opError("make graphics pipeline", err)
	}
	np, err := be.Device.Native.CreatePipeline(nd)
	if err != nil {
		return Pipeline{}, opError("make graphics pipeline", err)
	}
	return be.pipelines.Add(&pipelineEntry{native: np, desc: nd}), nil
}

// MakeImage returns an image in the Undefined layout.
func (be *Backend) MakeImage(desc driver.ImageDesc) (Image, error) {
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	if desc.Samples == 0 {
		desc.Samples = 1
	}
	if desc.Extent.Depth == 0 {
		desc.Extent.Depth = 1
	}
	ni, err := be.Device.Native.CreateImage(desc)
	if err != nil {
		return Image{}, opError("make image", err)
	}
	return be.images.Add(&imageEntry{native: ni, desc: desc}), nil
}

// MakeImageView returns a view of the first mips of the image.
// The view keeps the image alive.
func (be *Backend) MakeImageView(img Image, aspect driver.ImageAspect, mips int) (ImageView, error) {
	im, err := be.images.Get(img)
	if err != nil {
		return ImageView{}, opError("make image view", err)
	}
	nv, err := be.Device.Native.CreateImageView(driver.ImageViewDesc{Image: im.native, Format: im.desc.Format, Aspect: aspect, MipLevels: mips})
	if err != nil {
		return ImageView{}, opError("make image view", err)
	}
	return be.imageViews.Add(&imageViewEntry{native: nv, image: img.Clone()}), nil
}

// MakeSampler returns a linear, repeating, anisotropic sampler
// covering the given number of mip levels.
func (be *Backend) MakeSampler(mipLevels float32) (Sampler, error) {
	ns, err := be.Device.Native.CreateSampler(driver.SamplerDesc{MaxLod: mipLevels, Anisotropy: true})
	if err != nil {
		return Sampler{}, opError("make sampler", err)
	}
	return be.samplers.Add(ns), nil
}

// MakeShader returns a shader module for the given bytecode.
func (be *Backend) MakeShader(code []byte) (Shader, error) {
	ns, err := be.Device.Native.CreateShader(code)
	if err != nil {
		return Shader{}, opError("make shader", err)
	}
	return be.shaders.Add(ns), nil
}

// MakeSwapchain returns a swapchain for the window surface with the
// given number of frames in flight, configured from the options.
func (be *Backend) MakeSwapchain(surface WindowSurface, buffering int) (SwapchainRef, error) {
	sc, err := NewSwapchain(be.Device, be.Cmds, surface, SwapchainConfig{
		Buffering:   buffering,
		PresentMode: be.presentMode,
		ColorFormat: be.colorFormat,
		Samples:     be.sampleCount,
		DepthFormat: be.depthFormat,
		ClearColor:  be.Options.ClearColor,
	})
	if err != nil {
		return SwapchainRef{}, err
	}
	return be.swapchains.Add(sc), nil
}

// Swapchain returns the swapchain of the given handle.
func (be *Backend) Swapchain(ref SwapchainRef) (*Swapchain, error) {
	return be.swapchains.Get(ref)
}
