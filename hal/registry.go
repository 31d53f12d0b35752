// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"cogentcore.org/vhal/driver"
	"cogentcore.org/vhal/resource"
)

// The objects stored in the [Backend] registries.

type bufferEntry struct {
	native driver.Buffer
	desc   driver.BufferDesc
}

type imageEntry struct {
	native driver.Image
	desc   driver.ImageDesc

	// layout is the layout of all mips, as of the last recorded
	// transition.
	layout driver.ImageLayout
}

type imageViewEntry struct {
	native driver.ImageView

	// image keeps the viewed image alive.
	image Image
}

type descriptorSetEntry struct {
	native driver.DescriptorSet

	// pool keeps the owning pool alive until the set is freed.
	pool DescriptorPool
}

type pipelineEntry struct {
	native driver.Pipeline
	desc   driver.PipelineDesc
}

// registries are the per-kind resource maps of a [Backend].
type registries struct {
	buffers              *resource.Map[bufferTag, *bufferEntry]
	images               *resource.Map[imageTag, *imageEntry]
	imageViews           *resource.Map[imageViewTag, *imageViewEntry]
	samplers             *resource.Map[samplerTag, driver.Sampler]
	shaders              *resource.Map[shaderTag, driver.Shader]
	pipelines            *resource.Map[pipelineTag, *pipelineEntry]
	descriptorPools      *resource.Map[descriptorPoolTag, driver.DescriptorPool]
	descriptorSetLayouts *resource.Map[descriptorSetLayoutTag, driver.DescriptorSetLayout]
	descriptorSets       *resource.Map[descriptorSetTag, *descriptorSetEntry]
	swapchains           *resource.Map[swapchainTag, *Swapchain]
	queues               *resource.Map[queueTag, driver.Queue]
}

func (rg *registries) setup(dev *Device) {
	nd := dev.Native
	rg.buffers = resource.NewMap[bufferTag]("buffers", func(b *bufferEntry) {
		nd.DestroyBuffer(b.native)
	})
	rg.images = resource.NewMap[imageTag]("images", func(im *imageEntry) {
		nd.DestroyImage(im.native)
	})
	rg.imageViews = resource.NewMap[imageViewTag]("image views", func(v *imageViewEntry) {
		nd.DestroyImageView(v.native)
		v.image.Release()
	})
	rg.samplers = resource.NewMap[samplerTag]("samplers", nd.DestroySampler)
	rg.shaders = resource.NewMap[shaderTag]("shaders", nd.DestroyShader)
	rg.pipelines = resource.NewMap[pipelineTag]("pipelines", func(p *pipelineEntry) {
		nd.DestroyPipeline(p.native)
	})
	rg.descriptorPools = resource.NewMap[descriptorPoolTag]("descriptor pools", nd.DestroyDescriptorPool)
	rg.descriptorSetLayouts = resource.NewMap[descriptorSetLayoutTag]("descriptor set layouts", nd.DestroyDescriptorSetLayout)
	rg.descriptorSets = resource.NewMap[descriptorSetTag]("descriptor sets", func(ds *descriptorSetEntry) {
		if pool, err := rg.descriptorPools.Get(ds.pool); err == nil {
			nd.FreeDescriptorSets(pool, ds.native)
		}
		ds.pool.Release()
	})
	rg.swapchains = resource.NewMap[swapchainTag]("swapchains", func(sc *Swapchain) {
		sc.Destroy()
	})
	rg.queues = resource.NewMap[queueTag, driver.Queue]("queues", nil)
}
