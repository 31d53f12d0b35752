// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package hal is a hardware abstraction layer over a [driver.Device] that
lets rendering code create GPU resources and drive per-frame command
submission without touching native handles or synchronization objects.

Every resource is returned as a reference counted handle (a [resource.Ref]
of a distinct kind), and its native object is destroyed exactly once, when
the last reference is released. A [Backend] owns one registry per kind
and the command buffer pool, and it must outlive all handles.

A frame is driven as follows:

	frame, res, err := be.BeginFrame(sc)
	if err != nil || res != hal.FrameOK {
		return // skip this frame
	}
	cmd := cmds[frame.Slot]
	be.BeginRendering(cmd, sc)
	be.SetPipelineState(cmd, sc, pipe, sets)
	... draw
	be.EndRendering(cmd, sc)
	be.EndFrame(cmd, sc)

If recording fails after a successful BeginFrame, [Backend.AbortFrame]
gives the frame up so that the next BeginFrame can proceed.
*/
package hal

import "cogentcore.org/vhal/resource"

// Debug is whether to log frame level debugging info.
var Debug = false

type (
	bufferTag              struct{}
	imageTag               struct{}
	imageViewTag           struct{}
	samplerTag             struct{}
	shaderTag              struct{}
	pipelineTag            struct{}
	descriptorPoolTag      struct{}
	descriptorSetLayoutTag struct{}
	descriptorSetTag       struct{}
	commandBufferTag       struct{}
	swapchainTag           struct{}
	queueTag               struct{}
)

func (bufferTag) KindName() string              { return "Buffer" }
func (imageTag) KindName() string               { return "Image" }
func (imageViewTag) KindName() string           { return "ImageView" }
func (samplerTag) KindName() string             { return "Sampler" }
func (shaderTag) KindName() string              { return "Shader" }
func (pipelineTag) KindName() string            { return "Pipeline" }
func (descriptorPoolTag) KindName() string      { return "DescriptorPool" }
func (descriptorSetLayoutTag) KindName() string { return "DescriptorSetLayout" }
func (descriptorSetTag) KindName() string       { return "DescriptorSet" }
func (commandBufferTag) KindName() string       { return "CommandBuffer" }
func (swapchainTag) KindName() string           { return "Swapchain" }
func (queueTag) KindName() string               { return "Queue" }

// Handles to the resources of a [Backend]. Handles of different kinds
// are distinct types.
type (
	Buffer              = resource.Ref[bufferTag]
	Image               = resource.Ref[imageTag]
	ImageView           = resource.Ref[imageViewTag]
	Sampler             = resource.Ref[samplerTag]
	Shader              = resource.Ref[shaderTag]
	Pipeline            = resource.Ref[pipelineTag]
	DescriptorPool      = resource.Ref[descriptorPoolTag]
	DescriptorSetLayout = resource.Ref[descriptorSetLayoutTag]
	DescriptorSet       = resource.Ref[descriptorSetTag]
	CommandBuffer       = resource.Ref[commandBufferTag]
	SwapchainRef        = resource.Ref[swapchainTag]
	Queue               = resource.Ref[queueTag]
)
