// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package driver defines the native graphics device contract that the hal
package is built on. It is shaped after Vulkan: explicit creation and
destruction calls, command buffers recorded and then submitted to a queue,
fences for CPU/GPU synchronization, semaphores for GPU/GPU ordering, and a
swapchain whose acquire and present operations return a [Result] code.

Native objects are opaque values owned by the [Device] that created them.
Each driver implementation (driver/vulkan, driver/soft) asserts them back
to its own concrete types.
*/
package driver

import "math"

// Opaque native objects. Values are created and destroyed by a [Device].
type (
	Buffer              any
	Image               any
	ImageView           any
	Sampler             any
	Shader              any
	Pipeline            any
	DescriptorPool      any
	DescriptorSetLayout any
	DescriptorSet       any
	CommandPool         any
	Fence               any
	Semaphore           any
	Swapchain           any

	// Surface is a native presentable window surface, created by the
	// window system and consumed by [Device.CreateSwapchain].
	Surface any
)

// WaitForever is the timeout used for unbounded fence and acquire waits.
const WaitForever uint64 = math.MaxUint64

// Device is a logical graphics device with a single graphics queue
// that also supports presentation.
type Device interface {

	// Queue returns the graphics + present queue.
	Queue() Queue

	// QueueFamily returns the queue family index of [Device.Queue].
	QueueFamily() uint32

	// MaxSampleCount returns the highest color+depth sample count supported.
	MaxSampleCount() SampleCount

	// FindDepthFormat returns the first supported depth attachment format
	// among D32, D32S8, D24S8, in that order.
	FindDepthFormat() (Format, error)

	// WaitIdle blocks until all work on the device has completed.
	WaitIdle() error

	// Destroy destroys the device; all objects must already be destroyed.
	Destroy()

	CreateBuffer(desc BufferDesc) (Buffer, error)
	DestroyBuffer(b Buffer)

	// WriteBuffer copies data into a host-visible buffer at offset.
	WriteBuffer(b Buffer, offset int, data []byte) error

	// ReadBuffer copies from a host-visible buffer at offset into data.
	ReadBuffer(b Buffer, offset int, data []byte) error

	CreateImage(desc ImageDesc) (Image, error)
	DestroyImage(img Image)

	CreateImageView(desc ImageViewDesc) (ImageView, error)
	DestroyImageView(v ImageView)

	CreateSampler(desc SamplerDesc) (Sampler, error)
	DestroySampler(s Sampler)

	CreateShader(code []byte) (Shader, error)
	DestroyShader(s Shader)

	CreateDescriptorPool(desc DescriptorPoolDesc) (DescriptorPool, error)
	DestroyDescriptorPool(p DescriptorPool)

	CreateDescriptorSetLayout(desc DescriptorSetLayoutDesc) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(l DescriptorSetLayout)

	AllocateDescriptorSets(pool DescriptorPool, layout DescriptorSetLayout, count int) ([]DescriptorSet, error)
	FreeDescriptorSets(pool DescriptorPool, sets ...DescriptorSet)
	WriteDescriptorSet(w DescriptorWrite)

	CreatePipeline(desc PipelineDesc) (Pipeline, error)
	DestroyPipeline(p Pipeline)

	// CreateCommandPool creates a pool on [Device.QueueFamily] whose
	// buffers can be reset individually.
	CreateCommandPool(transient bool) (CommandPool, error)
	DestroyCommandPool(p CommandPool)
	AllocateCommandBuffers(pool CommandPool, count int) ([]CommandBuffer, error)
	FreeCommandBuffers(pool CommandPool, bufs ...CommandBuffer)

	CreateFence(signaled bool) (Fence, error)
	DestroyFence(f Fence)

	// WaitFence blocks until the fence is signaled or timeout ns elapse.
	// It returns [Timeout] if the timeout elapsed.
	WaitFence(f Fence, timeout uint64) Result
	ResetFence(f Fence) error
	FenceSignaled(f Fence) bool

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(s Semaphore)

	// SurfaceCapabilities returns what the surface supports on this device.
	SurfaceCapabilities(s Surface) (SurfaceCapabilities, error)

	// CreateSwapchain creates a swapchain and returns its images, which are
	// owned by the swapchain and must not be destroyed individually.
	CreateSwapchain(desc SwapchainDesc) (Swapchain, []Image, error)
	DestroySwapchain(sc Swapchain)

	// AcquireNextImage acquires the next presentable image, signaling
	// the semaphore when it is ready for rendering.
	AcquireNextImage(sc Swapchain, timeout uint64, signal Semaphore) (uint32, Result)
}

// Queue is a device queue that accepts command submissions and presents.
type Queue interface {

	// Submit enqueues the batch; the fence, if non-nil, is signaled when
	// all of the batch's work has completed. A batch with no command
	// buffers still signals its semaphores and fence in order.
	Submit(batch SubmitInfo, fence Fence) error

	// Present queues the swapchain image for presentation.
	Present(info PresentInfo) Result

	// WaitIdle blocks until the queue has no pending work.
	WaitIdle() error
}

// CommandBuffer records commands for later submission on a [Queue].
// Recording methods mirror vkCmd* calls and do not return errors;
// recording errors surface at [CommandBuffer.End].
type CommandBuffer interface {
	Reset() error
	Begin(oneTime bool) error
	End() error

	CopyBuffer(src, dst Buffer, regions ...BufferCopy)
	CopyBufferToImage(src Buffer, dst Image, layout ImageLayout, region BufferImageCopy)
	PipelineBarrier(barriers ...ImageBarrier)

	// BlitImage copies with linear filtering between two mip levels of
	// the same image, src in TransferSrc, dst in TransferDst layout.
	BlitImage(img Image, blit ImageBlit)

	BindPipeline(p Pipeline)
	BindDescriptorSets(p Pipeline, first int, sets ...DescriptorSet)
	BindVertexBuffers(first int, bufs []Buffer, offsets []int)
	BindIndexBuffer(b Buffer, offset int, typ IndexType)
	PushConstants(p Pipeline, stages ShaderStages, offset int, data []byte)
	SetViewport(vp Viewport)
	SetScissor(r Rect2D)
	DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance int)

	BeginRendering(info RenderingInfo)
	EndRendering()
}
