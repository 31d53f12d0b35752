// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"fmt"
	"log/slog"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/vhal/driver"
)

// FrameResult is the outcome of beginning or ending a frame.
type FrameResult int32

const (
	// FrameOK means the frame proceeds normally.
	FrameOK FrameResult = iota

	// FrameRecreationRequired means the swapchain was out of date and
	// has been rebuilt (or the rebuild is deferred); skip the frame.
	FrameRecreationRequired

	// FrameError means an unexpected result was logged; skip the frame.
	FrameError
)

func (fr FrameResult) String() string {
	switch fr {
	case FrameOK:
		return "FrameOK"
	case FrameRecreationRequired:
		return "FrameRecreationRequired"
	case FrameError:
		return "FrameError"
	}
	return fmt.Sprintf("FrameResult(%d)", int32(fr))
}

// Frame identifies the frame being recorded. Slot selects the per-frame
// CPU resources (command buffer, uniform buffers, descriptor sets) in
// [0, Buffering), while ImageIndex is the presentable image, chosen by
// the presentation engine.
type Frame struct {
	ImageIndex uint32
	Slot       int
}

// classify maps a driver result onto a [FrameResult].
func classify(r driver.Result) FrameResult {
	switch r {
	case driver.Success:
		return FrameOK
	case driver.ErrorOutOfDate, driver.Suboptimal:
		return FrameRecreationRequired
	}
	return FrameError
}

// BeginFrame waits until the next frame slot is free and acquires the
// next presentable image. Unless the result is [FrameOK] the frame must
// be skipped, and [Swapchain.EndFrame] must not be called. A frame that
// began but cannot be ended must be given up with [Swapchain.AbortFrame].
func (sc *Swapchain) BeginFrame() (Frame, FrameResult, error) {
	if sc.dev == nil {
		return Frame{}, FrameError, invalidStatef("begin frame on a destroyed swapchain")
	}
	if sc.inFrame {
		return Frame{}, FrameError, invalidStatef("begin frame while frame %d is not ended", sc.current.Slot)
	}
	if sc.outdated {
		if err := sc.Recreate(); err != nil {
			return Frame{}, FrameError, err
		}
		if sc.outdated {
			return Frame{}, FrameRecreationRequired, nil
		}
	}
	nd := sc.dev.Native
	fs := sc.sync[sc.slot]
	if err := sc.dev.waitFence(fs.inFlight); err != nil {
		return Frame{}, FrameError, err
	}
	if err := nd.ResetFence(fs.inFlight); err != nil {
		return Frame{}, FrameError, opError("begin frame", err)
	}
	idx, r := nd.AcquireNextImage(sc.native, driver.WaitForever, fs.imageAcquired)
	res := classify(r)
	switch res {
	case FrameOK:
		if err := nd.ResetFence(fs.inFlight); err != nil {
			return Frame{}, FrameError, opError("begin frame", err)
		}
		sc.current = Frame{ImageIndex: idx, Slot: sc.slot}
		sc.inFrame = true
		if Debug {
			slog.Info("vhal: begin frame", "slot", sc.slot, "image", idx)
		}
		return sc.current, FrameOK, nil
	case FrameRecreationRequired:
		if Debug {
			slog.Info("vhal: swapchain out of date on acquire", "result", r)
		}
		return Frame{}, res, sc.Recreate()
	}
	slog.Error("vhal: acquire next image", "result", r, "slot", sc.slot)
	// nothing will signal the fence that was just reset
	errors.Log(sc.rearm(fs.inFlight))
	return Frame{}, FrameError, nil
}

// rearm signals the fence with an empty submission.
func (sc *Swapchain) rearm(f driver.Fence) error {
	return opError("rearm frame fence", sc.dev.Queue.Submit(driver.SubmitInfo{}, f))
}

// EndFrame submits the command buffer recorded for the current frame,
// signaling the slot's fence, presents the frame's image, and advances
// to the next slot.
func (sc *Swapchain) EndFrame(cb driver.CommandBuffer) (FrameResult, error) {
	if !sc.inFrame {
		return FrameError, invalidStatef("end frame without a successful begin frame")
	}
	sc.inFrame = false
	fs := sc.sync[sc.current.Slot]
	err := sc.dev.Queue.Submit(driver.SubmitInfo{
		CommandBuffers: []driver.CommandBuffer{cb},
		Wait:           []driver.Semaphore{fs.imageAcquired},
		WaitStages:     []driver.PipelineStages{driver.StageColorAttachmentOutput},
		Signal:         []driver.Semaphore{fs.renderFinished},
	}, fs.inFlight)
	if err != nil {
		// the acquired semaphore is still signaled, so all sync objects
		// must be rebuilt before the next frame
		sc.outdated = true
		errors.Log(sc.rearm(fs.inFlight))
		return FrameError, opError("submit frame", err)
	}
	r := sc.dev.Queue.Present(driver.PresentInfo{
		Swapchain:  sc.native,
		ImageIndex: sc.current.ImageIndex,
		Wait:       []driver.Semaphore{fs.renderFinished},
	})
	sc.slot = (sc.slot + 1) % sc.Config.Buffering
	res := classify(r)
	switch res {
	case FrameOK:
		return FrameOK, nil
	case FrameRecreationRequired:
		if Debug {
			slog.Info("vhal: swapchain out of date on present", "result", r)
		}
		return res, sc.Recreate()
	}
	slog.Error("vhal: present", "result", r, "image", sc.current.ImageIndex)
	return FrameError, nil
}

// AbortFrame gives up the current frame without submitting it. The
// acquired image is never presented, so the swapchain is rebuilt by
// the next [Swapchain.BeginFrame].
func (sc *Swapchain) AbortFrame() error {
	if !sc.inFrame {
		return invalidStatef("abort frame without a successful begin frame")
	}
	sc.inFrame = false
	sc.outdated = true
	if Debug {
		slog.Info("vhal: frame aborted", "slot", sc.current.Slot, "image", sc.current.ImageIndex)
	}
	return sc.rearm(sc.sync[sc.current.Slot].inFlight)
}

// colorTarget returns the view rendered into and the view it is
// resolved into, if multisampling.
func (sc *Swapchain) colorTarget() (color, resolve driver.ImageView) {
	present := sc.views[sc.current.ImageIndex]
	if sc.color.view != nil {
		return sc.color.view, present
	}
	return present, nil
}

// beginRendering records the transition of the current image to a
// color attachment and begins rendering into it.
func (sc *Swapchain) beginRendering(cb driver.CommandBuffer) {
	cb.PipelineBarrier(driver.ImageBarrier{
		Image:     sc.images[sc.current.ImageIndex],
		OldLayout: driver.LayoutUndefined,
		NewLayout: driver.LayoutColorAttachment,
		SrcStage:  driver.StageTopOfPipe,
		DstStage:  driver.StageColorAttachmentOutput,
		DstAccess: driver.AccessColorAttachmentWrite,
		Aspect:    driver.AspectColor,
		MipCount:  1,
	})
	color, resolve := sc.colorTarget()
	cb.BeginRendering(driver.RenderingInfo{
		Extent:      sc.Extent,
		Color:       color,
		Resolve:     resolve,
		Depth:       sc.depth.view,
		ColorFormat: sc.Format.Format,
		DepthFormat: sc.Config.DepthFormat,
		Samples:     sc.Config.Samples,
		ClearColor:  sc.Config.ClearColor,
		ClearDepth:  1,
	})
}

// setViewport records a viewport and scissor covering the whole image.
func (sc *Swapchain) setViewport(cb driver.CommandBuffer) {
	cb.SetViewport(driver.Viewport{Width: float32(sc.Extent.Width), Height: float32(sc.Extent.Height), MaxDepth: 1})
	cb.SetScissor(driver.Rect2D{Extent: sc.Extent})
}

// endRendering ends rendering and records the transition of the
// current image for presentation.
func (sc *Swapchain) endRendering(cb driver.CommandBuffer) {
	cb.EndRendering()
	cb.PipelineBarrier(driver.ImageBarrier{
		Image:     sc.images[sc.current.ImageIndex],
		OldLayout: driver.LayoutColorAttachment,
		NewLayout: driver.LayoutPresentSrc,
		SrcStage:  driver.StageColorAttachmentOutput,
		DstStage:  driver.StageBottomOfPipe,
		SrcAccess: driver.AccessColorAttachmentWrite,
		Aspect:    driver.AspectColor,
		MipCount:  1,
	})
}
