// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"fmt"
	"image"
	"math"
	"testing"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/vhal/driver"
	"cogentcore.org/vhal/driver/soft"
	"cogentcore.org/vhal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameSlotSequence(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	sc, _ := newTestSwapchain(t, be, 2)
	cmds, err := be.MakeCommandBuffers(2)
	require.NoError(t, err)

	var slots []int
	for range 5 {
		frame, res, err := be.BeginFrame(sc)
		require.NoError(t, err)
		require.Equal(t, FrameOK, res)
		slots = append(slots, frame.Slot)
		assert.Equal(t, FrameOK, renderFrame(t, be, cmds[frame.Slot], sc))
	}
	assert.Equal(t, []int{0, 1, 0, 1, 0}, slots)
	assert.Empty(t, dev.Errors)
}

func TestFrameSlotRoundRobin(t *testing.T) {
	for b := 1; b <= 4; b++ {
		t.Run(fmt.Sprint(b), func(t *testing.T) {
			be, dev := newTestBackend(t, nil)
			sc, _ := newTestSwapchain(t, be, b)
			cmds, err := be.MakeCommandBuffers(b)
			require.NoError(t, err)
			for i := range 3*b + 1 {
				frame, res, err := be.BeginFrame(sc)
				require.NoError(t, err)
				require.Equal(t, FrameOK, res)
				assert.Equal(t, i%b, frame.Slot)
				assert.Equal(t, FrameOK, renderFrame(t, be, cmds[frame.Slot], sc))
			}
			assert.Equal(t, 3*b+1, dev.Presents)
			assert.Empty(t, dev.Errors)
		})
	}
}

func TestBeginFrameWaitsFence(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	sc, _ := newTestSwapchain(t, be, 2)
	dev.Trace = true
	_, res, err := be.BeginFrame(sc)
	require.NoError(t, err)
	require.Equal(t, FrameOK, res)
	require.GreaterOrEqual(t, len(dev.Calls), 3)
	assert.Equal(t, []string{"WaitFence", "ResetFence", "AcquireNextImage"}, dev.Calls[:3])
}

func TestRecreationOnThirdFrame(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	sc, surf := newTestSwapchain(t, be, 2)
	cmds, err := be.MakeCommandBuffers(2)
	require.NoError(t, err)
	surf.ScriptAcquire(driver.Success, driver.Success, driver.ErrorOutOfDate)

	var results []FrameResult
	for range 5 {
		frame, res, err := be.BeginFrame(sc)
		require.NoError(t, err)
		results = append(results, res)
		if res == FrameOK {
			assert.Equal(t, FrameOK, renderFrame(t, be, cmds[frame.Slot], sc))
		}
	}
	assert.Equal(t, []FrameResult{FrameOK, FrameOK, FrameRecreationRequired, FrameOK, FrameOK}, results)
	s, err := be.Swapchain(sc)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Recreations)
	assert.Empty(t, dev.Errors)
}

func TestRecreationOnResize(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	sc, surf := newTestSwapchain(t, be, 2)
	cmds, err := be.MakeCommandBuffers(2)
	require.NoError(t, err)
	s, err := be.Swapchain(sc)
	require.NoError(t, err)

	frame, res, err := be.BeginFrame(sc)
	require.NoError(t, err)
	require.Equal(t, FrameOK, res)
	renderFrame(t, be, cmds[frame.Slot], sc)

	surf.Resize(100, 80)
	_, res, err = be.BeginFrame(sc)
	require.NoError(t, err)
	assert.Equal(t, FrameRecreationRequired, res)
	assert.Equal(t, driver.Extent2D{Width: 100, Height: 80}, s.Extent)

	frame, res, err = be.BeginFrame(sc)
	require.NoError(t, err)
	require.Equal(t, FrameOK, res)
	assert.Equal(t, FrameOK, renderFrame(t, be, cmds[frame.Slot], sc))
}

func TestZeroSizeDefersRebuild(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	sc, surf := newTestSwapchain(t, be, 2)
	cmds, err := be.MakeCommandBuffers(2)
	require.NoError(t, err)
	s, err := be.Swapchain(sc)
	require.NoError(t, err)

	surf.Resize(0, 0)
	for range 3 {
		_, res, err := be.BeginFrame(sc)
		require.NoError(t, err)
		assert.Equal(t, FrameRecreationRequired, res)
		assert.True(t, s.Outdated())
	}
	assert.Equal(t, 0, s.Recreations)

	surf.Resize(32, 16)
	frame, res, err := be.BeginFrame(sc)
	require.NoError(t, err)
	require.Equal(t, FrameOK, res)
	assert.False(t, s.Outdated())
	assert.Equal(t, 1, s.Recreations)
	assert.Equal(t, FrameOK, renderFrame(t, be, cmds[frame.Slot], sc))
}

func TestAcquireErrorSkipsFrame(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	sc, surf := newTestSwapchain(t, be, 2)
	cmds, err := be.MakeCommandBuffers(2)
	require.NoError(t, err)
	surf.ScriptAcquire(driver.ErrorSurfaceLost)

	_, res, err := be.BeginFrame(sc)
	require.NoError(t, err)
	assert.Equal(t, FrameError, res)

	// the slot fence was re-armed, so the same slot can be used again
	frame, res, err := be.BeginFrame(sc)
	require.NoError(t, err)
	require.Equal(t, FrameOK, res)
	assert.Equal(t, 0, frame.Slot)
	assert.Equal(t, FrameOK, renderFrame(t, be, cmds[frame.Slot], sc))
	s, _ := be.Swapchain(sc)
	assert.Equal(t, 0, s.Recreations)
	assert.Empty(t, dev.Errors)
}

func TestPresentResults(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	sc, surf := newTestSwapchain(t, be, 2)
	cmds, err := be.MakeCommandBuffers(2)
	require.NoError(t, err)
	s, _ := be.Swapchain(sc)
	surf.ScriptPresent(driver.Suboptimal, driver.ErrorUnknown)

	frame, _, err := be.BeginFrame(sc)
	require.NoError(t, err)
	assert.Equal(t, FrameRecreationRequired, renderFrame(t, be, cmds[frame.Slot], sc))
	assert.Equal(t, 1, s.Recreations)

	frame, _, err = be.BeginFrame(sc)
	require.NoError(t, err)
	assert.Equal(t, FrameError, renderFrame(t, be, cmds[frame.Slot], sc))
	assert.Equal(t, 1, s.Recreations)

	frame, res, err := be.BeginFrame(sc)
	require.NoError(t, err)
	require.Equal(t, FrameOK, res)
	assert.Equal(t, FrameOK, renderFrame(t, be, cmds[frame.Slot], sc))
}

func TestAcquireSuboptimalRebuilds(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	sc, surf := newTestSwapchain(t, be, 2)
	cmds, err := be.MakeCommandBuffers(2)
	require.NoError(t, err)
	s, _ := be.Swapchain(sc)
	surf.ScriptAcquire(driver.Suboptimal)

	_, res, err := be.BeginFrame(sc)
	require.NoError(t, err)
	assert.Equal(t, FrameRecreationRequired, res)
	assert.Equal(t, 1, s.Recreations)
	assert.False(t, s.Outdated())

	for i := range 4 {
		frame, res, err := be.BeginFrame(sc)
		require.NoError(t, err)
		require.Equal(t, FrameOK, res)
		assert.Equal(t, i%2, frame.Slot)
		assert.Equal(t, FrameOK, renderFrame(t, be, cmds[frame.Slot], sc))
	}
	assert.Empty(t, dev.Errors)
}

func TestSubmitFailureRebuilds(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	sc, _ := newTestSwapchain(t, be, 2)
	cmds, err := be.MakeCommandBuffers(2)
	require.NoError(t, err)
	s, _ := be.Swapchain(sc)
	errLost := errors.New("device lost")
	dev.ScriptSubmit(errLost)

	frame, res, err := be.BeginFrame(sc)
	require.NoError(t, err)
	require.Equal(t, FrameOK, res)
	require.NoError(t, be.BeginRendering(cmds[frame.Slot], sc))
	require.NoError(t, be.EndRendering(cmds[frame.Slot], sc))
	res, err = be.EndFrame(cmds[frame.Slot], sc)
	assert.ErrorIs(t, err, errLost)
	assert.Equal(t, FrameError, res)
	assert.True(t, s.Outdated())
	assert.Equal(t, 0, dev.Presents)

	// the slot is not advanced by a frame that was never submitted
	var slots []int
	for range 4 {
		frame, res, err := be.BeginFrame(sc)
		require.NoError(t, err)
		require.Equal(t, FrameOK, res)
		slots = append(slots, frame.Slot)
		assert.Equal(t, FrameOK, renderFrame(t, be, cmds[frame.Slot], sc))
	}
	assert.Equal(t, []int{0, 1, 0, 1}, slots)
	assert.Equal(t, 1, s.Recreations)
	assert.Equal(t, 4, dev.Presents)
	assert.Empty(t, dev.Errors)
}

func TestRecreateFailureRetries(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	sc, surf := newTestSwapchain(t, be, 2)
	cmds, err := be.MakeCommandBuffers(2)
	require.NoError(t, err)
	s, _ := be.Swapchain(sc)

	formats := surf.Formats
	surf.Formats = nil
	surf.Resize(80, 60)
	_, res, err := be.BeginFrame(sc)
	assert.ErrorContains(t, err, "no pixel formats")
	assert.Equal(t, FrameRecreationRequired, res)
	assert.True(t, s.Outdated())

	_, res, err = be.BeginFrame(sc)
	assert.ErrorContains(t, err, "recreate swapchain")
	assert.Equal(t, FrameError, res)
	assert.True(t, s.Outdated())
	assert.Equal(t, 0, s.Recreations)

	surf.Formats = formats
	for range 3 {
		frame, res, err := be.BeginFrame(sc)
		require.NoError(t, err)
		require.Equal(t, FrameOK, res)
		assert.Equal(t, FrameOK, renderFrame(t, be, cmds[frame.Slot], sc))
	}
	assert.False(t, s.Outdated())
	assert.Equal(t, 1, s.Recreations)
	assert.Equal(t, driver.Extent2D{Width: 80, Height: 60}, s.Extent)
	assert.Empty(t, dev.Errors)
}

func TestAbortFrame(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	sc, _ := newTestSwapchain(t, be, 2)
	cmds, err := be.MakeCommandBuffers(2)
	require.NoError(t, err)
	s, _ := be.Swapchain(sc)

	assert.ErrorIs(t, s.AbortFrame(), ErrInvalidState)

	frame, res, err := be.BeginFrame(sc)
	require.NoError(t, err)
	require.Equal(t, FrameOK, res)
	require.NoError(t, be.BeginRendering(cmds[frame.Slot], sc))
	require.NoError(t, be.AbortFrame(cmds[frame.Slot], sc))
	st, err := be.Cmds.State(cmds[frame.Slot])
	require.NoError(t, err)
	assert.NotEqual(t, Recording, st)
	_, err = be.EndFrame(cmds[frame.Slot], sc)
	assert.ErrorIs(t, err, ErrInvalidState)

	for range 3 {
		frame, res, err := be.BeginFrame(sc)
		require.NoError(t, err)
		require.Equal(t, FrameOK, res)
		assert.Equal(t, FrameOK, renderFrame(t, be, cmds[frame.Slot], sc))
	}
	assert.Equal(t, 1, s.Recreations)
	assert.Equal(t, 3, dev.Presents)
	assert.Empty(t, dev.Errors)
}

func TestFrameStateErrors(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	sc, _ := newTestSwapchain(t, be, 2)
	cmds, err := be.MakeCommandBuffers(1)
	require.NoError(t, err)

	_, err = be.EndFrame(cmds[0], sc)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, be.BeginRendering(cmds[0], sc), ErrInvalidState)

	_, res, err := be.BeginFrame(sc)
	require.NoError(t, err)
	require.Equal(t, FrameOK, res)
	_, _, err = be.BeginFrame(sc)
	assert.ErrorIs(t, err, ErrInvalidState)

	// not recorded yet
	_, err = be.EndFrame(cmds[0], sc)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRenderingClearsImage(t *testing.T) {
	opts := NewOptions()
	opts.ClearColor = [4]float32{1, 0, 0, 1}
	be, dev := newTestBackend(t, opts)
	sc, _ := newTestSwapchain(t, be, 2)
	cmds, err := be.MakeCommandBuffers(2)
	require.NoError(t, err)
	s, _ := be.Swapchain(sc)

	frame, _, err := be.BeginFrame(sc)
	require.NoError(t, err)
	require.NoError(t, be.BeginRendering(cmds[frame.Slot], sc))
	require.NoError(t, be.EndRendering(cmds[frame.Slot], sc))
	res, err := be.EndFrame(cmds[frame.Slot], sc)
	require.NoError(t, err)
	require.Equal(t, FrameOK, res)

	img := s.native.(*soft.Swapchain).Images[frame.ImageIndex]
	assert.Equal(t, []byte{255, 0, 0, 255}, img.Mips[0][:4])
	assert.Equal(t, driver.LayoutPresentSrc, img.Layouts[0])
	assert.Empty(t, dev.Errors)
}

func TestSwapchainChoices(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	sc, _ := newTestSwapchain(t, be, 2)
	s, err := be.Swapchain(sc)
	require.NoError(t, err)
	assert.Equal(t, driver.FormatR8G8B8A8Srgb, s.Format.Format)
	assert.Equal(t, driver.PresentFifo, s.PresentMode)
	// min 2 + 1, within max 3
	assert.Equal(t, 3, s.NumImages())
	assert.Equal(t, driver.SampleCount(4), be.SampleCount())
	assert.NotNil(t, s.color.view)
	assert.NotNil(t, s.depth.view)
	depth := s.depth.image.(*soft.Image)
	assert.Equal(t, driver.LayoutDepthStencilAttachment, depth.Layouts[0])

	caps := driver.SurfaceCapabilities{CurrentExtent: driver.Extent2D{Width: math.MaxUint32},
		MinExtent: driver.Extent2D{Width: 10, Height: 10}, MaxExtent: driver.Extent2D{Width: 100, Height: 100}}
	ext := chooseExtent(caps, image.Pt(500, 5))
	assert.Equal(t, driver.Extent2D{Width: 100, Height: 10}, ext)

	mode := choosePresentMode([]driver.PresentMode{driver.PresentImmediate}, driver.PresentMailbox)
	assert.Equal(t, driver.PresentFifo, mode)
}

func TestSingleSampleNoDepth(t *testing.T) {
	opts := NewOptions()
	opts.MaxSamples = 1
	opts.Depth = false
	be, dev := newTestBackend(t, opts)
	sc, _ := newTestSwapchain(t, be, 1)
	s, err := be.Swapchain(sc)
	require.NoError(t, err)
	assert.Equal(t, driver.SampleCount(1), be.SampleCount())
	assert.Equal(t, driver.FormatUndefined, be.DepthFormat())
	assert.Nil(t, s.color.view)
	assert.Nil(t, s.depth.view)

	cmds, err := be.MakeCommandBuffers(1)
	require.NoError(t, err)
	frame, res, err := be.BeginFrame(sc)
	require.NoError(t, err)
	require.Equal(t, FrameOK, res)
	assert.Equal(t, FrameOK, renderFrame(t, be, cmds[frame.Slot], sc))
	assert.Empty(t, dev.Errors)
}

func TestSwapchainReleaseDestroysAll(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	sc, _ := newTestSwapchain(t, be, 3)
	cmds, err := be.MakeCommandBuffers(3)
	require.NoError(t, err)
	frame, _, err := be.BeginFrame(sc)
	require.NoError(t, err)
	renderFrame(t, be, cmds[frame.Slot], sc)

	sc.Release()
	resource.ReleaseAll(cmds)
	be.Destroy()
	assert.Equal(t, 0, dev.LiveTotal())
	dev.Destroy()
	assert.Empty(t, dev.Errors)
}

func TestMakeSwapchainErrors(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	_, err := be.MakeSwapchain(soft.NewSurface(64, 48), 0)
	assert.ErrorIs(t, err, ErrPrecondition)
	_, err = be.MakeSwapchain(soft.NewSurface(0, 48), 2)
	assert.ErrorIs(t, err, ErrPrecondition)
}
