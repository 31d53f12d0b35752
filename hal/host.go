// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"cogentcore.org/core/math32"
	"cogentcore.org/vhal/driver"
)

// BufferUpdate is data to write into a buffer at a byte offset.
type BufferUpdate struct {
	Data   []byte
	Offset int
}

// UpdateBuffer writes the updates into a host visible buffer.
func (be *Backend) UpdateBuffer(buf Buffer, updates []BufferUpdate) error {
	b, err := be.buffers.Get(buf)
	if err != nil {
		return err
	}
	for _, u := range updates {
		if u.Offset < 0 || u.Offset+len(u.Data) > b.desc.Size {
			return preconditionf("update buffer: range [%d, %d) outside of %v of size %d", u.Offset, u.Offset+len(u.Data), buf, b.desc.Size)
		}
	}
	for _, u := range updates {
		if err := be.Device.Native.WriteBuffer(b.native, u.Offset, u.Data); err != nil {
			return opError("update buffer", err)
		}
	}
	return nil
}

// ReadBuffer reads len(dst) bytes at offset from a host visible buffer.
func (be *Backend) ReadBuffer(buf Buffer, offset int, dst []byte) error {
	b, err := be.buffers.Get(buf)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(dst) > b.desc.Size {
		return preconditionf("read buffer: range [%d, %d) outside of %v of size %d", offset, offset+len(dst), buf, b.desc.Size)
	}
	return opError("read buffer", be.Device.Native.ReadBuffer(b.native, offset, dst))
}

// BufferSize returns the size of the buffer in bytes.
func (be *Backend) BufferSize(buf Buffer) (int, error) {
	b, err := be.buffers.Get(buf)
	if err != nil {
		return 0, err
	}
	return b.desc.Size, nil
}

// SampleCount returns the multisample count used for rendering:
// the highest power of two supported by the device within
// [Options.MaxSamples].
func (be *Backend) SampleCount() driver.SampleCount {
	return be.sampleCount
}

// DepthFormat returns the depth attachment format,
// which is undefined when [Options.Depth] is off.
func (be *Backend) DepthFormat() driver.Format {
	return be.depthFormat
}

// ColorFormat returns the preferred swapchain color format.
func (be *Backend) ColorFormat() driver.Format {
	return be.colorFormat
}

// BeginFrame begins the next frame of the swapchain; see
// [Swapchain.BeginFrame].
func (be *Backend) BeginFrame(sc SwapchainRef) (Frame, FrameResult, error) {
	s, err := be.swapchains.Get(sc)
	if err != nil {
		return Frame{}, FrameError, err
	}
	return s.BeginFrame()
}

// ImageLayout returns the tracked layout of the image.
func (be *Backend) ImageLayout(img Image) (driver.ImageLayout, error) {
	im, err := be.images.Get(img)
	if err != nil {
		return driver.LayoutUndefined, err
	}
	return im.layout, nil
}

// MipLevels returns the number of mip levels of a full
// mip chain for an image of the given size.
func MipLevels(width, height int) int {
	return int(math32.Floor(math32.Log2(float32(max(width, height, 1))))) + 1
}
