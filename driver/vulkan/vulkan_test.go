// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vulkan

import (
	"testing"

	"cogentcore.org/vhal/driver"
	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestFormats(t *testing.T) {
	for f := driver.FormatUndefined; f < driver.FormatN; f++ {
		vf, ok := Formats[f]
		assert.True(t, ok, f.String())
		assert.Equal(t, f, FormatFromNative(vf))
	}
	assert.Equal(t, driver.FormatUndefined, FormatFromNative(vk.FormatR16Sfloat))
}

func TestResults(t *testing.T) {
	assert.Equal(t, driver.Success, toResult(vk.Success))
	assert.Equal(t, driver.Suboptimal, toResult(vk.Suboptimal))
	assert.Equal(t, driver.ErrorOutOfDate, toResult(vk.ErrorOutOfDate))
	assert.Equal(t, driver.ErrorUnknown, toResult(vk.ErrorOutOfHostMemory))
	assert.NoError(t, NewError(vk.Success))
	assert.ErrorContains(t, NewError(vk.ErrorDeviceLost), "vulkan error")
}

func TestFlags(t *testing.T) {
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit|vk.ImageAspectStencilBit),
		aspectFlags(driver.AspectDepth|driver.AspectStencil))
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit|vk.PipelineStageFragmentShaderBit),
		pipelineStages(driver.StageTransfer|driver.StageFragmentShader))
	assert.Equal(t, vk.AccessFlags(vk.AccessShaderReadBit), accessFlags(driver.AccessShaderRead))
	assert.Equal(t, vk.SampleCount1Bit, sampleCount(0))
	assert.Equal(t, vk.SampleCount4Bit, sampleCount(4))
	assert.Equal(t, vk.ImageLayoutPresentSrc, layouts[driver.LayoutPresentSrc])
	assert.Equal(t, []string{"a\x00", "b\x00"}, safeStrings([]string{"a", "b\x00"}))
}

func TestDevice(t *testing.T) {
	t.Skip("Need GPU")
	if err := Init(); err != nil {
		t.Fatal(err)
	}
	defer Terminate()
	in, err := NewInstance("vhal test", nil, true)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Destroy()
	dv, err := NewDevice(in, vk.NullSurface)
	if err != nil {
		t.Fatal(err)
	}
	defer dv.Destroy()
	b, err := dv.CreateBuffer(driver.BufferDesc{Size: 16, Usage: driver.BufferStaging})
	assert.NoError(t, err)
	assert.NoError(t, dv.WriteBuffer(b, 0, []byte{1, 2, 3, 4}))
	out := make([]byte, 4)
	assert.NoError(t, dv.ReadBuffer(b, 0, out))
	assert.Equal(t, []byte{1, 2, 3, 4}, out)
	dv.DestroyBuffer(b)
}
