// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soft

import (
	"errors"
	"fmt"
	"math"

	"cogentcore.org/vhal/driver"
	"golang.org/x/image/draw"
)

// CommandPool is a software command pool.
type CommandPool struct {
	Transient bool
	bufs      map[*CommandBuffer]struct{}
	dead      bool
}

type cmdState int32

const (
	cmdInitial cmdState = iota
	cmdRecording
	cmdExecutable
	cmdInvalid
)

// CommandBuffer records commands as closures run at submit time.
type CommandBuffer struct {
	dev     *Device
	pool    *CommandPool
	state   cmdState
	oneTime bool
	ops     []op
	err     error
	dead    bool
}

type op struct {
	name string
	run  func(x *exec) error
}

// exec is the state of one command buffer execution.
type exec struct {
	dev       *Device
	rendering bool
	pipeline  *Pipeline
	index     *Buffer
	indexOff  int
	indexType driver.IndexType
	vertex    int
}

func (d *Device) CreateCommandPool(transient bool) (driver.CommandPool, error) {
	d.created("commandpool")
	return &CommandPool{Transient: transient, bufs: map[*CommandBuffer]struct{}{}}, nil
}

// DestroyCommandPool destroys the pool and frees all of its buffers.
func (d *Device) DestroyCommandPool(p driver.CommandPool) {
	cp := p.(*CommandPool)
	for cb := range cp.bufs {
		d.release("commandbuffer", &cb.dead)
	}
	cp.bufs = nil
	d.release("commandpool", &cp.dead)
}

func (d *Device) AllocateCommandBuffers(pool driver.CommandPool, count int) ([]driver.CommandBuffer, error) {
	cp := pool.(*CommandPool)
	if cp.dead {
		return nil, errors.New("soft: allocate from a destroyed command pool")
	}
	if count < 1 {
		return nil, fmt.Errorf("soft: invalid command buffer count %d", count)
	}
	bufs := make([]driver.CommandBuffer, count)
	for i := range bufs {
		cb := &CommandBuffer{dev: d, pool: cp}
		cp.bufs[cb] = struct{}{}
		bufs[i] = cb
		d.created("commandbuffer")
	}
	return bufs, nil
}

func (d *Device) FreeCommandBuffers(pool driver.CommandPool, bufs ...driver.CommandBuffer) {
	cp := pool.(*CommandPool)
	if cp.dead {
		panic("soft: free command buffers to a destroyed pool")
	}
	for _, b := range bufs {
		cb := b.(*CommandBuffer)
		delete(cp.bufs, cb)
		d.release("commandbuffer", &cb.dead)
	}
}

// Ops returns the names of the recorded commands, in order.
func (cb *CommandBuffer) Ops() []string {
	names := make([]string, len(cb.ops))
	for i, o := range cb.ops {
		names[i] = o.name
	}
	return names
}

func (cb *CommandBuffer) record(name string, run func(x *exec) error) {
	if cb.state != cmdRecording {
		cb.err = errors.Join(cb.err, fmt.Errorf("soft: %s recorded outside of Begin/End", name))
		return
	}
	cb.ops = append(cb.ops, op{name: name, run: run})
}

func (cb *CommandBuffer) Reset() error {
	if cb.dead {
		return errors.New("soft: reset of a freed command buffer")
	}
	cb.state = cmdInitial
	cb.ops = nil
	cb.err = nil
	return nil
}

// Begin implicitly resets the buffer, as the pool allows individual resets.
func (cb *CommandBuffer) Begin(oneTime bool) error {
	if cb.state == cmdRecording {
		return errors.New("soft: Begin on a command buffer that is already recording")
	}
	if err := cb.Reset(); err != nil {
		return err
	}
	cb.state = cmdRecording
	cb.oneTime = oneTime
	return nil
}

func (cb *CommandBuffer) End() error {
	if cb.state != cmdRecording {
		return errors.New("soft: End on a command buffer that is not recording")
	}
	if cb.err != nil {
		cb.state = cmdInvalid
		return cb.err
	}
	cb.state = cmdExecutable
	return nil
}

// execute replays the recorded commands.
func (cb *CommandBuffer) execute() error {
	if cb.state != cmdExecutable {
		return errors.New("soft: submit of a command buffer that is not executable")
	}
	x := &exec{dev: cb.dev}
	for _, o := range cb.ops {
		if err := o.run(x); err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}
	}
	if x.rendering {
		return errors.New("soft: command buffer ended inside a rendering pass")
	}
	if cb.oneTime {
		cb.state = cmdInvalid
	}
	return nil
}

func (cb *CommandBuffer) CopyBuffer(src, dst driver.Buffer, regions ...driver.BufferCopy) {
	sb, db := src.(*Buffer), dst.(*Buffer)
	cb.record("CopyBuffer", func(x *exec) error {
		for _, r := range regions {
			if r.SrcOffset+r.Size > len(sb.Data) || r.DstOffset+r.Size > len(db.Data) {
				return fmt.Errorf("region %+v out of range", r)
			}
			copy(db.Data[r.DstOffset:r.DstOffset+r.Size], sb.Data[r.SrcOffset:r.SrcOffset+r.Size])
		}
		return nil
	})
}

func (cb *CommandBuffer) CopyBufferToImage(src driver.Buffer, dst driver.Image, layout driver.ImageLayout, region driver.BufferImageCopy) {
	sb, im := src.(*Buffer), dst.(*Image)
	cb.record("CopyBufferToImage", func(x *exec) error {
		if layout != driver.LayoutTransferDst || im.Layouts[region.MipLevel] != driver.LayoutTransferDst {
			return fmt.Errorf("image mip %d is in layout %v, want TransferDst", region.MipLevel, im.Layouts[region.MipLevel])
		}
		ex := im.MipExtent(region.MipLevel)
		if region.Extent.Width != ex.Width || region.Extent.Height != ex.Height {
			return fmt.Errorf("copy extent %v does not match mip extent %v", region.Extent, ex)
		}
		n := len(im.Mips[region.MipLevel])
		if region.BufferOffset+n > len(sb.Data) {
			return fmt.Errorf("buffer of size %d too small for %d bytes at %d", len(sb.Data), n, region.BufferOffset)
		}
		copy(im.Mips[region.MipLevel], sb.Data[region.BufferOffset:])
		return nil
	})
}

func (cb *CommandBuffer) PipelineBarrier(barriers ...driver.ImageBarrier) {
	cb.record("PipelineBarrier", func(x *exec) error {
		for _, b := range barriers {
			im := b.Image.(*Image)
			if b.BaseMip < 0 || b.MipCount < 1 || b.BaseMip+b.MipCount > len(im.Layouts) {
				return fmt.Errorf("barrier mips [%d, +%d) out of range", b.BaseMip, b.MipCount)
			}
			if b.Aspect&driver.AspectDepth != 0 != im.Desc.Format.IsDepth() {
				return fmt.Errorf("barrier aspect %d does not match format %v", b.Aspect, im.Desc.Format)
			}
			for m := b.BaseMip; m < b.BaseMip+b.MipCount; m++ {
				if b.OldLayout != driver.LayoutUndefined && im.Layouts[m] != b.OldLayout {
					return fmt.Errorf("barrier from %v but mip %d is in %v", b.OldLayout, m, im.Layouts[m])
				}
				im.Layouts[m] = b.NewLayout
			}
		}
		return nil
	})
}

func (cb *CommandBuffer) BlitImage(img driver.Image, blit driver.ImageBlit) {
	im := img.(*Image)
	cb.record("BlitImage", func(x *exec) error {
		if im.Layouts[blit.SrcMip] != driver.LayoutTransferSrc || im.Layouts[blit.DstMip] != driver.LayoutTransferDst {
			return fmt.Errorf("blit layouts are %v -> %v", im.Layouts[blit.SrcMip], im.Layouts[blit.DstMip])
		}
		if blit.SrcExtent != im.MipExtent(blit.SrcMip) || blit.DstExtent != im.MipExtent(blit.DstMip) {
			return fmt.Errorf("blit extents %v -> %v do not match the mips", blit.SrcExtent, blit.DstExtent)
		}
		src, err := im.RGBA(blit.SrcMip)
		if err != nil {
			return err
		}
		dst, err := im.RGBA(blit.DstMip)
		if err != nil {
			return err
		}
		draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		return nil
	})
}

func (cb *CommandBuffer) BindPipeline(p driver.Pipeline) {
	sp := p.(*Pipeline)
	cb.record("BindPipeline", func(x *exec) error {
		x.pipeline = sp
		return nil
	})
}

func (cb *CommandBuffer) BindDescriptorSets(p driver.Pipeline, first int, sets ...driver.DescriptorSet) {
	sp := p.(*Pipeline)
	cb.record("BindDescriptorSets", func(x *exec) error {
		if first+len(sets) > len(sp.Desc.SetLayouts) {
			return fmt.Errorf("binding %d sets at %d to a pipeline with %d layouts", len(sets), first, len(sp.Desc.SetLayouts))
		}
		for _, s := range sets {
			if s.(*DescriptorSet).dead {
				return errors.New("bind of a freed descriptor set")
			}
		}
		return nil
	})
}

func (cb *CommandBuffer) BindVertexBuffers(first int, bufs []driver.Buffer, offsets []int) {
	cb.record("BindVertexBuffers", func(x *exec) error {
		if len(bufs) != len(offsets) {
			return fmt.Errorf("%d vertex buffers with %d offsets", len(bufs), len(offsets))
		}
		x.vertex = first + len(bufs)
		return nil
	})
}

func (cb *CommandBuffer) BindIndexBuffer(b driver.Buffer, offset int, typ driver.IndexType) {
	sb := b.(*Buffer)
	cb.record("BindIndexBuffer", func(x *exec) error {
		x.index, x.indexOff, x.indexType = sb, offset, typ
		return nil
	})
}

func (cb *CommandBuffer) PushConstants(p driver.Pipeline, stages driver.ShaderStages, offset int, data []byte) {
	sp := p.(*Pipeline)
	cb.record("PushConstants", func(x *exec) error {
		for _, r := range sp.Desc.PushConstants {
			if r.Stages&stages == stages && offset >= r.Offset && offset+len(data) <= r.Offset+r.Size {
				return nil
			}
		}
		return fmt.Errorf("push constant range [%d, +%d) not declared by the pipeline", offset, len(data))
	})
}

func (cb *CommandBuffer) SetViewport(vp driver.Viewport) {
	cb.record("SetViewport", func(x *exec) error { return nil })
}

func (cb *CommandBuffer) SetScissor(r driver.Rect2D) {
	cb.record("SetScissor", func(x *exec) error { return nil })
}

func (cb *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance int) {
	cb.record("DrawIndexed", func(x *exec) error {
		switch {
		case !x.rendering:
			return errors.New("draw outside of a rendering pass")
		case x.pipeline == nil:
			return errors.New("draw without a bound pipeline")
		case x.index == nil:
			return errors.New("draw without a bound index buffer")
		case x.vertex < len(x.pipeline.Desc.Bindings):
			return fmt.Errorf("pipeline uses %d vertex bindings but %d are bound", len(x.pipeline.Desc.Bindings), x.vertex)
		}
		if end := x.indexOff + (firstIndex+indexCount)*x.indexType.Bytes(); end > len(x.index.Data) {
			return fmt.Errorf("indices end at %d past index buffer size %d", end, len(x.index.Data))
		}
		x.dev.Draws++
		return nil
	})
}

func (cb *CommandBuffer) BeginRendering(info driver.RenderingInfo) {
	cb.record("BeginRendering", func(x *exec) error {
		if x.rendering {
			return errors.New("nested rendering pass")
		}
		target := info.Color
		if info.Resolve != nil {
			target = info.Resolve
		}
		im := target.(*ImageView).Image
		if im.Layouts[0] != driver.LayoutColorAttachment {
			return fmt.Errorf("color target is in layout %v", im.Layouts[0])
		}
		if info.Depth != nil {
			dm := info.Depth.(*ImageView).Image
			if dm.Layouts[0] != driver.LayoutDepthStencilAttachment {
				return fmt.Errorf("depth target is in layout %v", dm.Layouts[0])
			}
		}
		var px [4]byte
		for i, c := range info.ClearColor {
			px[i] = uint8(math.Round(float64(min(max(c, 0), 1)) * 255))
		}
		pix := im.Mips[0]
		for i := 0; i+4 <= len(pix); i += 4 {
			copy(pix[i:i+4], px[:])
		}
		x.rendering = true
		return nil
	})
}

func (cb *CommandBuffer) EndRendering() {
	cb.record("EndRendering", func(x *exec) error {
		if !x.rendering {
			return errors.New("EndRendering without BeginRendering")
		}
		x.rendering = false
		return nil
	})
}
