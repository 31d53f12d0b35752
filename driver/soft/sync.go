// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soft

import (
	"errors"
	"fmt"

	"cogentcore.org/vhal/driver"
)

// Fence is a software fence.
type Fence struct {
	Signaled bool
	dead     bool
}

// Semaphore is a software binary semaphore.
type Semaphore struct {
	Signaled bool
	dead     bool
}

// Queue is the single software queue. Work completes during Submit.
type Queue struct {
	dev *Device

	// Submits is the number of successful submissions.
	Submits int

	failures []error
}

// ScriptSubmit queues errors for the next submit calls, which fail
// without executing anything.
func (d *Device) ScriptSubmit(errs ...error) {
	d.queue.failures = append(d.queue.failures, errs...)
}

func (d *Device) CreateFence(signaled bool) (driver.Fence, error) {
	d.created("fence")
	return &Fence{Signaled: signaled}, nil
}

func (d *Device) DestroyFence(f driver.Fence) {
	d.release("fence", &f.(*Fence).dead)
}

// WaitFence returns [driver.Timeout] for an unsignaled fence, since
// no work can be pending after Submit returns.
func (d *Device) WaitFence(f driver.Fence, timeout uint64) driver.Result {
	d.trace("WaitFence")
	if f.(*Fence).Signaled {
		return driver.Success
	}
	return driver.Timeout
}

func (d *Device) ResetFence(f driver.Fence) error {
	d.trace("ResetFence")
	f.(*Fence).Signaled = false
	return nil
}

func (d *Device) FenceSignaled(f driver.Fence) bool {
	return f.(*Fence).Signaled
}

func (d *Device) CreateSemaphore() (driver.Semaphore, error) {
	d.created("semaphore")
	return &Semaphore{}, nil
}

func (d *Device) DestroySemaphore(s driver.Semaphore) {
	d.release("semaphore", &s.(*Semaphore).dead)
}

func (q *Queue) Submit(batch driver.SubmitInfo, fence driver.Fence) error {
	q.dev.trace("Submit")
	if len(q.failures) > 0 {
		err := q.failures[0]
		q.failures = q.failures[1:]
		return err
	}
	if len(batch.WaitStages) != len(batch.Wait) {
		return fmt.Errorf("soft: %d wait semaphores with %d wait stages", len(batch.Wait), len(batch.WaitStages))
	}
	for _, s := range batch.Wait {
		if !s.(*Semaphore).Signaled {
			return errors.New("soft: submit waits on a semaphore that will never be signaled")
		}
	}
	var sf *Fence
	if fence != nil {
		sf = fence.(*Fence)
		if sf.Signaled {
			return errors.New("soft: submit with a fence that is already signaled")
		}
	}
	for _, s := range batch.Wait {
		s.(*Semaphore).Signaled = false
	}
	for _, c := range batch.CommandBuffers {
		if err := c.(*CommandBuffer).execute(); err != nil {
			return err
		}
	}
	for _, s := range batch.Signal {
		s.(*Semaphore).Signaled = true
	}
	if sf != nil {
		sf.Signaled = true
	}
	q.Submits++
	return nil
}

func (q *Queue) Present(info driver.PresentInfo) driver.Result {
	d := q.dev
	d.trace("Present")
	for _, s := range info.Wait {
		ss := s.(*Semaphore)
		if !ss.Signaled {
			d.invalid("present waits on an unsignaled semaphore")
			return driver.ErrorUnknown
		}
		ss.Signaled = false
	}
	sc := info.Swapchain.(*Swapchain)
	if int(info.ImageIndex) >= len(sc.Images) || !sc.acquired[info.ImageIndex] {
		d.invalid("present of image %d that was not acquired", info.ImageIndex)
		return driver.ErrorUnknown
	}
	sc.acquired[info.ImageIndex] = false
	if l := sc.Images[info.ImageIndex].Layouts[0]; l != driver.LayoutPresentSrc {
		d.invalid("present of an image in layout %v", l)
	}
	d.Presents++
	if res, ok := sc.surface.next(&sc.surface.present); ok {
		return res
	}
	return sc.status()
}

func (q *Queue) WaitIdle() error {
	q.dev.trace("QueueWaitIdle")
	return nil
}
