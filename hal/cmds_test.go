// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneTimeCopy(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	data := []byte("0123456789abcdef")
	src, err := be.MakeStagingBuffer(len(data))
	require.NoError(t, err)
	dst, err := be.MakeStagingBuffer(len(data))
	require.NoError(t, err)
	require.NoError(t, be.UpdateBuffer(src, []BufferUpdate{{Data: data}}))

	err = be.Cmds.OneTime(func(cmd CommandBuffer) error {
		return be.CopyBuffer(cmd, src, dst)
	})
	require.NoError(t, err)

	got := make([]byte, len(data))
	require.NoError(t, be.ReadBuffer(dst, 0, got))
	assert.Equal(t, data, got)
	assert.Equal(t, 0, dev.Live("commandbuffer"))
}

func TestCmdStates(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	cmds, err := be.MakeCommandBuffers(1)
	require.NoError(t, err)
	cmd := cmds[0]

	st, err := be.Cmds.State(cmd)
	require.NoError(t, err)
	assert.Equal(t, NotRecording, st)
	assert.ErrorIs(t, be.EndCommandBuffer(cmd), ErrInvalidState)
	assert.ErrorIs(t, be.SubmitCommandBuffer(cmd), ErrInvalidState)

	require.NoError(t, be.BeginCommandBuffer(cmd, OneTime))
	assert.ErrorIs(t, be.BeginCommandBuffer(cmd, OneTime), ErrInvalidState)
	require.NoError(t, be.EndCommandBuffer(cmd))
	st, _ = be.Cmds.State(cmd)
	assert.Equal(t, Recorded, st)

	require.NoError(t, be.SubmitCommandBuffer(cmd))
	st, _ = be.Cmds.State(cmd)
	assert.Equal(t, Consumed, st)
	assert.ErrorIs(t, be.SubmitCommandBuffer(cmd), ErrInvalidState)

	// re-recording makes it usable again, and reusable buffers
	// can be submitted repeatedly
	require.NoError(t, be.BeginCommandBuffer(cmd, Reusable))
	require.NoError(t, be.EndCommandBuffer(cmd))
	require.NoError(t, be.SubmitCommandBuffer(cmd))
	require.NoError(t, be.SubmitCommandBuffer(cmd))
	st, _ = be.Cmds.State(cmd)
	assert.Equal(t, Recorded, st)
}

func TestRecordingRequiresBegin(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	cmds, err := be.MakeCommandBuffers(1)
	require.NoError(t, err)
	a, err := be.MakeStagingBuffer(8)
	require.NoError(t, err)
	b, err := be.MakeStagingBuffer(8)
	require.NoError(t, err)
	assert.ErrorIs(t, be.CopyBuffer(cmds[0], a, b), ErrInvalidState)
	assert.ErrorIs(t, be.DrawIndexed(cmds[0], 3, 1, 0, 0, 0), ErrInvalidState)
}

func TestOneTimeErrorPropagates(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	errTest := errors.New("test error")
	err := be.Cmds.OneTime(func(cmd CommandBuffer) error {
		return errTest
	})
	assert.ErrorIs(t, err, errTest)
	assert.Equal(t, 0, dev.Live("commandbuffer"))
}

func TestReleaseAfterPoolDestroy(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	cmds, err := be.MakeCommandBuffers(3)
	require.NoError(t, err)
	assert.Equal(t, 3, dev.Live("commandbuffer"))
	be.Cmds.Destroy()
	assert.Equal(t, 0, dev.Live("commandbuffer"))
	for i := range cmds {
		assert.NotPanics(t, func() { cmds[i].Release() })
	}
	_, err = be.MakeCommandBuffers(1)
	assert.ErrorIs(t, err, ErrInvalidState)
}
