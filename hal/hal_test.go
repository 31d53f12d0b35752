// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"testing"

	"cogentcore.org/vhal/driver/soft"
	"github.com/stretchr/testify/require"
)

// shaderCode is a stand-in for SPIR-V bytecode.
var shaderCode = []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}

func newTestBackend(t *testing.T, opts *Options) (*Backend, *soft.Device) {
	t.Helper()
	dev := soft.NewDevice()
	be, err := NewBackend(dev, opts)
	require.NoError(t, err)
	return be, dev
}

func newTestSwapchain(t *testing.T, be *Backend, buffering int) (SwapchainRef, *soft.Surface) {
	t.Helper()
	surf := soft.NewSurface(64, 48)
	sc, err := be.MakeSwapchain(surf, buffering)
	require.NoError(t, err)
	return sc, surf
}

// renderFrame records an empty rendering pass and ends the frame.
func renderFrame(t *testing.T, be *Backend, cmd CommandBuffer, sc SwapchainRef) FrameResult {
	t.Helper()
	require.NoError(t, be.BeginRendering(cmd, sc))
	require.NoError(t, be.EndRendering(cmd, sc))
	res, err := be.EndFrame(cmd, sc)
	require.NoError(t, err)
	return res
}
