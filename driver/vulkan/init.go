// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vulkan

import (
	"cogentcore.org/core/base/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
)

// Init initializes glfw and loads the Vulkan entry points through it.
// It must be called before anything else in this package, on the main
// thread.
func Init() error {
	if err := glfw.Init(); err != nil {
		return errors.Log(err)
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	return errors.Log(vk.Init())
}

// Terminate shuts down glfw; call it last, on the main thread.
func Terminate() {
	glfw.Terminate()
}
