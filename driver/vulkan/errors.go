// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vulkan

import (
	"fmt"
	"runtime"

	"cogentcore.org/vhal/driver"
	vk "github.com/goki/vulkan"
)

// IsError returns whether the result is anything other than success.
func IsError(ret vk.Result) bool {
	return ret != vk.Success
}

// NewError returns an error for a failed result, naming the calling
// function, or nil for success.
func NewError(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	pc, _, line, ok := runtime.Caller(1)
	if !ok {
		return fmt.Errorf("vulkan error: %s (%d)", vk.Error(ret).Error(), ret)
	}
	fn := runtime.FuncForPC(pc)
	return fmt.Errorf("vulkan error: %s (%d) on %s:%d", vk.Error(ret).Error(), ret, fn.Name(), line)
}

// toResult maps a native result onto the driver result codes.
func toResult(ret vk.Result) driver.Result {
	switch ret {
	case vk.Success:
		return driver.Success
	case vk.NotReady:
		return driver.NotReady
	case vk.Timeout:
		return driver.Timeout
	case vk.Suboptimal:
		return driver.Suboptimal
	case vk.ErrorOutOfDate:
		return driver.ErrorOutOfDate
	case vk.ErrorSurfaceLost:
		return driver.ErrorSurfaceLost
	case vk.ErrorDeviceLost:
		return driver.ErrorDeviceLost
	}
	return driver.ErrorUnknown
}
