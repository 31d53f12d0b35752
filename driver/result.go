// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import "fmt"

// Result is the status code of a driver call that can partially
// succeed, such as acquiring or presenting a swapchain image.
type Result int32

const (
	Success Result = iota
	NotReady
	Timeout

	// Suboptimal means the operation succeeded but the swapchain
	// no longer matches the surface exactly.
	Suboptimal

	// ErrorOutOfDate means the swapchain must be recreated
	// before it can be used again.
	ErrorOutOfDate
	ErrorSurfaceLost
	ErrorDeviceLost
	ErrorUnknown
)

var resultNames = []string{"Success", "NotReady", "Timeout", "Suboptimal",
	"ErrorOutOfDate", "ErrorSurfaceLost", "ErrorDeviceLost", "ErrorUnknown"}

func (r Result) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return fmt.Sprintf("Result(%d)", int32(r))
	}
	return resultNames[r]
}

// IsError returns true for results that indicate failure.
func (r Result) IsError() bool {
	return r >= ErrorOutOfDate
}

// Error returns r as an error, or nil for non-error results.
func (r Result) Error() error {
	if !r.IsError() {
		return nil
	}
	return &ResultError{Result: r}
}

// ResultError wraps a failing [Result].
type ResultError struct {
	Result Result
}

func (e *ResultError) Error() string {
	return "driver: " + e.Result.String()
}
