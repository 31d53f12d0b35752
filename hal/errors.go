// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"fmt"

	"cogentcore.org/core/base/errors"
)

var (
	// ErrInvalidState is returned when an operation is called on an
	// object in the wrong state, such as ending a command buffer that
	// is not recording.
	ErrInvalidState = errors.New("vhal: invalid state")

	// ErrPrecondition is returned when arguments are inconsistent,
	// such as a different number of buffers and offsets. No native
	// call is made when it is returned.
	ErrPrecondition = errors.New("vhal: precondition failed")
)

func invalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidState}, args...)...)
}

func preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrPrecondition}, args...)...)
}

// opError wraps err with the name of the failing operation.
func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("vhal: %s: %w", op, err)
}
