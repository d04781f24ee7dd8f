// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "errors"

// Buffer mapping errors.
var (
	// ErrBufferDestroyed is returned when operating on a destroyed buffer.
	ErrBufferDestroyed = errors.New("native: buffer has been destroyed")

	// ErrBufferAlreadyMapped is returned when a map is already mapped or pending.
	ErrBufferAlreadyMapped = errors.New("native: buffer is already mapped or mapping is pending")

	// ErrBufferNotMapped is returned when accessing unmapped buffer data.
	ErrBufferNotMapped = errors.New("native: buffer is not mapped")

	// ErrInvalidMapRange is returned when the map range is out of bounds.
	ErrInvalidMapRange = errors.New("native: map range out of bounds")

	// ErrMapUsageMismatch is returned when mapping a buffer without MapRead usage.
	ErrMapUsageMismatch = errors.New("native: map mode does not match buffer usage flags")

	// ErrCallbackNil is returned when MapAsync is called with a nil callback.
	ErrCallbackNil = errors.New("native: map callback is nil")
)
