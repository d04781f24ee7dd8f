// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dssim

import "errors"

// Error kinds surfaced by the pipeline. Every failure aborts the whole
// computation; callers match with errors.Is.
var (
	// ErrInvalidArgs is returned for malformed command-line input.
	ErrInvalidArgs = errors.New("dssim: invalid arguments")

	// ErrInvalidInput is returned for corrupt or mismatched input images,
	// including RGBA buffers whose length is not a multiple of 4.
	ErrInvalidInput = errors.New("dssim: invalid input image")

	// ErrInvalidShape is returned when an internal buffer length does not
	// match the dimensions it claims. This is a precondition violation; no
	// GPU work is submitted.
	ErrInvalidShape = errors.New("dssim: buffer shape mismatch")

	// ErrShaderNotFound is returned when a WGSL source file is missing
	// from every search location.
	ErrShaderNotFound = errors.New("dssim: shader file not found")

	// ErrShaderCompile is returned when WGSL compilation or shader module
	// creation fails.
	ErrShaderCompile = errors.New("dssim: shader compilation failed")

	// ErrGPUInit is returned when adapter or device acquisition fails.
	ErrGPUInit = errors.New("dssim: GPU initialization failed")

	// ErrMapFailed is returned when a readback buffer cannot be mapped.
	ErrMapFailed = errors.New("dssim: buffer map failed")

	// ErrDeviceLost is returned when the GPU device is lost mid-run.
	ErrDeviceLost = errors.New("dssim: GPU device lost")

	// ErrDimensionsTooSmall is returned when a downsample would produce a
	// zero-sized image.
	ErrDimensionsTooSmall = errors.New("dssim: dimensions too small")

	// ErrIO is returned for file read/write failures.
	ErrIO = errors.New("dssim: i/o error")
)
