// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package kernel holds pure Go mirrors of the pipeline's WGSL compute
// kernels: luma preprocessing, 5x5 Gaussian window statistics with
// fixed-point DSSIM output, and 2x2 box downsampling.
//
// The mirrors use float32 arithmetic and the same rounding and clamping
// as the shaders, so the CPU engine reproduces the GPU engine's
// quantized sums. They also serve as the executable reference for the
// test suite, which cannot assume GPU hardware.
//
// All functions operate on flat row-major tensors, four float32
// components per pixel for images and luma records, matching the GPU
// buffer layouts byte for byte.
package kernel
