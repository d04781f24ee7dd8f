// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package dssim computes a perceptual difference score between two
// equally sized raster images using a multi-scale structural
// dissimilarity (DSSIM) pipeline driven on a portable GPU-compute API.
//
// # Overview
//
// dssim converts both inputs to premultiplied linear-light RGBA, reduces
// each pixel to a luma record, computes windowed SSIM statistics over a
// 5x5 Gaussian window, and accumulates quantized per-pixel DSSIM values.
// The metric is repeated on 2x2 box-downsampled images for up to five
// scales, and the per-scale scores are combined into a single scalar:
// 0 means identical, larger means more different.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/dssim"
//	    _ "github.com/gogpu/dssim/backend/cpu"    // CPU reference engine
//	    _ "github.com/gogpu/dssim/backend/native" // GPU engine
//	)
//
//	img1, _ := dssim.LoadImage("a.png")
//	img2, _ := dssim.LoadImage("b.png")
//
//	result, err := dssim.Compare(img1, img2, dssim.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%.8f\n", result.Score)
//
// # Engines
//
// Two execution engines implement the same kernel contracts:
//
//   - backend/native: compute shaders on WebGPU via gogpu/wgpu, with WGSL
//     kernels compiled through gogpu/naga.
//   - backend/cpu: a bit-faithful pure Go mirror of the kernels, used as
//     automatic fallback and as the reference for tests.
//
// Quantized per-pixel sums are integers, so both engines produce
// identical sums for identical inputs regardless of reduction order.
//
// # Logging
//
// dssim is silent by default. Call [SetLogger] with a *slog.Logger to
// enable diagnostics.
package dssim
