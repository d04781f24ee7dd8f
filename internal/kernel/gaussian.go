// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

// WindowRadius is the Gaussian window radius of the statistics kernel.
const WindowRadius = 2

// GaussTaps is the separable 1-D window kernel: the binomial blur kernel
// [1 2 1]/4 convolved with itself, normalized so the 2-D outer product
// sums to 1. The same taps define the conceptual low-pass of the
// downsampling chain.
var GaussTaps = [2*WindowRadius + 1]float32{
	1.0 / 16.0,
	4.0 / 16.0,
	6.0 / 16.0,
	4.0 / 16.0,
	1.0 / 16.0,
}

// clampCoord clamps a window tap coordinate to the image, extending edge
// pixels outward. The edge policy is contract-fixed and exercised by
// tests.
func clampCoord(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
