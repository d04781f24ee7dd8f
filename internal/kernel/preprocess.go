// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

// Rec. 709 luma coefficients applied to premultiplied linear RGB. These
// determine every downstream score and must match the preprocess shader.
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

// Params mirrors the uniform block shared by the preprocess and
// statistics kernels.
type Params struct {
	Len    uint32
	Width  uint32
	Height uint32
	QScale uint32
}

// Preprocess reduces a premultiplied linear RGBA tensor to per-pixel
// luma records. Each output record is (luma, alpha, 0, 0); alpha is
// carried for inspection but not weighted into the statistics.
func Preprocess(rgba []float32, p Params) []float32 {
	out := make([]float32, len(rgba))
	for i := 0; i < int(p.Len); i++ {
		r := rgba[i*4+0]
		g := rgba[i*4+1]
		b := rgba[i*4+2]
		a := rgba[i*4+3]
		out[i*4+0] = lumaR*r + lumaG*g + lumaB*b
		out[i*4+1] = a
		out[i*4+2] = 0
		out[i*4+3] = 0
	}
	return out
}
