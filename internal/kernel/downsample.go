// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

// Downsample performs a 2x2 box average over a premultiplied linear RGBA
// tensor. Output dimensions are floor(w/2) x floor(h/2); an odd trailing
// row or column is dropped. Callers must reject zero output dimensions
// before calling.
func Downsample(rgba []float32, w, h uint32) []float32 {
	ow := int(w / 2)
	oh := int(h / 2)
	iw := int(w)

	out := make([]float32, ow*oh*4)
	for y := 0; y < oh; y++ {
		for x := 0; x < ow; x++ {
			i00 := ((2*y)*iw + 2*x) * 4
			i01 := i00 + 4
			i10 := i00 + iw*4
			i11 := i10 + 4
			o := (y*ow + x) * 4
			for c := 0; c < 4; c++ {
				out[o+c] = (rgba[i00+c] + rgba[i01+c] + rgba[i10+c] + rgba[i11+c]) * 0.25
			}
		}
	}
	return out
}
