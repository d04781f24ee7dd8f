// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

// SSIM stabilization constants (K1*L)^2 and (K2*L)^2 with K1=0.01,
// K2=0.03 and L=1 for normalized luma.
const (
	ssimC1 float32 = 0.0001
	ssimC2 float32 = 0.0009
)

// Stage0Outputs holds the tensors produced by one statistics pass. The
// statistics slices are nil unless requested.
type Stage0Outputs struct {
	DssimQ []uint32
	Mu1    []float32
	Mu2    []float32
	Var1   []float32
	Var2   []float32
	Cov12  []float32
}

// Stage0 computes Gaussian-windowed means, variances and covariance of
// the two luma tensors, derives per-pixel SSIM, and quantizes DSSIM into
// the fixed-point map. lab1 and lab2 are preprocess records (4 float32
// per pixel); only the first component enters the statistics.
//
// Window taps outside the image clamp to the nearest in-bounds pixel.
func Stage0(lab1, lab2 []float32, p Params, collectStats bool) *Stage0Outputs {
	n := int(p.Len)
	w := int(p.Width)
	h := int(p.Height)

	out := &Stage0Outputs{DssimQ: make([]uint32, n)}
	if collectStats {
		out.Mu1 = make([]float32, n)
		out.Mu2 = make([]float32, n)
		out.Var1 = make([]float32, n)
		out.Var2 = make([]float32, n)
		out.Cov12 = make([]float32, n)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var s1, s2, s11, s22, s12 float32
			for dy := -WindowRadius; dy <= WindowRadius; dy++ {
				ty := clampCoord(y+dy, h-1)
				wy := GaussTaps[dy+WindowRadius]
				for dx := -WindowRadius; dx <= WindowRadius; dx++ {
					tx := clampCoord(x+dx, w-1)
					wt := wy * GaussTaps[dx+WindowRadius]
					v1 := lab1[(ty*w+tx)*4]
					v2 := lab2[(ty*w+tx)*4]
					s1 += wt * v1
					s2 += wt * v2
					s11 += wt * (v1 * v1)
					s22 += wt * (v2 * v2)
					s12 += wt * (v1 * v2)
				}
			}

			mu1 := s1
			mu2 := s2
			var1 := s11 - mu1*mu1
			var2 := s22 - mu2*mu2
			cov := s12 - mu1*mu2

			ssim := ((2*mu1*mu2 + ssimC1) * (2*cov + ssimC2)) /
				((mu1*mu1 + mu2*mu2 + ssimC1) * (var1 + var2 + ssimC2))

			dssim := (1 - ssim) * 0.5
			if dssim < 0 {
				dssim = 0
			}

			i := y*w + x
			out.DssimQ[i] = quantize(dssim, p.QScale)
			if collectStats {
				out.Mu1[i] = mu1
				out.Mu2[i] = mu2
				out.Var1[i] = var1
				out.Var2[i] = var2
				out.Cov12[i] = cov
			}
		}
	}
	return out
}

// quantize converts a non-negative DSSIM value to fixed point: scale,
// round half up, clamp to [0, qscale]. The shader performs the identical
// operation in f32.
func quantize(dssim float32, qscale uint32) uint32 {
	scaled := dssim*float32(qscale) + 0.5
	if scaled <= 0 {
		return 0
	}
	q := uint32(scaled)
	if q > qscale {
		return qscale
	}
	return q
}
