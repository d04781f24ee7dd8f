// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dssim

// Pipeline contract constants. These are fixed per build: changing any of
// them changes the meaning of every reported score.
const (
	// QScale is the integer quantization scale for per-pixel DSSIM
	// values. Quantized contributions are bounded by QScale, so a u64
	// accumulator cannot overflow for any image that fits in memory.
	QScale uint32 = 100_000_000

	// WindowRadius is the Gaussian window radius of the statistics stage.
	WindowRadius = 2

	// WindowSize is the full window edge length (2*WindowRadius + 1).
	WindowSize = WindowRadius*2 + 1

	// WorkgroupSize is the 1-D compute workgroup size shared by every
	// kernel dispatch.
	WorkgroupSize = 64

	// MinScaleDim is the smallest edge length a downsampled level may
	// have. The multi-scale driver stops before producing anything
	// smaller.
	MinScaleDim = 8

	// MaxScales is the fixed number of scale levels (and weights).
	MaxScales = 5
)

// ScaleWeights are the per-level aggregation weights. Levels that are
// never produced (small images) do not contribute; the weighted mean is
// normalized over the weights of produced levels only.
var ScaleWeights = [MaxScales]float64{0.028, 0.197, 0.322, 0.298, 0.155}

// StageOptions configures one statistics dispatch.
type StageOptions struct {
	// Level is the scale level, used only for diagnostics.
	Level int

	// CollectStats requests readback of the intermediate window
	// statistics (means, variances, covariance) alongside the DSSIM map.
	CollectStats bool
}

// StageOutputs is the raw result of one preprocess + statistics dispatch,
// as read back from the executor. All slices have Width*Height elements;
// the statistics slices are nil unless requested.
type StageOutputs struct {
	Width  uint32
	Height uint32

	// DssimQ is the fixed-point DSSIM map: round((1-SSIM)/2 * QScale),
	// clamped to [0, QScale].
	DssimQ []uint32

	Mu1   []float32
	Mu2   []float32
	Var1  []float32
	Var2  []float32
	Cov12 []float32
}

// Executor runs the pipeline kernels on some compute substrate. The two
// implementations are backend/native (WebGPU) and backend/cpu (pure Go
// reference). Executors are not safe for concurrent use; the multi-scale
// driver calls them from a single goroutine.
type Executor interface {
	// Engine returns the pipeline variant identifier recorded in reports,
	// e.g. "gpu-wgpu-wgsl-dssim-ms-stage5x5-gaussian-linear".
	Engine() string

	// Describe returns a free-form device description for reports,
	// e.g. the GPU adapter name.
	Describe() string

	// RunScale executes the preprocess and window-statistics kernels on
	// one image pair and reads back the quantized DSSIM map (plus
	// intermediate statistics when requested). Both images must share
	// dimensions; a length/dimension mismatch fails with ErrInvalidShape
	// before any work is submitted.
	RunScale(img1, img2 *LinearImage, opts StageOptions) (*StageOutputs, error)

	// Downsample performs the 2x2 box average, truncating odd trailing
	// rows and columns. Fails with ErrDimensionsTooSmall if either output
	// dimension would be zero.
	Downsample(img *LinearImage) (*LinearImage, error)

	// Close releases executor resources. Safe to call more than once.
	Close()
}

// ScaleResult holds the finished statistics of one scale level.
type ScaleResult struct {
	Level  int
	Width  uint32
	Height uint32

	// DssimQ is the quantized DSSIM map for the level.
	DssimQ []uint32

	// Intermediate window statistics, present only when collected.
	Mu1, Mu2, Var1, Var2, Cov12 []float32

	// Sum is the exact 64-bit sum over DssimQ.
	Sum uint64

	// MeanDssim is Sum / (QScale * Width * Height).
	MeanDssim float64

	// SSIMScore is the per-level dispersion score in (-inf, 1];
	// identical inputs give exactly 1.
	SSIMScore float64
}

// Result is the final multi-scale report.
type Result struct {
	// Scales holds the produced levels, at most MaxScales.
	Scales []ScaleResult

	// WeightedSSIM is the weight-normalized mean of the per-level scores
	// over produced levels.
	WeightedSSIM float64

	// Score is the final dissimilarity: 1/max(WeightedSSIM, eps) - 1.
	// 0 means identical; larger means more different.
	Score float64

	// Engine and Adapter identify the executor that produced the result.
	Engine  string
	Adapter string

	// Level1Image1 and Level1Image2 are the first downsampled pair,
	// retained only when debug collection is enabled.
	Level1Image1 *LinearImage
	Level1Image2 *LinearImage
}
