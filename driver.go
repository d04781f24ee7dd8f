// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dssim

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// scoreEpsilon floors the weighted SSIM before inversion so the final
// score stays finite for maximally dissimilar inputs.
const scoreEpsilon = 0x1p-52

// EngineAuto, EngineGPU and EngineCPU select the execution engine.
const (
	EngineAuto = "auto"
	EngineGPU  = "gpu"
	EngineCPU  = "cpu"
)

// Options configures a comparison.
type Options struct {
	// Executor runs the kernels. When nil, one is created according to
	// Engine via the registered engine factories.
	Executor Executor

	// Engine is EngineAuto (default), EngineGPU or EngineCPU. Ignored
	// when Executor is set. EngineAuto tries the GPU engine first and,
	// when GPU bring-up fails with ErrGPUInit, falls back to the CPU
	// reference with a logged warning; other GPU errors are returned.
	Engine string

	// CollectDebug requests level-0 intermediate statistics and retains
	// the level-1 downsampled images for the debug exporter.
	CollectDebug bool
}

// engine factories, registered by the backend packages' init functions.
var (
	enginesMu sync.RWMutex
	engines   = make(map[string]func() (Executor, error))
)

// RegisterEngine makes an executor factory available under the given
// engine name. Backend packages call this from init; importing a backend
// is enough to make its engine selectable.
func RegisterEngine(name string, factory func() (Executor, error)) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	engines[name] = factory
}

// newExecutor resolves an engine mode to a live executor.
func newExecutor(mode string) (Executor, error) {
	if mode == "" {
		mode = EngineAuto
	}

	enginesMu.RLock()
	gpuFactory := engines[EngineGPU]
	cpuFactory := engines[EngineCPU]
	enginesMu.RUnlock()

	switch mode {
	case EngineGPU:
		if gpuFactory == nil {
			return nil, fmt.Errorf("%w: gpu engine not linked in", ErrGPUInit)
		}
		return gpuFactory()
	case EngineCPU:
		if cpuFactory == nil {
			return nil, fmt.Errorf("%w: cpu engine not linked in", ErrInvalidArgs)
		}
		return cpuFactory()
	case EngineAuto:
		if gpuFactory != nil {
			exec, err := gpuFactory()
			if err == nil {
				return exec, nil
			}
			// Only the absence of a usable adapter downgrades to the CPU
			// reference; a missing or broken shader stays fatal.
			if !errors.Is(err, ErrGPUInit) {
				return nil, err
			}
			Logger().Warn("GPU engine unavailable, falling back to CPU", "error", err)
		}
		if cpuFactory == nil {
			return nil, fmt.Errorf("%w: no engine available", ErrGPUInit)
		}
		return cpuFactory()
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrInvalidArgs, mode)
	}
}

// Compare runs the full multi-scale pipeline on a decoded image pair and
// returns the aggregate result. The images must have identical, nonzero
// dimensions; mismatches fail with ErrInvalidInput before any kernel
// work starts.
func Compare(img1, img2 *ImageRgba8, opts Options) (*Result, error) {
	if img1 == nil || img2 == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	if img1.Width != img2.Width || img1.Height != img2.Height {
		return nil, fmt.Errorf("%w: size mismatch %dx%d vs %dx%d",
			ErrInvalidInput, img1.Width, img1.Height, img2.Width, img2.Height)
	}
	if img1.Width == 0 || img1.Height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}

	cur1, err := img1.ToLinear()
	if err != nil {
		return nil, err
	}
	cur2, err := img2.ToLinear()
	if err != nil {
		return nil, err
	}

	exec := opts.Executor
	if exec == nil {
		exec, err = newExecutor(opts.Engine)
		if err != nil {
			return nil, err
		}
		defer exec.Close()
	}

	result := &Result{
		Engine:  exec.Engine(),
		Adapter: exec.Describe(),
	}

	for level := 0; level < MaxScales; level++ {
		stage, err := exec.RunScale(cur1, cur2, StageOptions{
			Level:        level,
			CollectStats: opts.CollectDebug && level == 0,
		})
		if err != nil {
			return nil, err
		}

		scale := scoreScale(level, stage)
		Logger().Debug("scale complete",
			"level", level, "width", scale.Width, "height", scale.Height,
			"sum", scale.Sum, "ssim_score", scale.SSIMScore)
		result.Scales = append(result.Scales, scale)

		if level+1 >= MaxScales {
			break
		}
		// Stop before producing a level with either edge below the
		// minimum: the halved dimensions must both stay >= MinScaleDim.
		if cur1.Width/2 < MinScaleDim || cur1.Height/2 < MinScaleDim {
			break
		}

		next1, err := exec.Downsample(cur1)
		if err != nil {
			return nil, err
		}
		next2, err := exec.Downsample(cur2)
		if err != nil {
			return nil, err
		}
		if level == 0 && opts.CollectDebug {
			result.Level1Image1 = next1
			result.Level1Image2 = next2
		}
		cur1, cur2 = next1, next2
	}

	aggregate(result)
	return result, nil
}

// scoreScale derives the per-level statistics from a quantized DSSIM
// map: the exact integer sum, the mean DSSIM, and the dispersion-based
// SSIM score of the level.
func scoreScale(level int, stage *StageOutputs) ScaleResult {
	elems := len(stage.DssimQ)

	var sum uint64
	for _, q := range stage.DssimQ {
		sum += uint64(q)
	}

	// Per-pixel SSIM recovered from the fixed-point map, in double
	// precision from here on.
	ssimSum := 0.0
	ssim := make([]float64, elems)
	for i, q := range stage.DssimQ {
		s := 1.0 - 2.0*float64(q)/float64(QScale)
		ssim[i] = s
		ssimSum += s
	}
	meanSsim := ssimSum / float64(elems)
	avg := math.Pow(math.Max(meanSsim, 0), math.Pow(0.5, float64(level)))

	devSum := 0.0
	for _, s := range ssim {
		devSum += math.Abs(avg - s)
	}

	return ScaleResult{
		Level:     level,
		Width:     stage.Width,
		Height:    stage.Height,
		DssimQ:    stage.DssimQ,
		Mu1:       stage.Mu1,
		Mu2:       stage.Mu2,
		Var1:      stage.Var1,
		Var2:      stage.Var2,
		Cov12:     stage.Cov12,
		Sum:       sum,
		MeanDssim: float64(sum) / (float64(elems) * float64(QScale)),
		SSIMScore: 1.0 - devSum/float64(elems),
	}
}

// aggregate combines the produced scales into the final score. Weights
// of levels that were never produced are excluded from the
// normalization.
func aggregate(r *Result) {
	weightedSum := 0.0
	weightTotal := 0.0
	for i := range r.Scales {
		w := ScaleWeights[i]
		weightedSum += r.Scales[i].SSIMScore * w
		weightTotal += w
	}
	r.WeightedSSIM = weightedSum / weightTotal
	r.Score = 1.0/math.Max(r.WeightedSSIM, scoreEpsilon) - 1.0
}
