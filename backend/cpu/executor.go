// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cpu

import (
	"fmt"

	"github.com/gogpu/dssim"
	"github.com/gogpu/dssim/internal/kernel"
)

// EngineName identifies the CPU reference pipeline variant in reports.
const EngineName = "cpu-reference-dssim-ms-stage5x5-gaussian-linear"

func init() {
	dssim.RegisterEngine(dssim.EngineCPU, func() (dssim.Executor, error) {
		return New(), nil
	})
}

// Executor runs the pipeline kernels in process. It holds no resources,
// so the zero value is as usable as one returned by New.
type Executor struct{}

// New creates a CPU reference executor.
func New() *Executor {
	return &Executor{}
}

// Engine returns the pipeline variant identifier.
func (e *Executor) Engine() string { return EngineName }

// Describe returns the device description recorded in reports.
func (e *Executor) Describe() string { return "cpu-reference" }

// RunScale executes the preprocess and statistics kernels on one image
// pair.
func (e *Executor) RunScale(img1, img2 *dssim.LinearImage, opts dssim.StageOptions) (*dssim.StageOutputs, error) {
	if err := checkShape(img1); err != nil {
		return nil, err
	}
	if err := checkShape(img2); err != nil {
		return nil, err
	}
	if img1.Width != img2.Width || img1.Height != img2.Height {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d",
			dssim.ErrInvalidShape, img1.Width, img1.Height, img2.Width, img2.Height)
	}

	params := kernel.Params{
		Len:    img1.Width * img1.Height,
		Width:  img1.Width,
		Height: img1.Height,
		QScale: dssim.QScale,
	}

	lab1 := kernel.Preprocess(img1.Pixels, params)
	lab2 := kernel.Preprocess(img2.Pixels, params)
	st := kernel.Stage0(lab1, lab2, params, opts.CollectStats)

	return &dssim.StageOutputs{
		Width:  img1.Width,
		Height: img1.Height,
		DssimQ: st.DssimQ,
		Mu1:    st.Mu1,
		Mu2:    st.Mu2,
		Var1:   st.Var1,
		Var2:   st.Var2,
		Cov12:  st.Cov12,
	}, nil
}

// Downsample performs the 2x2 box average.
func (e *Executor) Downsample(img *dssim.LinearImage) (*dssim.LinearImage, error) {
	if err := checkShape(img); err != nil {
		return nil, err
	}
	ow, oh := img.Width/2, img.Height/2
	if ow == 0 || oh == 0 {
		return nil, fmt.Errorf("%w: %dx%d halves to %dx%d",
			dssim.ErrDimensionsTooSmall, img.Width, img.Height, ow, oh)
	}
	return &dssim.LinearImage{
		Width:  ow,
		Height: oh,
		Pixels: kernel.Downsample(img.Pixels, img.Width, img.Height),
	}, nil
}

// Close is a no-op; the CPU engine holds no resources.
func (e *Executor) Close() {}

func checkShape(img *dssim.LinearImage) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", dssim.ErrInvalidShape)
	}
	want := int(img.Width) * int(img.Height) * 4
	if len(img.Pixels) != want {
		return fmt.Errorf("%w: %d floats for %dx%d (want %d)",
			dssim.ErrInvalidShape, len(img.Pixels), img.Width, img.Height, want)
	}
	if want == 0 {
		return fmt.Errorf("%w: empty image", dssim.ErrInvalidShape)
	}
	return nil
}
