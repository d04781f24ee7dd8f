// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cpu

import (
	"errors"
	"testing"

	"github.com/gogpu/dssim"
)

func linearImage(w, h uint32, fill float32) *dssim.LinearImage {
	pixels := make([]float32, w*h*4)
	for i := range pixels {
		pixels[i] = fill
	}
	return &dssim.LinearImage{Width: w, Height: h, Pixels: pixels}
}

func TestExecutorIdentity(t *testing.T) {
	e := New()
	if e.Engine() != EngineName {
		t.Errorf("Engine() = %q, want %q", e.Engine(), EngineName)
	}
	if e.Describe() != "cpu-reference" {
		t.Errorf("Describe() = %q, want \"cpu-reference\"", e.Describe())
	}
	e.Close()
	e.Close() // idempotent
}

func TestRunScaleShapeChecks(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		img1 *dssim.LinearImage
		img2 *dssim.LinearImage
	}{
		{"nil first", nil, linearImage(4, 4, 0)},
		{"nil second", linearImage(4, 4, 0), nil},
		{
			"length mismatch",
			&dssim.LinearImage{Width: 4, Height: 4, Pixels: make([]float32, 10)},
			linearImage(4, 4, 0),
		},
		{"dimension mismatch", linearImage(4, 4, 0), linearImage(4, 5, 0)},
		{"empty", linearImage(0, 4, 0), linearImage(0, 4, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.RunScale(tt.img1, tt.img2, dssim.StageOptions{})
			if !errors.Is(err, dssim.ErrInvalidShape) {
				t.Errorf("error = %v, want ErrInvalidShape", err)
			}
		})
	}
}

func TestRunScaleOutputs(t *testing.T) {
	e := New()
	out, err := e.RunScale(linearImage(6, 5, 0.5), linearImage(6, 5, 0.25), dssim.StageOptions{CollectStats: true})
	if err != nil {
		t.Fatalf("RunScale failed: %v", err)
	}
	if out.Width != 6 || out.Height != 5 {
		t.Errorf("dims = %dx%d, want 6x5", out.Width, out.Height)
	}
	if len(out.DssimQ) != 30 {
		t.Errorf("dssim_q length = %d, want 30", len(out.DssimQ))
	}
	if len(out.Mu1) != 30 || len(out.Cov12) != 30 {
		t.Error("intermediate statistics missing or mis-sized")
	}
}

func TestDownsampleErrors(t *testing.T) {
	e := New()

	tests := []struct {
		name  string
		img   *dssim.LinearImage
		errIs error
	}{
		{"nil", nil, dssim.ErrInvalidShape},
		{"1x1 halves to zero", linearImage(1, 1, 0), dssim.ErrDimensionsTooSmall},
		{"1-wide halves to zero", linearImage(1, 8, 0), dssim.ErrDimensionsTooSmall},
		{"1-tall halves to zero", linearImage(8, 1, 0), dssim.ErrDimensionsTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Downsample(tt.img)
			if !errors.Is(err, tt.errIs) {
				t.Errorf("error = %v, want %v", err, tt.errIs)
			}
		})
	}
}

func TestDownsampleHalves(t *testing.T) {
	e := New()
	out, err := e.Downsample(linearImage(9, 7, 0.5))
	if err != nil {
		t.Fatalf("Downsample failed: %v", err)
	}
	if out.Width != 4 || out.Height != 3 {
		t.Errorf("dims = %dx%d, want 4x3", out.Width, out.Height)
	}
	for i, v := range out.Pixels {
		if v != 0.5 {
			t.Fatalf("pixel component %d = %v, want 0.5", i, v)
		}
	}
}
