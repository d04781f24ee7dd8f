// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"math"
	"testing"
)

func TestGaussTapsNormalized(t *testing.T) {
	// The 2-D outer product of the taps must sum to 1.
	sum2d := 0.0
	for _, wy := range GaussTaps {
		for _, wx := range GaussTaps {
			sum2d += float64(wy) * float64(wx)
		}
	}
	if math.Abs(sum2d-1.0) > 1e-6 {
		t.Errorf("2-D window sum = %v, want 1", sum2d)
	}
}

func TestGaussTapsSymmetric(t *testing.T) {
	n := len(GaussTaps)
	for i := 0; i < n/2; i++ {
		if GaussTaps[i] != GaussTaps[n-1-i] {
			t.Errorf("taps not symmetric: tap[%d]=%v tap[%d]=%v",
				i, GaussTaps[i], n-1-i, GaussTaps[n-1-i])
		}
	}
}

func TestGaussTapsBinomial(t *testing.T) {
	// [1 2 1]/4 convolved with itself is [1 4 6 4 1]/16.
	want := [5]float32{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}
	if GaussTaps != want {
		t.Errorf("taps = %v, want %v", GaussTaps, want)
	}
}

func TestClampCoord(t *testing.T) {
	tests := []struct {
		name     string
		v, max   int
		expected int
	}{
		{"in range", 3, 7, 3},
		{"below zero", -2, 7, 0},
		{"at zero", 0, 7, 0},
		{"at max", 7, 7, 7},
		{"above max", 9, 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampCoord(tt.v, tt.max); got != tt.expected {
				t.Errorf("clampCoord(%d, %d) = %d, want %d", tt.v, tt.max, got, tt.expected)
			}
		})
	}
}
