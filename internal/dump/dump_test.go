// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dump

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/dssim"
)

func testImage(w, h uint32) *dssim.ImageRgba8 {
	return &dssim.ImageRgba8{
		Width:    w,
		Height:   h,
		Channels: 4,
		Pixels:   make([]uint8, w*h*4),
	}
}

func testResult(levels int, stats bool) *dssim.Result {
	r := &dssim.Result{}
	w, h := uint32(16), uint32(16)
	for level := 0; level < levels; level++ {
		s := dssim.ScaleResult{
			Level:  level,
			Width:  w,
			Height: h,
			DssimQ: make([]uint32, w*h),
		}
		if stats && level == 0 {
			n := int(w * h)
			s.Mu1 = make([]float32, n)
			s.Mu2 = make([]float32, n)
			s.Var1 = make([]float32, n)
			s.Var2 = make([]float32, n)
			s.Cov12 = make([]float32, n)
		}
		r.Scales = append(r.Scales, s)
		w /= 2
		h /= 2
	}
	if levels > 1 {
		r.Level1Image1 = &dssim.LinearImage{Width: 8, Height: 8, Pixels: make([]float32, 8*8*4)}
		r.Level1Image2 = &dssim.LinearImage{Width: 8, Height: 8, Pixels: make([]float32, 8*8*4)}
	}
	return r
}

func TestWriteAllSingleScale(t *testing.T) {
	dir := t.TempDir()
	result := testResult(1, true)
	result.Scales[0].DssimQ[0] = 0xAABBCCDD

	records, err := WriteAll(dir, testImage(16, 16), testImage(16, 16), result)
	if err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}

	// Two raw images plus six level-0 tensors; no level-1 files.
	if len(records) != 8 {
		t.Fatalf("record count = %d, want 8", len(records))
	}
	for _, rec := range records {
		if _, err := os.Stat(rec.Info.Path); err != nil {
			t.Errorf("claimed dump %s missing: %v", rec.Info.Path, err)
		}
	}

	// The u32 map is little-endian.
	data, err := os.ReadFile(filepath.Join(dir, FileStage0Dssim))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 256*4 {
		t.Fatalf("dssim dump size = %d, want %d", len(data), 256*4)
	}
	if got := binary.LittleEndian.Uint32(data); got != 0xAABBCCDD {
		t.Errorf("first u32 = %#x, want 0xAABBCCDD", got)
	}

	if _, err := os.Stat(filepath.Join(dir, FileStage1Dssim)); !os.IsNotExist(err) {
		t.Error("stage1 dump written for a single-scale run")
	}
}

func TestWriteAllTwoScales(t *testing.T) {
	dir := t.TempDir()
	records, err := WriteAll(dir, testImage(16, 16), testImage(16, 16), testResult(2, true))
	if err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}

	if len(records) != 11 {
		t.Fatalf("record count = %d, want 11", len(records))
	}
	for _, name := range []string{FileImage1Scale1, FileImage2Scale1, FileStage1Dssim} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("level-1 dump %s missing: %v", name, err)
		}
	}

	// Scale-1 RGBA blobs are 8*8*4 bytes.
	data, err := os.ReadFile(filepath.Join(dir, FileImage1Scale1))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 8*8*4 {
		t.Errorf("scale1 rgba size = %d, want 256", len(data))
	}
}

func TestWriteAllRefusesEmptyTensor(t *testing.T) {
	result := testResult(1, false) // statistics never collected
	_, err := WriteAll(t.TempDir(), testImage(16, 16), testImage(16, 16), result)
	if !errors.Is(err, dssim.ErrInvalidShape) {
		t.Errorf("error = %v, want ErrInvalidShape for empty stats tensor", err)
	}
}

func TestWriteAllRefusesNoScales(t *testing.T) {
	_, err := WriteAll(t.TempDir(), testImage(4, 4), testImage(4, 4), &dssim.Result{})
	if !errors.Is(err, dssim.ErrInvalidShape) {
		t.Errorf("error = %v, want ErrInvalidShape", err)
	}
}

func TestDumpKey(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"stage0_mu1_f32le.gpu.bin", "stage0_mu1_f32le"},
		{"image1_rgba8.gpu.bin", "image1_rgba8"},
		{"odd-name.bin", "odd-name.bin"},
	}
	for _, tt := range tests {
		if got := dumpKey(tt.in); got != tt.out {
			t.Errorf("dumpKey(%q) = %q, want %q", tt.in, got, tt.out)
		}
	}
}
