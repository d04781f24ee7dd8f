// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package dump exports raw pipeline tensors for offline inspection.
// All numeric blobs are little-endian, flat row-major. File names and
// layouts are fixed; external tooling parses them by name.
package dump

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/gogpu/dssim"
	"github.com/gogpu/dssim/internal/report"
)

// Fixed dump file names.
const (
	FileImage1Rgba8  = "image1_rgba8.gpu.bin"
	FileImage2Rgba8  = "image2_rgba8.gpu.bin"
	FileStage0Dssim  = "stage0_dssim5x5_gaussian_linear_u32le.gpu.bin"
	FileStage0Mu1    = "stage0_mu1_f32le.gpu.bin"
	FileStage0Mu2    = "stage0_mu2_f32le.gpu.bin"
	FileStage0Var1   = "stage0_var1_f32le.gpu.bin"
	FileStage0Var2   = "stage0_var2_f32le.gpu.bin"
	FileStage0Cov12  = "stage0_cov12_f32le.gpu.bin"
	FileImage1Scale1 = "image1_scale1_rgba8.gpu.bin"
	FileImage2Scale1 = "image2_scale1_rgba8.gpu.bin"
	FileStage1Dssim  = "stage1_dssim5x5_gaussian_linear_u32le.gpu.bin"
)

// WriteAll writes every tensor the run produced into dir and returns
// the dump records for the JSON report. The comparison must have run
// with debug collection enabled; an empty claimed tensor is an error.
func WriteAll(dir string, img1, img2 *dssim.ImageRgba8, result *dssim.Result) ([]report.DumpRecord, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create dump dir: %v", dssim.ErrIO, err)
	}
	if len(result.Scales) == 0 {
		return nil, fmt.Errorf("%w: no scales to dump", dssim.ErrInvalidShape)
	}

	level0 := &result.Scales[0]
	var records []report.DumpRecord

	add := func(name, elemType string, elemCount int, write func(string) error) error {
		if elemCount == 0 {
			return fmt.Errorf("%w: dump tensor %s is empty", dssim.ErrInvalidShape, name)
		}
		path := filepath.Join(dir, name)
		if err := write(path); err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		records = append(records, report.DumpRecord{
			Name: dumpKey(name),
			Info: report.DumpInfo{
				Path:      abs,
				ElemType:  elemType,
				ElemCount: elemCount,
			},
		})
		return nil
	}

	steps := []func() error{
		func() error {
			return add(FileImage1Rgba8, "u8", len(img1.Pixels), func(p string) error {
				return writeBytes(p, img1.Pixels)
			})
		},
		func() error {
			return add(FileImage2Rgba8, "u8", len(img2.Pixels), func(p string) error {
				return writeBytes(p, img2.Pixels)
			})
		},
		func() error {
			return add(FileStage0Dssim, "u32_le", len(level0.DssimQ), func(p string) error {
				return writeU32LE(p, level0.DssimQ)
			})
		},
		func() error {
			return add(FileStage0Mu1, "f32_le", len(level0.Mu1), func(p string) error {
				return writeF32LE(p, level0.Mu1)
			})
		},
		func() error {
			return add(FileStage0Mu2, "f32_le", len(level0.Mu2), func(p string) error {
				return writeF32LE(p, level0.Mu2)
			})
		},
		func() error {
			return add(FileStage0Var1, "f32_le", len(level0.Var1), func(p string) error {
				return writeF32LE(p, level0.Var1)
			})
		},
		func() error {
			return add(FileStage0Var2, "f32_le", len(level0.Var2), func(p string) error {
				return writeF32LE(p, level0.Var2)
			})
		},
		func() error {
			return add(FileStage0Cov12, "f32_le", len(level0.Cov12), func(p string) error {
				return writeF32LE(p, level0.Cov12)
			})
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	// Level-1 dumps exist only when a second scale was produced.
	if len(result.Scales) > 1 && result.Level1Image1 != nil && result.Level1Image2 != nil {
		level1 := &result.Scales[1]
		rgba1 := result.Level1Image1.ToRgba8()
		rgba2 := result.Level1Image2.ToRgba8()

		if err := add(FileImage1Scale1, "u8", len(rgba1), func(p string) error {
			return writeBytes(p, rgba1)
		}); err != nil {
			return nil, err
		}
		if err := add(FileImage2Scale1, "u8", len(rgba2), func(p string) error {
			return writeBytes(p, rgba2)
		}); err != nil {
			return nil, err
		}
		if err := add(FileStage1Dssim, "u32_le", len(level1.DssimQ), func(p string) error {
			return writeU32LE(p, level1.DssimQ)
		}); err != nil {
			return nil, err
		}
	}

	return records, nil
}

// dumpKey derives the report key from a file name: strip the .gpu.bin
// suffix.
func dumpKey(name string) string {
	const suffix = ".gpu.bin"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}

func writeBytes(path string, data []uint8) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", dssim.ErrIO, path, err)
	}
	return nil
}

func writeU32LE(path string, values []uint32) error {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return writeBytes(path, buf)
}

func writeF32LE(path string, values []float32) error {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return writeBytes(path, buf)
}
