// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package report builds and writes the machine-readable JSON report of
// one comparison run. Field order is fixed by the struct definitions;
// Write emits every control character below 0x20 as \uXXXX.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/dssim"
)

// Schema constants recorded in every report.
const (
	SchemaVersion = 1
	Version       = "wgpu-dssim-ms-stage5x5-gaussian-linear-1"

	// Metric identifies the per-scale statistic.
	Metric = "dssim_5x5_gaussian_luma_linear_srgb"

	// WindowType names the Gaussian taps: the [1 2 1]/4 blur kernel
	// convolved with itself.
	WindowType = "gaussian_blur_kernel_x2"

	// AggregationMethod names the cross-scale combination.
	AggregationMethod = "reference_like_weighted_ssim_to_dssim"
)

// Report is the root JSON object.
type Report struct {
	SchemaVersion int                 `json:"schema_version"`
	Engine        string              `json:"engine"`
	Status        string              `json:"status"`
	Input         InputPaths          `json:"input"`
	DecodedInput  DecodedPair         `json:"decoded_input"`
	Command       string              `json:"command"`
	Version       string              `json:"version"`
	Result        ResultBlock         `json:"result"`
	Adapter       string              `json:"adapter"`
	DebugDumps    map[string]DumpInfo `json:"debug_dumps,omitempty"`
}

// InputPaths holds the absolute input paths.
type InputPaths struct {
	Image1 string `json:"image1"`
	Image2 string `json:"image2"`
}

// DecodedPair describes both decoded inputs.
type DecodedPair struct {
	Image1 DecodedInput `json:"image1"`
	Image2 DecodedInput `json:"image2"`
}

// DecodedInput describes one decoded input frame.
type DecodedInput struct {
	Width    uint32 `json:"width"`
	Height   uint32 `json:"height"`
	Channels uint32 `json:"channels"`
	Bytes    int    `json:"bytes"`
}

// ResultBlock holds the score and per-scale statistics.
type ResultBlock struct {
	ScoreText    string       `json:"score_text"`
	ScoreF64     float64      `json:"score_f64"`
	ScoreBitsU64 string       `json:"score_bits_u64"`
	ComparedPath string       `json:"compared_path"`
	GpuScales    []ScaleEntry `json:"gpu_scales"`
	Aggregation  Aggregation  `json:"aggregation"`
}

// ScaleEntry describes one produced scale level.
type ScaleEntry struct {
	Level        int     `json:"level"`
	Width        uint32  `json:"width"`
	Height       uint32  `json:"height"`
	Metric       string  `json:"metric"`
	WindowRadius int     `json:"window_radius"`
	WindowSize   int     `json:"window_size"`
	WindowType   string  `json:"window_type"`
	QScale       uint32  `json:"qscale"`
	Weight       float64 `json:"weight"`
	SumU64       uint64  `json:"sum_u64"`
	ElemCount    int     `json:"elem_count"`
	MeanDssimF64 float64 `json:"mean_dssim_f64"`
	SSIMScoreF64 float64 `json:"ssim_score_f64"`
}

// Aggregation describes the cross-scale combination.
type Aggregation struct {
	Method          string  `json:"method"`
	UsedScaleCount  int     `json:"used_scale_count"`
	WeightedSSIMF64 float64 `json:"weighted_ssim_f64"`
}

// DumpInfo describes one exported debug tensor blob.
type DumpInfo struct {
	Path      string `json:"path"`
	ElemType  string `json:"elem_type"`
	ElemCount int    `json:"elem_count"`
}

// DumpRecord pairs a tensor name with its blob description. The report
// keys debug_dumps by tensor name.
type DumpRecord struct {
	Name string
	Info DumpInfo
}

// BuildInput collects everything the report needs.
type BuildInput struct {
	Image1Path string
	Image2Path string
	OutPath    string
	DumpDir    string
	Decoded1   DecodedInput
	Decoded2   DecodedInput
	Result     *dssim.Result
	Dumps      []DumpRecord
}

// ScoreText formats a score with the fixed 8 fractional digits used on
// stdout and in the report.
func ScoreText(score float64) string {
	return fmt.Sprintf("%.8f", score)
}

// ScoreBits formats the IEEE-754 bits of a score as quoted 0x-prefixed
// big-endian hex.
func ScoreBits(score float64) string {
	return fmt.Sprintf("0x%016X", math.Float64bits(score))
}

// Build assembles the report object.
func Build(in BuildInput) *Report {
	abs1 := absPath(in.Image1Path)
	abs2 := absPath(in.Image2Path)

	command := fmt.Sprintf("dssim %q %q", abs1, abs2)
	if in.OutPath != "" {
		command += fmt.Sprintf(" --out %q", absPath(in.OutPath))
	}
	if in.DumpDir != "" {
		command += fmt.Sprintf(" --debug-dump-dir %q", absPath(in.DumpDir))
	}

	r := in.Result
	scales := make([]ScaleEntry, len(r.Scales))
	for i, s := range r.Scales {
		scales[i] = ScaleEntry{
			Level:        s.Level,
			Width:        s.Width,
			Height:       s.Height,
			Metric:       Metric,
			WindowRadius: dssim.WindowRadius,
			WindowSize:   dssim.WindowSize,
			WindowType:   WindowType,
			QScale:       dssim.QScale,
			Weight:       dssim.ScaleWeights[i],
			SumU64:       s.Sum,
			ElemCount:    len(s.DssimQ),
			MeanDssimF64: s.MeanDssim,
			SSIMScoreF64: s.SSIMScore,
		}
	}

	var dumps map[string]DumpInfo
	if len(in.Dumps) > 0 {
		dumps = make(map[string]DumpInfo, len(in.Dumps))
		for _, d := range in.Dumps {
			dumps[d.Name] = d.Info
		}
	}

	return &Report{
		SchemaVersion: SchemaVersion,
		Engine:        r.Engine,
		Status:        "ok",
		Input:         InputPaths{Image1: abs1, Image2: abs2},
		DecodedInput:  DecodedPair{Image1: in.Decoded1, Image2: in.Decoded2},
		Command:       command,
		Version:       Version,
		Result: ResultBlock{
			ScoreText:    ScoreText(r.Score),
			ScoreF64:     r.Score,
			ScoreBitsU64: ScoreBits(r.Score),
			ComparedPath: abs2,
			GpuScales:    scales,
			Aggregation: Aggregation{
				Method:          AggregationMethod,
				UsedScaleCount:  len(r.Scales),
				WeightedSSIMF64: r.WeightedSSIM,
			},
		},
		Adapter:    r.Adapter,
		DebugDumps: dumps,
	}
}

// Write marshals the report and writes it to path.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal report: %v", dssim.ErrIO, err)
	}
	// encoding/json writes \b, \f, \n, \r and \t as short escapes;
	// rewrite them so every control character below 0x20 is \u00XX.
	esc := make([]byte, 0, len(data)+1)
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			esc = append(esc, data[i])
			continue
		}
		i++
		if c := strings.IndexByte("bfnrt", data[i]); c >= 0 {
			esc = fmt.Appendf(esc, `\u%04x`, "\b\f\n\r\t"[c])
		} else {
			esc = append(esc, '\\', data[i])
		}
	}
	data = append(esc, '\n')

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create report dir: %v", dssim.ErrIO, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write report: %v", dssim.ErrIO, err)
	}
	return nil
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
