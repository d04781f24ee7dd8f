// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
)

// =============================================================================
// Uniform and Tensor Serialization
// =============================================================================

func TestScaleParamsToBytes(t *testing.T) {
	p := scaleParams{Len: 64, Width: 8, Height: 8, QScale: 100000000}
	buf := p.toBytes()

	if len(buf) != 16 {
		t.Fatalf("params size = %d, want 16", len(buf))
	}
	le := binary.LittleEndian
	if le.Uint32(buf[0:]) != 64 || le.Uint32(buf[4:]) != 8 ||
		le.Uint32(buf[8:]) != 8 || le.Uint32(buf[12:]) != 100000000 {
		t.Errorf("params serialized as % x", buf)
	}
}

func TestDownsampleParamsToBytes(t *testing.T) {
	p := downsampleParams{InWidth: 16, InHeight: 10, OutWidth: 8, OutHeight: 5}
	buf := p.toBytes()

	le := binary.LittleEndian
	if le.Uint32(buf[0:]) != 16 || le.Uint32(buf[4:]) != 10 ||
		le.Uint32(buf[8:]) != 8 || le.Uint32(buf[12:]) != 5 {
		t.Errorf("params serialized as % x", buf)
	}
}

func TestFloatBytesRoundTrip(t *testing.T) {
	in := []float32{0, 1, -2.5, 3.14159, 1e-8}
	out := bytesToFloats(floatsToBytes(in))

	if len(out) != len(in) {
		t.Fatalf("length = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("value %d: %v != %v", i, in[i], out[i])
		}
	}
}

func TestBytesToU32(t *testing.T) {
	buf := []byte{0xDD, 0xCC, 0xBB, 0xAA, 1, 0, 0, 0}
	out := bytesToU32(buf)

	if out[0] != 0xAABBCCDD || out[1] != 1 {
		t.Errorf("decoded % x as %#x", buf, out)
	}
}

func TestWorkgroupCount(t *testing.T) {
	tests := []struct {
		elems    uint32
		expected uint32
	}{
		{1, 1},
		{63, 1},
		{64, 1},
		{65, 2},
		{128, 2},
		{129, 3},
	}
	for _, tt := range tests {
		if got := workgroupCount(tt.elems); got != tt.expected {
			t.Errorf("workgroupCount(%d) = %d, want %d", tt.elems, got, tt.expected)
		}
	}
}

// =============================================================================
// Bind Group Layout Helpers
// =============================================================================

func TestLayoutEntryHelpers(t *testing.T) {
	u := uniformEntry(8)
	if u.Binding != 8 || u.Buffer.Type != gputypes.BufferBindingTypeUniform {
		t.Errorf("uniformEntry = %+v", u)
	}
	ro := storageROEntry(1)
	if ro.Binding != 1 || ro.Buffer.Type != gputypes.BufferBindingTypeReadOnlyStorage {
		t.Errorf("storageROEntry = %+v", ro)
	}
	rw := storageRWEntry(2)
	if rw.Binding != 2 || rw.Buffer.Type != gputypes.BufferBindingTypeStorage {
		t.Errorf("storageRWEntry = %+v", rw)
	}
	for _, e := range []gputypes.BindGroupLayoutEntry{u, ro, rw} {
		if e.Visibility != gputypes.ShaderStageCompute {
			t.Errorf("entry %d visibility = %v, want compute", e.Binding, e.Visibility)
		}
	}
}

// =============================================================================
// Shader Source Contract
// =============================================================================

// repoShader reads a WGSL kernel from the repository's shaders/ tree.
func repoShader(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "shaders", name))
	if err != nil {
		t.Skipf("shader sources not present: %v", err)
	}
	return string(data)
}

func TestShaderSourcesDeclareContract(t *testing.T) {
	tests := []struct {
		file  string
		wants []string
	}{
		{"lab_preprocess.wgsl", []string{"@workgroup_size(64)", "0.2126", "0.7152", "0.0722"}},
		{"stage0_dssim5x5.wgsl", []string{"@workgroup_size(64)", "RADIUS: i32 = 2", "qscale", "@binding(8)"}},
		{"downsample_2x2.wgsl", []string{"@workgroup_size(64)", "0.25", "@binding(2)"}},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			src := repoShader(t, tt.file)
			for _, want := range tt.wants {
				if !strings.Contains(src, want) {
					t.Errorf("%s missing %q", tt.file, want)
				}
			}
		})
	}
}
