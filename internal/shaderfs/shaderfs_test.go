// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shaderfs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/dssim"
)

// writeShader creates a shader file under dir, creating parents.
func writeShader(t *testing.T, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolvePrefersExeShadersDir(t *testing.T) {
	exeDir := t.TempDir()
	exePath := filepath.Join(exeDir, "dssim")

	inShaders := writeShader(t, filepath.Join(exeDir, "shaders"), "k.wgsl", "a")
	writeShader(t, exeDir, "k.wgsl", "b")

	got, err := Resolve(exePath, "k.wgsl")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != inShaders {
		t.Errorf("resolved %q, want %q (shaders/ takes precedence)", got, inShaders)
	}
}

func TestResolveFallsBackToExeDir(t *testing.T) {
	exeDir := t.TempDir()
	exePath := filepath.Join(exeDir, "dssim")
	beside := writeShader(t, exeDir, "k.wgsl", "b")

	got, err := Resolve(exePath, "k.wgsl")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != beside {
		t.Errorf("resolved %q, want %q", got, beside)
	}
}

func TestResolveSearchesCwdSrcGpu(t *testing.T) {
	exeDir := t.TempDir()
	work := t.TempDir()

	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(work); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	want := writeShader(t, filepath.Join(work, "src_gpu", "shaders"), "k.wgsl", "c")

	got, err := Resolve(filepath.Join(exeDir, "dssim"), "k.wgsl")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != want {
		t.Errorf("resolved %q, want %q", got, want)
	}
}

func TestResolveNotFound(t *testing.T) {
	exeDir := t.TempDir()
	work := t.TempDir()

	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(work); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	_, err = Resolve(filepath.Join(exeDir, "dssim"), "missing.wgsl")
	if !errors.Is(err, dssim.ErrShaderNotFound) {
		t.Fatalf("error = %v, want ErrShaderNotFound", err)
	}
	// The diagnostic lists every searched location.
	msg := err.Error()
	for _, frag := range []string{"shaders", "src_gpu", "build"} {
		if !strings.Contains(msg, frag) {
			t.Errorf("error %q does not mention %q", msg, frag)
		}
	}
}

func TestLoadAll(t *testing.T) {
	exeDir := t.TempDir()
	shadersDir := filepath.Join(exeDir, "shaders")
	writeShader(t, shadersDir, PreprocessShader, "pre")
	writeShader(t, shadersDir, Stage0Shader, "stage0")
	writeShader(t, shadersDir, DownsampleShader, "down")

	sources, err := LoadAll(filepath.Join(exeDir, "dssim"))
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if sources.Preprocess != "pre" || sources.Stage0 != "stage0" || sources.Downsample != "down" {
		t.Errorf("unexpected sources: %+v", sources)
	}
}

func TestLoadAllMissingOne(t *testing.T) {
	exeDir := t.TempDir()
	work := t.TempDir()

	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(work); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	shadersDir := filepath.Join(exeDir, "shaders")
	writeShader(t, shadersDir, PreprocessShader, "pre")
	writeShader(t, shadersDir, Stage0Shader, "stage0")
	// Downsample shader intentionally absent.

	if _, err := LoadAll(filepath.Join(exeDir, "dssim")); !errors.Is(err, dssim.ErrShaderNotFound) {
		t.Errorf("error = %v, want ErrShaderNotFound", err)
	}
}
