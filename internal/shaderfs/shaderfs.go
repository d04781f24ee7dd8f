// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shaderfs resolves the pipeline's WGSL source files on disk.
//
// Sources are searched, in order, in <exe-dir>/shaders/, <exe-dir>/,
// <cwd>/src_gpu/shaders/ and <cwd>/build/src_gpu/shaders/. The first hit
// wins. The search order is contract-fixed; a missing file is fatal.
package shaderfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/dssim"
)

// Shader file names consumed by the GPU engine.
const (
	PreprocessShader = "lab_preprocess.wgsl"
	Stage0Shader     = "stage0_dssim5x5.wgsl"
	DownsampleShader = "downsample_2x2.wgsl"
)

// Sources holds the shader text for one pipeline run. Sources are read
// once at startup and reused across all dispatches.
type Sources struct {
	Preprocess string
	Stage0     string
	Downsample string
}

// Resolve returns the path of the named shader file, trying each search
// location in order. exePath is the running executable's path (pass the
// result of os.Executable, or "" to use it implicitly).
func Resolve(exePath, name string) (string, error) {
	if exePath == "" {
		p, err := os.Executable()
		if err == nil {
			exePath = p
		}
	}
	exeDir := filepath.Dir(exePath)
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	candidates := []string{
		filepath.Join(exeDir, "shaders", name),
		filepath.Join(exeDir, name),
		filepath.Join(cwd, "src_gpu", "shaders", name),
		filepath.Join(cwd, "build", "src_gpu", "shaders", name),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s (searched: %s)",
		dssim.ErrShaderNotFound, name, strings.Join(candidates, ", "))
}

// Load resolves and reads the named shader source.
func Load(exePath, name string) (string, error) {
	path, err := Resolve(exePath, name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", dssim.ErrIO, path, err)
	}
	return string(data), nil
}

// LoadAll reads every shader source the GPU engine needs.
func LoadAll(exePath string) (*Sources, error) {
	pre, err := Load(exePath, PreprocessShader)
	if err != nil {
		return nil, err
	}
	stage0, err := Load(exePath, Stage0Shader)
	if err != nil {
		return nil, err
	}
	down, err := Load(exePath, DownsampleShader)
	if err != nil {
		return nil, err
	}
	return &Sources{Preprocess: pre, Stage0: stage0, Downsample: down}, nil
}
