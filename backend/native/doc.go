// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native provides the GPU engine for the dssim pipeline using
// gogpu/wgpu (pure Go WebGPU). WGSL kernels are compiled to SPIR-V with
// gogpu/naga and dispatched as compute passes; quantized DSSIM maps are
// read back through fenced staging buffers.
//
// Importing this package registers the "gpu" engine:
//
//	import _ "github.com/gogpu/dssim/backend/native"
//
// All GPU resources of one dispatch (buffers, bind groups, layouts,
// pipelines, shader modules) are scoped to that dispatch and destroyed
// on every exit path. Shader sources are resolved from disk once at
// executor construction and reused across dispatches.
package native
