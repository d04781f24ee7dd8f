// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cpu provides the pure Go reference engine for the dssim
// pipeline. It mirrors the WGSL kernels bit-faithfully (float32
// arithmetic, identical rounding and clamping), serves as the automatic
// fallback when GPU bring-up fails, and is the ground truth for the
// test suite.
//
// Importing this package registers the "cpu" engine:
//
//	import _ "github.com/gogpu/dssim/backend/cpu"
package cpu
