// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command dssim compares two raster images with a GPU-driven
// multi-scale DSSIM pipeline and prints a similarity score.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dssim error: %v\n", err)
		os.Exit(1)
	}
}
