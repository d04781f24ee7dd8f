// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/dssim"
	"github.com/gogpu/dssim/internal/dump"
	"github.com/gogpu/dssim/internal/report"

	// Register both execution engines.
	_ "github.com/gogpu/dssim/backend/cpu"
	_ "github.com/gogpu/dssim/backend/native"
)

var (
	outPath      string
	debugDumpDir string
	engine       string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "dssim <image1> <image2>",
	Short: "Perceptual image difference via multi-scale GPU DSSIM",
	Long: `dssim computes a perceptual difference score between two equally
sized raster images by running a multi-scale structural-dissimilarity
pipeline on the GPU (with a bit-faithful CPU fallback).

The score is printed to stdout as "<score>\t<image2>"; 0 means the
images are identical and larger values mean more difference.`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			// Silent unless asked; the library defaults to a nop logger.
			return
		}
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		dssim.SetLogger(slog.New(handler))
	},
	RunE: runCompare,
}

func init() {
	rootCmd.Flags().StringVar(&outPath, "out", "", "Write a JSON report to this path")
	rootCmd.Flags().StringVar(&debugDumpDir, "debug-dump-dir", "", "Dump raw pipeline tensors into this directory")
	rootCmd.Flags().StringVar(&engine, "engine", dssim.EngineAuto, "Execution engine: auto, gpu, cpu")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
}

func runCompare(cmd *cobra.Command, args []string) error {
	image1Path, image2Path := args[0], args[1]

	img1, err := dssim.LoadImage(image1Path)
	if err != nil {
		return err
	}
	img2, err := dssim.LoadImage(image2Path)
	if err != nil {
		return err
	}

	result, err := dssim.Compare(img1, img2, dssim.Options{
		Engine:       engine,
		CollectDebug: debugDumpDir != "",
	})
	if err != nil {
		return err
	}

	var dumps []report.DumpRecord
	if debugDumpDir != "" {
		dumps, err = dump.WriteAll(debugDumpDir, img1, img2, result)
		if err != nil {
			return err
		}
	}

	if outPath != "" {
		rep := report.Build(report.BuildInput{
			Image1Path: image1Path,
			Image2Path: image2Path,
			OutPath:    outPath,
			DumpDir:    debugDumpDir,
			Decoded1:   decodedInfo(img1),
			Decoded2:   decodedInfo(img2),
			Result:     result,
			Dumps:      dumps,
		})
		if err := rep.Write(outPath); err != nil {
			return err
		}
	}

	fmt.Printf("%s\t%s\n", report.ScoreText(result.Score), image2Path)
	return nil
}

func decodedInfo(img *dssim.ImageRgba8) report.DecodedInput {
	return report.DecodedInput{
		Width:    img.Width,
		Height:   img.Height,
		Channels: img.Channels,
		Bytes:    len(img.Pixels),
	}
}
