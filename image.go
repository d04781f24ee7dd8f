// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dssim

import (
	"fmt"
	"image"
	"math"
	"os"

	// Register additional decoders so any equal-size raster pair can be
	// compared. PNG is the primary format.
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageRgba8 is a decoded 8-bit RGBA frame. Pixels holds 4*Width*Height
// bytes in row-major order. It is the immutable input to the pipeline.
type ImageRgba8 struct {
	Width  uint32
	Height uint32
	// Channels is the channel count of the decoded representation,
	// always 4 after flattening. Recorded in the JSON report.
	Channels uint32
	Pixels   []uint8
}

// LinearImage is a premultiplied linear-light RGBA tensor with float32
// components. Pixels holds 4*Width*Height values.
type LinearImage struct {
	Width  uint32
	Height uint32
	Pixels []float32
}

// PixelCount returns the number of pixels in the image.
func (img *LinearImage) PixelCount() int {
	return int(img.Width) * int(img.Height)
}

// LoadImage decodes the raster file at path and flattens it to 8-bit
// RGBA. The source alpha is preserved; RGB is carried unpremultiplied,
// matching the byte layout the pipeline's input adapter expects.
func LoadImage(path string) (*ImageRgba8, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidInput, path, err)
	}

	bounds := src.Bounds()
	flat := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			flat.Set(x-bounds.Min.X, y-bounds.Min.Y, src.At(x, y))
		}
	}

	if len(flat.Pix) == 0 {
		return nil, fmt.Errorf("%w: %s decoded to zero pixels", ErrInvalidInput, path)
	}

	return &ImageRgba8{
		Width:    uint32(bounds.Dx()),
		Height:   uint32(bounds.Dy()),
		Channels: 4,
		Pixels:   flat.Pix,
	}, nil
}

// ToLinear converts an 8-bit RGBA frame to the premultiplied linear
// float representation consumed by the compute stages: every channel is
// divided by 255, alpha lands in [0, 1]. The byte length must be a
// multiple of 4.
func (img *ImageRgba8) ToLinear() (*LinearImage, error) {
	if len(img.Pixels)%4 != 0 {
		return nil, fmt.Errorf("%w: rgba8 byte count %d is not divisible by 4",
			ErrInvalidInput, len(img.Pixels))
	}
	if len(img.Pixels) != int(img.Width)*int(img.Height)*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d",
			ErrInvalidInput, len(img.Pixels), img.Width, img.Height)
	}

	out := make([]float32, len(img.Pixels))
	for i, b := range img.Pixels {
		out[i] = float32(b) / 255.0
	}
	return &LinearImage{
		Width:  img.Width,
		Height: img.Height,
		Pixels: out,
	}, nil
}

// ToRgba8 re-encodes a premultiplied linear image as 8-bit RGBA:
// unpremultiply, clamp to [0, 1], apply forward sRGB gamma, round.
// Used by the debug exporter for downsampled levels.
func (img *LinearImage) ToRgba8() []uint8 {
	out := make([]uint8, len(img.Pixels))
	n := img.PixelCount()
	for i := 0; i < n; i++ {
		a := clampUnit(img.Pixels[i*4+3])
		invA := float32(0)
		if a > 1.0e-8 {
			invA = 1.0 / a
		}
		r := clampUnit(img.Pixels[i*4+0] * invA)
		g := clampUnit(img.Pixels[i*4+1] * invA)
		b := clampUnit(img.Pixels[i*4+2] * invA)
		out[i*4+0] = toUnorm8(linearToSrgb(r))
		out[i*4+1] = toUnorm8(linearToSrgb(g))
		out[i*4+2] = toUnorm8(linearToSrgb(b))
		out[i*4+3] = toUnorm8(a)
	}
	return out
}

// linearToSrgb applies the forward sRGB transfer function.
func linearToSrgb(c float32) float32 {
	if c <= 0.0031308 {
		return c * 12.92
	}
	return 1.055*float32(math.Pow(float64(c), 1.0/2.4)) - 0.055
}

func clampUnit(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toUnorm8(v float32) uint8 {
	return uint8(math.Round(float64(clampUnit(v)) * 255.0))
}
