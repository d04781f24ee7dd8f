// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/dssim"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Downsample performs the 2x2 box average on the GPU, producing the
// half-resolution premultiplied linear image for the next scale.
func (e *Executor) Downsample(img *dssim.LinearImage) (*dssim.LinearImage, error) {
	if err := checkShape(img); err != nil {
		return nil, err
	}

	outWidth := img.Width / 2
	outHeight := img.Height / 2
	if outWidth == 0 || outHeight == 0 {
		return nil, fmt.Errorf("%w: %dx%d halves to %dx%d",
			dssim.ErrDimensionsTooSmall, img.Width, img.Height, outWidth, outHeight)
	}

	inCount := img.Width * img.Height
	outCount := outWidth * outHeight
	inBytes := uint64(inCount) * 16
	outBytes := uint64(outCount) * 16

	params := downsampleParams{
		InWidth:   img.Width,
		InHeight:  img.Height,
		OutWidth:  outWidth,
		OutHeight: outHeight,
	}

	res := &dispatchResources{device: e.ctx.device}
	defer res.cleanup()

	inBuf, err := res.createBuffer("downsample_in", inBytes,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	outBuf, err := res.createBuffer("downsample_out", outBytes,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopySrc)
	if err != nil {
		return nil, err
	}
	paramsBuf, err := res.createBuffer("downsample_params", 16,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	staging, err := res.createStaging(e.ctx.queue, "downsample_staging", outBytes)
	if err != nil {
		return nil, err
	}

	e.ctx.queue.WriteBuffer(inBuf, 0, floatsToBytes(img.Pixels))
	e.ctx.queue.WriteBuffer(paramsBuf, 0, params.toBytes())

	pipeline, bgLayout, err := res.buildPipeline("dssim_downsample", e.shaders.Downsample,
		[]gputypes.BindGroupLayoutEntry{
			storageROEntry(0), // src
			storageRWEntry(1), // dst
			uniformEntry(2),   // params
		})
	if err != nil {
		return nil, err
	}

	bg, err := res.createBindGroup("dssim_downsample_bg", bgLayout,
		[]gputypes.BindGroupEntry{bindBuffer(0, inBuf), bindBuffer(1, outBuf), bindBuffer(2, paramsBuf)})
	if err != nil {
		return nil, err
	}

	encoder, err := e.ctx.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "dssim_downsample",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create command encoder: %v", dssim.ErrGPUInit, err)
	}
	if err := encoder.BeginEncoding("dssim_downsample"); err != nil {
		return nil, fmt.Errorf("%w: begin encoding: %v", dssim.ErrGPUInit, err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "dssim_downsample"})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(workgroupCount(outCount), 1, 1)
	pass.End()

	encoder.CopyBufferToBuffer(outBuf, staging.Raw(), []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: outBytes},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("%w: end encoding: %v", dssim.ErrGPUInit, err)
	}
	res.cmdBuf = cmdBuf

	if err := e.submitAndWait(res); err != nil {
		return nil, err
	}

	data, err := readBlocking(staging)
	if err != nil {
		return nil, err
	}

	return &dssim.LinearImage{
		Width:  outWidth,
		Height: outHeight,
		Pixels: bytesToFloats(data),
	}, nil
}
