// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/dssim"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RunScale executes the preprocess and window-statistics kernels on one
// image pair and reads back the quantized DSSIM map, plus the
// intermediate statistics when requested.
//
// The dispatch sequence is:
//  1. preprocess: rgba1 -> lab1, rgba2 -> lab2 (two dispatches, one pipeline)
//  2. stage0:     lab1 + lab2 -> dssim_q (+ mu/var/cov tensors)
//  3. copy output storage buffers to MapRead staging buffers
//  4. submit, fence-wait, blocking map-read
//
// Within the command buffer, the preprocess writes are visible to the
// stage0 pass; ordering against the host is enforced by the fence.
func (e *Executor) RunScale(img1, img2 *dssim.LinearImage, opts dssim.StageOptions) (*dssim.StageOutputs, error) {
	if err := checkShape(img1); err != nil {
		return nil, err
	}
	if err := checkShape(img2); err != nil {
		return nil, err
	}
	if img1.Width != img2.Width || img1.Height != img2.Height {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d",
			dssim.ErrInvalidShape, img1.Width, img1.Height, img2.Width, img2.Height)
	}

	elems := img1.Width * img1.Height
	rgbaBytes := uint64(elems) * 16
	labBytes := uint64(elems) * 16
	u32Bytes := uint64(elems) * 4
	f32Bytes := uint64(elems) * 4

	params := scaleParams{
		Len:    elems,
		Width:  img1.Width,
		Height: img1.Height,
		QScale: dssim.QScale,
	}

	res := &dispatchResources{device: e.ctx.device}
	defer res.cleanup()

	// Input and intermediate storage.
	storageIn := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	storageOut := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc

	input1, err := res.createBuffer("stage0_input1", rgbaBytes, storageIn)
	if err != nil {
		return nil, err
	}
	input2, err := res.createBuffer("stage0_input2", rgbaBytes, storageIn)
	if err != nil {
		return nil, err
	}
	lab1, err := res.createBuffer("stage0_lab1", labBytes, gputypes.BufferUsageStorage)
	if err != nil {
		return nil, err
	}
	lab2, err := res.createBuffer("stage0_lab2", labBytes, gputypes.BufferUsageStorage)
	if err != nil {
		return nil, err
	}

	outDssimQ, err := res.createBuffer("stage0_out_dssim_q", u32Bytes, storageOut)
	if err != nil {
		return nil, err
	}
	statNames := []string{"stage0_out_mu1", "stage0_out_mu2", "stage0_out_var1", "stage0_out_var2", "stage0_out_cov12"}
	statBufs := make([]hal.Buffer, len(statNames))
	for i, name := range statNames {
		statBufs[i], err = res.createBuffer(name, f32Bytes, storageOut)
		if err != nil {
			return nil, err
		}
	}

	paramsBuf, err := res.createBuffer("stage0_params", 16,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}

	// Readback staging.
	dssimStaging, err := res.createStaging(e.ctx.queue, "stage0_staging_dssim_q", u32Bytes)
	if err != nil {
		return nil, err
	}
	var statStaging []*StagingBuffer
	if opts.CollectStats {
		statStaging = make([]*StagingBuffer, len(statBufs))
		for i, name := range statNames {
			statStaging[i], err = res.createStaging(e.ctx.queue, name+"_staging", f32Bytes)
			if err != nil {
				return nil, err
			}
		}
	}

	// Upload inputs and the shared uniform.
	e.ctx.queue.WriteBuffer(input1, 0, floatsToBytes(img1.Pixels))
	e.ctx.queue.WriteBuffer(input2, 0, floatsToBytes(img2.Pixels))
	e.ctx.queue.WriteBuffer(paramsBuf, 0, params.toBytes())

	// Pipelines. The preprocess pipeline is shared by both image
	// dispatches; only the bind groups differ.
	preprocessPipe, preprocessBGL, err := res.buildPipeline("dssim_preprocess", e.shaders.Preprocess,
		[]gputypes.BindGroupLayoutEntry{
			storageROEntry(0), // rgba in
			storageRWEntry(1), // lab out
			uniformEntry(2),   // params
		})
	if err != nil {
		return nil, err
	}

	stage0Entries := []gputypes.BindGroupLayoutEntry{
		storageROEntry(0), // lab1
		storageROEntry(1), // lab2
		storageRWEntry(2), // dssim_q
		storageRWEntry(3), // mu1
		storageRWEntry(4), // mu2
		storageRWEntry(5), // var1
		storageRWEntry(6), // var2
		storageRWEntry(7), // cov12
		uniformEntry(8),   // params
	}
	stage0Pipe, stage0BGL, err := res.buildPipeline("dssim_stage0", e.shaders.Stage0, stage0Entries)
	if err != nil {
		return nil, err
	}

	// Bind groups.
	preprocessBG1, err := res.createBindGroup("dssim_preprocess_bg1", preprocessBGL,
		[]gputypes.BindGroupEntry{bindBuffer(0, input1), bindBuffer(1, lab1), bindBuffer(2, paramsBuf)})
	if err != nil {
		return nil, err
	}
	preprocessBG2, err := res.createBindGroup("dssim_preprocess_bg2", preprocessBGL,
		[]gputypes.BindGroupEntry{bindBuffer(0, input2), bindBuffer(1, lab2), bindBuffer(2, paramsBuf)})
	if err != nil {
		return nil, err
	}
	stage0BG, err := res.createBindGroup("dssim_stage0_bg", stage0BGL,
		[]gputypes.BindGroupEntry{
			bindBuffer(0, lab1),
			bindBuffer(1, lab2),
			bindBuffer(2, outDssimQ),
			bindBuffer(3, statBufs[0]),
			bindBuffer(4, statBufs[1]),
			bindBuffer(5, statBufs[2]),
			bindBuffer(6, statBufs[3]),
			bindBuffer(7, statBufs[4]),
			bindBuffer(8, paramsBuf),
		})
	if err != nil {
		return nil, err
	}

	// Encode: preprocess pass (both images), stage0 pass, then the
	// staging copies.
	encoder, err := e.ctx.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "dssim_stage0",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create command encoder: %v", dssim.ErrGPUInit, err)
	}
	if err := encoder.BeginEncoding("dssim_stage0"); err != nil {
		return nil, fmt.Errorf("%w: begin encoding: %v", dssim.ErrGPUInit, err)
	}

	wgCount := workgroupCount(elems)

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "dssim_preprocess"})
	pass.SetPipeline(preprocessPipe)
	pass.SetBindGroup(0, preprocessBG1, nil)
	pass.Dispatch(wgCount, 1, 1)
	pass.SetBindGroup(0, preprocessBG2, nil)
	pass.Dispatch(wgCount, 1, 1)
	pass.End()

	pass = encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "dssim_stage0"})
	pass.SetPipeline(stage0Pipe)
	pass.SetBindGroup(0, stage0BG, nil)
	pass.Dispatch(wgCount, 1, 1)
	pass.End()

	encoder.CopyBufferToBuffer(outDssimQ, dssimStaging.Raw(), []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: u32Bytes},
	})
	if opts.CollectStats {
		for i := range statBufs {
			encoder.CopyBufferToBuffer(statBufs[i], statStaging[i].Raw(), []hal.BufferCopy{
				{SrcOffset: 0, DstOffset: 0, Size: f32Bytes},
			})
		}
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("%w: end encoding: %v", dssim.ErrGPUInit, err)
	}
	res.cmdBuf = cmdBuf

	if err := e.submitAndWait(res); err != nil {
		return nil, err
	}

	dssim.Logger().Debug("stage0 dispatched",
		"level", opts.Level, "elems", elems, "workgroups", wgCount,
		"collect_stats", opts.CollectStats)

	// Readback.
	dssimData, err := readBlocking(dssimStaging)
	if err != nil {
		return nil, err
	}
	out := &dssim.StageOutputs{
		Width:  img1.Width,
		Height: img1.Height,
		DssimQ: bytesToU32(dssimData),
	}

	if opts.CollectStats {
		stats := make([][]float32, len(statStaging))
		for i := range statStaging {
			data, err := readBlocking(statStaging[i])
			if err != nil {
				return nil, err
			}
			stats[i] = bytesToFloats(data)
		}
		out.Mu1, out.Mu2, out.Var1, out.Var2, out.Cov12 = stats[0], stats[1], stats[2], stats[3], stats[4]
	}

	return out, nil
}
