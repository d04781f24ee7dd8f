// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/dssim"
	"github.com/gogpu/dssim/internal/shaderfs"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// EngineName identifies the GPU pipeline variant in reports.
const EngineName = "gpu-wgpu-wgsl-dssim-ms-stage5x5-gaussian-linear"

// fenceTimeout is the maximum time to wait for submitted GPU work.
const fenceTimeout = 5 * time.Second

func init() {
	dssim.RegisterEngine(dssim.EngineGPU, func() (dssim.Executor, error) {
		return New("")
	})
}

// Executor drives the pipeline kernels on a WebGPU device. It owns the
// instance, device and queue for its lifetime; per-dispatch resources
// are created and destroyed inside each call.
type Executor struct {
	ctx     *gpuContext
	shaders *shaderfs.Sources
	closed  bool
}

// New creates a GPU executor: brings up the adapter and device, then
// resolves the WGSL sources from disk (fatal if missing). exePath is
// the running executable path, or "" to resolve it implicitly.
func New(exePath string) (*Executor, error) {
	ctx, err := initGPU()
	if err != nil {
		return nil, err
	}

	shaders, err := shaderfs.LoadAll(exePath)
	if err != nil {
		ctx.destroy()
		return nil, err
	}

	// Validate all kernels up front so a broken shader fails the run
	// before any image work.
	for _, src := range []struct {
		name string
		text string
	}{
		{shaderfs.PreprocessShader, shaders.Preprocess},
		{shaderfs.Stage0Shader, shaders.Stage0},
		{shaderfs.DownsampleShader, shaders.Downsample},
	} {
		if _, err := compileWGSL(src.text); err != nil {
			ctx.destroy()
			return nil, fmt.Errorf("%w (%s)", err, src.name)
		}
	}

	return &Executor{ctx: ctx, shaders: shaders}, nil
}

// Engine returns the pipeline variant identifier.
func (e *Executor) Engine() string { return EngineName }

// Describe returns the GPU adapter description.
func (e *Executor) Describe() string {
	if e.ctx == nil {
		return "unknown"
	}
	return e.ctx.adapterName
}

// Close releases the device and instance. Safe to call more than once.
func (e *Executor) Close() {
	if e.closed {
		return
	}
	e.closed = true
	if e.ctx != nil {
		e.ctx.destroy()
	}
}

// =============================================================================
// Uniform Serialization
// =============================================================================

// scaleParams mirrors the Params uniform of the preprocess and
// statistics kernels: 4 consecutive u32 fields.
type scaleParams struct {
	Len    uint32
	Width  uint32
	Height uint32
	QScale uint32
}

func (p scaleParams) toBytes() []byte {
	buf := make([]byte, 16)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], p.Len)
	le.PutUint32(buf[4:8], p.Width)
	le.PutUint32(buf[8:12], p.Height)
	le.PutUint32(buf[12:16], p.QScale)
	return buf
}

// downsampleParams mirrors the Params uniform of the downsample kernel.
type downsampleParams struct {
	InWidth   uint32
	InHeight  uint32
	OutWidth  uint32
	OutHeight uint32
}

func (p downsampleParams) toBytes() []byte {
	buf := make([]byte, 16)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], p.InWidth)
	le.PutUint32(buf[4:8], p.InHeight)
	le.PutUint32(buf[8:12], p.OutWidth)
	le.PutUint32(buf[12:16], p.OutHeight)
	return buf
}

// =============================================================================
// Tensor Serialization
// =============================================================================

func floatsToBytes(values []float32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func bytesToFloats(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func bytesToU32(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out
}

// workgroupCount is the 1-D dispatch size for n elements: ceil(n / 64).
func workgroupCount(n uint32) uint32 {
	return (n + dssim.WorkgroupSize - 1) / dssim.WorkgroupSize
}

// =============================================================================
// Bind Group Layout Helpers
// =============================================================================

func uniformEntry(binding uint32) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
}

func storageROEntry(binding uint32) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
	}
}

func storageRWEntry(binding uint32) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
	}
}

func bindBuffer(binding uint32, buf hal.Buffer) gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding: binding,
		Resource: gputypes.BufferBinding{
			Buffer: buf.NativeHandle(),
			Offset: 0,
			Size:   0, // entire buffer
		},
	}
}

// =============================================================================
// Per-Dispatch Resource Tracking
// =============================================================================

// dispatchResources tracks resources created for one dispatch so every
// exit path releases them in reverse creation order.
type dispatchResources struct {
	device hal.Device

	buffers    []hal.Buffer
	staging    []*StagingBuffer
	modules    []hal.ShaderModule
	bgLayouts  []hal.BindGroupLayout
	pLayouts   []hal.PipelineLayout
	pipelines  []hal.ComputePipeline
	bindGroups []hal.BindGroup
	cmdBuf     hal.CommandBuffer
	fence      hal.Fence
}

func (r *dispatchResources) cleanup() {
	if r.fence != nil {
		r.device.DestroyFence(r.fence)
	}
	if r.cmdBuf != nil {
		r.device.FreeCommandBuffer(r.cmdBuf)
	}
	for _, g := range r.bindGroups {
		r.device.DestroyBindGroup(g)
	}
	for _, p := range r.pipelines {
		r.device.DestroyComputePipeline(p)
	}
	for _, l := range r.pLayouts {
		r.device.DestroyPipelineLayout(l)
	}
	for _, l := range r.bgLayouts {
		r.device.DestroyBindGroupLayout(l)
	}
	for _, m := range r.modules {
		r.device.DestroyShaderModule(m)
	}
	for _, s := range r.staging {
		s.Destroy()
	}
	for _, b := range r.buffers {
		r.device.DestroyBuffer(b)
	}
}

// createBuffer creates and tracks a GPU buffer.
func (r *dispatchResources) createBuffer(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create %s buffer: %v", dssim.ErrGPUInit, label, err)
	}
	r.buffers = append(r.buffers, buf)
	return buf, nil
}

// createStaging creates and tracks a readback staging buffer.
func (r *dispatchResources) createStaging(queue hal.Queue, label string, size uint64) (*StagingBuffer, error) {
	buf, err := newStagingBuffer(r.device, queue, label, size)
	if err != nil {
		return nil, err
	}
	r.staging = append(r.staging, buf)
	return buf, nil
}

// buildPipeline compiles one WGSL kernel into a ready compute pipeline
// with the given bind group layout entries, tracking every resource.
func (r *dispatchResources) buildPipeline(label, source string, entries []gputypes.BindGroupLayoutEntry) (hal.ComputePipeline, hal.BindGroupLayout, error) {
	module, err := createShaderModule(r.device, label, source)
	if err != nil {
		return nil, nil, err
	}
	r.modules = append(r.modules, module)

	bgLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bgl",
		Entries: entries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create %s bind group layout: %v", dssim.ErrGPUInit, label, err)
	}
	r.bgLayouts = append(r.bgLayouts, bgLayout)

	pLayout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create %s pipeline layout: %v", dssim.ErrGPUInit, label, err)
	}
	r.pLayouts = append(r.pLayouts, pLayout)

	pipeline, err := r.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  label,
		Layout: pLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create %s pipeline: %v", dssim.ErrShaderCompile, label, err)
	}
	r.pipelines = append(r.pipelines, pipeline)

	return pipeline, bgLayout, nil
}

// createBindGroup creates and tracks a bind group.
func (r *dispatchResources) createBindGroup(label string, layout hal.BindGroupLayout, entries []gputypes.BindGroupEntry) (hal.BindGroup, error) {
	bg, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create %s bind group: %v", dssim.ErrGPUInit, label, err)
	}
	r.bindGroups = append(r.bindGroups, bg)
	return bg, nil
}

// submitAndWait submits the finished command buffer and blocks on its
// fence. GPU work feeding the staging buffers is complete afterwards.
func (e *Executor) submitAndWait(res *dispatchResources) error {
	fence, err := e.ctx.device.CreateFence()
	if err != nil {
		return fmt.Errorf("%w: create fence: %v", dssim.ErrGPUInit, err)
	}
	res.fence = fence

	if err := e.ctx.queue.Submit([]hal.CommandBuffer{res.cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("%w: submit: %v", dssim.ErrDeviceLost, err)
	}

	ok, err := e.ctx.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("%w: wait: %v", dssim.ErrDeviceLost, err)
	}
	if !ok {
		return fmt.Errorf("%w: GPU timeout after %v", dssim.ErrDeviceLost, fenceTimeout)
	}
	return nil
}

func checkShape(img *dssim.LinearImage) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", dssim.ErrInvalidShape)
	}
	want := int(img.Width) * int(img.Height) * 4
	if len(img.Pixels) != want {
		return fmt.Errorf("%w: %d floats for %dx%d (want %d)",
			dssim.ErrInvalidShape, len(img.Pixels), img.Width, img.Height, want)
	}
	if want == 0 {
		return fmt.Errorf("%w: empty image", dssim.ErrInvalidShape)
	}
	return nil
}
