// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/dssim"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BufferMapState represents the mapping state of a staging buffer.
type BufferMapState int

const (
	// BufferMapStateUnmapped means the buffer is not mapped.
	BufferMapStateUnmapped BufferMapState = iota
	// BufferMapStatePending means a map operation is pending.
	BufferMapStatePending
	// BufferMapStateMapped means the buffer is mapped.
	BufferMapStateMapped
)

// String returns the string representation of BufferMapState.
func (s BufferMapState) String() string {
	switch s {
	case BufferMapStateUnmapped:
		return "Unmapped"
	case BufferMapStatePending:
		return "Pending"
	case BufferMapStateMapped:
		return "Mapped"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// BufferMapAsyncStatus is the result of an async map operation.
type BufferMapAsyncStatus int

const (
	// BufferMapAsyncStatusSuccess indicates mapping completed successfully.
	BufferMapAsyncStatusSuccess BufferMapAsyncStatus = iota
	// BufferMapAsyncStatusValidationError indicates a validation error.
	BufferMapAsyncStatusValidationError
	// BufferMapAsyncStatusReadError indicates the readback itself failed.
	BufferMapAsyncStatusReadError
	// BufferMapAsyncStatusDestroyedBeforeCallback indicates the buffer was
	// destroyed while the map was pending.
	BufferMapAsyncStatusDestroyedBeforeCallback
	// BufferMapAsyncStatusMappingAlreadyPending indicates another map is pending.
	BufferMapAsyncStatusMappingAlreadyPending
	// BufferMapAsyncStatusRangeOutOfBounds indicates the range is out of bounds.
	BufferMapAsyncStatusRangeOutOfBounds
)

// bufferReader is the slice of hal.Queue the staging buffer needs to
// resolve a mapping. Narrowed for testability.
type bufferReader interface {
	ReadBuffer(buf hal.Buffer, offset uint64, data []byte) error
}

// bufferDestroyer is the slice of hal.Device the staging buffer needs
// for teardown.
type bufferDestroyer interface {
	DestroyBuffer(buf hal.Buffer)
}

// StagingBuffer wraps a MapRead|CopyDst HAL buffer used for GPU->CPU
// readback. It follows the WebGPU mapping model: mapping is asynchronous
// and requires polling; the mapped bytes are only valid until Unmap.
//
// The host reads results with the blocking idiom in readBlocking: issue
// MapAsync with a completion callback that sets a flag with release
// ordering, then pump PollMapAsync with short sleeps until an acquire
// load observes the flag.
type StagingBuffer struct {
	mu sync.Mutex

	halBuffer hal.Buffer
	queue     bufferReader
	device    bufferDestroyer

	label string
	size  uint64

	mapState   BufferMapState
	mapOffset  uint64
	mapSize    uint64
	mappedData []byte
	callback   func(BufferMapAsyncStatus)

	destroyed bool
}

// newStagingBuffer creates a readback staging buffer of the given size.
func newStagingBuffer(device hal.Device, queue hal.Queue, label string, size uint64) (*StagingBuffer, error) {
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create staging buffer %s: %v", dssim.ErrGPUInit, label, err)
	}
	return &StagingBuffer{
		halBuffer: buf,
		queue:     queue,
		device:    device,
		label:     label,
		size:      size,
		mapState:  BufferMapStateUnmapped,
	}, nil
}

// Raw returns the underlying HAL buffer, or nil after Destroy.
func (b *StagingBuffer) Raw() hal.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return nil
	}
	return b.halBuffer
}

// Size returns the buffer size in bytes.
func (b *StagingBuffer) Size() uint64 { return b.size }

// MapState returns the current mapping state.
func (b *StagingBuffer) MapState() BufferMapState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mapState
}

// MapAsync initiates an async read mapping of [offset, offset+size). The
// callback fires from PollMapAsync when the mapping resolves.
func (b *StagingBuffer) MapAsync(offset, size uint64, callback func(BufferMapAsyncStatus)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return ErrBufferDestroyed
	}
	if b.mapState != BufferMapStateUnmapped {
		if callback != nil {
			callback(BufferMapAsyncStatusMappingAlreadyPending)
		}
		return ErrBufferAlreadyMapped
	}
	if callback == nil {
		return ErrCallbackNil
	}
	if offset+size > b.size {
		callback(BufferMapAsyncStatusRangeOutOfBounds)
		return fmt.Errorf("%w: offset %d + size %d > buffer size %d",
			ErrInvalidMapRange, offset, size, b.size)
	}

	b.mapState = BufferMapStatePending
	b.mapOffset = offset
	b.mapSize = size
	b.callback = callback
	return nil
}

// PollMapAsync drives a pending mapping to completion. The GPU work
// feeding this buffer must already be fenced; polling performs the
// actual readback into host memory and invokes the MapAsync callback.
//
// Returns true once mapping is complete (success or failure).
func (b *StagingBuffer) PollMapAsync() bool {
	b.mu.Lock()

	if b.mapState != BufferMapStatePending {
		done := b.mapState == BufferMapStateMapped || b.mapState == BufferMapStateUnmapped
		b.mu.Unlock()
		return done
	}

	if b.destroyed {
		callback := b.callback
		b.callback = nil
		b.mapState = BufferMapStateUnmapped
		b.mu.Unlock()
		if callback != nil {
			callback(BufferMapAsyncStatusDestroyedBeforeCallback)
		}
		return true
	}

	data := make([]byte, b.mapSize)
	err := b.queue.ReadBuffer(b.halBuffer, b.mapOffset, data)

	var status BufferMapAsyncStatus
	if err != nil {
		b.mapState = BufferMapStateUnmapped
		status = BufferMapAsyncStatusReadError
	} else {
		b.mappedData = data
		b.mapState = BufferMapStateMapped
		status = BufferMapAsyncStatusSuccess
	}
	callback := b.callback
	b.callback = nil
	b.mu.Unlock()

	if callback != nil {
		callback(status)
	}
	return true
}

// GetMappedRange returns the mapped bytes for [offset, offset+size).
// The slice is only valid until Unmap.
func (b *StagingBuffer) GetMappedRange(offset, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return nil, ErrBufferDestroyed
	}
	if b.mapState != BufferMapStateMapped {
		return nil, ErrBufferNotMapped
	}
	if offset < b.mapOffset || offset+size > b.mapOffset+b.mapSize {
		return nil, fmt.Errorf("%w: [%d, %d) outside mapped [%d, %d)",
			ErrInvalidMapRange, offset, offset+size, b.mapOffset, b.mapOffset+b.mapSize)
	}
	rel := offset - b.mapOffset
	return b.mappedData[rel : rel+size], nil
}

// Unmap releases the mapping. Slices from GetMappedRange become invalid.
func (b *StagingBuffer) Unmap() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return ErrBufferDestroyed
	}
	b.mapState = BufferMapStateUnmapped
	b.mappedData = nil
	b.callback = nil
	return nil
}

// Destroy releases the buffer. Idempotent.
func (b *StagingBuffer) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	device := b.device
	halBuf := b.halBuffer
	callback := b.callback
	wasPending := b.mapState == BufferMapStatePending
	b.halBuffer = nil
	b.mappedData = nil
	b.callback = nil
	b.mapState = BufferMapStateUnmapped
	b.mu.Unlock()

	if wasPending && callback != nil {
		callback(BufferMapAsyncStatusDestroyedBeforeCallback)
	}
	if device != nil && halBuf != nil {
		device.DestroyBuffer(halBuf)
	}
}

// mapPollInterval bounds the sleep between map polls.
const mapPollInterval = time.Millisecond

// readBlocking maps the whole staging buffer, blocks until the mapping
// resolves, copies the bytes out and unmaps. The completion flag is set
// with release ordering by the callback and observed with acquire
// ordering by the poll loop, so the callback's writes are visible here.
func readBlocking(buf *StagingBuffer) ([]byte, error) {
	var done atomic.Bool
	var status BufferMapAsyncStatus

	err := buf.MapAsync(0, buf.Size(), func(s BufferMapAsyncStatus) {
		status = s
		done.Store(true)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dssim.ErrMapFailed, err)
	}

	for !done.Load() {
		buf.PollMapAsync()
		time.Sleep(mapPollInterval)
	}

	if status != BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("%w: map status %v", dssim.ErrMapFailed, status)
	}

	mapped, err := buf.GetMappedRange(0, buf.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dssim.ErrMapFailed, err)
	}
	data := make([]byte, len(mapped))
	copy(data, mapped)

	if err := buf.Unmap(); err != nil {
		return nil, fmt.Errorf("%w: unmap: %v", dssim.ErrMapFailed, err)
	}
	return data, nil
}
