package renderer

import (
	"github.com/Carmen-Shannon/oxy-bake/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based backend.
	BackendTypeWGPU RendererBackendType = iota
)

// RendererBackend is the GPU API surface the Renderer needs: buffer creation, queue writes
// and bind group assembly. Buffers are identified by the wgpu handles stored on providers.
type RendererBackend interface {
	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - label: the debug label
	//   - size: the size in bytes, already aligned
	//   - usage: the usage flags
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: an error if allocation fails
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// WriteBuffer queues data to be copied into buf at offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the byte offset into buf
	//   - data: the bytes to copy; the backend does not retain the slice
	//
	// Returns:
	//   - error: an error if the write cannot be queued
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error

	// CreateBindGroup creates a bind group over the provider's buffers, creating the layout
	// from entries first if the provider has none.
	//
	// Parameters:
	//   - provider: the provider owning the buffers
	//   - entries: the layout entries, one per binding
	//
	// Returns:
	//   - error: an error if a binding has no buffer or creation fails
	CreateBindGroup(provider bind_group_provider.BindGroupProvider, entries []wgpu.BindGroupLayoutEntry) error

	// Release frees the device objects the backend created itself.
	Release()
}
