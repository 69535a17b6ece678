package bind_group_provider

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources and must be released when no longer needed. They are populated by the Renderer during initialization, not by user-creation.

	// bindGroup is the GPU bind group created for this provider, or nil if not initialized with the Renderer.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the GPU bind group layout created for this provider, or nil if not initialized with the Renderer.
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// sizes holds the byte size each buffer was created with, keyed by binding index.
	sizes map[int]uint64
}

// BindGroupProvider defines the interface for components that own GPU storage buffers.
// A baked animation set and its frame-offset array each hold a BindGroupProvider to describe
// the buffers they need. The Renderer then uses this provider to create, resize and write them.
//
// Usage pattern:
//  1. Component creates a BindGroupProvider with a label
//  2. Renderer creates buffers sized for the component via SetBuffer
//  3. Component stages BufferWrite values against its bindings
//  4. Renderer drains the writes into the GPU queue
//  5. Consumers read BindGroup() for dispatches
type BindGroupProvider interface {
	// Release releases any GPU resources held by this provider.
	// It will clean up all buffers and bind groups, and remove them from the provider.
	Release()

	// Label returns the debug label for this provider.
	// Used for debugging and profiling purposes.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group, or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout the bind group was created with.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout, or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the GPU buffer at the given binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer, or nil if none is bound
	Buffer(binding int) *wgpu.Buffer

	// BufferSize returns the byte size of the buffer at the given binding, or 0.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - uint64: the size the buffer was created with
	BufferSize(binding int) uint64

	// Bindings returns the bound binding indices in ascending order.
	//
	// Returns:
	//   - []int: the binding indices
	Bindings() []int

	// SetBindGroup sets the bind group.
	//
	// Parameters:
	//   - bg: the bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout sets the bind group layout.
	//
	// Parameters:
	//   - bgl: the bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer stores buf at binding, replacing and releasing any previous buffer.
	// The bind group references the old buffer, so it is released as well and must be recreated.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the new buffer
	//   - size: the byte size buf was created with
	SetBuffer(binding int, buf *wgpu.Buffer, size uint64)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label used for every GPU object created for this provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:   label,
		buffers: make(map[int]*wgpu.Buffer),
		sizes:   make(map[int]uint64),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) BufferSize(binding int) uint64 {
	return p.sizes[binding]
}

func (p *bindGroupProvider) Bindings() []int {
	bindings := make([]int, 0, len(p.sizes))
	for b := range p.sizes {
		bindings = append(bindings, b)
	}
	sort.Ints(bindings)
	return bindings
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer, size uint64) {
	if old := p.buffers[binding]; old != nil && old != buf {
		old.Release()
		if p.bindGroup != nil {
			p.bindGroup.Release()
			p.bindGroup = nil
		}
	}
	p.buffers[binding] = buf
	p.sizes[binding] = size
}

func (p *bindGroupProvider) Release() {
	for binding, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, binding)
		delete(p.sizes, binding)
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}
