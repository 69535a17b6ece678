package renderer

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-bake/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-bake/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// minBufferSize is the smallest buffer the Renderer creates. Uniform bindings need 16 bytes.
const minBufferSize = 16

var errNilAnimator = errors.New("renderer requires an animator")

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	// animators tracks the animators whose buffers this renderer created.
	animators map[animator.Animator]struct{}

	verbose bool

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingDevice        *wgpu.Device
	pendingQueue         *wgpu.Queue
}

// Renderer owns the GPU side of baked animation playback.
//
// It creates the storage buffers for each baked set (rows, clip directory, set info and
// frame offsets), uploads the immutable parts once, and each tick drains the animators'
// staged frame-offset writes into the queue. When an animator's offset array has grown
// the Renderer recreates the offset buffer and bind group before writing.
type Renderer interface {
	// InitAnimator creates and fills the GPU buffers and bind group for an animator.
	// Calling it again for the same animator is a no-op.
	//
	// Parameters:
	//   - a: the animator to initialize
	//
	// Returns:
	//   - error: an error if buffer or bind group creation fails
	InitAnimator(a animator.Animator) error

	// SyncAnimator rebuilds the animator's frame-offset buffer if it grew, flushes its dirty
	// offsets and writes them to the GPU.
	//
	// Parameters:
	//   - a: the animator to sync
	//
	// Returns:
	//   - uint32: the number of offsets written
	//   - error: an error if a rebuild or write fails
	SyncAnimator(a animator.Animator) (uint32, error)

	// ReleaseAnimator frees the GPU resources of an animator and stops tracking it.
	//
	// Parameters:
	//   - a: the animator to release
	ReleaseAnimator(a animator.Animator)

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	//
	// Parameters:
	//   - writes: the writes to perform
	//
	// Returns:
	//   - error: the first write error, if any
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BackendType returns the type of backend this renderer is using.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Release frees every tracked animator's GPU resources and the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend type and options.
// Without WithDevice or WithBackend a headless device is requested from the default adapter.
//
// Parameters:
//   - backendType: the type of backend to use (e.g., WGPU)
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if no GPU device could be obtained
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		animators:   make(map[animator.Animator]struct{}),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	if r.backend != nil {
		return r, nil
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		backend, err := newWGPURendererBackend(r.pendingDevice, r.pendingQueue, r.forceFallbackAdapter)
		if err != nil {
			return nil, fmt.Errorf("create wgpu backend: %w", err)
		}
		r.backend = backend
	}
	return r, nil
}

// alignedSize rounds n up to a multiple of 4 with a floor of minBufferSize.
func alignedSize(n uint64) uint64 {
	n = (n + 3) &^ 3
	if n < minBufferSize {
		return minBufferSize
	}
	return n
}

// layoutEntries describes the baked animation bind group.
func layoutEntries() []wgpu.BindGroupLayoutEntry {
	visibility := wgpu.ShaderStageCompute | wgpu.ShaderStageVertex
	storage := func(binding uint32) wgpu.BindGroupLayoutEntry {
		e := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}
		e.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		return e
	}
	info := wgpu.BindGroupLayoutEntry{Binding: animator.BindingSetInfo, Visibility: visibility}
	info.Buffer.Type = wgpu.BufferBindingTypeUniform
	return []wgpu.BindGroupLayoutEntry{
		storage(animator.BindingRows),
		storage(animator.BindingClips),
		info,
		storage(animator.BindingFrameOffsets),
	}
}

func (r *renderer) createBuffer(provider bind_group_provider.BindGroupProvider, binding int, size uint64, usage wgpu.BufferUsage) error {
	size = alignedSize(size)
	buf, err := r.backend.CreateBuffer(fmt.Sprintf("%s Buffer %d", provider.Label(), binding), size, usage)
	if err != nil {
		return fmt.Errorf("create buffer %d of %s: %w", binding, provider.Label(), err)
	}
	provider.SetBuffer(binding, buf, size)
	if r.verbose {
		log.Printf("[Renderer] %s binding %d: %d bytes", provider.Label(), binding, size)
	}
	return nil
}

func (r *renderer) InitAnimator(a animator.Animator) error {
	if a == nil {
		return errNilAnimator
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.animators[a]; ok {
		return nil
	}

	provider := a.BindGroupProvider()
	static := a.StaticWrites()
	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	sizes := map[int]uint64{}
	for _, w := range static {
		sizes[w.Binding] = w.End()
	}

	if err := r.createBuffer(provider, animator.BindingRows, sizes[animator.BindingRows], storage); err != nil {
		return err
	}
	if err := r.createBuffer(provider, animator.BindingClips, sizes[animator.BindingClips], storage); err != nil {
		return err
	}
	if err := r.createBuffer(provider, animator.BindingSetInfo, sizes[animator.BindingSetInfo], wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst); err != nil {
		return err
	}
	if err := r.createBuffer(provider, animator.BindingFrameOffsets, uint64(a.MaxInstances())*4, storage); err != nil {
		return err
	}
	if err := r.backend.CreateBindGroup(provider, layoutEntries()); err != nil {
		return fmt.Errorf("create bind group for %s: %w", provider.Label(), err)
	}
	if err := r.writeBuffers(static); err != nil {
		return err
	}

	// The buffer was sized for the current capacity, so any pending rebuild is satisfied.
	a.ClearNeedsRebuild()
	r.animators[a] = struct{}{}
	return nil
}

func (r *renderer) SyncAnimator(a animator.Animator) (uint32, error) {
	if a == nil {
		return 0, errNilAnimator
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.animators[a]; !ok {
		return 0, fmt.Errorf("sync %s: animator not initialized", a.BindGroupProvider().Label())
	}

	if a.NeedsRebuild() {
		provider := a.BindGroupProvider()
		size := uint64(a.MaxInstances()) * 4
		if err := r.createBuffer(provider, animator.BindingFrameOffsets, size, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
			return 0, err
		}
		if err := r.backend.CreateBindGroup(provider, layoutEntries()); err != nil {
			return 0, fmt.Errorf("rebuild bind group for %s: %w", provider.Label(), err)
		}
		a.ClearNeedsRebuild()
		if r.verbose {
			log.Printf("[Renderer] rebuilt %s for %d instances", provider.Label(), a.MaxInstances())
		}
	}

	count := a.Flush()
	if err := r.writeBuffers(a.StagedWriteData()); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *renderer) ReleaseAnimator(a animator.Animator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.animators[a]; !ok {
		return
	}
	delete(r.animators, a)
	a.Release()
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeBuffers(writes)
}

// writeBuffers must be called with r.mu held.
func (r *renderer) writeBuffers(writes []bind_group_provider.BufferWrite) error {
	for _, w := range writes {
		if w.End() > w.Provider.BufferSize(w.Binding) {
			return fmt.Errorf("write to %s binding %d: %d bytes past buffer end", w.Provider.Label(), w.Binding, w.End()-w.Provider.BufferSize(w.Binding))
		}
		if err := r.backend.WriteBuffer(w.Provider.Buffer(w.Binding), w.Offset, w.Data); err != nil {
			return fmt.Errorf("write to %s binding %d: %w", w.Provider.Label(), w.Binding, err)
		}
	}
	return nil
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for a := range r.animators {
		a.Release()
	}
	r.animators = make(map[animator.Animator]struct{})
	r.backend.Release()
}
