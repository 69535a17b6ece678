package animator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-bake/common"
	"github.com/Carmen-Shannon/oxy-bake/engine/bakery"
	"github.com/Carmen-Shannon/oxy-bake/engine/renderer/bind_group_provider"
)

// MinCapacity is the capacity the frame-offset array grows to from empty.
const MinCapacity = 8

// frameOffsetSize is the size of one frame offset on the GPU.
const frameOffsetSize = 4

var (
	errNilSet        = errors.New("animator requires a baked animation set")
	errInstanceLimit = errors.New("instance limit reached")
)

// animator is the implementation of the Animator interface.
type animator struct {
	mu *sync.Mutex

	set      *bakery.BakedAnimationSet
	provider bind_group_provider.BindGroupProvider

	maxInstances, instanceCount, instanceLimit uint32

	frameOffsets []uint32

	dirty, needsRebuild  bool
	dirtyStart, dirtyEnd uint32

	stagedWriteData []bind_group_provider.BufferWrite

	// wgpu's queue.WriteBuffer copies data internally before returning,
	// so one staging slice reused every flush is safe.
	stagingOffsets []byte
}

// Animator owns the per-instance frame offsets of one baked animation set.
//
// Each instance holds the row offset of the frame it is showing. The Animator keeps those
// offsets in a CPU array that grows by doubling, tracks the dirty range, and stages GPU
// buffer writes for the Renderer to drain. Growth invalidates the GPU buffer: NeedsRebuild
// reports it until the Renderer has recreated the buffer and called ClearNeedsRebuild.
type Animator interface {
	// Set returns the baked animation set this animator plays.
	//
	// Returns:
	//   - *bakery.BakedAnimationSet: the set
	Set() *bakery.BakedAnimationSet

	// BindGroupProvider returns the provider holding the rows, clip directory, set info and
	// frame-offset buffers, at the Binding* indices.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// MaxInstances returns the current capacity of the frame-offset array.
	//
	// Returns:
	//   - uint32: the capacity
	MaxInstances() uint32

	// InstanceCount returns the current number of registered instances.
	//
	// Returns:
	//   - uint32: the number of active instances
	InstanceCount() uint32

	// AddInstance registers a new instance with offset 0.
	// If the current capacity is exceeded the array doubles, with a minimum of MinCapacity.
	//
	// Returns:
	//   - uint32: the index of the newly registered instance
	//   - error: an error if the instance limit is reached
	AddInstance() (uint32, error)

	// RemoveInstance removes the instance at the given index using a swap-remove strategy.
	//
	// Parameters:
	//   - index: the instance index to remove
	//
	// Returns:
	//   - uint32: the old last index that was swapped into the removed slot (only meaningful when bool is true)
	//   - bool: true if the last instance was swapped into the removed slot
	RemoveInstance(index uint32) (uint32, bool)

	// Grow increases the capacity to newMax, preserving all offsets, and sets NeedsRebuild.
	// No-op if newMax is not larger than the current capacity.
	//
	// Parameters:
	//   - newMax: the new capacity
	Grow(newMax uint32)

	// NeedsRebuild reports whether the GPU frame-offset buffer must be recreated after a Grow.
	//
	// Returns:
	//   - bool: true if a rebuild is pending
	NeedsRebuild() bool

	// ClearNeedsRebuild resets the rebuild flag once the GPU buffer has been recreated.
	ClearNeedsRebuild()

	// FrameOffset returns the frame offset of an instance, or 0 for an unknown index.
	//
	// Parameters:
	//   - index: the instance index
	//
	// Returns:
	//   - uint32: the row offset
	FrameOffset(index uint32) uint32

	// FrameOffsets returns a copy of the offsets of all registered instances.
	//
	// Returns:
	//   - []uint32: one offset per instance
	FrameOffsets() []uint32

	// SetFrameOffset stores the offset of one instance. Unchanged values do not dirty the buffer.
	//
	// Parameters:
	//   - index: the instance index
	//   - offset: the row offset produced by playback
	SetFrameOffset(index, offset uint32)

	// SetFrameOffsets stores offsets[i] at indices[i] under a single lock.
	//
	// Parameters:
	//   - indices: the instance indices
	//   - offsets: the row offsets, same length as indices
	SetFrameOffsets(indices, offsets []uint32)

	// StaticWrites returns the writes that upload the rows, clip directory and set info.
	// They are issued once, after the Renderer creates the set's buffers.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the writes
	StaticWrites() []bind_group_provider.BufferWrite

	// Flush stages the dirty range of the frame-offset array as a GPU buffer write.
	// Nothing is staged while a rebuild is pending.
	//
	// Returns:
	//   - uint32: the number of offsets staged
	Flush() uint32

	// StagedWriteData returns and clears the pending GPU buffer writes.
	// The Renderer should call this to drain staged writes and submit them via WriteBuffers.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the slice of pending buffer writes
	StagedWriteData() []bind_group_provider.BufferWrite

	// Release frees all GPU resources held by this animator and its provider.
	Release()
}

var _ Animator = &animator{}

// NewAnimator creates an Animator for a baked animation set.
//
// Parameters:
//   - set: the baked set whose frames the instances will show
//   - options: variadic list of AnimatorBuilderOption functions
//
// Returns:
//   - Animator: the animator
//   - error: an error if set is nil
func NewAnimator(set *bakery.BakedAnimationSet, options ...AnimatorBuilderOption) (Animator, error) {
	if set == nil {
		return nil, errNilSet
	}
	a := &animator{
		mu:              &sync.Mutex{},
		set:             set,
		maxInstances:    MinCapacity,
		stagedWriteData: make([]bind_group_provider.BufferWrite, 0, 4),
	}
	for _, opt := range options {
		opt(a)
	}
	if a.provider == nil {
		a.provider = bind_group_provider.NewBindGroupProvider(fmt.Sprintf("baked_animation_%s", set.ID))
	}
	a.frameOffsets = make([]uint32, a.maxInstances)
	a.stagingOffsets = make([]byte, int(a.maxInstances)*frameOffsetSize)
	return a, nil
}

func (a *animator) Set() *bakery.BakedAnimationSet {
	return a.set
}

func (a *animator) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return a.provider
}

func (a *animator) MaxInstances() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxInstances
}

func (a *animator) InstanceCount() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.instanceCount
}

func (a *animator) AddInstance() (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.instanceLimit > 0 && a.instanceCount >= a.instanceLimit {
		return 0, fmt.Errorf("add instance %d: %w", a.instanceCount, errInstanceLimit)
	}
	if a.instanceCount >= a.maxInstances {
		newCap := a.maxInstances * 2
		if newCap < MinCapacity {
			newCap = MinCapacity
		}
		a.grow(newCap)
	}
	idx := a.instanceCount
	a.instanceCount++
	a.frameOffsets[idx] = 0
	a.markDirty(idx)
	return idx, nil
}

func (a *animator) RemoveInstance(index uint32) (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.instanceCount == 0 || index >= a.instanceCount {
		return 0, false
	}

	last := a.instanceCount - 1
	swapped := index != last
	if swapped {
		a.frameOffsets[index] = a.frameOffsets[last]
		a.markDirty(index)
	}
	a.frameOffsets[last] = 0
	a.instanceCount--
	if a.dirty && a.dirtyEnd > a.instanceCount {
		a.dirtyEnd = a.instanceCount
		if a.dirtyStart >= a.dirtyEnd {
			a.dirty = false
			a.dirtyStart, a.dirtyEnd = 0, 0
		}
	}
	return last, swapped
}

func (a *animator) Grow(newMax uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.grow(newMax)
}

// grow must be called with a.mu held.
func (a *animator) grow(newMax uint32) {
	if newMax <= a.maxInstances {
		return
	}

	offsets := make([]uint32, newMax)
	copy(offsets, a.frameOffsets[:a.instanceCount])
	a.frameOffsets = offsets
	a.maxInstances = newMax
	a.stagingOffsets = make([]byte, int(newMax)*frameOffsetSize)

	// The new buffer starts empty, so everything live is re-uploaded after the rebuild.
	if a.instanceCount > 0 {
		a.dirty = true
		a.dirtyStart = 0
		a.dirtyEnd = a.instanceCount
	}

	a.stagedWriteData = a.stagedWriteData[:0]
	a.needsRebuild = true
}

func (a *animator) NeedsRebuild() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.needsRebuild
}

func (a *animator) ClearNeedsRebuild() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.needsRebuild = false
}

func (a *animator) FrameOffset(index uint32) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index >= a.instanceCount {
		return 0
	}
	return a.frameOffsets[index]
}

func (a *animator) FrameOffsets() []uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]uint32, a.instanceCount)
	copy(out, a.frameOffsets[:a.instanceCount])
	return out
}

func (a *animator) SetFrameOffset(index, offset uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setFrameOffset(index, offset)
}

func (a *animator) SetFrameOffsets(indices, offsets []uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := min(len(indices), len(offsets))
	for i := 0; i < n; i++ {
		a.setFrameOffset(indices[i], offsets[i])
	}
}

// setFrameOffset must be called with a.mu held.
func (a *animator) setFrameOffset(index, offset uint32) {
	if index >= a.instanceCount || a.frameOffsets[index] == offset {
		return
	}
	a.frameOffsets[index] = offset
	a.markDirty(index)
}

// markDirty extends the dirty range to cover index. Must be called with a.mu held.
func (a *animator) markDirty(index uint32) {
	if !a.dirty {
		a.dirtyStart = index
		a.dirtyEnd = index + 1
		a.dirty = true
		return
	}
	if index < a.dirtyStart {
		a.dirtyStart = index
	}
	if index+1 > a.dirtyEnd {
		a.dirtyEnd = index + 1
	}
}

func (a *animator) StaticWrites() []bind_group_provider.BufferWrite {
	info := setInfo(a.set)
	entries := clipEntries(a.set.Clips)
	clipData := make([]byte, 0, len(entries)*(&GPUClipEntry{}).Size())
	for i := range entries {
		clipData = append(clipData, entries[i].Marshal()...)
	}
	return []bind_group_provider.BufferWrite{
		{Provider: a.provider, Binding: BindingRows, Data: a.set.Bytes()},
		{Provider: a.provider, Binding: BindingClips, Data: clipData},
		{Provider: a.provider, Binding: BindingSetInfo, Data: info.Marshal()},
	}
}

func (a *animator) Flush() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.needsRebuild || !a.dirty {
		return 0
	}

	count := a.dirtyEnd - a.dirtyStart
	raw := common.SliceToBytes(a.frameOffsets[a.dirtyStart:a.dirtyEnd])
	buf := a.stagingOffsets[:len(raw)]
	copy(buf, raw)

	a.stagedWriteData = append(a.stagedWriteData, bind_group_provider.BufferWrite{
		Provider: a.provider,
		Binding:  BindingFrameOffsets,
		Offset:   uint64(a.dirtyStart) * frameOffsetSize,
		Data:     buf,
	})

	a.dirty = false
	a.dirtyStart = 0
	a.dirtyEnd = 0
	return count
}

func (a *animator) StagedWriteData() []bind_group_provider.BufferWrite {
	a.mu.Lock()
	defer a.mu.Unlock()
	w := a.stagedWriteData
	a.stagedWriteData = make([]bind_group_provider.BufferWrite, 0, cap(w))
	return w
}

func (a *animator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.provider != nil {
		a.provider.Release()
	}
	a.frameOffsets = nil
	a.stagingOffsets = nil
	a.stagedWriteData = nil
	a.maxInstances = 0
	a.instanceCount = 0
}
