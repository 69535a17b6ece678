package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-bake/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

var errNoDevice = errors.New("wgpu backend has no device")

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	// instance and adapter are only set when the backend requested its own device.
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	owned    bool
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend wraps a host-supplied device, or requests a headless one when device is nil.
func newWGPURendererBackend(device *wgpu.Device, queue *wgpu.Queue, forceFallbackAdapter bool) (RendererBackend, error) {
	w := &wgpuRendererBackendImpl{
		mu:     &sync.Mutex{},
		device: device,
		queue:  queue,
	}
	if device != nil {
		if w.queue == nil {
			w.queue = device.GetQueue()
		}
		return w, nil
	}

	w.instance = wgpu.CreateInstance(nil)
	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		w.instance.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Bake Device",
	})
	if err != nil {
		a.Release()
		w.instance.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()
	w.owned = true
	return w, nil
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return nil, errNoDevice
	}
	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            usage,
		MappedAtCreation: false,
	})
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if buf == nil || len(data) == 0 {
		return nil
	}
	if b.queue == nil {
		return errNoDevice
	}
	b.queue.WriteBuffer(buf, offset, data)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateBindGroup(provider bind_group_provider.BindGroupProvider, entries []wgpu.BindGroupLayoutEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return errNoDevice
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   provider.Label() + " Layout",
			Entries: entries,
		})
		if err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	groupEntries := make([]wgpu.BindGroupEntry, len(entries))
	for i, entry := range entries {
		buf := provider.Buffer(int(entry.Binding))
		if buf == nil {
			return fmt.Errorf("binding %d of %s has no buffer", entry.Binding, provider.Label())
		}
		groupEntries[i] = wgpu.BindGroupEntry{
			Binding: entry.Binding,
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	if old := provider.BindGroup(); old != nil {
		old.Release()
	}
	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: groupEntries,
	})
	if err != nil {
		provider.SetBindGroup(nil)
		return err
	}
	provider.SetBindGroup(bindGroup)
	return nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.owned {
		return
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
	b.queue = nil
}
