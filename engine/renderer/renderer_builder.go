package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithDevice uses a device and queue owned by the host instead of requesting a headless one.
// The Renderer never releases a host-supplied device.
//
// Parameters:
//   - device: the wgpu device
//   - queue: the device queue; nil uses device.GetQueue()
//
// Returns:
//   - RendererBuilderOption: a function that applies the device option to a renderer
func WithDevice(device *wgpu.Device, queue *wgpu.Queue) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingDevice = device
		r.pendingQueue = queue
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration when the Renderer requests its own device. This requires a software
// Vulkan ICD to be installed on the system (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithBackend installs a ready backend, bypassing device creation.
//
// Parameters:
//   - backend: the backend to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend to a renderer
func WithBackend(backend RendererBackend) RendererBuilderOption {
	return func(r *renderer) {
		r.backend = backend
	}
}

// WithVerbose logs buffer creation and rebuilds.
//
// Parameters:
//   - verbose: true to log
//
// Returns:
//   - RendererBuilderOption: a function that applies the verbose option to a renderer
func WithVerbose(verbose bool) RendererBuilderOption {
	return func(r *renderer) {
		r.verbose = verbose
	}
}
