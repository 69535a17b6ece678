package loader

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-bake/engine/model"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu *sync.RWMutex

	modelCache map[string]model.Model

	// wrapModes holds authoring wrap settings by clip name; glTF carries none.
	wrapModes map[string]model.AuthoringWrapMode
	verbose   bool

	backend loaderBackend
}

// Loader loads and caches animated models. It abstracts the file format (glTF, GLB, etc.)
// behind a backend and returns Models ready for baking.
type Loader interface {
	// Load imports a model file and caches the result by path.
	// The backend is selected based on the file extension (.gltf/.glb → glTF backend).
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - model.Model: the loaded and cached model
	//   - error: error if loading fails
	Load(path string) (model.Model, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded model
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (model.Model, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(name string) model.Model

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by name
	Models() map[string]model.Model
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the loader
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         &sync.RWMutex{},
		modelCache: make(map[string]model.Model),
		wrapModes:  make(map[string]model.AuthoringWrapMode),
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (model.Model, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}
	imported, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.store(path, imported), nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (model.Model, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	imported, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	return l.store(name, imported), nil
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

// resolveBackend selects a loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("unsupported model format: %s", ext)
	}
}

// store applies authoring wrap settings, wraps the import in a Model and caches it.
// If another goroutine stored the same key first, its model wins.
func (l *loader) store(key string, imported *model.ImportedModel) model.Model {
	for _, clip := range imported.Animations {
		if mode, ok := l.wrapModes[clip.Name]; ok {
			clip.WrapMode = model.WrapModeFromAuthoring(mode)
		}
	}

	m := model.NewModel(model.WithImportedModel(imported))
	if l.verbose {
		log.Printf("[Loader] loaded %q: %d bones, %d clips", m.Name(), m.Skeleton().BoneCount(), m.AnimationCount())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.modelCache[key]; ok {
		return existing
	}
	l.modelCache[key] = m
	return m
}
