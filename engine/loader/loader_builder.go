package loader

import "github.com/Carmen-Shannon/oxy-bake/engine/model"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - model: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, model model.Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = model
	}
}

// WithWrapMode sets the authoring wrap setting of a clip by name. Imported clips default to loop.
//
// Parameters:
//   - clip: the clip name
//   - mode: the authoring wrap setting, converted with model.WrapModeFromAuthoring
//
// Returns:
//   - LoaderBuilderOption: a function that applies the wrap option to a loader
func WithWrapMode(clip string, mode model.AuthoringWrapMode) LoaderBuilderOption {
	return func(l *loader) {
		l.wrapModes[clip] = mode
	}
}

// WithVerbose enables "[Loader]" log output.
func WithVerbose(verbose bool) LoaderBuilderOption {
	return func(l *loader) {
		l.verbose = verbose
	}
}
