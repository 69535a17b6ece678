package bakery

import "github.com/Carmen-Shannon/oxy-bake/engine/model"

// BakeryBuilderOption is a functional option for configuring a Bakery via NewBakery.
type BakeryBuilderOption func(*bakery)

// WithFrameRate sets the sampling rate in frames per second. Defaults to DefaultFrameRate.
//
// Parameters:
//   - fps: the sampling rate; must be positive
//
// Returns:
//   - BakeryBuilderOption: option function to apply
func WithFrameRate(fps float32) BakeryBuilderOption {
	return func(b *bakery) {
		b.frameRate = fps
	}
}

// WithWrapMode overrides the wrap mode baked for the named clip.
//
// Parameters:
//   - clip: the clip name
//   - mode: the wrap mode to bake
//
// Returns:
//   - BakeryBuilderOption: option function to apply
func WithWrapMode(clip string, mode model.WrapMode) BakeryBuilderOption {
	return func(b *bakery) {
		b.wrapModes[clip] = mode
	}
}

// WithWrapModes applies several wrap mode overrides at once.
func WithWrapModes(modes map[string]model.WrapMode) BakeryBuilderOption {
	return func(b *bakery) {
		for clip, mode := range modes {
			b.wrapModes[clip] = mode
		}
	}
}

// WithPoseFactory replaces the keyframe interpolator with a custom pose function.
//
// Parameters:
//   - factory: builds the pose function for each clip
//
// Returns:
//   - BakeryBuilderOption: option function to apply
func WithPoseFactory(factory PoseFactory) BakeryBuilderOption {
	return func(b *bakery) {
		if factory != nil {
			b.poseFactory = factory
		}
	}
}

// WithVerbose enables "[Bakery]" log output for skipped clips and bake summaries.
func WithVerbose(verbose bool) BakeryBuilderOption {
	return func(b *bakery) {
		b.verbose = verbose
	}
}
