package animator

import "github.com/Carmen-Shannon/oxy-bake/engine/renderer/bind_group_provider"

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithMaxInstances is an option builder that sets the initial capacity of the frame-offset array.
//
// Parameters:
//   - maxInstances: the initial capacity
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the max instances option to an animator
func WithMaxInstances(maxInstances int) AnimatorBuilderOption {
	return func(a *animator) {
		if maxInstances < 0 {
			maxInstances = 0
		}
		a.maxInstances = uint32(maxInstances)
	}
}

// WithInstanceLimit caps the number of instances AddInstance accepts. Zero means no cap.
//
// Parameters:
//   - limit: the maximum instance count
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the limit to an animator
func WithInstanceLimit(limit int) AnimatorBuilderOption {
	return func(a *animator) {
		if limit < 0 {
			limit = 0
		}
		a.instanceLimit = uint32(limit)
	}
}

// WithBindGroupProvider uses provider instead of a freshly labelled one.
//
// Parameters:
//   - provider: the provider to hold the set's buffers
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the provider to an animator
func WithBindGroupProvider(provider bind_group_provider.BindGroupProvider) AnimatorBuilderOption {
	return func(a *animator) {
		a.provider = provider
	}
}
