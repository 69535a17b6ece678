package model

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithSkeleton is an option builder that sets the bone hierarchy of the Model.
//
// Parameters:
//   - skeleton: the skeleton to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the skeleton option to a model
func WithSkeleton(skeleton *Skeleton) ModelBuilderOption {
	return func(m *model) {
		m.skeleton = skeleton
	}
}

// WithAnimations is an option builder that sets the animation clips of the Model.
//
// Parameters:
//   - animations: the animation clips to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the animations option to a model
func WithAnimations(animations []*AnimationClip) ModelBuilderOption {
	return func(m *model) {
		m.animations = animations
	}
}

// WithImportedModel is an option builder that copies name, skeleton and animations from an ImportedModel.
// Options applied after it override the copied values.
//
// Parameters:
//   - imported: the imported model data
//
// Returns:
//   - ModelBuilderOption: a function that applies the imported data to a model
func WithImportedModel(imported *ImportedModel) ModelBuilderOption {
	return func(m *model) {
		if imported == nil {
			return
		}
		m.name = imported.Name
		m.skeleton = imported.Skeleton
		m.animations = imported.Animations
	}
}
