package model

import (
	"sort"
	"sync"
)

// model is the implementation of the Model interface.
type model struct {
	mu         *sync.RWMutex
	name       string
	skeleton   *Skeleton
	animations []*AnimationClip
}

// Model defines the interface for an animated prototype: a skeleton plus its named clips.
// A Model is produced by the Loader or assembled programmatically, and is the input to baking.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Skinned reports whether this model has a skeleton with at least one bone.
	//
	// Returns:
	//   - bool: true if the model has bone data
	Skinned() bool

	// Skeleton retrieves the bone hierarchy for this model.
	// Returns nil for static (non-skinned) models.
	//
	// Returns:
	//   - *Skeleton: the skeleton or nil
	Skeleton() *Skeleton

	// Animations retrieves all animation clips bundled with this model, in import order.
	//
	// Returns:
	//   - []*AnimationClip: the animation clips
	Animations() []*AnimationClip

	// SortedAnimations returns the clips ordered by name using ordinal string comparison.
	// This is the order in which clips are baked.
	//
	// Returns:
	//   - []*AnimationClip: a new slice of the clips, sorted by name
	SortedAnimations() []*AnimationClip

	// AnimationCount returns the number of available animation clips.
	//
	// Returns:
	//   - int: the animation count
	AnimationCount() int

	// AnimationNames returns the names of all animation clips.
	//
	// Returns:
	//   - []string: the animation clip names
	AnimationNames() []string

	// GetAnimationIndex returns the index of an animation by name, or -1 if not found.
	//
	// Parameters:
	//   - name: the animation clip name to search for
	//
	// Returns:
	//   - int: the animation index, or -1 if not found
	GetAnimationIndex(name string) int

	// SetWrapMode overrides the wrap mode of the named clip.
	//
	// Parameters:
	//   - name: the animation clip name
	//   - mode: the wrap mode to apply
	//
	// Returns:
	//   - bool: false if no clip has that name
	SetWrapMode(name string, mode WrapMode) bool
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{mu: &sync.RWMutex{}}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Skinned() bool {
	return m.skeleton.BoneCount() > 0
}

func (m *model) Skeleton() *Skeleton {
	return m.skeleton
}

func (m *model) Animations() []*AnimationClip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.animations
}

func (m *model) SortedAnimations() []*AnimationClip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sorted := make([]*AnimationClip, len(m.animations))
	copy(sorted, m.animations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

func (m *model) AnimationCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.animations)
}

func (m *model) AnimationNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.animations))
	for i, anim := range m.animations {
		names[i] = anim.Name
	}
	return names
}

func (m *model) GetAnimationIndex(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i, anim := range m.animations {
		if anim.Name == name {
			return i
		}
	}
	return -1
}

func (m *model) SetWrapMode(name string, mode WrapMode) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, anim := range m.animations {
		if anim.Name == name {
			anim.WrapMode = mode
			return true
		}
	}
	return false
}
