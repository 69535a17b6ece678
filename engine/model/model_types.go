package model

// --- Transform & Skeleton Types ---

// Transform represents a decomposed transform for animation interpolation.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns a Transform with no translation, no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// Bone represents a single bone in a skeleton hierarchy.
type Bone struct {
	// Name is the bone's identifier (for debugging and animation targeting).
	Name string

	// ParentIndex is the index of the parent bone (-1 for root bones).
	ParentIndex int32

	// InverseBindMatrix transforms from model space to bone space at bind pose.
	// This is the inverse of the bone's world transform when the mesh was bound.
	InverseBindMatrix [16]float32

	// LocalTransform is the bone's rest transform relative to its parent.
	// Channels that do not animate a component fall back to it.
	LocalTransform Transform

	// JointIndex is the position of the bone in the source skin's joint list.
	// Bones are reordered parent-first on import; skinned meshes index joints by this value.
	JointIndex int32

	// Unbound marks a bind pose entry that has no driving node in the rig.
	// Baking writes the inverse bind matrix alone for such bones.
	Unbound bool
}

// Skeleton represents a bone hierarchy for skeletal animation.
// Bones are ordered so that every parent precedes its children.
type Skeleton struct {
	// Bones is the array of all bones in the skeleton.
	Bones []Bone

	// RootBoneIndices are indices of bones with no parent.
	RootBoneIndices []int32

	// BoneNameToIndex maps bone names to their indices for quick lookup.
	BoneNameToIndex map[string]int32

	// RootTransform is the accumulated transform of the non-joint ancestors of the root bones
	// (column-major). It is applied before every root bone so that baked matrices are in model space.
	RootTransform [16]float32
}

// BoneCount returns the number of bones, tolerating a nil skeleton.
func (s *Skeleton) BoneCount() int {
	if s == nil {
		return 0
	}
	return len(s.Bones)
}

// --- Animation Types ---

// AnimationClip represents a single animation (walk, run, attack, etc.).
type AnimationClip struct {
	// Name is the animation identifier.
	Name string

	// Duration is the total length of the animation in seconds.
	Duration float32

	// TicksPerSecond is the sample rate of the animation.
	TicksPerSecond float32

	// WrapMode is the playback policy baked into the clip directory.
	WrapMode WrapMode

	// Channels contains animation data for each animated bone, ordered by BoneIndex.
	Channels []AnimationChannel
}

// AnimationChannel contains keyframe data for a single bone.
type AnimationChannel struct {
	// BoneIndex is the index of the bone this channel animates.
	BoneIndex int32

	// PositionKeys are keyframes for translation.
	PositionKeys []VectorKeyframe

	// RotationKeys are keyframes for rotation (quaternion).
	RotationKeys []QuaternionKeyframe

	// ScaleKeys are keyframes for scale.
	ScaleKeys []VectorKeyframe
}

// VectorKeyframe stores a 3D vector value at a specific time.
type VectorKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the 3D vector value at this keyframe.
	Value [3]float32
}

// QuaternionKeyframe stores a quaternion rotation at a specific time.
type QuaternionKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the quaternion value at this keyframe (x, y, z, w).
	Value [4]float32
}

// --- Import Types ---

// ImportedModel represents an animated model loaded from an external format.
// This is the universal format that importers (glTF, etc.) produce.
type ImportedModel struct {
	// Name is the model identifier.
	Name string

	// Skeleton is the bone hierarchy (nil for static models).
	Skeleton *Skeleton

	// Animations are all animation clips bundled with the model.
	Animations []*AnimationClip
}
