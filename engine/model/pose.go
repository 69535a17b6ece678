package model

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-bake/common"
	"github.com/go-gl/mathgl/mgl32"
)

// PoseEvaluator supplies the live pose of a skeleton at an arbitrary time.
// It is the only thing the bakery needs from the animation layer.
type PoseEvaluator interface {
	// BoneCount returns the number of bones the evaluator writes.
	//
	// Returns:
	//   - int: the bone count
	BoneCount() int

	// Evaluate computes the world (model space) transform of every bone at time t.
	// driven[b] is set to false when bone b has no live transform at all.
	//
	// Parameters:
	//   - t: the clip time in seconds
	//   - world: destination matrices, one per bone
	//   - driven: destination flags, one per bone
	Evaluate(t float32, world []mgl32.Mat4, driven []bool)
}

// ClipPose evaluates an AnimationClip against a Skeleton by keyframe interpolation.
// Translation and scale are interpolated linearly, rotation by shortest-path slerp.
// Times outside the keyed range hold the nearest key.
type ClipPose struct {
	skeleton *Skeleton
	clip     *AnimationClip
	channels []int
	root     mgl32.Mat4
}

var _ PoseEvaluator = &ClipPose{}

// NewClipPose binds a clip to a skeleton for evaluation.
// A nil clip evaluates the rest pose.
//
// Parameters:
//   - skeleton: the skeleton, with parents ordered before children
//   - clip: the clip to evaluate, or nil
//
// Returns:
//   - *ClipPose: the evaluator
//   - error: error if the skeleton is not topologically ordered or a channel targets a missing bone
func NewClipPose(skeleton *Skeleton, clip *AnimationClip) (*ClipPose, error) {
	n := skeleton.BoneCount()
	p := &ClipPose{
		skeleton: skeleton,
		clip:     clip,
		channels: make([]int, n),
		root:     skeleton.RootMatrix(),
	}
	for i := range p.channels {
		p.channels[i] = -1
	}
	for i := 0; i < n; i++ {
		if parent := skeleton.Bones[i].ParentIndex; parent >= int32(i) {
			return nil, fmt.Errorf("bone %d (%s): parent %d is not ordered before it", i, skeleton.Bones[i].Name, parent)
		}
	}
	if clip != nil {
		for ci, ch := range clip.Channels {
			if ch.BoneIndex < 0 || int(ch.BoneIndex) >= n {
				return nil, fmt.Errorf("clip %q channel %d: bone index %d out of range", clip.Name, ci, ch.BoneIndex)
			}
			p.channels[ch.BoneIndex] = ci
		}
	}
	return p, nil
}

// RootMatrix returns RootTransform as a matrix, treating an all-zero RootTransform as identity.
func (s *Skeleton) RootMatrix() mgl32.Mat4 {
	if s == nil || s.RootTransform == ([16]float32{}) {
		return mgl32.Ident4()
	}
	return mgl32.Mat4(s.RootTransform)
}

func (p *ClipPose) BoneCount() int {
	return p.skeleton.BoneCount()
}

func (p *ClipPose) Evaluate(t float32, world []mgl32.Mat4, driven []bool) {
	for b := range p.skeleton.Bones {
		bone := &p.skeleton.Bones[b]
		local := bone.LocalTransform
		if ci := p.channels[b]; ci >= 0 {
			ch := &p.clip.Channels[ci]
			if len(ch.PositionKeys) > 0 {
				local.Translation = sampleVector(ch.PositionKeys, t)
			}
			if len(ch.RotationKeys) > 0 {
				local.Rotation = sampleQuaternion(ch.RotationKeys, t)
			}
			if len(ch.ScaleKeys) > 0 {
				local.Scale = sampleVector(ch.ScaleKeys, t)
			}
		}

		m := common.ComposeTRS(mgl32.Vec3(local.Translation), common.QuatFromXYZW(local.Rotation), mgl32.Vec3(local.Scale))
		if bone.ParentIndex < 0 {
			world[b] = p.root.Mul4(m)
		} else {
			world[b] = world[bone.ParentIndex].Mul4(m)
		}
		driven[b] = !bone.Unbound
	}
}

// keySpan finds the pair of keys bracketing t and the blend factor between them.
// When t is outside the keyed range both indices point at the nearest key.
func keySpan(n int, at func(int) float32, t float32) (int, int, float32) {
	if n == 1 || t <= at(0) {
		return 0, 0, 0
	}
	if t >= at(n-1) {
		return n - 1, n - 1, 0
	}
	hi := sort.Search(n, func(i int) bool { return at(i) > t })
	lo := hi - 1
	span := at(hi) - at(lo)
	if span <= 0 {
		return hi, hi, 0
	}
	return lo, hi, (t - at(lo)) / span
}

func sampleVector(keys []VectorKeyframe, t float32) [3]float32 {
	lo, hi, f := keySpan(len(keys), func(i int) float32 { return keys[i].Time }, t)
	if lo == hi {
		return keys[lo].Value
	}
	a, b := mgl32.Vec3(keys[lo].Value), mgl32.Vec3(keys[hi].Value)
	return [3]float32(a.Add(b.Sub(a).Mul(f)))
}

func sampleQuaternion(keys []QuaternionKeyframe, t float32) [4]float32 {
	lo, hi, f := keySpan(len(keys), func(i int) float32 { return keys[i].Time }, t)
	if lo == hi {
		return keys[lo].Value
	}
	a, b := common.QuatFromXYZW(keys[lo].Value), common.QuatFromXYZW(keys[hi].Value)
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	q := mgl32.QuatSlerp(a, b, f).Normalize()
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}
