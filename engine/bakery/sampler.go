package bakery

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-bake/common"
	"github.com/Carmen-Shannon/oxy-bake/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// ClipInfo carries the clip metadata the sampler copies into a SampledClip.
type ClipInfo struct {
	Name     string
	Duration float32
	WrapMode model.WrapMode
}

// FrameCount returns ceil(frameRate * duration), never less than 1.
// The product is taken in float32, matching how clip lengths are authored.
func FrameCount(frameRate, duration float32) int {
	p := frameRate * duration
	if !common.IsFinite32(p) || p <= 0 {
		return 1
	}
	n := int(math.Ceil(float64(p)))
	if n < 1 {
		return 1
	}
	return n
}

// SampleTime returns the clip time of frame f out of frameCount: duration * f / frameCount.
// The last frame lands strictly before the clip end.
func SampleTime(duration float32, frame, frameCount int) float32 {
	return duration * float32(frame) / float32(frameCount)
}

// Sample resamples clip on skeleton at frameRate using keyframe interpolation.
//
// Parameters:
//   - skeleton: the bind skeleton
//   - clip: the clip to sample
//   - frameRate: the sampling rate in frames per second
//
// Returns:
//   - SampledClip: the sampled transforms; BoneCount is 0 for an empty skeleton
//   - error: error if the clip cannot be bound to the skeleton
func Sample(skeleton *model.Skeleton, clip *model.AnimationClip, frameRate float32) (SampledClip, error) {
	pose, err := model.NewClipPose(skeleton, clip)
	if err != nil {
		return SampledClip{}, fmt.Errorf("failed to bind clip %q: %w", clip.Name, err)
	}
	return SampleWith(skeleton, pose, ClipInfo{Name: clip.Name, Duration: clip.Duration, WrapMode: clip.WrapMode}, frameRate), nil
}

// SampleWith resamples an arbitrary pose function. Bones the pose does not drive,
// bones past pose.BoneCount and Unbound bones are written as their inverse bind matrix alone.
//
// Parameters:
//   - skeleton: the bind skeleton providing inverse bind matrices
//   - pose: the live pose function
//   - info: the clip metadata
//   - frameRate: the sampling rate in frames per second
//
// Returns:
//   - SampledClip: the sampled transforms
func SampleWith(skeleton *model.Skeleton, pose model.PoseEvaluator, info ClipInfo, frameRate float32) SampledClip {
	boneCount := skeleton.BoneCount()
	frameCount := FrameCount(frameRate, info.Duration)

	out := SampledClip{
		Name:       info.Name,
		Duration:   info.Duration,
		WrapMode:   info.WrapMode,
		FrameCount: frameCount,
		BoneCount:  boneCount,
	}
	if boneCount == 0 {
		return out
	}

	posed := min(pose.BoneCount(), boneCount)
	world := make([]mgl32.Mat4, pose.BoneCount())
	driven := make([]bool, pose.BoneCount())
	out.Transforms = make([]mgl32.Mat4, frameCount*boneCount)

	for f := 0; f < frameCount; f++ {
		pose.Evaluate(SampleTime(info.Duration, f, frameCount), world, driven)

		base := f * boneCount
		for b := 0; b < boneCount; b++ {
			bone := &skeleton.Bones[b]
			inverseBind := mgl32.Mat4(bone.InverseBindMatrix)
			if b < posed && driven[b] && !bone.Unbound {
				out.Transforms[base+b] = world[b].Mul4(inverseBind)
			} else {
				out.Transforms[base+b] = inverseBind
			}
		}
	}

	return out
}
