package bakery

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bake/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// chainSkeleton builds a straight chain of n bones, one unit apart along +Y.
func chainSkeleton(n int) *model.Skeleton {
	s := &model.Skeleton{
		Bones:           make([]model.Bone, n),
		BoneNameToIndex: make(map[string]int32, n),
	}
	for i := 0; i < n; i++ {
		b := &s.Bones[i]
		b.Name = fmt.Sprintf("bone_%d", i)
		b.ParentIndex = int32(i - 1)
		b.LocalTransform = model.IdentityTransform()
		if i > 0 {
			b.LocalTransform.Translation = [3]float32{0, 1, 0}
		}
		b.InverseBindMatrix = [16]float32(mgl32.Translate3D(0, -float32(i), 0))
		s.BoneNameToIndex[b.Name] = int32(i)
	}
	if n > 0 {
		s.RootBoneIndices = []int32{0}
	}
	return s
}

// swingClip rotates every bone about Z, further for bones deeper in the chain.
func swingClip(name string, duration float32, boneCount int, wrap model.WrapMode) *model.AnimationClip {
	clip := &model.AnimationClip{Name: name, Duration: duration, TicksPerSecond: 1, WrapMode: wrap}
	for b := 0; b < boneCount; b++ {
		end := mgl32.QuatRotate(0.4*float32(b+1), mgl32.Vec3{0, 0, 1})
		mid := mgl32.QuatRotate(-0.2*float32(b+1), mgl32.Vec3{0, 0, 1})
		clip.Channels = append(clip.Channels, model.AnimationChannel{
			BoneIndex: int32(b),
			RotationKeys: []model.QuaternionKeyframe{
				{Time: 0, Value: [4]float32{0, 0, 0, 1}},
				{Time: duration / 2, Value: [4]float32{mid.V[0], mid.V[1], mid.V[2], mid.W}},
				{Time: duration, Value: [4]float32{end.V[0], end.V[1], end.V[2], end.W}},
			},
			PositionKeys: []model.VectorKeyframe{
				{Time: 0, Value: [3]float32{0, 1, 0}},
				{Time: duration, Value: [3]float32{0.25, 1, 0}},
			},
		})
	}
	return clip
}

func sampleAll(t interface{ Fatalf(string, ...any) }, s *model.Skeleton, frameRate float32, clips ...*model.AnimationClip) []SampledClip {
	out := make([]SampledClip, 0, len(clips))
	for _, c := range clips {
		sc, err := Sample(s, c, frameRate)
		if err != nil {
			t.Fatalf("Sample(%s): %v", c.Name, err)
		}
		out = append(out, sc)
	}
	return out
}
