package model

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func twoBoneSkeleton() *Skeleton {
	tip := IdentityTransform()
	tip.Translation = [3]float32{0, 1, 0}
	return &Skeleton{
		Bones: []Bone{
			{Name: "root", ParentIndex: -1, LocalTransform: IdentityTransform()},
			{Name: "tip", ParentIndex: 0, LocalTransform: tip},
		},
		RootBoneIndices: []int32{0},
		BoneNameToIndex: map[string]int32{"root": 0, "tip": 1},
	}
}

func evaluate(t *testing.T, p PoseEvaluator, at float32) []mgl32.Mat4 {
	t.Helper()
	world := make([]mgl32.Mat4, p.BoneCount())
	driven := make([]bool, p.BoneCount())
	p.Evaluate(at, world, driven)
	return world
}

func TestClipPoseRestPose(t *testing.T) {
	s := twoBoneSkeleton()
	s.RootTransform = mgl32.Translate3D(5, 0, 0)
	p, err := NewClipPose(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	world := evaluate(t, p, 0)
	if !world[0].ApproxEqual(mgl32.Translate3D(5, 0, 0)) {
		t.Errorf("root: expected root transform, got %v", world[0])
	}
	if !world[1].ApproxEqual(mgl32.Translate3D(5, 1, 0)) {
		t.Errorf("tip: expected parent * local, got %v", world[1])
	}
}

func TestClipPoseInterpolatesTranslation(t *testing.T) {
	clip := &AnimationClip{Name: "lift", Duration: 2, Channels: []AnimationChannel{{
		BoneIndex: 0,
		PositionKeys: []VectorKeyframe{
			{Time: 0, Value: [3]float32{0, 0, 0}},
			{Time: 2, Value: [3]float32{0, 4, 0}},
		},
	}}}
	p, err := NewClipPose(twoBoneSkeleton(), clip)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		at   float32
		want float32
	}{
		{-1, 0}, {0, 0}, {0.5, 1}, {1, 2}, {2, 4}, {3, 4},
	}
	for _, tc := range cases {
		world := evaluate(t, p, tc.at)
		if got := world[0][13]; math.Abs(float64(got-tc.want)) > 1e-5 {
			t.Errorf("t=%v: expected root y %v, got %v", tc.at, tc.want, got)
		}
		if got := world[1][13]; math.Abs(float64(got-tc.want-1)) > 1e-5 {
			t.Errorf("t=%v: expected tip y %v, got %v", tc.at, tc.want+1, got)
		}
	}
}

func TestClipPoseSlerpShortestPath(t *testing.T) {
	// q and -q are the same rotation; interpolating towards -q must not spin the long way.
	q := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	neg := q.Scale(-1)
	clip := &AnimationClip{Name: "turn", Duration: 1, Channels: []AnimationChannel{{
		BoneIndex: 0,
		RotationKeys: []QuaternionKeyframe{
			{Time: 0, Value: [4]float32{0, 0, 0, 1}},
			{Time: 1, Value: [4]float32{neg.V[0], neg.V[1], neg.V[2], neg.W}},
		},
	}}}
	p, err := NewClipPose(twoBoneSkeleton(), clip)
	if err != nil {
		t.Fatal(err)
	}
	world := evaluate(t, p, 0.5)
	want := mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 0, 1}).Mat4()
	if !world[0].ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("expected a 45 degree turn, got %v", world[0])
	}
}

func TestClipPoseUnboundBoneNotDriven(t *testing.T) {
	s := twoBoneSkeleton()
	s.Bones[1].Unbound = true
	p, err := NewClipPose(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	world := make([]mgl32.Mat4, 2)
	driven := make([]bool, 2)
	p.Evaluate(0, world, driven)
	if !driven[0] || driven[1] {
		t.Errorf("expected driven [true false], got %v", driven)
	}
}

func TestNewClipPoseErrors(t *testing.T) {
	s := twoBoneSkeleton()
	s.Bones[0].ParentIndex = 1
	if _, err := NewClipPose(s, nil); err == nil {
		t.Error("expected an error for a child ordered before its parent")
	}

	clip := &AnimationClip{Name: "bad", Channels: []AnimationChannel{{BoneIndex: 2}}}
	if _, err := NewClipPose(twoBoneSkeleton(), clip); err == nil {
		t.Error("expected an error for a channel past the last bone")
	}
}

func TestKeySpan(t *testing.T) {
	times := []float32{0, 1, 1, 2}
	at := func(i int) float32 { return times[i] }

	cases := []struct {
		t      float32
		lo, hi int
		f      float32
	}{
		{-1, 0, 0, 0},
		{0.5, 0, 1, 0.5},
		{1, 2, 3, 0}, // a repeated time resolves to the later key
		{1.5, 2, 3, 0.5},
		{2, 3, 3, 0},
	}
	for _, tc := range cases {
		lo, hi, f := keySpan(len(times), at, tc.t)
		if lo != tc.lo || hi != tc.hi || math.Abs(float64(f-tc.f)) > 1e-6 {
			t.Errorf("t=%v: expected (%d, %d, %v), got (%d, %d, %v)", tc.t, tc.lo, tc.hi, tc.f, lo, hi, f)
		}
	}
}
