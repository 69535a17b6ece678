package bakery

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-bake/engine/model"
)

func TestNewBakeryValidatesFrameRate(t *testing.T) {
	if _, err := NewBakery(WithFrameRate(0)); !errors.Is(err, ErrInvalidFrameRate) {
		t.Errorf("expected ErrInvalidFrameRate, got %v", err)
	}
	b, err := NewBakery()
	if err != nil {
		t.Fatalf("NewBakery failed: %v", err)
	}
	if b.FrameRate() != DefaultFrameRate {
		t.Errorf("expected default frame rate %v, got %v", DefaultFrameRate, b.FrameRate())
	}
}

func TestBakeSortsClipsByName(t *testing.T) {
	s := chainSkeleton(2)
	m := model.NewModel(
		model.WithName("fox"),
		model.WithSkeleton(s),
		model.WithAnimations([]*model.AnimationClip{
			swingClip("walk", 1, 2, model.WrapLoop),
			swingClip("Run", 1, 2, model.WrapLoop),
			swingClip("attack", 1, 2, model.WrapLoop),
			swingClip("idle", 1, 2, model.WrapLoop),
		}),
	)

	b, err := NewBakery()
	if err != nil {
		t.Fatalf("NewBakery failed: %v", err)
	}
	res, err := b.Bake(m)
	if err != nil {
		t.Fatalf("Bake failed: %v", err)
	}

	// ordinal comparison puts upper case first
	expected := []string{"Run", "attack", "idle", "walk"}
	for i, name := range expected {
		if res.Set.Clips[i].Name != name {
			t.Errorf("clip %d: expected %s, got %s", i, name, res.Set.Clips[i].Name)
		}
		if res.Set.ClipIndex(name) != i {
			t.Errorf("expected ClipIndex(%s) = %d, got %d", name, i, res.Set.ClipIndex(name))
		}
	}
	if res.Set.ClipIndex("missing") != -1 {
		t.Error("expected -1 for a missing clip")
	}
}

func TestBakeSkipsZeroBoneClips(t *testing.T) {
	b, err := NewBakery()
	if err != nil {
		t.Fatalf("NewBakery failed: %v", err)
	}
	res, err := b.BakeClips(&model.Skeleton{}, []*model.AnimationClip{
		{Name: "b", Duration: 1},
		{Name: "a", Duration: 1},
	})
	if err != nil {
		t.Fatalf("expected zero-bone clips to be skipped, got %v", err)
	}
	if len(res.Skipped) != 2 || res.Skipped[0] != "a" || res.Skipped[1] != "b" {
		t.Errorf("expected skipped [a b], got %v", res.Skipped)
	}
	if res.Set == nil || len(res.Set.Clips) != 0 || res.Set.RowCount() != 0 {
		t.Errorf("expected an empty set, got %+v", res.Set)
	}
}

func TestBakeSkipsAnimatedClipsOnEmptySkeleton(t *testing.T) {
	b, err := NewBakery()
	if err != nil {
		t.Fatalf("NewBakery failed: %v", err)
	}
	res, err := b.BakeClips(&model.Skeleton{}, []*model.AnimationClip{
		{Name: "idle", Duration: 1},
		swingClip("walk", 1, 1, model.WrapLoop),
	})
	if err != nil {
		t.Fatalf("expected clips with channels to be skipped, got %v", err)
	}
	if len(res.Skipped) != 2 || res.Skipped[0] != "idle" || res.Skipped[1] != "walk" {
		t.Errorf("expected skipped [idle walk], got %v", res.Skipped)
	}
	if res.Set == nil || len(res.Set.Clips) != 0 {
		t.Errorf("expected an empty set, got %+v", res.Set)
	}
}

func TestBakeAppliesWrapOverrides(t *testing.T) {
	b, err := NewBakery(WithFrameRate(10), WithWrapMode("jump", model.WrapOnceEndForever))
	if err != nil {
		t.Fatalf("NewBakery failed: %v", err)
	}
	res, err := b.BakeClips(chainSkeleton(1), []*model.AnimationClip{
		swingClip("jump", 1, 1, model.WrapLoop),
		swingClip("walk", 1, 1, model.WrapPingPong),
	})
	if err != nil {
		t.Fatalf("BakeClips failed: %v", err)
	}
	if res.Set.Clips[0].WrapMode != model.WrapOnceEndForever {
		t.Errorf("expected jump to be once_end_forever, got %s", res.Set.Clips[0].WrapMode)
	}
	if res.Set.Clips[1].WrapMode != model.WrapPingPong {
		t.Errorf("expected walk to keep ping_pong, got %s", res.Set.Clips[1].WrapMode)
	}
}

func TestBakeUsesPoseFactory(t *testing.T) {
	calls := 0
	factory := func(s *model.Skeleton, c *model.AnimationClip) (model.PoseEvaluator, error) {
		calls++
		return &recordingPose{bones: s.BoneCount()}, nil
	}
	b, err := NewBakery(WithPoseFactory(factory))
	if err != nil {
		t.Fatalf("NewBakery failed: %v", err)
	}
	if _, err := b.BakeClips(chainSkeleton(2), []*model.AnimationClip{{Name: "a", Duration: 1}, {Name: "b", Duration: 1}}); err != nil {
		t.Fatalf("BakeClips failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 pose factory calls, got %d", calls)
	}
}

func TestBakeReportsBindErrors(t *testing.T) {
	s := chainSkeleton(2)
	s.Bones[0].ParentIndex = 1
	b, _ := NewBakery()
	if _, err := b.BakeClips(s, []*model.AnimationClip{{Name: "a", Duration: 1}}); err == nil {
		t.Error("expected an error for a skeleton whose parents are out of order")
	}
}
