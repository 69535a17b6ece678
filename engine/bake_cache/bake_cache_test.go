package bake_cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-bake/engine/bakery"
	"github.com/Carmen-Shannon/oxy-bake/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

func testSkeleton() *model.Skeleton {
	ident := mgl32.Ident4()
	return &model.Skeleton{
		Bones: []model.Bone{
			{Name: "root", ParentIndex: -1, InverseBindMatrix: ident, LocalTransform: model.IdentityTransform()},
			{Name: "tip", ParentIndex: 0, InverseBindMatrix: mgl32.Translate3D(0, -1, 0), LocalTransform: model.Transform{
				Translation: [3]float32{0, 1, 0},
				Rotation:    [4]float32{0, 0, 0, 1},
				Scale:       [3]float32{1, 1, 1},
			}},
		},
		RootBoneIndices: []int32{0},
		BoneNameToIndex: map[string]int32{"root": 0, "tip": 1},
		RootTransform:   ident,
	}
}

func testClip(name string, dur float32) *model.AnimationClip {
	return &model.AnimationClip{
		Name:     name,
		Duration: dur,
		Channels: []model.AnimationChannel{{
			BoneIndex: 1,
			PositionKeys: []model.VectorKeyframe{
				{Time: 0, Value: [3]float32{0, 1, 0}},
				{Time: dur, Value: [3]float32{0, 2, 0}},
			},
		}},
	}
}

func TestKeyIgnoresClipOrder(t *testing.T) {
	s := testSkeleton()
	a, b := testClip("a", 1), testClip("b", 2)

	k1 := Request{Skeleton: s, Clips: []*model.AnimationClip{a, b}, FrameRate: 30}.Key()
	k2 := Request{Name: "other label", Skeleton: s, Clips: []*model.AnimationClip{b, a}, FrameRate: 30}.Key()
	if k1 != k2 {
		t.Errorf("expected equal keys, got %s and %s", k1, k2)
	}
}

func TestKeyChangesWithContent(t *testing.T) {
	s := testSkeleton()
	clips := []*model.AnimationClip{testClip("a", 1)}
	base := Request{Skeleton: s, Clips: clips, FrameRate: 30}.Key()

	moved := testSkeleton()
	moved.Bones[1].InverseBindMatrix[13] = -1.5

	longer := []*model.AnimationClip{testClip("a", 1.5)}

	cases := map[string]Request{
		"frame rate":  {Skeleton: s, Clips: clips, FrameRate: 60},
		"wrap mode":   {Skeleton: s, Clips: clips, FrameRate: 30, WrapModes: map[string]model.WrapMode{"a": model.WrapPingPong}},
		"bind pose":   {Skeleton: moved, Clips: clips, FrameRate: 30},
		"duration":    {Skeleton: s, Clips: longer, FrameRate: 30},
		"no skeleton": {Clips: clips, FrameRate: 30},
		"no clips":    {Skeleton: s, FrameRate: 30},
	}
	for name, req := range cases {
		if req.Key() == base {
			t.Errorf("%s: expected a different key", name)
		}
	}

	// Overrides for absent clips do not change the bake.
	unused := Request{Skeleton: s, Clips: clips, FrameRate: 30, WrapModes: map[string]model.WrapMode{"zzz": model.WrapPingPong}}
	if unused.Key() != base {
		t.Error("expected override for an absent clip to keep the key")
	}
}

func TestGetOrBakeMemoizes(t *testing.T) {
	c := NewBakeCache()
	req := Request{Name: "crowd", Skeleton: testSkeleton(), Clips: []*model.AnimationClip{testClip("walk", 1)}, FrameRate: 30}

	first, key, err := c.GetOrBake(req)
	if err != nil {
		t.Fatalf("GetOrBake: %v", err)
	}
	if first.Set == nil || len(first.Set.Clips) != 1 || first.Set.Clips[0].FrameCount != 30 {
		t.Fatalf("unexpected bake result: %+v", first.Set)
	}

	second, key2, err := c.GetOrBake(req)
	if err != nil {
		t.Fatalf("GetOrBake: %v", err)
	}
	if second != first || key2 != key {
		t.Error("expected the cached result on the second request")
	}
	if got, ok := c.Lookup(key); !ok || got != first {
		t.Error("expected Lookup to find the entry")
	}
	if c.Len() != 1 || len(c.Keys()) != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestGetOrBakeComparesFullContent(t *testing.T) {
	var calls atomic.Int32
	c := NewBakeCache(WithBakeFunc(func(req Request) (*bakery.BakeResult, error) {
		calls.Add(1)
		return &bakery.BakeResult{Set: &bakery.BakedAnimationSet{FrameRate: req.FrameRate}}, nil
	}))
	req := Request{Name: "crowd", Skeleton: testSkeleton(), Clips: []*model.AnimationClip{testClip("walk", 1)}, FrameRate: 30}

	// Plant another model's result under the same key, as a colliding hash would.
	other := &bakery.BakeResult{Set: &bakery.BakedAnimationSet{FrameRate: 12}}
	key := req.Key()
	impl := c.(*bakeCache)
	impl.entries[key] = &entry{res: other, fingerprint: "other model"}

	res, gotKey, err := c.GetOrBake(req)
	if err != nil {
		t.Fatalf("GetOrBake: %v", err)
	}
	if gotKey != key {
		t.Errorf("expected key %s, got %s", key, gotKey)
	}
	if res == other || res.Set.FrameRate != 30 {
		t.Errorf("expected a fresh bake at 30 fps, got %+v", res.Set)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 bake, got %d", calls.Load())
	}
	if got, _ := c.Lookup(key); got != other {
		t.Error("expected the existing entry to be kept")
	}
}

func TestGetOrBakeDedupesConcurrentRequests(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := NewBakeCache(WithBakeFunc(func(req Request) (*bakery.BakeResult, error) {
		calls.Add(1)
		<-release
		return &bakery.BakeResult{Set: &bakery.BakedAnimationSet{FrameRate: req.FrameRate}}, nil
	}))
	req := Request{Skeleton: testSkeleton(), Clips: []*model.AnimationClip{testClip("walk", 1)}, FrameRate: 30}

	const n = 16
	results := make([]*bakery.BakeResult, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _, err := c.GetOrBake(req)
			if err != nil {
				t.Errorf("GetOrBake: %v", err)
			}
			results[i] = res
		}()
	}
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected 1 bake, got %d", calls.Load())
	}
	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("request %d got a different result", i)
		}
	}
}

func TestGetOrBakeDoesNotCacheFailures(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	c := NewBakeCache(WithBakeFunc(func(req Request) (*bakery.BakeResult, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return &bakery.BakeResult{Set: &bakery.BakedAnimationSet{}}, nil
	}))
	req := Request{Name: "flaky", Skeleton: testSkeleton(), FrameRate: 30}

	if _, _, err := c.GetOrBake(req); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected no entries after failure, got %d", c.Len())
	}
	if _, _, err := c.GetOrBake(req); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 bakes, got %d", calls.Load())
	}
}

func TestGetOrBakeInvalidFrameRate(t *testing.T) {
	req := Request{Skeleton: testSkeleton(), Clips: []*model.AnimationClip{testClip("a", 1)}, FrameRate: 0}
	if _, _, err := NewBakeCache().GetOrBake(req); !errors.Is(err, bakery.ErrInvalidFrameRate) {
		t.Errorf("expected ErrInvalidFrameRate, got %v", err)
	}
}

func TestSharedIsSingleton(t *testing.T) {
	if Shared() != Shared() {
		t.Error("expected Shared to return the same cache")
	}
}
