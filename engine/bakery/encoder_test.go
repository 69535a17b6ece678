package bakery

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-bake/common"
	"github.com/Carmen-Shannon/oxy-bake/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

func TestEncodeRoundTrip(t *testing.T) {
	for _, bones := range []int{1, 2, 33} {
		s := chainSkeleton(bones)
		clips := sampleAll(t, s, 30,
			swingClip("idle", 1.0, bones, model.WrapLoop),
			swingClip("wave", 0.5, bones, model.WrapPingPong),
			swingClip("pose", 0, bones, model.WrapOnceEndForever),
		)

		set, err := Encode(clips, 30)
		if err != nil {
			t.Fatalf("%d bones: Encode failed: %v", bones, err)
		}
		if set.BoneCount != bones {
			t.Errorf("%d bones: expected BoneCount %d, got %d", bones, bones, set.BoneCount)
		}

		wantRows := (30 + 15 + 1) * bones * RowsPerBone
		if set.RowCount() != wantRows {
			t.Errorf("%d bones: expected %d rows, got %d", bones, wantRows, set.RowCount())
		}

		var want [12]float32
		for ci, c := range clips {
			desc := set.Clips[ci]
			for f := 0; f < c.FrameCount; f++ {
				for b := 0; b < bones; b++ {
					common.AffineRows(want[:], c.At(f, b))
					idx := RowIndex(int(desc.StartFrame), f, b, bones)
					for r := 0; r < RowsPerBone; r++ {
						if !common.RowsEqualBits(set.Row(idx+r), want[r*4:r*4+4]) {
							t.Fatalf("%d bones: clip %d frame %d bone %d row %d: expected %v, got %v",
								bones, ci, f, b, r, want[r*4:r*4+4], set.Row(idx+r))
						}
					}
					if got := set.BoneMatrix(ci, f, b); got != c.At(f, b) {
						t.Fatalf("%d bones: BoneMatrix(%d, %d, %d) mismatch", bones, ci, f, b)
					}
				}
			}
		}
	}
}

func TestEncodeDirectoryOffsets(t *testing.T) {
	s := chainSkeleton(4)
	clips := sampleAll(t, s, 10,
		swingClip("a", 1.0, 4, model.WrapLoop),
		swingClip("b", 0.25, 4, model.WrapOnceStartForever),
		swingClip("c", 2.0, 4, model.WrapPingPong),
	)
	set, err := Encode(clips, 10)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	expected := []ClipDescriptor{
		{Name: "a", StartFrame: 0, FrameCount: 10, Duration: 1.0, WrapMode: model.WrapLoop},
		{Name: "b", StartFrame: 10, FrameCount: 3, Duration: 0.25, WrapMode: model.WrapOnceStartForever},
		{Name: "c", StartFrame: 13, FrameCount: 20, Duration: 2.0, WrapMode: model.WrapPingPong},
	}
	for i, want := range expected {
		if set.Clips[i] != want {
			t.Errorf("clip %d: expected %+v, got %+v", i, want, set.Clips[i])
		}
	}
	if set.TotalFrames() != 33 {
		t.Errorf("expected 33 total frames, got %d", set.TotalFrames())
	}
}

func TestEncodeSelfCheckReportsCoordinates(t *testing.T) {
	s := chainSkeleton(3)
	clips := sampleAll(t, s, 30, swingClip("a", 0.2, 3, model.WrapLoop), swingClip("b", 0.2, 3, model.WrapLoop))

	// clip b (6 frames per clip), frame 2, bone 1
	target := 6*3 + 2*3 + 1
	call := 0
	corrupt := func(dst []float32, m mgl32.Mat4) {
		common.AffineRows(dst, m)
		if call == target {
			dst[2*4+3] += 1
		}
		call++
	}

	_, err := encode(clips, 30, corrupt)
	var sc *SelfCheckError
	if !errors.As(err, &sc) {
		t.Fatalf("expected *SelfCheckError, got %v", err)
	}
	if sc.Clip != "b" || sc.ClipIndex != 1 || sc.Frame != 2 || sc.Bone != 1 || sc.Row != 2 {
		t.Errorf("expected clip b frame 2 bone 1 row 2, got %+v", sc)
	}
	if math.Abs(float64(sc.Got[3]-sc.Want[3])-1) > 1e-6 {
		t.Errorf("expected got-want difference of 1, got %v vs %v", sc.Got, sc.Want)
	}
}

func TestEncodeDistinguishesSignedZero(t *testing.T) {
	s := chainSkeleton(1)
	clips := sampleAll(t, s, 30, swingClip("a", 0.1, 1, model.WrapLoop))

	flip := func(dst []float32, m mgl32.Mat4) {
		common.AffineRows(dst, m)
		for i, v := range dst {
			switch math.Float32bits(v) {
			case 0:
				dst[i] = float32(math.Copysign(0, -1))
			case 0x80000000:
				dst[i] = 0
			}
		}
	}
	if _, err := encode(clips, 30, flip); err == nil {
		t.Fatal("expected a self-check failure when zeros change sign")
	}
}

func TestEncodeRejectsInvalidInput(t *testing.T) {
	s := chainSkeleton(2)
	two := sampleAll(t, s, 30, swingClip("a", 1, 2, model.WrapLoop))
	three := sampleAll(t, chainSkeleton(3), 30, swingClip("b", 1, 3, model.WrapLoop))

	if _, err := Encode(two, 0); !errors.Is(err, ErrInvalidFrameRate) {
		t.Errorf("expected ErrInvalidFrameRate, got %v", err)
	}
	if _, err := Encode(two, float32(math.Inf(1))); !errors.Is(err, ErrInvalidFrameRate) {
		t.Errorf("expected ErrInvalidFrameRate for +Inf, got %v", err)
	}
	if _, err := Encode(append(two, three...), 30); !errors.Is(err, ErrBoneCountMismatch) {
		t.Errorf("expected ErrBoneCountMismatch, got %v", err)
	}
	if _, err := Encode([]SampledClip{{Name: "empty", FrameCount: 1}}, 30); !errors.Is(err, ErrEmptyClip) {
		t.Errorf("expected ErrEmptyClip, got %v", err)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	build := func() *BakedAnimationSet {
		s := chainSkeleton(33)
		set, err := Encode(sampleAll(t, s, 30,
			swingClip("run", 0.8, 33, model.WrapLoop),
			swingClip("jump", 1.3, 33, model.WrapOnceEndForever),
		), 30)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		return set
	}

	a, b := build(), build()
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("expected byte-identical row buffers")
	}
	if len(a.Clips) != len(b.Clips) {
		t.Fatalf("expected %d clips, got %d", len(a.Clips), len(b.Clips))
	}
	for i := range a.Clips {
		if a.Clips[i] != b.Clips[i] {
			t.Errorf("clip %d: %+v != %+v", i, a.Clips[i], b.Clips[i])
		}
	}
	if a.ID != b.ID {
		t.Errorf("expected equal ids, got %s and %s", a.ID, b.ID)
	}
}
