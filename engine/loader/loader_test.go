package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-bake/engine/bakery"
	"github.com/Carmen-Shannon/oxy-bake/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfFixture assembles a glTF document whose single buffer is an embedded data URI.
type gltfFixture struct {
	data      []byte
	views     []map[string]any
	accessors []map[string]any
}

func (f *gltfFixture) add(typ string, count int, vals ...float32) int {
	offset := len(f.data)
	for _, v := range vals {
		f.data = binary.LittleEndian.AppendUint32(f.data, math.Float32bits(v))
	}
	f.views = append(f.views, map[string]any{"buffer": 0, "byteOffset": offset, "byteLength": len(vals) * 4})
	f.accessors = append(f.accessors, map[string]any{
		"bufferView": len(f.views) - 1, "componentType": gltfComponentTypeFloat, "count": count, "type": typ,
	})
	return len(f.accessors) - 1
}

func (f *gltfFixture) document(extra map[string]any) []byte {
	doc := map[string]any{
		"asset":       map[string]any{"version": "2.0"},
		"accessors":   f.accessors,
		"bufferViews": f.views,
		"buffers": []map[string]any{{
			"byteLength": len(f.data),
			"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(f.data),
		}},
	}
	for k, v := range extra {
		doc[k] = v
	}
	out, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return out
}

var (
	spineIBM = mgl32.Translate3D(0, -1, -5)
	hipIBM   = mgl32.Translate3D(0, 0, -5)
)

// riggedDocument has an Armature node (not a joint) above hip, and spine below hip.
// The skin lists spine before hip so import must reorder them.
func riggedDocument() []byte {
	f := &gltfFixture{}
	ibm := f.add(gltfAccessorTypeMat4, 2, append(spineIBM[:], hipIBM[:]...)...)
	times2 := f.add(gltfAccessorTypeScalar, 2, 0, 1)
	spineT := f.add(gltfAccessorTypeVec3, 2, 0, 1, 0, 0, 2, 0)
	times3 := f.add(gltfAccessorTypeScalar, 3, 0, 0.5, 1)
	hipR := f.add(gltfAccessorTypeVec4, 3,
		0, 0, 0, 1,
		0, 0, 0.70710677, 0.70710677,
		0, 0, 1, 0,
	)
	spineS := f.add(gltfAccessorTypeVec3, 6,
		9, 9, 9, 1, 1, 1, 9, 9, 9,
		9, 9, 9, 2, 2, 2, 9, 9, 9,
	)

	return f.document(map[string]any{
		"scene":  0,
		"scenes": []map[string]any{{"name": "crowd", "nodes": []int{0}}},
		"nodes": []map[string]any{
			{"name": "Armature", "translation": []float32{0, 0, 5}, "children": []int{1, 3}},
			{"name": "hip", "children": []int{2}},
			{"name": "spine", "translation": []float32{0, 1, 0}},
			{"name": "body", "mesh": 0, "skin": 0},
		},
		"skins": []map[string]any{{"inverseBindMatrices": ibm, "joints": []int{2, 1}}},
		"animations": []map[string]any{
			{
				"name": "walk",
				"samplers": []map[string]any{
					{"input": times2, "output": spineT},
					{"input": times3, "output": hipR, "interpolation": "STEP"},
					{"input": times2, "output": spineS, "interpolation": "CUBICSPLINE"},
				},
				"channels": []map[string]any{
					{"sampler": 0, "target": map[string]any{"node": 2, "path": "translation"}},
					{"sampler": 1, "target": map[string]any{"node": 1, "path": "rotation"}},
					{"sampler": 2, "target": map[string]any{"node": 2, "path": "scale"}},
					{"sampler": 0, "target": map[string]any{"node": 3, "path": "translation"}},
				},
			},
			{
				"name":     "props_only",
				"samplers": []map[string]any{{"input": times2, "output": spineT}},
				"channels": []map[string]any{
					{"sampler": 0, "target": map[string]any{"node": 3, "path": "translation"}},
				},
			},
		},
	})
}

func loadRigged(t *testing.T, options ...LoaderBuilderOption) model.Model {
	t.Helper()
	l := NewLoader(BackendTypeGLTF, options...)
	m, err := l.LoadReader("rig", bytes.NewReader(riggedDocument()), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	return m
}

func TestImportSkeleton(t *testing.T) {
	m := loadRigged(t)
	if m.Name() != "crowd" {
		t.Errorf("expected name crowd, got %q", m.Name())
	}

	s := m.Skeleton()
	if s.BoneCount() != 2 {
		t.Fatalf("expected 2 bones, got %d", s.BoneCount())
	}
	hip, spine := s.Bones[0], s.Bones[1]
	if hip.Name != "hip" || spine.Name != "spine" {
		t.Fatalf("expected parent-first order [hip spine], got [%s %s]", hip.Name, spine.Name)
	}
	if hip.ParentIndex != -1 || spine.ParentIndex != 0 {
		t.Errorf("unexpected parents: hip %d, spine %d", hip.ParentIndex, spine.ParentIndex)
	}
	if hip.JointIndex != 1 || spine.JointIndex != 0 {
		t.Errorf("unexpected joint indices: hip %d, spine %d", hip.JointIndex, spine.JointIndex)
	}
	if mgl32.Mat4(hip.InverseBindMatrix) != hipIBM || mgl32.Mat4(spine.InverseBindMatrix) != spineIBM {
		t.Error("inverse bind matrices not carried with their joints")
	}
	if spine.LocalTransform.Translation != [3]float32{0, 1, 0} {
		t.Errorf("unexpected spine rest translation %v", spine.LocalTransform.Translation)
	}
	if len(s.RootBoneIndices) != 1 || s.RootBoneIndices[0] != 0 {
		t.Errorf("expected root bones [0], got %v", s.RootBoneIndices)
	}
	if s.BoneNameToIndex["spine"] != 1 {
		t.Errorf("expected spine at 1, got %d", s.BoneNameToIndex["spine"])
	}
	if !s.RootMatrix().ApproxEqual(mgl32.Translate3D(0, 0, 5)) {
		t.Errorf("expected Armature translation in root transform, got %v", s.RootTransform)
	}
}

func TestImportAnimations(t *testing.T) {
	m := loadRigged(t)
	if names := m.AnimationNames(); len(names) != 1 || names[0] != "walk" {
		t.Fatalf("expected only walk (props_only drives no joint), got %v", names)
	}
	clip := m.Animations()[0]
	if clip.Duration != 1 || clip.WrapMode != model.WrapLoop {
		t.Errorf("unexpected clip header: duration %v, wrap %v", clip.Duration, clip.WrapMode)
	}
	if len(clip.Channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(clip.Channels))
	}

	hip, spine := clip.Channels[0], clip.Channels[1]
	if hip.BoneIndex != 0 || spine.BoneIndex != 1 {
		t.Fatalf("expected channels ordered by bone, got %d, %d", hip.BoneIndex, spine.BoneIndex)
	}

	// STEP keys hold the previous value up to each key time.
	wantTimes := []float32{0, 0.5, 0.5, 1, 1}
	if len(hip.RotationKeys) != len(wantTimes) {
		t.Fatalf("expected %d rotation keys, got %d", len(wantTimes), len(hip.RotationKeys))
	}
	for i, k := range hip.RotationKeys {
		if k.Time != wantTimes[i] {
			t.Errorf("rotation key %d: expected time %v, got %v", i, wantTimes[i], k.Time)
		}
	}
	if hip.RotationKeys[1].Value != [4]float32{0, 0, 0, 1} {
		t.Errorf("expected held identity before 0.5, got %v", hip.RotationKeys[1].Value)
	}

	if len(spine.PositionKeys) != 2 || spine.PositionKeys[1].Value != [3]float32{0, 2, 0} {
		t.Errorf("unexpected spine translation keys %v", spine.PositionKeys)
	}

	// CUBICSPLINE keeps the value of each (in, value, out) triplet.
	if len(spine.ScaleKeys) != 2 || spine.ScaleKeys[0].Value != [3]float32{1, 1, 1} || spine.ScaleKeys[1].Value != [3]float32{2, 2, 2} {
		t.Errorf("unexpected spine scale keys %v", spine.ScaleKeys)
	}
}

func TestImportedModelBakes(t *testing.T) {
	m := loadRigged(t)
	b, err := bakery.NewBakery()
	if err != nil {
		t.Fatal(err)
	}
	res, err := b.Bake(m)
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if res.Set.BoneCount != 2 || len(res.Set.Clips) != 1 {
		t.Fatalf("unexpected set: %d bones, %d clips", res.Set.BoneCount, len(res.Set.Clips))
	}

	// Frame 0: identity hip rotation, spine at rest, so the skinning matrices are
	// root * local * inverse bind = identity for both bones.
	for bone := range 2 {
		if got := res.Set.BoneMatrix(0, 0, bone); !got.ApproxEqualThreshold(mgl32.Ident4(), 1e-5) {
			t.Errorf("bone %d frame 0: expected identity, got %v", bone, got)
		}
	}
}

func TestLoadFromFileCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rig.gltf")
	if err := os.WriteFile(path, riggedDocument(), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(BackendTypeGLTF, WithWrapMode("walk", model.AuthoringPingPong))
	first, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first != second || l.Get(path) != first || len(l.Models()) != 1 {
		t.Error("expected the cached model on the second load")
	}
	if got := first.Animations()[0].WrapMode; got != model.WrapPingPong {
		t.Errorf("expected ping_pong from authoring setting, got %v", got)
	}

	if _, err := l.Load(filepath.Join(dir, "rig.fbx")); err == nil {
		t.Error("expected an unsupported format error")
	}
}

func TestLoadErrors(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)

	if _, err := l.LoadReader("v1", bytes.NewReader([]byte(`{"asset":{"version":"1.0"}}`)), false); !errors.Is(err, errInvalidGLTFVersion) {
		t.Errorf("expected errInvalidGLTFVersion, got %v", err)
	}
	if _, err := l.LoadReader("glb", bytes.NewReader(make([]byte, 16)), true); !errors.Is(err, errInvalidGLBMagic) {
		t.Errorf("expected errInvalidGLBMagic, got %v", err)
	}

	f := &gltfFixture{}
	acc := f.add(gltfAccessorTypeMat4, 1, make([]float32, 16)...)
	f.accessors[acc]["count"] = 2
	doc := f.document(map[string]any{
		"nodes": []map[string]any{{"name": "a"}},
		"skins": []map[string]any{{"inverseBindMatrices": acc, "joints": []int{0}}},
	})
	if _, err := l.LoadReader("short", bytes.NewReader(doc), false); !errors.Is(err, errAccessorRange) {
		t.Errorf("expected errAccessorRange, got %v", err)
	}
}

func TestImportWithoutSkin(t *testing.T) {
	f := &gltfFixture{}
	f.add(gltfAccessorTypeScalar, 1, 0)
	m, err := NewLoader(BackendTypeGLTF).LoadReader("static", bytes.NewReader(f.document(nil)), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if m.Skinned() || m.AnimationCount() != 0 {
		t.Error("expected an unskinned model with no clips")
	}
	if m.Name() != "unnamed_model" {
		t.Errorf("expected unnamed_model, got %q", m.Name())
	}
}

func TestDecomposeMatrix(t *testing.T) {
	q := mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{0, 1, 0})
	m := mgl32.Translate3D(1, 2, 3).Mul4(q.Mat4()).Mul4(mgl32.Scale3D(2, 2, 2))

	tr := gltfDecomposeMatrix(m)
	if tr.Translation != [3]float32{1, 2, 3} {
		t.Errorf("unexpected translation %v", tr.Translation)
	}
	for i, s := range tr.Scale {
		if math.Abs(float64(s-2)) > 1e-5 {
			t.Errorf("scale %d: expected 2, got %v", i, s)
		}
	}
	got := mgl32.Quat{W: tr.Rotation[3], V: mgl32.Vec3{tr.Rotation[0], tr.Rotation[1], tr.Rotation[2]}}
	if math.Abs(float64(got.Dot(q))) < 1-1e-5 {
		t.Errorf("expected rotation %v, got %v", q, got)
	}
}
