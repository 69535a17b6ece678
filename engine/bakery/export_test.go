package bakery

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-bake/engine/model"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	s := chainSkeleton(3)
	set, err := Encode(sampleAll(t, s, 30,
		swingClip("idle", 1, 3, model.WrapLoop),
		swingClip("die", 0.5, 3, model.WrapOnceEndForever),
	), 30)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "fox")
	if err := Save(dir, set); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.ID != set.ID {
		t.Errorf("expected id %s, got %s", set.ID, loaded.ID)
	}
	if loaded.FrameRate != set.FrameRate || loaded.BoneCount != set.BoneCount {
		t.Errorf("expected %v fps / %d bones, got %v / %d", set.FrameRate, set.BoneCount, loaded.FrameRate, loaded.BoneCount)
	}
	if !bytes.Equal(loaded.Bytes(), set.Bytes()) {
		t.Error("expected identical rows after reload")
	}
	for i := range set.Clips {
		if loaded.Clips[i] != set.Clips[i] {
			t.Errorf("clip %d: expected %+v, got %+v", i, set.Clips[i], loaded.Clips[i])
		}
	}

	manifest, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Contains(manifest, []byte("wrap_mode: once_end_forever")) {
		t.Errorf("expected wrap modes by name in manifest, got:\n%s", manifest)
	}
}

func TestLoadRejectsTruncatedRows(t *testing.T) {
	set, err := Encode(sampleAll(t, chainSkeleton(1), 30, swingClip("a", 1, 1, model.WrapLoop)), 30)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	dir := t.TempDir()
	if err := Save(dir, set); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	rows := filepath.Join(dir, RowsFile)
	data, _ := os.ReadFile(rows)
	if err := os.WriteFile(rows, data[:len(data)-RowStride], 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected Load to fail on a truncated row file")
	}
}

func TestLoadRejectsInconsistentManifest(t *testing.T) {
	const header = "id: 6ba7b812-9dad-11d1-80b4-00c04fd430c8\nframe_rate: 30\nrows_file: rows.bin\n"
	tests := []struct {
		name     string
		manifest string
		want     error
	}{
		{
			name:     "start frames out of order",
			manifest: "bone_count: 1\nrow_count: 6\nclips:\n  - {name: a, start_frame: 500, frame_count: 1}\n  - {name: b, start_frame: 0, frame_count: 1}\n",
			want:     errManifestClips,
		},
		{
			name:     "zero frame clip",
			manifest: "bone_count: 1\nrow_count: 6\nclips:\n  - {name: a, start_frame: 0, frame_count: 0}\n  - {name: b, start_frame: 0, frame_count: 2}\n",
			want:     errManifestClips,
		},
		{
			name:     "clips without bones",
			manifest: "bone_count: 0\nrow_count: 0\nclips:\n  - {name: a, start_frame: 0, frame_count: 1}\n",
			want:     errManifestClips,
		},
		{
			name:     "negative row count",
			manifest: "bone_count: 1\nrow_count: -1\n",
			want:     errManifestLayout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(header+tt.manifest), 0o644); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			if err := os.WriteFile(filepath.Join(dir, RowsFile), make([]byte, 6*RowStride), 0o644); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			_, err := Load(dir)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReadRowsRejectsNegativeCount(t *testing.T) {
	if _, err := ReadRows(bytes.NewReader(nil), -1); !errors.Is(err, errManifestRows) {
		t.Errorf("expected %v, got %v", errManifestRows, err)
	}
}
