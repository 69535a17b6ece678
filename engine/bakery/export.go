package bakery

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	// ManifestFile is the file name of the YAML clip directory written by Save.
	ManifestFile = "manifest.yaml"

	// RowsFile is the file name of the raw row buffer written by Save.
	RowsFile = "rows.bin"
)

// manifest is the on-disk form of a BakedAnimationSet without its rows.
type manifest struct {
	ID        string           `yaml:"id"`
	FrameRate float32          `yaml:"frame_rate"`
	BoneCount int              `yaml:"bone_count"`
	RowCount  int              `yaml:"row_count"`
	RowsFile  string           `yaml:"rows_file"`
	Clips     []ClipDescriptor `yaml:"clips"`
}

// Save writes set into dir as a YAML manifest plus a little-endian float32 row file.
// The directory is created if needed.
//
// Parameters:
//   - dir: the destination directory
//   - set: the baked set
//
// Returns:
//   - error: error if any file cannot be written
func Save(dir string, set *BakedAnimationSet) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	f, err := os.Create(filepath.Join(dir, RowsFile))
	if err != nil {
		return fmt.Errorf("failed to create row file: %w", err)
	}
	if err := WriteRows(f, set); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close row file: %w", err)
	}

	data, err := yaml.Marshal(&manifest{
		ID:        set.ID.String(),
		FrameRate: set.FrameRate,
		BoneCount: set.BoneCount,
		RowCount:  set.RowCount(),
		RowsFile:  RowsFile,
		Clips:     set.Clips,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Load reads a set previously written by Save and checks that the directory and rows agree.
//
// Parameters:
//   - dir: the directory holding the manifest and row file
//
// Returns:
//   - *BakedAnimationSet: the loaded set
//   - error: error if the files are missing, malformed or inconsistent
func Load(dir string) (*BakedAnimationSet, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("manifest id: %w", err)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}

	rowsName := m.RowsFile
	if rowsName == "" {
		rowsName = RowsFile
	}
	f, err := os.Open(filepath.Join(dir, rowsName))
	if err != nil {
		return nil, fmt.Errorf("failed to open row file: %w", err)
	}
	defer f.Close()

	set := &BakedAnimationSet{
		ID:        id,
		FrameRate: m.FrameRate,
		BoneCount: m.BoneCount,
		Clips:     m.Clips,
	}
	if set.Rows, err = ReadRows(f, m.RowCount); err != nil {
		return nil, err
	}
	if want := set.TotalFrames() * set.BoneCount * RowsPerBone; want != m.RowCount {
		return nil, fmt.Errorf("%w: directory needs %d rows, manifest has %d", errManifestLayout, want, m.RowCount)
	}
	return set, nil
}

// validate checks that the clip directory tiles the row buffer exactly, so every
// resolved offset stays inside it.
func (m *manifest) validate() error {
	if m.RowCount < 0 {
		return fmt.Errorf("%w: negative row count %d", errManifestLayout, m.RowCount)
	}
	if len(m.Clips) > 0 && m.BoneCount <= 0 {
		return fmt.Errorf("%w: %d clips but bone count %d", errManifestClips, len(m.Clips), m.BoneCount)
	}
	var next uint32
	for i, c := range m.Clips {
		if c.FrameCount == 0 {
			return fmt.Errorf("%w: clip %q (#%d) has no frames", errManifestClips, c.Name, i)
		}
		if c.StartFrame != next {
			return fmt.Errorf("%w: clip %q (#%d) starts at frame %d, expected %d", errManifestClips, c.Name, i, c.StartFrame, next)
		}
		next += c.FrameCount
	}
	return nil
}

// WriteRows streams the row buffer of set to w as little-endian float32 values.
func WriteRows(w io.Writer, set *BakedAnimationSet) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, set.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush rows: %w", err)
	}
	return nil
}

// ReadRows reads exactly rowCount rows from r and fails if any data remains.
func ReadRows(r io.Reader, rowCount int) ([]float32, error) {
	if rowCount < 0 {
		return nil, fmt.Errorf("%w: negative row count %d", errManifestRows, rowCount)
	}
	br := bufio.NewReader(r)
	rows := make([]float32, rowCount*FloatsPerRow)
	if err := binary.Read(br, binary.LittleEndian, rows); err != nil {
		return nil, fmt.Errorf("%w: %v", errManifestRows, err)
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", errManifestRows)
	}
	return rows, nil
}
