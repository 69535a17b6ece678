package bakery

import (
	"github.com/Carmen-Shannon/oxy-bake/common"
	"github.com/Carmen-Shannon/oxy-bake/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

const (
	// DefaultFrameRate is the sampling rate used when none is configured, in frames per second.
	DefaultFrameRate float32 = 30

	// RowsPerBone is the number of vec4 rows stored per bone per frame.
	RowsPerBone = common.AffineRowCount

	// FloatsPerRow is the number of float32 components in a stored row.
	FloatsPerRow = 4

	// RowStride is the size of one stored row in bytes.
	RowStride = FloatsPerRow * 4
)

// SampledClip is a clip resampled at a fixed rate: a frame-major grid of model space bone transforms.
// It only lives between sampling and encoding.
type SampledClip struct {
	Name     string
	Duration float32
	WrapMode model.WrapMode

	FrameCount int
	BoneCount  int

	// Transforms holds FrameCount*BoneCount matrices, indexed frame*BoneCount + bone.
	Transforms []mgl32.Mat4
}

// At returns the transform of bone at frame.
func (c *SampledClip) At(frame, bone int) mgl32.Mat4 {
	return c.Transforms[frame*c.BoneCount+bone]
}

// ClipDescriptor locates one clip inside a baked row buffer.
type ClipDescriptor struct {
	// Name is the source clip name.
	Name string `yaml:"name"`

	// StartFrame is the number of frames stored before this clip, across all earlier clips.
	// Multiplied by the bone count it gives the clip's offset in samples.
	StartFrame uint32 `yaml:"start_frame"`

	// FrameCount is the number of baked frames, always at least 1.
	FrameCount uint32 `yaml:"frame_count"`

	// Duration is the clip length in seconds. Zero for degenerate clips.
	Duration float32 `yaml:"duration"`

	// WrapMode is the playback policy of the clip.
	WrapMode model.WrapMode `yaml:"wrap_mode"`
}

// BakedAnimationSet is the immutable output of a bake.
// Rows is uploaded verbatim to the GPU and Clips is the directory used to address it.
type BakedAnimationSet struct {
	// ID is derived from the content, so identical bakes share an ID.
	ID uuid.UUID

	FrameRate float32
	BoneCount int

	// Rows holds FloatsPerRow floats per row; see RowIndex for the layout.
	Rows []float32

	Clips []ClipDescriptor
}

// RowCount returns the number of vec4 rows in the buffer.
func (s *BakedAnimationSet) RowCount() int {
	return len(s.Rows) / FloatsPerRow
}

// Row returns the row at index as a 4-element view into the buffer.
func (s *BakedAnimationSet) Row(index int) []float32 {
	return s.Rows[index*FloatsPerRow : (index+1)*FloatsPerRow]
}

// TotalFrames returns the sum of all clip frame counts.
func (s *BakedAnimationSet) TotalFrames() int {
	total := 0
	for _, c := range s.Clips {
		total += int(c.FrameCount)
	}
	return total
}

// ClipIndex returns the directory index of the named clip, or -1.
func (s *BakedAnimationSet) ClipIndex(name string) int {
	for i, c := range s.Clips {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Bytes returns the row buffer as raw bytes for upload. The slice aliases Rows.
func (s *BakedAnimationSet) Bytes() []byte {
	return common.SliceToBytes(s.Rows)
}

// BoneMatrix reassembles the full 4x4 model space transform of bone at frame of clip from the buffer.
//
// Parameters:
//   - clip: the directory index of the clip
//   - frame: the frame within the clip
//   - bone: the bone index
//
// Returns:
//   - mgl32.Mat4: the transform with the implicit [0, 0, 0, 1] bottom row restored
func (s *BakedAnimationSet) BoneMatrix(clip, frame, bone int) mgl32.Mat4 {
	base := RowIndex(int(s.Clips[clip].StartFrame), frame, bone, s.BoneCount)
	var m mgl32.Mat4
	for r := 0; r < RowsPerBone; r++ {
		row := s.Row(base + r)
		for c := 0; c < 4; c++ {
			m.Set(r, c, row[c])
		}
	}
	m.Set(3, 3, 1)
	return m
}
