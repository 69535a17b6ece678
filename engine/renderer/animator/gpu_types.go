package animator

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-bake/engine/bakery"
)

// Binding indices of the baked animation bind group:
// rows (read-only storage, vec4<f32> per row), clips (read-only storage, GPUClipEntry),
// set info (uniform, GPUBakedSetInfo) and frame offsets (read-only storage, u32 per instance).
const (
	BindingRows         = 0
	BindingClips        = 1
	BindingSetInfo      = 2
	BindingFrameOffsets = 3
)

// GPUClipEntry is the GPU-aligned representation of one clip directory entry.
// Shader side: struct { start_frame: u32, frame_count: u32, duration: f32, wrap_mode: u32 }.
// Size: 16 bytes (std430 aligned).
type GPUClipEntry struct {
	StartFrame uint32  // offset 0
	FrameCount uint32  // offset 4
	Duration   float32 // offset 8
	WrapMode   uint32  // offset 12
}

// Size returns the size of the GPUClipEntry struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUClipEntry) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUClipEntry struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUClipEntry) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], g.StartFrame)
	binary.LittleEndian.PutUint32(buf[4:8], g.FrameCount)
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Duration))
	binary.LittleEndian.PutUint32(buf[12:16], g.WrapMode)
	return buf
}

// GPUBakedSetInfo is the GPU-aligned uniform describing a baked set.
// Shader side: struct { bone_count: u32, clip_count: u32, total_frames: u32, frame_rate: f32 }.
// Size: 16 bytes (std140 aligned).
type GPUBakedSetInfo struct {
	BoneCount   uint32  // offset 0
	ClipCount   uint32  // offset 4
	TotalFrames uint32  // offset 8
	FrameRate   float32 // offset 12
}

// Size returns the size of the GPUBakedSetInfo struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUBakedSetInfo) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUBakedSetInfo struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUBakedSetInfo) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], g.BoneCount)
	binary.LittleEndian.PutUint32(buf[4:8], g.ClipCount)
	binary.LittleEndian.PutUint32(buf[8:12], g.TotalFrames)
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.FrameRate))
	return buf
}

// clipEntries converts a clip directory to its GPU form.
func clipEntries(clips []bakery.ClipDescriptor) []GPUClipEntry {
	entries := make([]GPUClipEntry, len(clips))
	for i, c := range clips {
		entries[i] = GPUClipEntry{
			StartFrame: c.StartFrame,
			FrameCount: c.FrameCount,
			Duration:   c.Duration,
			WrapMode:   uint32(c.WrapMode),
		}
	}
	return entries
}

// setInfo summarizes set for the uniform binding.
func setInfo(set *bakery.BakedAnimationSet) GPUBakedSetInfo {
	return GPUBakedSetInfo{
		BoneCount:   uint32(set.BoneCount),
		ClipCount:   uint32(len(set.Clips)),
		TotalFrames: uint32(set.TotalFrames()),
		FrameRate:   set.FrameRate,
	}
}
