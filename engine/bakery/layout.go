package bakery

import "math"

// RowIndex is the single definition of the baked buffer layout.
// It returns the index, in rows, of the first row of bone at frame of a clip starting at startFrame.
//
//	index = startFrame*boneCount*3 + frame*boneCount*3 + bone*3
//
// Parameters:
//   - startFrame: the clip's ClipDescriptor.StartFrame
//   - frame: the frame within the clip
//   - bone: the bone index
//   - boneCount: the number of bones per frame
//
// Returns:
//   - int: the row index
func RowIndex(startFrame, frame, bone, boneCount int) int {
	return startFrame*boneCount*RowsPerBone + frame*boneCount*RowsPerBone + bone*RowsPerBone
}

// FrameIndex maps a normalized time to a frame of a clip with frameCount frames.
// The result is floor((frameCount-1) * normalized) clamped to [0, frameCount-1]; NaN maps to 0.
//
// Parameters:
//   - frameCount: the number of frames in the clip
//   - normalized: the normalized clip time, nominally in [0, 1]
//
// Returns:
//   - uint32: the frame index
func FrameIndex(frameCount uint32, normalized float32) uint32 {
	if frameCount <= 1 || !(normalized > 0) {
		return 0
	}
	last := frameCount - 1
	f := math.Floor(float64(float32(last) * normalized))
	if f >= float64(last) {
		return last
	}
	return uint32(f)
}

// FrameOffset resolves the row offset of the first bone of the frame selected by normalized.
//
// Parameters:
//   - desc: the clip directory entry
//   - normalized: the normalized clip time
//   - boneCount: the number of bones per frame
//
// Returns:
//   - uint32: the row offset, (desc.StartFrame + frame) * boneCount * 3
func FrameOffset(desc ClipDescriptor, normalized float32, boneCount int) uint32 {
	frame := FrameIndex(desc.FrameCount, normalized)
	return uint32(RowIndex(int(desc.StartFrame), int(frame), 0, boneCount))
}
