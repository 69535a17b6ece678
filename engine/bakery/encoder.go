package bakery

import (
	"encoding/binary"
	"fmt"

	"github.com/Carmen-Shannon/oxy-bake/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// bakeNamespace scopes the name-based UUIDs given to baked sets.
var bakeNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("oxy-bake/baked-animation-set"))

// rowWriter packs the top rows of a transform into dst.
type rowWriter func(dst []float32, m mgl32.Mat4)

// Encode packs sampled clips into one row buffer and its clip directory, in input order.
// Every row is read back through RowIndex and compared bit for bit before the set is returned.
//
// Parameters:
//   - clips: the sampled clips, all with the same non-zero bone count
//   - frameRate: the rate the clips were sampled at
//
// Returns:
//   - *BakedAnimationSet: the baked set
//   - error: ErrInvalidFrameRate, ErrEmptyClip, ErrBoneCountMismatch, or a *SelfCheckError
func Encode(clips []SampledClip, frameRate float32) (*BakedAnimationSet, error) {
	return encode(clips, frameRate, common.AffineRows)
}

func encode(clips []SampledClip, frameRate float32, write rowWriter) (*BakedAnimationSet, error) {
	if !common.IsFinite32(frameRate) || frameRate <= 0 {
		return nil, ErrInvalidFrameRate
	}

	boneCount := 0
	totalFrames := 0
	for i := range clips {
		c := &clips[i]
		if c.BoneCount == 0 {
			return nil, fmt.Errorf("clip %q: %w", c.Name, ErrEmptyClip)
		}
		if boneCount == 0 {
			boneCount = c.BoneCount
		} else if c.BoneCount != boneCount {
			return nil, fmt.Errorf("clip %q has %d bones, expected %d: %w", c.Name, c.BoneCount, boneCount, ErrBoneCountMismatch)
		}
		if len(c.Transforms) != c.FrameCount*c.BoneCount {
			return nil, fmt.Errorf("clip %q: %d transforms for %d frames of %d bones", c.Name, len(c.Transforms), c.FrameCount, c.BoneCount)
		}
		totalFrames += c.FrameCount
	}

	set := &BakedAnimationSet{
		FrameRate: frameRate,
		BoneCount: boneCount,
		Rows:      make([]float32, totalFrames*boneCount*RowsPerBone*FloatsPerRow),
		Clips:     make([]ClipDescriptor, len(clips)),
	}

	start := 0
	for ci := range clips {
		c := &clips[ci]
		set.Clips[ci] = ClipDescriptor{
			Name:       c.Name,
			StartFrame: uint32(start),
			FrameCount: uint32(c.FrameCount),
			Duration:   c.Duration,
			WrapMode:   c.WrapMode,
		}
		for f := 0; f < c.FrameCount; f++ {
			for b := 0; b < boneCount; b++ {
				idx := RowIndex(start, f, b, boneCount)
				write(set.Rows[idx*FloatsPerRow:(idx+RowsPerBone)*FloatsPerRow], c.At(f, b))
			}
		}
		start += c.FrameCount
	}

	if err := verify(set, clips); err != nil {
		return nil, err
	}

	set.ID = uuid.NewSHA1(bakeNamespace, fingerprintBytes(set))
	return set, nil
}

// verify re-reads every row of set and compares it with the source sample.
func verify(set *BakedAnimationSet, clips []SampledClip) error {
	var want [RowsPerBone * FloatsPerRow]float32
	for ci := range clips {
		c := &clips[ci]
		desc := set.Clips[ci]
		for f := 0; f < c.FrameCount; f++ {
			for b := 0; b < set.BoneCount; b++ {
				common.AffineRows(want[:], c.At(f, b))
				idx := RowIndex(int(desc.StartFrame), f, b, set.BoneCount)
				for r := 0; r < RowsPerBone; r++ {
					got := set.Row(idx + r)
					exp := want[r*FloatsPerRow : (r+1)*FloatsPerRow]
					if !common.RowsEqualBits(got, exp) {
						e := &SelfCheckError{Clip: c.Name, ClipIndex: ci, Frame: f, Bone: b, Row: r}
						copy(e.Want[:], exp)
						copy(e.Got[:], got)
						return e
					}
				}
			}
		}
	}
	return nil
}

// fingerprintBytes hashes the directory and rows of a set into the name used for its UUID.
func fingerprintBytes(set *BakedAnimationSet) []byte {
	h := common.NewHasher().Float32(set.FrameRate).Uint32(uint32(set.BoneCount))
	for _, c := range set.Clips {
		h.String(c.Name).Uint32(c.StartFrame).Uint32(c.FrameCount).Float32(c.Duration).Uint32(uint32(c.WrapMode))
	}
	h.Floats(set.Rows...)
	return binary.LittleEndian.AppendUint64(nil, h.Sum64())
}
