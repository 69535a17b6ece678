package bakery

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFrameRate is returned when the sampling rate is not a positive finite number.
	ErrInvalidFrameRate = errors.New("frame rate must be positive and finite")

	// ErrBoneCountMismatch is returned when clips handed to Encode disagree on bone count.
	ErrBoneCountMismatch = errors.New("clips disagree on bone count")

	// ErrEmptyClip is returned when a clip with no bones reaches the encoder.
	ErrEmptyClip = errors.New("clip has no bones")
)

var (
	errNilModel       = errors.New("model is nil")
	errManifestRows   = errors.New("row file does not match manifest")
	errManifestLayout = errors.New("manifest directory does not match row count")
	errManifestClips  = errors.New("manifest clip directory is inconsistent")
)

// SelfCheckError reports a row that did not read back identically after encoding.
// The bake is aborted; the buffer must never reach the GPU.
type SelfCheckError struct {
	Clip      string
	ClipIndex int
	Frame     int
	Bone      int
	Row       int

	Want, Got [4]float32
}

func (e *SelfCheckError) Error() string {
	return fmt.Sprintf("bake self-check failed at clip %q (#%d) frame %d bone %d row %d: want %v, got %v",
		e.Clip, e.ClipIndex, e.Frame, e.Bone, e.Row, e.Want, e.Got)
}
