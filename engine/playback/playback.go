package playback

import (
	"math"
	"strings"

	"github.com/Carmen-Shannon/oxy-bake/common"
	"github.com/Carmen-Shannon/oxy-bake/engine/bakery"
	"github.com/Carmen-Shannon/oxy-bake/engine/model"
)

// State is the playback state of one animated instance.
// The zero value plays clip 0 from the start.
type State struct {
	// CurrentClip is the directory index of the clip being played.
	CurrentClip uint32

	// RequestedClip is the clip to switch to on the next Advance.
	RequestedClip uint32

	// ElapsedTime is the accumulated, wrapped clip time in seconds.
	ElapsedTime float32

	// CurrentTime is the clip time actually sampled, after wrap-mode folding.
	CurrentTime float32

	// NormalizedTime is CurrentTime / duration, in [0, 1].
	NormalizedTime float32

	// Finished is set by the clamping wrap modes once the clip end is reached.
	Finished bool

	// Started is false until the first Advance.
	Started bool
}

// NewState returns an idle state that will play clip.
func NewState(clip uint32) State {
	return State{CurrentClip: clip, RequestedClip: clip}
}

// Play requests a switch to clip. The switch happens on the next Advance and restarts the clip.
func (s *State) Play(clip uint32) {
	s.RequestedClip = clip
}

// Warning flags the contract violations Advance corrected for a single instance.
type Warning uint8

const (
	// WarnClipOutOfRange means a clip id past the directory was clamped to the last clip.
	WarnClipOutOfRange Warning = 1 << iota

	// WarnNonFiniteDelta means a NaN or infinite delta time was treated as 0.
	WarnNonFiniteDelta

	// WarnNonFiniteTimeScale means a NaN or infinite time scale was treated as 1.
	WarnNonFiniteTimeScale

	// WarnNoClips means the directory was empty; the offset is 0.
	WarnNoClips
)

var warningNames = []string{"clip_out_of_range", "non_finite_delta", "non_finite_time_scale", "no_clips"}

// Has reports whether all flags in x are set.
func (w Warning) Has(x Warning) bool {
	return w&x == x
}

func (w Warning) String() string {
	if w == 0 {
		return "none"
	}
	var parts []string
	for i, name := range warningNames {
		if w&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Input is the per-tick input to Advance. Build it with Tick.
type Input struct {
	Delta float32

	timeScale    float32
	hasTimeScale bool

	debugNormalized float32
	hasDebug        bool
}

// Tick returns an Input advancing by dt seconds at a time scale of 1.
func Tick(dt float32) Input {
	return Input{Delta: dt}
}

// WithTimeScale returns a copy of in that scales the delta by scale.
func (in Input) WithTimeScale(scale float32) Input {
	in.timeScale = scale
	in.hasTimeScale = true
	return in
}

// WithDebugNormalizedTime returns a copy of in that pins the sampled time to normalized * duration.
// Used by tooling to scrub a clip.
func (in Input) WithDebugNormalizedTime(normalized float32) Input {
	in.debugNormalized = normalized
	in.hasDebug = true
	return in
}

// Result is the output of Advance.
type Result struct {
	State State

	// Frame is the frame index within the current clip.
	Frame uint32

	// Offset is the row offset of the frame's first bone in the baked buffer.
	Offset uint32

	Warnings Warning
}

// ByteOffset returns Offset in bytes.
func (r Result) ByteOffset() uint64 {
	return uint64(r.Offset) * bakery.RowStride
}

// Advance moves state forward by one tick and resolves the frame offset to sample.
// It is pure: it reads only its arguments and never fails. Bad input is corrected
// locally and reported through Result.Warnings.
//
// Parameters:
//   - state: the instance's state before the tick
//   - in: the delta time and optional overrides
//   - clips: the clip directory of the baked set
//   - boneCount: the bone count of the baked set
//
// Returns:
//   - Result: the new state, frame and offset
func Advance(state State, in Input, clips []bakery.ClipDescriptor, boneCount int) Result {
	var res Result
	state.Started = true

	if len(clips) == 0 {
		state.CurrentClip, state.RequestedClip = 0, 0
		state.CurrentTime, state.NormalizedTime = 0, 0
		res.State = state
		res.Warnings |= WarnNoClips
		return res
	}

	last := uint32(len(clips) - 1)
	if state.RequestedClip > last {
		state.RequestedClip = last
		res.Warnings |= WarnClipOutOfRange
	}
	if state.CurrentClip > last {
		state.CurrentClip = last
		res.Warnings |= WarnClipOutOfRange
	}

	if state.RequestedClip != state.CurrentClip {
		state.CurrentClip = state.RequestedClip
		state.ElapsedTime = 0
		state.Finished = false
	}

	desc := clips[state.CurrentClip]
	length := desc.Duration

	if !(length > 0) || !common.IsFinite32(length) {
		state.CurrentTime = 0
		state.NormalizedTime = 0
	} else {
		dt := in.Delta
		if !common.IsFinite32(dt) {
			dt = 0
			res.Warnings |= WarnNonFiniteDelta
		}
		scale := float32(1)
		if in.hasTimeScale {
			if common.IsFinite32(in.timeScale) {
				scale = in.timeScale
			} else {
				res.Warnings |= WarnNonFiniteTimeScale
			}
		}

		if in.hasDebug && common.IsFinite32(in.debugNormalized) {
			// The pin replaces elapsed time; wrapping then derives the sampled time.
			state.ElapsedTime = clamp01(in.debugNormalized) * length
			state.Finished = false
		} else if !state.Finished {
			state.ElapsedTime += dt * scale
		}
		if !common.IsFinite32(state.ElapsedTime) {
			state.ElapsedTime = 0
		}

		state.ElapsedTime, state.CurrentTime, state.Finished = wrap(desc.WrapMode, state.ElapsedTime, length, state.Finished)

		state.NormalizedTime = clamp01(state.CurrentTime / length)
	}

	res.State = state
	res.Frame = bakery.FrameIndex(desc.FrameCount, state.NormalizedTime)
	res.Offset = bakery.FrameOffset(desc, state.NormalizedTime, boneCount)
	return res
}

// wrap applies a wrap mode to elapsed time t of a clip of length l > 0.
// It returns the new elapsed time, the time to sample and the finished flag.
func wrap(mode model.WrapMode, t, l float32, finished bool) (float32, float32, bool) {
	if t < 0 {
		if mode == model.WrapLoop || mode == model.WrapPingPong {
			t = floorMod(t, cycle(mode, l))
		} else {
			t = 0
		}
	}

	switch mode {
	case model.WrapOnceEndForever:
		if t >= l {
			return l, l, true
		}
		return t, t, finished
	case model.WrapOnceStartForever:
		if t >= l {
			return 0, 0, true
		}
		return t, t, finished
	case model.WrapPingPong:
		if t >= 2*l {
			t = floorMod(t, l)
			return t, t, finished
		}
		if t >= l {
			return t, 2*l - t, finished
		}
		return t, t, finished
	default:
		if t >= l {
			t = floorMod(t, l)
		}
		return t, t, finished
	}
}

// cycle is the period of a repeating wrap mode.
func cycle(mode model.WrapMode, l float32) float32 {
	if mode == model.WrapPingPong {
		return 2 * l
	}
	return l
}

// floorMod returns t mod l in [0, l).
func floorMod(t, l float32) float32 {
	m := float32(math.Mod(float64(t), float64(l)))
	if m < 0 {
		m += l
	}
	if m >= l {
		m = 0
	}
	return m
}

func clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
