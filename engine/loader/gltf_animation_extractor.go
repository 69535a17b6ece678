package loader

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-bake/engine/model"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser
}

// gltfAnimationExtractor converts glTF animations into AnimationClips.
//
// The boneMapping parameter maps glTF node indices to bone indices in the parent-first sorted
// skeleton produced by the skeleton extractor. Channels targeting other nodes are dropped.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//   - boneMapping: maps glTF node index to skeleton bone index
	//
	// Returns:
	//   - *model.AnimationClip: the clip, with channels ordered by bone index
	//   - error: error if extraction fails
	ExtractAnimation(animIndex int, boneMapping map[int]int32) (*model.AnimationClip, error)

	// ExtractAnimationsForSkeleton extracts every animation that targets at least one mapped bone.
	//
	// Parameters:
	//   - boneMapping: maps glTF node index to skeleton bone index
	//
	// Returns:
	//   - []*model.AnimationClip: the clips in document order
	//   - error: error if extraction fails
	ExtractAnimationsForSkeleton(boneMapping map[int]int32) ([]*model.AnimationClip, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

func newGLTFAnimationExtractor(parser gltfParser) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser}
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int, boneMapping map[int]int32) (*model.AnimationClip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range", animIndex)
	}
	anim := &doc.Animations[animIndex]

	// translation, rotation and scale of one bone arrive as separate glTF channels
	byBone := make(map[int32]*model.AnimationChannel)
	var duration float32

	for i := range anim.Channels {
		ch := &anim.Channels[i]
		if ch.Target.Node == nil {
			continue
		}
		boneIndex, ok := boneMapping[*ch.Target.Node]
		if !ok {
			continue
		}
		switch ch.Target.Path {
		case gltfAnimPathTranslation, gltfAnimPathRotation, gltfAnimPathScale:
		default:
			// morph weights and extension paths
			continue
		}

		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: invalid sampler index %d", anim.Name, i, ch.Sampler)
		}
		sampler := &anim.Samplers[ch.Sampler]

		times, err := e.parser.ReadScalarAccessor(sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read times: %w", anim.Name, i, err)
		}
		if n := len(times); n > 0 && times[n-1] > duration {
			duration = times[n-1]
		}

		out, ok := byBone[boneIndex]
		if !ok {
			out = &model.AnimationChannel{BoneIndex: boneIndex}
			byBone[boneIndex] = out
		}

		switch ch.Target.Path {
		case gltfAnimPathTranslation, gltfAnimPathScale:
			values, err := e.parser.ReadVec3Accessor(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: failed to read %s values: %w", anim.Name, i, ch.Target.Path, err)
			}
			values, err = gltfSamplerValues(values, len(times), sampler.Interpolation)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: %w", anim.Name, i, err)
			}
			keys := make([]model.VectorKeyframe, len(times))
			for j := range keys {
				keys[j] = model.VectorKeyframe{Time: times[j], Value: values[j]}
			}
			if sampler.Interpolation == gltfInterpolationStep {
				keys = gltfStepKeys(keys, times, func(k model.VectorKeyframe, t float32) model.VectorKeyframe {
					k.Time = t
					return k
				})
			}
			if ch.Target.Path == gltfAnimPathTranslation {
				out.PositionKeys = keys
			} else {
				out.ScaleKeys = keys
			}

		case gltfAnimPathRotation:
			values, err := e.parser.ReadVec4Accessor(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: failed to read rotation values: %w", anim.Name, i, err)
			}
			values, err = gltfSamplerValues(values, len(times), sampler.Interpolation)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: %w", anim.Name, i, err)
			}
			keys := make([]model.QuaternionKeyframe, len(times))
			for j := range keys {
				keys[j] = model.QuaternionKeyframe{Time: times[j], Value: values[j]}
			}
			if sampler.Interpolation == gltfInterpolationStep {
				keys = gltfStepKeys(keys, times, func(k model.QuaternionKeyframe, t float32) model.QuaternionKeyframe {
					k.Time = t
					return k
				})
			}
			out.RotationKeys = keys
		}
	}

	channels := make([]model.AnimationChannel, 0, len(byBone))
	for _, ch := range byBone {
		channels = append(channels, *ch)
	}
	sort.Slice(channels, func(i, j int) bool {
		return channels[i].BoneIndex < channels[j].BoneIndex
	})

	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}

	return &model.AnimationClip{
		Name:           name,
		Duration:       duration,
		TicksPerSecond: 1, // glTF times are in seconds
		WrapMode:       model.WrapLoop,
		Channels:       channels,
	}, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAnimationsForSkeleton(boneMapping map[int]int32) ([]*model.AnimationClip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}

	var clips []*model.AnimationClip
	for animIdx := range doc.Animations {
		relevant := false
		for _, ch := range doc.Animations[animIdx].Channels {
			if ch.Target.Node == nil {
				continue
			}
			if _, ok := boneMapping[*ch.Target.Node]; ok {
				relevant = true
				break
			}
		}
		if !relevant {
			continue
		}

		clip, err := e.ExtractAnimation(animIdx, boneMapping)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", animIdx, err)
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

// gltfSamplerValues returns one value per key time. CUBICSPLINE outputs store
// (in-tangent, value, out-tangent) per key; only the value is kept and the curve
// is evaluated linearly between keys.
func gltfSamplerValues[T any](values []T, keys int, interpolation string) ([]T, error) {
	switch interpolation {
	case gltfInterpolationCubicSpline:
		if len(values) < keys*3 {
			return nil, fmt.Errorf("cubic spline sampler has %d outputs for %d keys", len(values), keys)
		}
		out := make([]T, keys)
		for k := range out {
			out[k] = values[k*3+1]
		}
		return out, nil
	case "", gltfInterpolationLinear, gltfInterpolationStep:
		if len(values) < keys {
			return nil, fmt.Errorf("sampler has %d outputs for %d keys", len(values), keys)
		}
		return values[:keys], nil
	default:
		return nil, fmt.Errorf("unsupported interpolation %q", interpolation)
	}
}

// gltfStepKeys turns step keys into linear ones by holding each value until the next key time:
// before key k a copy of key k-1 is inserted at key k's time.
func gltfStepKeys[K any](keys []K, times []float32, at func(k K, t float32) K) []K {
	if len(keys) < 2 {
		return keys
	}
	out := make([]K, 0, len(keys)*2-1)
	out = append(out, keys[0])
	for k := 1; k < len(keys); k++ {
		out = append(out, at(keys[k-1], times[k]), keys[k])
	}
	return out
}
