package playback

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
)

// DefaultSeed seeds the time scale stream when no seed is configured.
const DefaultSeed uint64 = 0x6E774EB7

var errInvalidTimeScaleRange = errors.New("invalid time scale range")

// TimeScaleRange bounds the random mutator added to a time scale of 1.
// Min lies in [-1, 0] and Max in [0, 1], so scales fall in [0, 2].
type TimeScaleRange struct {
	Min float32 `yaml:"min"`
	Max float32 `yaml:"max"`
}

// Validate checks the bounds of r.
func (r TimeScaleRange) Validate() error {
	if r.Min < -1 || r.Min > 0 {
		return fmt.Errorf("%w: min %v outside [-1, 0]", errInvalidTimeScaleRange, r.Min)
	}
	if r.Max < 0 || r.Max > 1 {
		return fmt.Errorf("%w: max %v outside [0, 1]", errInvalidTimeScaleRange, r.Max)
	}
	return nil
}

// IsZero reports whether r leaves every time scale at exactly 1.
func (r TimeScaleRange) IsZero() bool {
	return r.Min == 0 && r.Max == 0
}

// AssignTimeScales draws one time scale per instance id from a single PCG stream seeded with seed.
// Ids are consumed in ascending order, so the same ids, range and seed always give the same scales
// no matter how the caller ordered them. Duplicate ids are drawn once.
//
// Parameters:
//   - ids: the stable instance ids
//   - r: the mutator range
//   - seed: the stream seed
//
// Returns:
//   - map[uint64]float32: the time scale, 1 + mutator, for each id
//   - error: error if r is out of bounds
func AssignTimeScales(ids []uint64, r TimeScaleRange, seed uint64) (map[uint64]float32, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	rng := rand.New(rand.NewPCG(seed, seed))
	scales := make(map[uint64]float32, len(ordered))
	for _, id := range ordered {
		scales[id] = 1 + r.Min + rng.Float32()*(r.Max-r.Min)
	}
	return scales, nil
}
