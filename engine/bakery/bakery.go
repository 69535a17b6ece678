package bakery

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-bake/common"
	"github.com/Carmen-Shannon/oxy-bake/engine/model"
)

// PoseFactory builds the pose function used to sample one clip.
type PoseFactory func(skeleton *model.Skeleton, clip *model.AnimationClip) (model.PoseEvaluator, error)

// BakeResult is the outcome of a bake.
type BakeResult struct {
	// Set is the baked buffer and directory. It is never nil on success, but may hold no clips.
	Set *BakedAnimationSet

	// Skipped lists clips left out of Set because the skeleton has no bones.
	Skipped []string
}

// bakery is the implementation of the Bakery interface.
type bakery struct {
	mu *sync.Mutex

	frameRate   float32
	wrapModes   map[string]model.WrapMode
	poseFactory PoseFactory
	verbose     bool
}

// Bakery samples and encodes the clips of an animated model into a BakedAnimationSet.
// Baking is serial and deterministic: the same inputs always give byte-identical output.
type Bakery interface {
	// FrameRate returns the sampling rate in frames per second.
	//
	// Returns:
	//   - float32: the frame rate
	FrameRate() float32

	// Bake bakes every clip of m. Clips are sorted by name before encoding.
	//
	// Parameters:
	//   - m: the animated model
	//
	// Returns:
	//   - *BakeResult: the baked set plus skipped clip names
	//   - error: error if sampling fails or the encoder self-check detects corruption
	Bake(m model.Model) (*BakeResult, error)

	// BakeClips bakes the given clips against skeleton. Clips are sorted by name before encoding.
	//
	// Parameters:
	//   - skeleton: the bind skeleton
	//   - clips: the clips to bake
	//
	// Returns:
	//   - *BakeResult: the baked set plus skipped clip names
	//   - error: error if sampling fails or the encoder self-check detects corruption
	BakeClips(skeleton *model.Skeleton, clips []*model.AnimationClip) (*BakeResult, error)
}

var _ Bakery = &bakery{}

// NewBakery creates a Bakery sampling at DefaultFrameRate unless configured otherwise.
//
// Parameters:
//   - options: functional options for the bakery
//
// Returns:
//   - Bakery: the bakery
//   - error: ErrInvalidFrameRate if the configured rate is not positive and finite
func NewBakery(options ...BakeryBuilderOption) (Bakery, error) {
	b := &bakery{
		mu:        &sync.Mutex{},
		frameRate: DefaultFrameRate,
		wrapModes: make(map[string]model.WrapMode),
		poseFactory: func(skeleton *model.Skeleton, clip *model.AnimationClip) (model.PoseEvaluator, error) {
			return model.NewClipPose(skeleton, clip)
		},
	}
	for _, opt := range options {
		opt(b)
	}
	if !common.IsFinite32(b.frameRate) || b.frameRate <= 0 {
		return nil, fmt.Errorf("bakery: %w (got %v)", ErrInvalidFrameRate, b.frameRate)
	}
	return b, nil
}

func (b *bakery) FrameRate() float32 {
	return b.frameRate
}

func (b *bakery) Bake(m model.Model) (*BakeResult, error) {
	if m == nil {
		return nil, errNilModel
	}
	res, err := b.BakeClips(m.Skeleton(), m.Animations())
	if err != nil {
		return nil, fmt.Errorf("failed to bake %s: %w", m.Name(), err)
	}
	return res, nil
}

func (b *bakery) BakeClips(skeleton *model.Skeleton, clips []*model.AnimationClip) (*BakeResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ordered := make([]*model.AnimationClip, 0, len(clips))
	for _, c := range clips {
		if c != nil {
			ordered = append(ordered, c)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Name < ordered[j].Name
	})

	res := &BakeResult{}
	sampled := make([]SampledClip, 0, len(ordered))
	for _, clip := range ordered {
		info := ClipInfo{Name: clip.Name, Duration: clip.Duration, WrapMode: clip.WrapMode}
		if mode, ok := b.wrapModes[clip.Name]; ok {
			info.WrapMode = mode
		}

		// Channels cannot bind to an empty skeleton, so skip before building the pose.
		if skeleton.BoneCount() == 0 {
			if b.verbose {
				log.Printf("[Bakery] skipping clip %q: skeleton has no bones", clip.Name)
			}
			res.Skipped = append(res.Skipped, clip.Name)
			continue
		}

		pose, err := b.poseFactory(skeleton, clip)
		if err != nil {
			return nil, fmt.Errorf("failed to bind clip %q: %w", clip.Name, err)
		}
		sampled = append(sampled, SampleWith(skeleton, pose, info, b.frameRate))
	}

	set, err := Encode(sampled, b.frameRate)
	if err != nil {
		return nil, err
	}
	res.Set = set

	if b.verbose {
		log.Printf("[Bakery] baked %d clips, %d frames x %d bones at %.1f fps (%d rows, id %s)",
			len(set.Clips), set.TotalFrames(), set.BoneCount, set.FrameRate, set.RowCount(), set.ID)
	}
	return res, nil
}
