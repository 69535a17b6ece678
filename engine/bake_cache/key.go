package bake_cache

import (
	"encoding/binary"
	"sort"

	"github.com/Carmen-Shannon/oxy-bake/common"
	"github.com/Carmen-Shannon/oxy-bake/engine/model"
	"github.com/google/uuid"
)

var keyNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("oxy-bake/bake_cache"))

// Key identifies a bake by the content of its inputs.
type Key struct {
	// Hash is the structural hash of skeleton, clips, frame rate and wrap overrides.
	Hash uint64

	// ID is a name-based UUID derived from Hash, suitable for logs and file names.
	ID uuid.UUID
}

// String returns the UUID form of the key.
func (k Key) String() string {
	return k.ID.String()
}

// Request describes one bake.
type Request struct {
	// Name labels the request in logs. It is not part of the key.
	Name string

	Skeleton  *model.Skeleton
	Clips     []*model.AnimationClip
	FrameRate float32

	// WrapModes overrides the wrap mode of clips by name.
	WrapModes map[string]model.WrapMode
}

// Key computes the content key of the request.
// Clip order does not matter; two requests with equal content always get equal keys.
func (r Request) Key() Key {
	return r.hash(common.NewHasher())
}

// identity returns the key together with the full hashed input, which tells
// apart requests whose hashes collide.
func (r Request) identity() (Key, string) {
	h := common.NewRecordingHasher()
	key := r.hash(h)
	return key, string(h.Bytes())
}

func (r Request) hash(h *common.Hasher) Key {
	h.Float32(r.FrameRate)

	s := r.Skeleton
	h.Uint32(uint32(s.BoneCount()))
	if s != nil {
		h.Floats(s.RootTransform[:]...)
		for _, b := range s.Bones {
			h.String(b.Name).Int32(b.ParentIndex).Floats(b.InverseBindMatrix[:]...)
			hashTransform(h, b.LocalTransform)
			if b.Unbound {
				h.Uint32(1)
			} else {
				h.Uint32(0)
			}
		}
	}

	clips := make([]*model.AnimationClip, 0, len(r.Clips))
	for _, c := range r.Clips {
		if c != nil {
			clips = append(clips, c)
		}
	}
	sort.SliceStable(clips, func(i, j int) bool {
		return clips[i].Name < clips[j].Name
	})
	h.Uint32(uint32(len(clips)))
	for _, c := range clips {
		mode := c.WrapMode
		if o, ok := r.WrapModes[c.Name]; ok {
			mode = o
		}
		h.String(c.Name).Float32(c.Duration).Float32(c.TicksPerSecond).Uint32(uint32(mode))
		h.Uint32(uint32(len(c.Channels)))
		for _, ch := range c.Channels {
			h.Int32(ch.BoneIndex)
			h.Uint32(uint32(len(ch.PositionKeys)))
			for _, k := range ch.PositionKeys {
				h.Float32(k.Time).Floats(k.Value[:]...)
			}
			h.Uint32(uint32(len(ch.RotationKeys)))
			for _, k := range ch.RotationKeys {
				h.Float32(k.Time).Floats(k.Value[:]...)
			}
			h.Uint32(uint32(len(ch.ScaleKeys)))
			for _, k := range ch.ScaleKeys {
				h.Float32(k.Time).Floats(k.Value[:]...)
			}
		}
	}

	sum := h.Sum64()
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], sum)
	return Key{Hash: sum, ID: uuid.NewSHA1(keyNamespace, b[:])}
}

func hashTransform(h *common.Hasher, t model.Transform) {
	h.Floats(t.Translation[:]...).Floats(t.Rotation[:]...).Floats(t.Scale[:]...)
}
