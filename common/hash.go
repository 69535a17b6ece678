package common

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"
)

// Hasher accumulates a structural 64-bit FNV-1a hash over typed values.
// Values are written in a fixed little-endian layout so the hash is stable across platforms.
type Hasher struct {
	h   hash.Hash64
	buf [8]byte

	// rec holds every byte written when the hasher was created with NewRecordingHasher.
	rec    []byte
	record bool
}

// NewHasher creates an empty Hasher.
//
// Returns:
//   - *Hasher: the hasher
func NewHasher() *Hasher {
	return &Hasher{h: fnv.New64a()}
}

// NewRecordingHasher creates a Hasher that also keeps the bytes it hashed,
// so callers can compare full fingerprints when two hashes match.
//
// Returns:
//   - *Hasher: the hasher
func NewRecordingHasher() *Hasher {
	return &Hasher{h: fnv.New64a(), record: true}
}

func (h *Hasher) write(b []byte) {
	h.h.Write(b)
	if h.record {
		h.rec = append(h.rec, b...)
	}
}

// Uint32 mixes a uint32 into the hash.
func (h *Hasher) Uint32(v uint32) *Hasher {
	binary.LittleEndian.PutUint32(h.buf[:4], v)
	h.write(h.buf[:4])
	return h
}

// Int32 mixes an int32 into the hash.
func (h *Hasher) Int32(v int32) *Hasher {
	return h.Uint32(uint32(v))
}

// Float32 mixes the bit pattern of a float32 into the hash.
func (h *Hasher) Float32(v float32) *Hasher {
	return h.Uint32(math.Float32bits(v))
}

// Floats mixes a sequence of float32 values into the hash.
func (h *Hasher) Floats(vs ...float32) *Hasher {
	for _, v := range vs {
		h.Float32(v)
	}
	return h
}

// String mixes a length-prefixed string into the hash.
func (h *Hasher) String(s string) *Hasher {
	h.Uint32(uint32(len(s)))
	h.write([]byte(s))
	return h
}

// Sum64 returns the current hash value.
func (h *Hasher) Sum64() uint64 {
	return h.h.Sum64()
}

// Bytes returns the recorded input, or nil if the hasher does not record.
func (h *Hasher) Bytes() []byte {
	return h.rec
}
