package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// AffineRowCount is the number of matrix rows kept when a 4x4 affine transform is packed.
// The bottom row of an affine transform is always [0, 0, 0, 1] and is dropped.
const AffineRowCount = 3

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// QuatFromXYZW builds an mgl32 quaternion from the (x, y, z, w) layout used by glTF and the model package.
//
// Parameters:
//   - q: the quaternion components as [x, y, z, w]
//
// Returns:
//   - mgl32.Quat: the quaternion
func QuatFromXYZW(q [4]float32) mgl32.Quat {
	return mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
}

// ComposeTRS builds a column-major transform matrix from translation, rotation and scale.
// The result is T * R * S.
//
// Parameters:
//   - t: the translation
//   - r: the rotation quaternion (need not be normalized)
//   - s: the scale
//
// Returns:
//   - mgl32.Mat4: the composed matrix
func ComposeTRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	rot := mgl32.Ident4()
	if l := r.Len(); l > 0 {
		rot = r.Scale(1 / l).Mat4()
	}
	return mgl32.Translate3D(t[0], t[1], t[2]).Mul4(rot).Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// AffineRows writes the top three rows of m into dst as three consecutive vec4 rows.
//
// Parameters:
//   - dst: destination slice (must be at least 12 elements)
//   - m: the source matrix
func AffineRows(dst []float32, m mgl32.Mat4) {
	for r := 0; r < AffineRowCount; r++ {
		row := m.Row(r)
		copy(dst[r*4:r*4+4], row[:])
	}
}

// RowsEqualBits reports whether two vec4 rows are identical bit for bit.
// NaN payloads compare equal only when their bits match, and +0 differs from -0.
func RowsEqualBits(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			return false
		}
	}
	return true
}

// IsFinite32 reports whether v is neither NaN nor an infinity.
func IsFinite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
