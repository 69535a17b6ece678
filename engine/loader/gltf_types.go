// gltf_types.go holds the subset of the glTF 2.0 JSON schema needed to import skins and animations.
// Meshes, materials and textures are not decoded; encoding/json skips their fields.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

// gltfDocument represents the root of a glTF JSON document.
type gltfDocument struct {
	Asset gltfAsset `json:"asset"`

	// Scene is the index of the default scene.
	Scene  *int        `json:"scene,omitempty"`
	Scenes []gltfScene `json:"scenes,omitempty"`

	// Nodes is the transform hierarchy. Skin joints are nodes.
	Nodes []gltfNode `json:"nodes,omitempty"`

	Accessors   []gltfAccessor   `json:"accessors,omitempty"`
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`
	Buffers     []gltfBuffer     `json:"buffers,omitempty"`

	Skins      []gltfSkin      `json:"skins,omitempty"`
	Animations []gltfAnimation `json:"animations,omitempty"`
}

type gltfAsset struct {
	// Version is the glTF version (required, must be "2.x").
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

type gltfScene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// gltfNode is a node in the node hierarchy.
type gltfNode struct {
	Name     string `json:"name,omitempty"`
	Children []int  `json:"children,omitempty"`

	// Mesh and Skin are only used to find the skin bound to the first mesh.
	Mesh *int `json:"mesh,omitempty"`
	Skin *int `json:"skin,omitempty"`

	// Matrix is a 4x4 column-major transform. When present it replaces TRS.
	Matrix *[16]float32 `json:"matrix,omitempty"`

	Translation *[3]float32 `json:"translation,omitempty"`
	Rotation    *[4]float32 `json:"rotation,omitempty"` // x, y, z, w
	Scale       *[3]float32 `json:"scale,omitempty"`
}

// gltfAccessor defines how to interpret buffer data.
type gltfAccessor struct {
	BufferView *int `json:"bufferView,omitempty"`
	ByteOffset int  `json:"byteOffset,omitempty"`

	// ComponentType is the data type of components; only FLOAT is read.
	ComponentType int `json:"componentType"`

	Count int    `json:"count"`
	Type  string `json:"type"`

	// Sparse is decoded only to reject sparse accessors.
	Sparse *struct {
		Count int `json:"count"`
	} `json:"sparse,omitempty"`
}

const gltfComponentTypeFloat = 5126

// Accessor element types and their float component counts.
const (
	gltfAccessorTypeScalar = "SCALAR"
	gltfAccessorTypeVec3   = "VEC3"
	gltfAccessorTypeVec4   = "VEC4"
	gltfAccessorTypeMat4   = "MAT4"
)

type gltfBufferView struct {
	Buffer     int  `json:"buffer"`
	ByteOffset int  `json:"byteOffset,omitempty"`
	ByteLength int  `json:"byteLength"`
	ByteStride *int `json:"byteStride,omitempty"`
}

type gltfBuffer struct {
	// URI is a data: URI or a path relative to the document. Empty for the GLB binary chunk.
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`

	// Data is populated during load.
	Data []byte `json:"-"`
}

// --- Skeletal Animation ---

type gltfSkin struct {
	Name                string `json:"name,omitempty"`
	InverseBindMatrices *int   `json:"inverseBindMatrices,omitempty"`
	Joints              []int  `json:"joints"`
}

type gltfAnimation struct {
	Name     string            `json:"name,omitempty"`
	Channels []gltfAnimChannel `json:"channels"`
	Samplers []gltfAnimSampler `json:"samplers"`
}

type gltfAnimChannel struct {
	Sampler int            `json:"sampler"`
	Target  gltfAnimTarget `json:"target"`
}

type gltfAnimTarget struct {
	Node *int   `json:"node,omitempty"`
	Path string `json:"path"`
}

type gltfAnimSampler struct {
	Input         int    `json:"input"`
	Output        int    `json:"output"`
	Interpolation string `json:"interpolation,omitempty"`
}

const (
	gltfAnimPathTranslation = "translation"
	gltfAnimPathRotation    = "rotation"
	gltfAnimPathScale       = "scale"
)

const (
	gltfInterpolationLinear      = "LINEAR"
	gltfInterpolationStep        = "STEP"
	gltfInterpolationCubicSpline = "CUBICSPLINE"
)

// --- GLB Binary Format ---

type gltfGLBHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

const (
	gltfGLBMagic     = 0x46546C67 // "glTF"
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON"
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0"
)
