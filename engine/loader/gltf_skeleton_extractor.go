package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bake/common"
	"github.com/Carmen-Shannon/oxy-bake/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	parser gltfParser

	// parentOf maps node index to parent node index (-1 for scene roots).
	parentOf []int
}

// gltfSkeletonExtractor converts glTF skins into Skeletons with parent-first bone order.
type gltfSkeletonExtractor interface {
	// ExtractSkeleton extracts a skeleton from a skin.
	//
	// Parameters:
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - *model.Skeleton: the skeleton with bones sorted parents first
	//   - map[int]int32: glTF node index to sorted bone index, for animation targeting
	//   - error: error if extraction fails
	ExtractSkeleton(skinIndex int) (*model.Skeleton, map[int]int32, error)

	// FindSkinForMesh returns the skin used by the first node instancing meshIndex, or -1.
	//
	// Parameters:
	//   - meshIndex: the mesh index
	//
	// Returns:
	//   - int: the skin index, or -1 if none
	FindSkinForMesh(meshIndex int) int
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

func newGLTFSkeletonExtractor(parser gltfParser) gltfSkeletonExtractor {
	e := &gltfSkeletonExtractorImpl{parser: parser}
	if doc := parser.Document(); doc != nil {
		e.parentOf = make([]int, len(doc.Nodes))
		for i := range e.parentOf {
			e.parentOf[i] = -1
		}
		for parent, node := range doc.Nodes {
			for _, child := range node.Children {
				if child >= 0 && child < len(e.parentOf) {
					e.parentOf[child] = parent
				}
			}
		}
	}
	return e
}

func (e *gltfSkeletonExtractorImpl) FindSkinForMesh(meshIndex int) int {
	doc := e.parser.Document()
	if doc == nil {
		return -1
	}
	for _, node := range doc.Nodes {
		if node.Mesh != nil && *node.Mesh == meshIndex && node.Skin != nil {
			return *node.Skin
		}
	}
	return -1
}

func (e *gltfSkeletonExtractorImpl) ExtractSkeleton(skinIndex int) (*model.Skeleton, map[int]int32, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, nil, errNoDocument
	}
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil, nil, fmt.Errorf("skin index %d out of range", skinIndex)
	}
	skin := &doc.Skins[skinIndex]

	var inverseBinds [][16]float32
	if skin.InverseBindMatrices != nil {
		var err error
		inverseBinds, err = e.parser.ReadMat4Accessor(*skin.InverseBindMatrices)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read inverse bind matrices: %w", err)
		}
	}

	jointOf := make(map[int]int, len(skin.Joints)) // node index -> joint index
	for j, node := range skin.Joints {
		if node < 0 || node >= len(doc.Nodes) {
			return nil, nil, fmt.Errorf("joint %d: invalid node index %d", j, node)
		}
		jointOf[node] = j
	}

	// Joint-order bones; parents refer to joint indices until the sort below.
	bones := make([]model.Bone, len(skin.Joints))
	for j, nodeIdx := range skin.Joints {
		node := &doc.Nodes[nodeIdx]
		bone := &bones[j]
		bone.Name = common.Coalesce(node.Name, fmt.Sprintf("bone_%d", j))
		bone.JointIndex = int32(j)
		bone.LocalTransform = gltfNodeTransform(node)
		bone.InverseBindMatrix = mgl32.Ident4()
		if j < len(inverseBinds) {
			bone.InverseBindMatrix = inverseBinds[j]
		}
		bone.ParentIndex = -1
		for anc := e.parentOf[nodeIdx]; anc >= 0; anc = e.parentOf[anc] {
			if pj, ok := jointOf[anc]; ok {
				bone.ParentIndex = int32(pj)
				break
			}
		}
	}

	order := gltfParentFirstOrder(bones)
	newIndex := make([]int32, len(bones))
	for n, j := range order {
		newIndex[j] = int32(n)
	}

	skeleton := &model.Skeleton{
		Bones:           make([]model.Bone, len(bones)),
		BoneNameToIndex: make(map[string]int32, len(bones)),
	}
	nodeToBone := make(map[int]int32, len(bones))
	for n, j := range order {
		bone := bones[j]
		if bone.ParentIndex >= 0 {
			bone.ParentIndex = newIndex[bone.ParentIndex]
		} else {
			skeleton.RootBoneIndices = append(skeleton.RootBoneIndices, int32(n))
		}
		skeleton.Bones[n] = bone
		if _, dup := skeleton.BoneNameToIndex[bone.Name]; !dup {
			skeleton.BoneNameToIndex[bone.Name] = int32(n)
		}
		nodeToBone[skin.Joints[j]] = int32(n)
	}

	if len(order) > 0 {
		rootNode := skin.Joints[order[0]]
		skeleton.RootTransform = e.ancestorMatrix(rootNode, jointOf)
	}
	return skeleton, nodeToBone, nil
}

// ancestorMatrix accumulates the world transform of the non-joint ancestors of a root joint.
func (e *gltfSkeletonExtractorImpl) ancestorMatrix(nodeIdx int, jointOf map[int]int) mgl32.Mat4 {
	doc := e.parser.Document()
	m := mgl32.Ident4()
	for anc := e.parentOf[nodeIdx]; anc >= 0; anc = e.parentOf[anc] {
		if _, isJoint := jointOf[anc]; isJoint {
			break
		}
		m = gltfNodeMatrix(&doc.Nodes[anc]).Mul4(m)
	}
	return m
}

// gltfParentFirstOrder returns joint indices ordered breadth-first from the roots, so every parent
// precedes its children. Joints unreachable from a root (cycles in malformed files) keep their
// relative order at the end, detached from their parent.
func gltfParentFirstOrder(bones []model.Bone) []int {
	children := make([][]int, len(bones))
	var queue []int
	for j, b := range bones {
		if b.ParentIndex >= 0 {
			children[b.ParentIndex] = append(children[b.ParentIndex], j)
		} else {
			queue = append(queue, j)
		}
	}

	order := make([]int, 0, len(bones))
	visited := make([]bool, len(bones))
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]
		visited[j] = true
		order = append(order, j)
		queue = append(queue, children[j]...)
	}
	for j := range bones {
		if !visited[j] {
			bones[j].ParentIndex = -1
			order = append(order, j)
		}
	}
	return order
}

// gltfNodeTransform returns the local TRS of a node, decomposing Matrix when present.
func gltfNodeTransform(node *gltfNode) model.Transform {
	if node.Matrix != nil {
		return gltfDecomposeMatrix(mgl32.Mat4(*node.Matrix))
	}
	t := model.IdentityTransform()
	if node.Translation != nil {
		t.Translation = *node.Translation
	}
	if node.Rotation != nil {
		t.Rotation = *node.Rotation
	}
	if node.Scale != nil {
		t.Scale = *node.Scale
	}
	return t
}

// gltfNodeMatrix returns the local matrix of a node.
func gltfNodeMatrix(node *gltfNode) mgl32.Mat4 {
	if node.Matrix != nil {
		return mgl32.Mat4(*node.Matrix)
	}
	t := gltfNodeTransform(node)
	return common.ComposeTRS(mgl32.Vec3(t.Translation), common.QuatFromXYZW(t.Rotation), mgl32.Vec3(t.Scale))
}

// gltfDecomposeMatrix splits a column-major matrix into TRS, assuming no shear.
func gltfDecomposeMatrix(m mgl32.Mat4) model.Transform {
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()

	rot := m
	for c, s := range [3]float32{sx, sy, sz} {
		if s < 1e-4 {
			s = 1
		}
		rot.SetCol(c, rot.Col(c).Mul(1/s))
	}
	rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
	q := mgl32.Mat4ToQuat(rot).Normalize()

	return model.Transform{
		Translation: [3]float32{m[12], m[13], m[14]},
		Rotation:    [4]float32{q.V[0], q.V[1], q.V[2], q.W},
		Scale:       [3]float32{sx, sy, sz},
	}
}
