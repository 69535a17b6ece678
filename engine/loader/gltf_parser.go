package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errAccessorRange      = errors.New("accessor reads past the end of its buffer")
	errNoDocument         = errors.New("no document loaded")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir        string
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser loads glTF/GLB files and reads float accessors.
// This is internal to the loader package.
type gltfParser interface {
	// Parse loads and parses a glTF/GLB file. GLB is detected by extension or magic number.
	//
	// Parameters:
	//   - path: path to the glTF or GLB file
	//
	// Returns:
	//   - error: error if parsing fails
	Parse(path string) error

	// ParseReader parses a glTF document from a reader. External buffer URIs resolve
	// against the working directory.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//
	// Returns:
	//   - error: error if parsing fails
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the parsed document, or nil before a successful parse.
	Document() *gltfDocument

	// ReadScalarAccessor reads a SCALAR FLOAT accessor.
	ReadScalarAccessor(accessorIndex int) ([]float32, error)

	// ReadVec3Accessor reads a VEC3 FLOAT accessor.
	ReadVec3Accessor(accessorIndex int) ([][3]float32, error)

	// ReadVec4Accessor reads a VEC4 FLOAT accessor.
	ReadVec4Accessor(accessorIndex int) ([][4]float32, error)

	// ReadMat4Accessor reads a MAT4 FLOAT accessor (column-major).
	ReadMat4Accessor(accessorIndex int) ([][16]float32, error)
}

var _ gltfParser = &gltfParserImpl{}

func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Parse(path string) error {
	p.baseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".glb" || (len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic) {
		return p.parseGLB(data)
	}
	return p.parseJSON(data)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	if isGLB {
		return p.parseGLB(data)
	}
	return p.parseJSON(data)
}

// parseJSON decodes the JSON document and resolves its buffers.
func (p *gltfParserImpl) parseJSON(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}
	p.document = &doc
	return nil
}

// parseGLB splits a GLB container into its JSON and BIN chunks.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParserImpl) parseGLB(data []byte) error {
	if len(data) < 12 {
		return errors.New("GLB file too small")
	}
	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return errInvalidGLBVersion
	}

	var jsonData []byte
	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read chunk header: %w", err)
		}
		body := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return fmt.Errorf("failed to read chunk data: %w", err)
		}
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = body
		case gltfGLBChunkBIN:
			p.glbBinaryChunk = body
		}
	}
	if jsonData == nil {
		return errMissingJSONChunk
	}
	return p.parseJSON(jsonData)
}

// loadBuffers fills buffer Data from data URIs, external files, or the GLB binary chunk.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		switch {
		case buf.URI == "" && i == 0 && p.glbBinaryChunk != nil:
			buf.Data = p.glbBinaryChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		case strings.HasPrefix(buf.URI, "data:"):
			data, err := decodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		default:
			data, err := os.ReadFile(filepath.Join(p.baseDir, buf.URI))
			if err != nil {
				return fmt.Errorf("buffer %d: failed to load %q: %w", i, buf.URI, err)
			}
			buf.Data = data
		}

		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// decodeDataURI decodes data:[<mediatype>];base64,<data>.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errInvalidBufferURI
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

// readFloats reads accessorIndex as count elements of width float32 components,
// honouring byte stride.
func (p *gltfParserImpl) readFloats(accessorIndex int, wantType string, width int) ([]float32, int, error) {
	doc := p.document
	if doc == nil {
		return nil, 0, errNoDocument
	}
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return nil, 0, fmt.Errorf("accessor index %d out of range", accessorIndex)
	}
	acc := &doc.Accessors[accessorIndex]
	if acc.Type != wantType || acc.ComponentType != gltfComponentTypeFloat {
		return nil, 0, fmt.Errorf("accessor %d is not %s FLOAT: type=%s, componentType=%d", accessorIndex, wantType, acc.Type, acc.ComponentType)
	}
	if acc.Sparse != nil {
		return nil, 0, fmt.Errorf("accessor %d: sparse accessors are not supported", accessorIndex)
	}
	if acc.BufferView == nil || *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews) {
		return nil, 0, fmt.Errorf("accessor %d has no valid bufferView", accessorIndex)
	}
	bv := &doc.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, 0, fmt.Errorf("bufferView %d: buffer index %d out of range", *acc.BufferView, bv.Buffer)
	}
	data := doc.Buffers[bv.Buffer].Data

	elemSize := 4 * width
	stride := elemSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	base := bv.ByteOffset + acc.ByteOffset
	if acc.Count > 0 && base+(acc.Count-1)*stride+elemSize > len(data) {
		return nil, 0, fmt.Errorf("accessor %d: %w", accessorIndex, errAccessorRange)
	}

	out := make([]float32, acc.Count*width)
	for i := 0; i < acc.Count; i++ {
		src := data[base+i*stride:]
		for c := 0; c < width; c++ {
			out[i*width+c] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*c:]))
		}
	}
	return out, acc.Count, nil
}

func (p *gltfParserImpl) ReadScalarAccessor(accessorIndex int) ([]float32, error) {
	out, _, err := p.readFloats(accessorIndex, gltfAccessorTypeScalar, 1)
	return out, err
}

func (p *gltfParserImpl) ReadVec3Accessor(accessorIndex int) ([][3]float32, error) {
	flat, n, err := p.readFloats(accessorIndex, gltfAccessorTypeVec3, 3)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, n)
	for i := range out {
		out[i] = [3]float32(flat[i*3 : i*3+3])
	}
	return out, nil
}

func (p *gltfParserImpl) ReadVec4Accessor(accessorIndex int) ([][4]float32, error) {
	flat, n, err := p.readFloats(accessorIndex, gltfAccessorTypeVec4, 4)
	if err != nil {
		return nil, err
	}
	out := make([][4]float32, n)
	for i := range out {
		out[i] = [4]float32(flat[i*4 : i*4+4])
	}
	return out, nil
}

func (p *gltfParserImpl) ReadMat4Accessor(accessorIndex int) ([][16]float32, error) {
	flat, n, err := p.readFloats(accessorIndex, gltfAccessorTypeMat4, 16)
	if err != nil {
		return nil, err
	}
	out := make([][16]float32, n)
	for i := range out {
		out[i] = [16]float32(flat[i*16 : i*16+16])
	}
	return out, nil
}
