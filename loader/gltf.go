// Package loader turns glTF and OBJ assets into scene graphs, synchronously or on a
// background worker pool.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"scenegraph/gpu"
	"scenegraph/internal/logger"
	"scenegraph/scene"
)

// Uniforms a converted material publishes.
const (
	BaseColorUniform       = "BaseColor"
	Texture0EnabledUniform = "Texture0Enabled"
)

// ErrNoPosition is returned for a primitive without a POSITION attribute.
var ErrNoPosition = errors.New("loader: primitive has no POSITION attribute")

// Load reads a model, choosing the format by extension: .obj is Wavefront,
// anything else is treated as glTF.
func Load(path string) (scene.Node, error) {
	if strings.EqualFold(filepath.Ext(path), ".obj") {
		return LoadOBJ(path)
	}
	return LoadGLTF(path)
}

// LoadGLTF opens a .gltf or .glb file and converts it.
func LoadGLTF(path string) (scene.Node, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	root, err := Convert(doc, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("gltf convert %q: %w", path, err)
	}
	root.AsNode().SetName(filepath.Base(path))
	return root, nil
}

// Convert builds a scene graph from doc. External images are resolved
// relative to dir.
//
// Every glTF node becomes a scene.Transform; each mesh primitive becomes a
// scene.Geometry child carrying its material as a state set. Meshes used by
// several nodes share their geometries. Primitives that fail to convert are
// logged and skipped.
func Convert(doc *gltf.Document, dir string) (scene.Node, error) {
	textures := convertTextures(doc, dir)
	materials := make([]*gpu.StateSet, len(doc.Materials))
	for i, gm := range doc.Materials {
		materials[i] = convertMaterial(gm, textures)
	}

	meshes := make([][]*scene.Geometry, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			g, err := convertPrimitive(doc, gm.Name, pi, prim)
			if err != nil {
				logger.Log.Warn("gltf: skipping primitive",
					zap.Int("mesh", mi), zap.Int("primitive", pi), zap.Error(err))
				continue
			}
			if prim.Material != nil && inRange(*prim.Material, len(materials)) {
				g.SetStateSet(materials[*prim.Material])
			}
			meshes[mi] = append(meshes[mi], g)
		}
	}

	nodes := make([]*scene.Transform, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		t := scene.NewTransform()
		t.SetName(name)
		t.SetMatrix(nodeMatrix(gn))
		if gn.Mesh != nil && inRange(*gn.Mesh, len(meshes)) {
			for _, g := range meshes[*gn.Mesh] {
				t.AddChild(g)
			}
		}
		nodes[i] = t
	}

	hasParent := make([]bool, len(nodes))
	for i, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if !inRange(c, len(nodes)) {
				return nil, fmt.Errorf("node %d: child index %d out of range", i, c)
			}
			nodes[i].AddChild(nodes[c])
			hasParent[c] = true
		}
	}

	root := scene.NewNode()
	if doc.Scene != nil && inRange(*doc.Scene, len(doc.Scenes)) {
		for _, idx := range doc.Scenes[*doc.Scene].Nodes {
			if inRange(idx, len(nodes)) {
				root.AddChild(nodes[idx])
			}
		}
		return root, nil
	}
	for i, n := range nodes {
		if !hasParent[i] {
			root.AddChild(n)
		}
	}
	return root, nil
}

func convertTextures(doc *gltf.Document, dir string) []*gpu.Texture {
	out := make([]*gpu.Texture, len(doc.Textures))
	for i, gt := range doc.Textures {
		if gt.Source == nil || !inRange(*gt.Source, len(doc.Images)) {
			continue
		}
		src := *gt.Source
		img := doc.Images[src]
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("gltf_img_%d", src)
		}

		var raw []byte
		var err error
		switch {
		case img.BufferView != nil:
			var bv *gltf.BufferView
			if bv, err = bufferView(doc, *img.BufferView); err == nil {
				raw, err = modeler.ReadBufferView(doc, bv)
			}
		case img.URI != "" && !img.IsEmbeddedResource():
			raw, err = os.ReadFile(filepath.Join(dir, img.URI))
		default:
			continue
		}
		if err != nil {
			logger.Log.Warn("gltf: image unreadable", zap.Int("image", src), zap.Error(err))
			continue
		}
		rgba, err := decodeImage(raw)
		if err != nil {
			logger.Log.Warn("gltf: image undecodable", zap.Int("image", src), zap.Error(err))
			continue
		}
		out[i] = gpu.NewTexture(name, rgba)
	}
	return out
}

// decodeImage decodes PNG or JPEG bytes into RGBA8.
func decodeImage(data []byte) (*image.RGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}

func convertMaterial(gm *gltf.Material, textures []*gpu.Texture) *gpu.StateSet {
	ss := gpu.NewStateSet()
	color := [4]float64{1, 1, 1, 1}
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		color = pbr.BaseColorFactorOrDefault()
		if ti := pbr.BaseColorTexture; ti != nil && inRange(ti.Index, len(textures)) && textures[ti.Index] != nil {
			ss.SetTexture(0, textures[ti.Index])
			ss.AddUniform(gpu.NewUniformInt(Texture0EnabledUniform, 1))
		}
	}
	ss.AddUniform(gpu.NewUniformFloats(BaseColorUniform,
		float32(color[0]), float32(color[1]), float32(color[2]), float32(color[3])))
	if gm.AlphaMode == gltf.AlphaBlend {
		ss.SetRenderBin(gpu.TransparentBin)
	}
	return ss
}

func convertPrimitive(doc *gltf.Document, meshName string, primIdx int, prim *gltf.Primitive) (*scene.Geometry, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, ErrNoPosition
	}
	posAcr, err := accessor(doc, posIdx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	positions, err := modeler.ReadPosition(doc, posAcr, nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	g := scene.NewGeometry()
	if meshName == "" {
		g.SetName(fmt.Sprintf("prim_%d", primIdx))
	} else {
		g.SetName(fmt.Sprintf("%s_p%d", meshName, primIdx))
	}
	g.SetVertexAttribArray(scene.VertexAttribute, gpu.NewFloatArray(flatten3(positions), 3))

	if idx, ok := prim.Attributes["NORMAL"]; ok {
		acr, err := accessor(doc, idx)
		if err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
		normals, err := modeler.ReadNormal(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
		g.SetVertexAttribArray(scene.NormalAttribute, gpu.NewFloatArray(flatten3(normals), 3))
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		acr, err := accessor(doc, idx)
		if err != nil {
			return nil, fmt.Errorf("texcoords: %w", err)
		}
		uvs, err := modeler.ReadTextureCoord(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("texcoords: %w", err)
		}
		flat := make([]float32, 0, 2*len(uvs))
		for _, uv := range uvs {
			flat = append(flat, uv[0], uv[1])
		}
		g.SetVertexAttribArray(scene.TexCoord0Attribute, gpu.NewFloatArray(flat, 2))
	}

	if idx, ok := prim.Attributes["COLOR_0"]; ok {
		acr, err := accessor(doc, idx)
		if err != nil {
			return nil, fmt.Errorf("colors: %w", err)
		}
		colors, err := modeler.ReadColor(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("colors: %w", err)
		}
		flat := make([]float32, 0, 4*len(colors))
		for _, c := range colors {
			flat = append(flat, float32(c[0])/255, float32(c[1])/255, float32(c[2])/255, float32(c[3])/255)
		}
		g.SetVertexAttribArray(scene.ColorAttribute, gpu.NewFloatArray(flat, 4))
	}

	mode := primitiveMode(prim.Mode)
	if prim.Indices != nil {
		acr, err := accessor(doc, *prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		indices, err := modeler.ReadIndices(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		g.AddPrimitiveSet(gpu.NewDrawElements(mode, gpu.NewUint32IndexArray(indices)))
	} else {
		g.AddPrimitiveSet(gpu.NewDrawArrays(mode, 0, int32(len(positions))))
	}
	return g, nil
}

func inRange(i, n int) bool { return i >= 0 && i < n }

// accessor returns accessor i after checking that it and the buffer data it
// reads from exist, so malformed files fail with an error instead of a panic.
func accessor(doc *gltf.Document, i int) (*gltf.Accessor, error) {
	if !inRange(i, len(doc.Accessors)) {
		return nil, fmt.Errorf("accessor index %d out of range", i)
	}
	acr := doc.Accessors[i]
	if acr.BufferView != nil {
		if _, err := bufferView(doc, *acr.BufferView); err != nil {
			return nil, fmt.Errorf("accessor %d: %w", i, err)
		}
	}
	return acr, nil
}

func bufferView(doc *gltf.Document, i int) (*gltf.BufferView, error) {
	if !inRange(i, len(doc.BufferViews)) {
		return nil, fmt.Errorf("buffer view index %d out of range", i)
	}
	bv := doc.BufferViews[i]
	if !inRange(bv.Buffer, len(doc.Buffers)) {
		return nil, fmt.Errorf("buffer view %d: buffer index %d out of range", i, bv.Buffer)
	}
	return bv, nil
}

func flatten3(v [][3]float32) []float32 {
	out := make([]float32, 0, 3*len(v))
	for _, p := range v {
		out = append(out, p[0], p[1], p[2])
	}
	return out
}

func primitiveMode(m gltf.PrimitiveMode) gpu.PrimitiveMode {
	switch m {
	case gltf.PrimitivePoints:
		return gpu.Points
	case gltf.PrimitiveLines:
		return gpu.Lines
	case gltf.PrimitiveLineLoop:
		return gpu.LineLoop
	case gltf.PrimitiveLineStrip:
		return gpu.LineStrip
	case gltf.PrimitiveTriangleStrip:
		return gpu.TriangleStrip
	case gltf.PrimitiveTriangleFan:
		return gpu.TriangleFan
	default:
		return gpu.Triangles
	}
}

var identity16 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// nodeMatrix returns the node's local matrix. An explicit matrix wins over
// TRS components.
func nodeMatrix(gn *gltf.Node) mgl32.Mat4 {
	if m := gn.MatrixOrDefault(); m != identity16 {
		var out mgl32.Mat4
		for i, v := range m {
			out[i] = float32(v)
		}
		return out
	}
	return trsMatrix(gn.TranslationOrDefault(), gn.RotationOrDefault(), gn.ScaleOrDefault())
}

// trsMatrix composes T * R * S. r is a quaternion in x, y, z, w order.
func trsMatrix(t [3]float64, r [4]float64, s [3]float64) mgl32.Mat4 {
	q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}
