package loader

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenegraph/gpu"
	"scenegraph/scene"
)

func intPtr(i int) *int { return &i }

// triangleDoc holds one mesh with a valid triangle and a primitive missing
// POSITION, referenced by two nodes.
func triangleDoc() *gltf.Document {
	doc := &gltf.Document{}
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	nrm := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})

	doc.Materials = []*gltf.Material{{
		Name:                 "glass",
		AlphaMode:            gltf.AlphaBlend,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{
			{
				Attributes: map[string]int{"POSITION": pos, "NORMAL": nrm},
				Indices:    intPtr(idx),
				Material:   intPtr(0),
			},
			{Attributes: map[string]int{"NORMAL": nrm}},
		},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "parent", Children: []int{1}},
		{Mesh: intPtr(0)},
		{Name: "twin", Mesh: intPtr(0)},
	}
	return doc
}

func TestConvertBuildsGraph(t *testing.T) {
	root, err := Convert(triangleDoc(), "")
	require.NoError(t, err)

	rb := root.AsNode()
	require.Equal(t, 2, rb.NumChildren(), "parentless nodes become roots")
	assert.Equal(t, "parent", rb.Child(0).AsNode().Name())
	assert.Equal(t, "twin", rb.Child(1).AsNode().Name())

	child, ok := rb.Child(0).AsNode().Child(0).(*scene.Transform)
	require.True(t, ok)
	assert.Equal(t, "node_1", child.Name())
	assert.Equal(t, mgl32.Ident4(), child.Matrix())

	require.Equal(t, 1, child.NumChildren(), "primitive without POSITION is skipped")
	geom, ok := child.Child(0).(*scene.Geometry)
	require.True(t, ok)
	assert.Equal(t, "tri_p0", geom.Name())
	assert.Same(t, geom, rb.Child(1).AsNode().Child(0), "nodes share mesh geometry")

	verts := geom.VertexAttribArray(scene.VertexAttribute).BufferArray()
	assert.Equal(t, []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, verts.Float32s())
	assert.NotNil(t, geom.VertexAttribArray(scene.NormalAttribute))
	assert.Nil(t, geom.VertexAttribArray(scene.TexCoord0Attribute))

	prims := geom.PrimitiveSetList()
	require.Len(t, prims, 1)
	de, ok := prims[0].(*gpu.DrawElements)
	require.True(t, ok)
	assert.Equal(t, gpu.Triangles, de.Mode())
	assert.Equal(t, 3, de.Indices().NumElements())
	assert.Equal(t, uint32(2), de.Indices().Index(2))

	ss := geom.StateSet()
	require.NotNil(t, ss)
	bin, ok := ss.RenderBin()
	assert.True(t, ok)
	assert.Equal(t, gpu.TransparentBin, bin)
	require.NotNil(t, ss.Uniform(BaseColorUniform))
	assert.Equal(t, []float32{1, 1, 1, 1}, ss.Uniform(BaseColorUniform).Floats())

	bs := root.AsNode().Bound()
	assert.True(t, bs.Valid())
}

func TestConvertUsesDefaultScene(t *testing.T) {
	doc := triangleDoc()
	doc.Scenes = []*gltf.Scene{{Nodes: []int{2}}}
	doc.Scene = intPtr(0)

	root, err := Convert(doc, "")
	require.NoError(t, err)
	require.Equal(t, 1, root.AsNode().NumChildren())
	assert.Equal(t, "twin", root.AsNode().Child(0).AsNode().Name())
}

func TestConvertRejectsBadChildIndex(t *testing.T) {
	doc := triangleDoc()
	doc.Nodes[0].Children = []int{7}
	_, err := Convert(doc, "")
	assert.Error(t, err)
}

func TestConvertPrimitiveWithoutPosition(t *testing.T) {
	doc := triangleDoc()
	_, err := convertPrimitive(doc, "tri", 1, doc.Meshes[0].Primitives[1])
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestConvertRejectsDanglingIndices(t *testing.T) {
	for name, corrupt := range map[string]func(doc *gltf.Document){
		"position accessor": func(doc *gltf.Document) { doc.Meshes[0].Primitives[0].Attributes["POSITION"] = 42 },
		"normal accessor":   func(doc *gltf.Document) { doc.Meshes[0].Primitives[0].Attributes["NORMAL"] = -1 },
		"index accessor":    func(doc *gltf.Document) { doc.Meshes[0].Primitives[0].Indices = intPtr(9) },
		"buffer view":       func(doc *gltf.Document) { doc.Accessors[0].BufferView = intPtr(9) },
		"buffer":            func(doc *gltf.Document) { doc.BufferViews[0].Buffer = 3 },
	} {
		t.Run(name, func(t *testing.T) {
			doc := triangleDoc()
			corrupt(doc)
			_, err := convertPrimitive(doc, "tri", 0, doc.Meshes[0].Primitives[0])
			assert.Error(t, err)

			// the whole document still converts, minus the broken primitive
			var root scene.Node
			require.NotPanics(t, func() { root, err = Convert(doc, "") })
			require.NoError(t, err)
			assert.NotNil(t, root)
		})
	}
}

func TestConvertIgnoresOutOfRangeReferences(t *testing.T) {
	doc := triangleDoc()
	doc.Nodes[2].Mesh = intPtr(-1)
	doc.Meshes[0].Primitives[0].Material = intPtr(5)
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0, 2, 11}}}
	doc.Scene = intPtr(0)

	root, err := Convert(doc, "")
	require.NoError(t, err)
	require.Equal(t, 2, root.AsNode().NumChildren())
	twin := root.AsNode().Child(1).AsNode()
	assert.Zero(t, twin.NumChildren())
}

func TestTRSMatrix(t *testing.T) {
	// 90 degrees about z
	s := float64(0.70710678)
	m := trsMatrix([3]float64{1, 2, 3}, [4]float64{0, 0, s, s}, [3]float64{2, 2, 2})
	got := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 1, got[0], 1e-4)
	assert.InDelta(t, 4, got[1], 1e-4)
	assert.InDelta(t, 3, got[2], 1e-4)

	assert.Equal(t, mgl32.Ident4(), nodeMatrix(&gltf.Node{}))
}

func TestDecodeImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.Set(1, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	rgba, err := decodeImage(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, rgba.Bounds().Dx())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgba.RGBAAt(1, 1))

	_, err = decodeImage([]byte("not an image"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does/not/exist.gltf")
	assert.Error(t, err)
}

func TestLoaderAsyncReportsErrors(t *testing.T) {
	l := NewLoader(1)
	defer l.Close()

	f := l.LoadAsync("does/not/exist.glb")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := f.Wait(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCancelled)
	assert.True(t, f.Ready())
}

func TestLoaderClosedCancels(t *testing.T) {
	l := NewLoader(1)
	l.Close()
	l.Close()

	f := l.LoadAsync("x.glb")
	_, err := f.Result()
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestFutureResolvesOnce(t *testing.T) {
	f := newFuture("a.glb")
	_, err := f.Result()
	assert.ErrorIs(t, err, ErrPending)

	n := scene.NewNode()
	f.resolve(n, nil)
	f.Cancel()

	got, err := f.Result()
	require.NoError(t, err)
	assert.Same(t, n, got)
}

func TestFutureWaitHonoursContext(t *testing.T) {
	f := newFuture("slow.glb")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueueFlush(t *testing.T) {
	parent := scene.NewNode()
	ok, failed, pending := newFuture("ok"), newFuture("bad"), newFuture("later")

	var q Queue
	q.Add(ok, parent)
	q.Add(failed, parent)
	q.Add(pending, parent)

	loaded := scene.NewNode()
	ok.resolve(loaded, nil)
	failed.resolve(nil, ErrNoPosition)

	assert.Equal(t, 1, q.Flush())
	assert.Equal(t, 1, q.Len())
	require.Equal(t, 1, parent.NumChildren())
	assert.Same(t, loaded, parent.Child(0))

	q.Cancel()
	assert.Zero(t, q.Len())
	_, err := pending.Result()
	assert.ErrorIs(t, err, ErrCancelled)

	pending.resolve(scene.NewNode(), nil)
	assert.Zero(t, q.Flush())
	assert.Equal(t, 1, parent.NumChildren(), "cancelled loads never attach")
}
