package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenegraph/gpu"
	"scenegraph/scene"
)

const quadOBJ = `# unit quad in two groups
mtllib quad.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1

o front
usemtl glass
f 1/1/1 2/2/1 3/3/1 4/4/1

g back
f -1 -2 -3
`

const quadMTL = `newmtl glass
Kd 0.2 0.4 0.6
d 0.5
`

func TestParseOBJGroupsAndFans(t *testing.T) {
	root, err := ParseOBJ(strings.NewReader(quadOBJ), t.TempDir())
	require.NoError(t, err)

	nb := root.AsNode()
	require.Equal(t, 2, nb.NumChildren())

	front := nb.Child(0).(*scene.Geometry)
	assert.Equal(t, "front", front.Name())
	assert.Equal(t, []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		front.VertexAttribArray(scene.VertexAttribute).BufferArray().Float32s())
	assert.NotNil(t, front.VertexAttribArray(scene.TexCoord0Attribute))
	de := front.PrimitiveSetList()[0].(*gpu.DrawElements)
	require.Equal(t, 6, de.Indices().NumElements(), "quad fans into two triangles")
	assert.Equal(t, uint32(0), de.Indices().Index(3))
	assert.Equal(t, uint32(3), de.Indices().Index(5))
	assert.Nil(t, front.StateSet(), "library missing: no material")

	back := nb.Child(1).(*scene.Geometry)
	assert.Equal(t, "back", back.Name())
	assert.Nil(t, back.VertexAttribArray(scene.TexCoord0Attribute))
	normals := back.VertexAttribArray(scene.NormalAttribute).BufferArray().Float32s()
	require.Len(t, normals, 9)
	// 4,3,2 winds clockwise seen from +z
	assert.InDelta(t, -1, normals[2], 1e-6)
}

func TestLoadOBJWithMaterials(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quad.obj"), []byte(quadOBJ), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quad.mtl"), []byte(quadMTL), 0o644))

	root, err := Load(filepath.Join(dir, "quad.obj"))
	require.NoError(t, err)
	assert.Equal(t, "quad.obj", root.AsNode().Name())

	front := root.AsNode().Child(0)
	ss := front.AsNode().StateSet()
	require.NotNil(t, ss)
	assert.Equal(t, []float32{0.2, 0.4, 0.6, 0.5}, ss.Uniform(BaseColorUniform).Floats())
	bin, ok := ss.RenderBin()
	assert.True(t, ok)
	assert.Equal(t, gpu.TransparentBin, bin)

	bs := root.AsNode().Bound()
	assert.True(t, bs.Valid())
}

func TestParseOBJErrors(t *testing.T) {
	for name, src := range map[string]string{
		"no faces":      "v 0 0 0\n",
		"short vertex":  "v 0 0\n",
		"out of range":  "v 0 0 0\nf 1 2 3\n",
		"zero index":    "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n",
		"two corners":   "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"bad component": "v 0 x 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseOBJ(strings.NewReader(src), "")
			assert.Error(t, err)
		})
	}

	_, err := ParseOBJ(strings.NewReader("# empty\n"), "")
	assert.ErrorIs(t, err, ErrNoFaces)
}

func TestParseMTLTransparency(t *testing.T) {
	mats, err := parseMTL(strings.NewReader("newmtl a\nTr 0.25\nmap_Kd -bm 1 tex.png\nnewmtl b\n"))
	require.NoError(t, err)
	assert.InDelta(t, 0.75, mats["a"].alpha, 1e-6)
	assert.Equal(t, "tex.png", mats["a"].texture)
	assert.Equal(t, [3]float32{1, 1, 1}, mats["b"].diffuse)
	assert.Equal(t, float32(1), mats["b"].alpha)
}

func TestLoadAsyncOBJ(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.obj")
	require.NoError(t, os.WriteFile(path, []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), 0o644))

	l := NewLoader(1)
	defer l.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := l.LoadAsync(path).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n.AsNode().NumChildren())
}
