package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenegraph/gpu"
	"scenegraph/gpu/gputest"
	"scenegraph/scene"
)

func TestStateGraphFindOrInsertReusesChildren(t *testing.T) {
	root := NewStateGraph()
	a, b := gpu.NewStateSet(), gpu.NewStateSet()

	ga := root.FindOrInsert(a)
	assert.Same(t, ga, root.FindOrInsert(a))
	gb := root.FindOrInsert(b)

	assert.Equal(t, []*StateGraph{ga, gb}, root.Children())
	assert.Equal(t, 1, ga.Depth())
	assert.Same(t, root, ga.Parent())
	assert.Same(t, a, ga.StateSet())

	root.Reset()
	assert.Empty(t, root.Children())
	assert.NotSame(t, ga, root.FindOrInsert(a))
}

func TestMoveStateGraphPopsToCommonAncestor(t *testing.T) {
	s := gpu.NewState(gputest.NewDevice())
	root := NewStateGraph()
	a := root.FindOrInsert(gpu.NewStateSet())
	ab := a.FindOrInsert(gpu.NewStateSet())
	ac := a.FindOrInsert(gpu.NewStateSet())
	d := root.FindOrInsert(gpu.NewStateSet())

	moveStateGraph(s, nil, ab)
	assert.Equal(t, 2, s.StateSetStackSize())

	moveStateGraph(s, ab, ac)
	assert.Equal(t, 2, s.StateSetStackSize())

	moveStateGraph(s, ac, d)
	assert.Equal(t, 1, s.StateSetStackSize())

	moveStateGraph(s, d, root)
	assert.Zero(t, s.StateSetStackSize(), "the root carries no state set")

	moveStateGraph(s, root, ab)
	moveStateGraph(s, ab, nil)
	assert.Zero(t, s.StateSetStackSize())
}

func TestMoveStateGraphAppliesInnermostState(t *testing.T) {
	dev := gputest.NewDevice()
	s := gpu.NewState(dev)
	outer, inner := gpu.NewStateSet(), gpu.NewStateSet()
	outer.SetProgram(gpu.NewProgram("a", "a"))
	inner.SetProgram(gpu.NewProgram("b", "b"))

	root := NewStateGraph()
	leafGraph := root.FindOrInsert(outer).FindOrInsert(inner)
	moveStateGraph(s, nil, leafGraph)
	require.NoError(t, s.Apply())
	assert.Same(t, inner.Program(), s.LastAppliedProgram())

	moveStateGraph(s, leafGraph, leafGraph.Parent())
	require.NoError(t, s.Apply())
	assert.Same(t, outer.Program(), s.LastAppliedProgram())
}

func leafAt(g *scene.Geometry, depth float32) *RenderLeaf {
	return &RenderLeaf{Geometry: g, ModelView: mgl32.Ident4(), Projection: mgl32.Ident4(), Depth: depth}
}

func TestRenderBinSortModes(t *testing.T) {
	assert.Equal(t, SortByState, newRenderBin(gpu.OpaqueBin).SortMode())
	assert.Equal(t, SortBackToFront, newRenderBin(gpu.TransparentBin).SortMode())
}

func TestRenderBinRegistersStateGraphOnce(t *testing.T) {
	b := newRenderBin(gpu.OpaqueBin)
	assert.True(t, b.Empty())

	root := NewStateGraph()
	sg := root.FindOrInsert(gpu.NewStateSet())
	g := scene.NewGeometry()
	b.AddLeaf(sg, leafAt(g, 0))
	b.AddLeaf(sg, leafAt(g, 1))

	assert.False(t, b.Empty())
	assert.Equal(t, []*StateGraph{sg}, b.StateGraphs())
	assert.Len(t, sg.Leaves(), 2)
	assert.Same(t, sg, b.Leaves()[1].StateGraph())
}

func TestRenderBinBackToFrontDrawsFarthestFirst(t *testing.T) {
	dev := gputest.NewDevice()
	s := gpu.NewState(dev)

	ss := gpu.NewStateSet()
	ss.SetProgram(NewDefaultProgram())
	root := NewStateGraph()
	sg := root.FindOrInsert(ss)

	near := scene.CreateTexturedQuad(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, 0, 0, 1, 1)
	far := scene.CreateBox(mgl32.Vec3{}, 1, 1, 1)

	b := newRenderBin(gpu.TransparentBin)
	b.AddLeaf(sg, leafAt(near, 1))
	b.AddLeaf(sg, leafAt(far, 5))

	last := b.draw(s, nil)
	assert.Same(t, sg, last)

	draws := dev.Named("DrawElements")
	require.Len(t, draws, 2)
	assert.Equal(t, int32(36), draws[0].Args[1], "box first")
	assert.Equal(t, int32(6), draws[1].Args[1])
	assert.Equal(t, 1, dev.Count("UseProgram"), "one state change for one state graph")
}

func TestRenderBinSkipsGroupWhenStateFails(t *testing.T) {
	dev := gputest.NewDevice()
	dev.FailProgram = assert.AnError
	s := gpu.NewState(dev)

	ss := gpu.NewStateSet()
	ss.SetProgram(NewDefaultProgram())
	sg := NewStateGraph().FindOrInsert(ss)
	b := newRenderBin(gpu.OpaqueBin)
	b.AddLeaf(sg, leafAt(scene.CreateBox(mgl32.Vec3{}, 1, 1, 1), 0))

	b.draw(s, nil)
	assert.Zero(t, dev.Count("DrawElements"))
}
