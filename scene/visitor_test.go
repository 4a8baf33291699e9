package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenegraph/gpu"
	"scenegraph/gpu/gputest"
)

// nameCollector is a user-defined visitor built on NodeVisitor.
type nameCollector struct {
	NodeVisitor
	search string
	result []Node
}

func (v *nameCollector) Apply(n Node) {
	if n.AsNode().Name() == v.search {
		v.result = append(v.result, n)
	}
	n.AsNode().Traverse(v)
}

func abcTree() (root, b, c *NodeBase) {
	root, b, c = namedNode("a"), namedNode("b"), namedNode("c")
	root.AddChild(b)
	root.AddChild(c)
	return root, b, c
}

func TestCustomVisitorRespectsNodeMask(t *testing.T) {
	root, _, c := abcTree()

	v := &nameCollector{search: "c"}
	v.Apply(root)
	require.Len(t, v.result, 1)
	assert.Same(t, c, v.result[0])

	c.SetNodeMask(0)
	v = &nameCollector{search: "c"}
	root.Accept(v)
	assert.Empty(t, v.result)
}

func TestTraversalMaskSelectsBits(t *testing.T) {
	root, b, c := abcTree()
	b.SetNodeMask(0x1)
	c.SetNodeMask(0x2)

	v := &nameCollector{search: "c"}
	v.SetTraversalMask(0x1)
	root.Accept(v)
	assert.Empty(t, v.result)

	v = &nameCollector{search: "c"}
	v.SetTraversalMask(0x3)
	root.Accept(v)
	assert.Len(t, v.result, 1)

	var zero NodeVisitor
	assert.Equal(t, ^uint32(0), zero.TraversalMask())
}

func TestNodePathTracksAccept(t *testing.T) {
	root, b, _ := abcTree()
	leaf := namedNode("leaf")
	b.AddChild(leaf)

	var path []Node
	v := &pathRecorder{onApply: func(pv *pathRecorder, n Node) {
		if n == Node(leaf) {
			path = append(path, pv.NodePath()...)
		}
	}}
	root.Accept(v)
	assert.Equal(t, []Node{root, b, leaf}, path)
	assert.Empty(t, v.NodePath(), "path unwinds after the pass")
}

type pathRecorder struct {
	NodeVisitor
	onApply func(*pathRecorder, Node)
}

func (v *pathRecorder) Apply(n Node) {
	v.onApply(v, n)
	n.AsNode().Traverse(v)
}

func TestUpdateVisitorCallbackStopsRecursion(t *testing.T) {
	root, b, c := namedNode("a"), namedNode("b"), namedNode("c")
	root.AddChild(b)
	b.AddChild(c)

	var callRoot, callB, callC int
	root.AddUpdateCallback(UpdateFunc(func(n Node, uv *UpdateVisitor) bool {
		callRoot++
		n.AsNode().Traverse(uv)
		return false
	}))
	b.AddUpdateCallback(UpdateFunc(func(Node, *UpdateVisitor) bool {
		callB++
		return false
	}))
	c.AddUpdateCallback(UpdateFunc(func(Node, *UpdateVisitor) bool {
		callC++
		return true
	}))

	uv := NewUpdateVisitor()
	uv.Apply(root)

	assert.Equal(t, 1, callRoot)
	assert.Equal(t, 1, callB)
	assert.Zero(t, callC, "b did not traverse")
}

func TestUpdateVisitorContinuesWhenCallbacksAgree(t *testing.T) {
	root, b := NewNode(), NewNode()
	root.AddChild(b)

	var stamps []FrameStamp
	record := UpdateFunc(func(n Node, uv *UpdateVisitor) bool {
		stamps = append(stamps, uv.FrameStamp())
		return true
	})
	root.AddUpdateCallback(record)
	b.AddUpdateCallback(record)

	uv := NewUpdateVisitor()
	uv.SetFrameStamp(FrameStamp{FrameNumber: 7, SimulationTime: 1.5})
	root.Accept(uv)

	require.Len(t, stamps, 2)
	assert.Equal(t, uint64(7), stamps[1].FrameNumber)
}

func TestFindByNameAndFindAll(t *testing.T) {
	root, b, c := abcTree()
	b.AddChild(c) // shared

	assert.Same(t, b, FindByName(root, "b"))
	assert.Nil(t, FindByName(root, "missing"))

	all := FindAll(root, func(Node) bool { return true })
	assert.Equal(t, []Node{root, b, c}, all, "shared nodes appear once")

	geoms := FindAll(root, func(n Node) bool { _, ok := n.(*Geometry); return ok })
	assert.Empty(t, geoms)
}

func TestIntersectPicksNearestGeometry(t *testing.T) {
	root := NewNode()
	near := CreateBox(mgl32.Vec3{}, 2, 2, 2)
	near.SetName("near")
	farXform := NewTransform()
	farXform.SetMatrix(mgl32.Translate3D(0, 0, -10))
	far := CreateBox(mgl32.Vec3{}, 2, 2, 2)
	far.SetName("far")
	farXform.AddChild(far)
	side := CreateBox(mgl32.Vec3{50, 0, 0}, 2, 2, 2)
	root.AddChild(near)
	root.AddChild(farXform)
	root.AddChild(side)

	// off the face diagonals so each face has a single candidate triangle
	hits := Intersect(root, Ray{Origin: mgl32.Vec3{0.3, -0.2, 10}, Direction: mgl32.Vec3{0, 0, -1}})
	require.Len(t, hits, 2)
	assert.Same(t, near, hits[0].Geometry)
	assert.InDelta(t, 9, hits[0].Distance, tolerance)
	assertVec3Near(t, mgl32.Vec3{0, 0, 1}, hits[0].Normal)
	assert.Same(t, far, hits[1].Geometry)
	assert.InDelta(t, 19, hits[1].Distance, tolerance)
	assert.Equal(t, []Node{root, farXform, far}, hits[1].NodePath)
}

func TestIntersectSkipsMaskedSubtree(t *testing.T) {
	root := NewNode()
	box := CreateBox(mgl32.Vec3{}, 2, 2, 2)
	box.SetNodeMask(0)
	root.AddChild(box)

	hits := Intersect(root, Ray{Origin: mgl32.Vec3{0.3, -0.2, 10}, Direction: mgl32.Vec3{0, 0, -1}})
	assert.Empty(t, hits)
}

func TestScreenToRayThroughCenter(t *testing.T) {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100)
	ray := ScreenToRay(50, 50, 100, 100, view, proj)
	assertVec3Near(t, mgl32.Vec3{0, 0, -1}, ray.Direction)
	assert.InDelta(t, 9.9, ray.Origin[2], 1e-3)
}

func TestReleaseVisitorReleasesEverything(t *testing.T) {
	dev := gputest.NewDevice()
	state := gpu.NewState(dev)
	prog := gpu.NewProgram("vs", "fs", VertexAttribute, NormalAttribute)
	ss := gpu.NewStateSet()
	ss.SetProgram(prog)

	root := NewNode()
	root.SetStateSet(ss)
	box := CreateBox(mgl32.Vec3{}, 1, 1, 1)
	hidden := NewNode()
	hidden.SetNodeMask(0)
	hidden.AddChild(box)
	root.AddChild(hidden)
	root.AddChild(box)

	state.PushStateSet(ss)
	require.NoError(t, state.Apply())
	box.DrawImplementation(state)
	require.NotEmpty(t, dev.LiveBufs)
	require.NotEmpty(t, dev.LiveVAOs)

	ReleaseGPUObjects(root, dev)
	assert.Empty(t, dev.LiveBufs)
	assert.Empty(t, dev.LiveVAOs)
	assert.Empty(t, dev.LiveProgs)
	assert.Equal(t, 1, dev.Count("DeleteProgram"), "shared state released once")
}
