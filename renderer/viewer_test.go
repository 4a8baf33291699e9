package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenegraph/gpu/gputest"
	"scenegraph/loader"
	"scenegraph/scene"
)

func newTestViewer() (*Viewer, *gputest.Device) {
	dev := gputest.NewDevice()
	v := NewViewer(dev)
	v.Resize(640, 480)
	v.Camera().SetLookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	return v, dev
}

func TestViewerFrameDrawsScene(t *testing.T) {
	v, dev := newTestViewer()
	group := scene.NewNode()
	group.AddChild(scene.CreateBox(mgl32.Vec3{}, 1, 1, 1))
	group.AddChild(scene.CreateBox(mgl32.Vec3{0, 0, 50}, 1, 1, 1)) // behind the eye
	v.SetSceneData(group)

	v.Frame(0)

	st := v.Stats()
	assert.Equal(t, uint64(0), st.FrameNumber)
	assert.Equal(t, CullStats{Leaves: 1, Culled: 1}, st.CullStats)
	assert.Equal(t, 1, dev.Count("DrawElements"))
	assert.Equal(t, 1, dev.Count("CreateProgram"))
	require.NotEmpty(t, dev.Named("Viewport"))
	assert.Equal(t, []any{int32(0), int32(0), int32(640), int32(480)}, dev.Named("Viewport")[0].Args)
	assert.Zero(t, v.State().StateSetStackSize())

	dev.Reset()
	v.Frame(0.5)
	assert.Equal(t, uint64(1), v.Stats().FrameNumber)
	assert.Equal(t, 1, dev.Count("DrawElements"))
	assert.Zero(t, dev.Count("CreateProgram"), "program compiled once")
	assert.Zero(t, dev.Count("CreateVertexArray"), "draw routine cached")
}

func TestViewerUpdatePassesFrameStamp(t *testing.T) {
	v, _ := newTestViewer()
	var stamps []scene.FrameStamp
	n := scene.NewNode()
	n.AddUpdateCallback(scene.UpdateFunc(func(_ scene.Node, uv *scene.UpdateVisitor) bool {
		stamps = append(stamps, uv.FrameStamp())
		return true
	}))
	v.SetSceneData(n)

	v.Frame(1)
	v.Frame(1.25)

	require.Len(t, stamps, 2)
	assert.Equal(t, scene.FrameStamp{FrameNumber: 0, SimulationTime: 1}, stamps[0])
	assert.Equal(t, uint64(1), stamps[1].FrameNumber)
	assert.InDelta(t, 0.25, stamps[1].DeltaTime, 1e-9)
}

func TestViewerSetSceneDataReplaces(t *testing.T) {
	v, _ := newTestViewer()
	a, b := scene.NewNode(), scene.NewNode()
	v.SetSceneData(a)
	v.SetSceneData(b)

	assert.Same(t, b, v.SceneData())
	assert.Equal(t, 1, v.Camera().NumChildren())
	assert.True(t, v.Camera().HasChild(b))

	v.SetSceneData(nil)
	assert.Zero(t, v.Camera().NumChildren())
}

func TestViewerResizeKeepsAspect(t *testing.T) {
	v, _ := newTestViewer()
	before := v.Camera().ProjectionMatrix()
	v.Resize(480, 480)

	assert.Equal(t, scene.Viewport{Width: 480, Height: 480}, *v.Camera().Viewport())
	assert.NotEqual(t, before, v.Camera().ProjectionMatrix())
	p := v.Camera().ProjectionMatrix()
	assert.InDelta(t, p[0], p[5], 1e-5, "square viewport, square pixels")
}

func TestViewerReleaseFreesGPUObjects(t *testing.T) {
	v, dev := newTestViewer()
	v.SetSceneData(scene.CreateSphere(1, 8, 4))
	v.Frame(0)
	require.NotEmpty(t, dev.LiveBufs)
	require.NotEmpty(t, dev.LiveProgs)

	v.Release()
	assert.Empty(t, dev.LiveBufs)
	assert.Empty(t, dev.LiveVAOs)
	assert.Empty(t, dev.LiveProgs)
}

func TestViewerAttachSkipsCancelledLoads(t *testing.T) {
	v, _ := newTestViewer()
	v.SetSceneData(scene.NewNode())

	l := loader.NewLoader(1)
	l.Close()
	v.Attach(l.LoadAsync("model.gltf"))
	require.Equal(t, 1, v.LoadQueue().Len())

	v.Frame(0)
	assert.Zero(t, v.Stats().Attached)
	assert.Zero(t, v.LoadQueue().Len())
	assert.Zero(t, v.SceneData().AsNode().NumChildren())
}
