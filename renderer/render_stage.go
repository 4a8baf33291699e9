package renderer

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"scenegraph/gpu"
	"scenegraph/scene"
)

type orderedStage struct {
	order int
	stage *RenderStage
}

// RenderStage is everything drawn into one viewport after one clear: its
// bins in ascending number, bracketed by the stages of pre- and post-render
// cameras.
type RenderStage struct {
	viewport   *scene.Viewport
	clearColor mgl32.Vec4
	clearMask  gpu.ClearMask

	root *StateGraph
	bins map[int]*RenderBin
	pre  []orderedStage
	post []orderedStage
}

// NewRenderStage returns a stage that clears color and depth to black.
func NewRenderStage() *RenderStage {
	return &RenderStage{
		clearColor: mgl32.Vec4{0, 0, 0, 1},
		clearMask:  gpu.ColorBufferBit | gpu.DepthBufferBit,
		root:       NewStateGraph(),
		bins:       map[int]*RenderBin{gpu.OpaqueBin: newRenderBin(gpu.OpaqueBin)},
	}
}

// Viewport is nil when the stage draws into whatever viewport is current.
func (rs *RenderStage) Viewport() *scene.Viewport      { return rs.viewport }
func (rs *RenderStage) SetViewport(vp *scene.Viewport) { rs.viewport = vp }
func (rs *RenderStage) ClearColor() mgl32.Vec4         { return rs.clearColor }
func (rs *RenderStage) SetClearColor(c mgl32.Vec4)     { rs.clearColor = c }
func (rs *RenderStage) ClearMask() gpu.ClearMask       { return rs.clearMask }
func (rs *RenderStage) SetClearMask(m gpu.ClearMask)   { rs.clearMask = m }

// StateGraph is the root of the stage's state graph.
func (rs *RenderStage) StateGraph() *StateGraph { return rs.root }

// Bin returns bin n, creating it on first use.
func (rs *RenderStage) Bin(n int) *RenderBin {
	b, ok := rs.bins[n]
	if !ok {
		b = newRenderBin(n)
		rs.bins[n] = b
	}
	return b
}

// Bins returns the bins in drawing order.
func (rs *RenderStage) Bins() []*RenderBin {
	nums := make([]int, 0, len(rs.bins))
	for n := range rs.bins {
		nums = append(nums, n)
	}
	slices.Sort(nums)
	out := make([]*RenderBin, len(nums))
	for i, n := range nums {
		out[i] = rs.bins[n]
	}
	return out
}

// AddPreRenderStage schedules s before this stage. Lower order draws first;
// equal orders keep insertion order.
func (rs *RenderStage) AddPreRenderStage(s *RenderStage, order int) {
	rs.pre = insertOrdered(rs.pre, orderedStage{order, s})
}

// AddPostRenderStage schedules s after this stage.
func (rs *RenderStage) AddPostRenderStage(s *RenderStage, order int) {
	rs.post = insertOrdered(rs.post, orderedStage{order, s})
}

func insertOrdered(list []orderedStage, s orderedStage) []orderedStage {
	i := len(list)
	for i > 0 && list[i-1].order > s.order {
		i--
	}
	return slices.Insert(list, i, s)
}

func (rs *RenderStage) PreRenderStages() []*RenderStage  { return stages(rs.pre) }
func (rs *RenderStage) PostRenderStages() []*RenderStage { return stages(rs.post) }

func stages(list []orderedStage) []*RenderStage {
	out := make([]*RenderStage, len(list))
	for i, s := range list {
		out[i] = s.stage
	}
	return out
}

// Reset empties the stage for the next frame, keeping viewport and clear
// settings.
func (rs *RenderStage) Reset() {
	rs.root.Reset()
	rs.bins = map[int]*RenderBin{gpu.OpaqueBin: newRenderBin(gpu.OpaqueBin)}
	rs.pre = nil
	rs.post = nil
}

// Draw submits the stage. The state set stack is empty on return.
func (rs *RenderStage) Draw(state *gpu.State) {
	rs.draw(state, nil)
	state.PopAllStateSets()
}

// draw submits the stage into vp unless it has its own viewport.
func (rs *RenderStage) draw(state *gpu.State, vp *scene.Viewport) {
	for _, s := range rs.pre {
		s.stage.draw(state, vp)
	}

	dev := state.Device()
	if rs.viewport != nil {
		vp = rs.viewport
	}
	if vp != nil {
		dev.Viewport(vp.X, vp.Y, vp.Width, vp.Height)
	}
	if rs.clearMask != 0 {
		if rs.clearMask&gpu.ColorBufferBit != 0 {
			dev.ClearColor(rs.clearColor)
		}
		dev.Clear(rs.clearMask)
	}

	var prev *StateGraph
	for _, b := range rs.Bins() {
		prev = b.draw(state, prev)
	}
	moveStateGraph(state, prev, nil)

	for _, s := range rs.post {
		s.stage.draw(state, vp)
	}
}
