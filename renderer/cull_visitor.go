package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"scenegraph/gpu"
	"scenegraph/internal/logger"
	"scenegraph/scene"
)

// CullStats counts what one cull pass kept and rejected.
type CullStats struct {
	Leaves int
	Culled int
}

// CullVisitor walks the graph and records every visible geometry as a render
// leaf in the current render stage, grouped by accumulated state.
//
// Bounds are tested in the parent's coordinate frame against the frustum of
// the current projection and model-view. Nodes with invalid bounds are never
// culled.
type CullVisitor struct {
	scene.NodeVisitor

	cullingEnabled bool

	stateSets  []*gpu.StateSet
	stateGraph *StateGraph

	modelView  []mgl32.Mat4
	projection []mgl32.Mat4
	frustums   []scene.Frustum

	rootStage    *RenderStage
	currentStage *RenderStage
	currentBin   *RenderBin

	stats CullStats
}

// NewCullVisitor returns a visitor with frustum culling enabled.
func NewCullVisitor() *CullVisitor {
	return &CullVisitor{cullingEnabled: true}
}

func (cv *CullVisitor) CullingEnabled() bool     { return cv.cullingEnabled }
func (cv *CullVisitor) SetCullingEnabled(b bool) { cv.cullingEnabled = b }
func (cv *CullVisitor) Stats() CullStats         { return cv.stats }

// SetRenderStage resets the visitor to cull into rs with identity matrices
// and an empty state stack.
func (cv *CullVisitor) SetRenderStage(rs *RenderStage) {
	cv.rootStage = rs
	cv.currentStage = rs
	cv.currentBin = rs.Bin(gpu.OpaqueBin)
	cv.stateSets = cv.stateSets[:0]
	cv.stateGraph = rs.StateGraph()
	cv.modelView = append(cv.modelView[:0], mgl32.Ident4())
	cv.projection = append(cv.projection[:0], mgl32.Ident4())
	cv.frustums = append(cv.frustums[:0], scene.FrustumFromMatrix(mgl32.Ident4()))
	cv.stats = CullStats{}
}

func (cv *CullVisitor) RenderStage() *RenderStage        { return cv.rootStage }
func (cv *CullVisitor) CurrentRenderStage() *RenderStage { return cv.currentStage }
func (cv *CullVisitor) CurrentRenderBin() *RenderBin     { return cv.currentBin }
func (cv *CullVisitor) CurrentStateGraph() *StateGraph   { return cv.stateGraph }

// ModelViewMatrix returns the top of the model-view stack.
func (cv *CullVisitor) ModelViewMatrix() mgl32.Mat4 { return cv.modelView[len(cv.modelView)-1] }

// ProjectionMatrix returns the top of the projection stack.
func (cv *CullVisitor) ProjectionMatrix() mgl32.Mat4 { return cv.projection[len(cv.projection)-1] }

// PushModelViewMatrix makes m current. Cull callbacks that change the
// model-view must pop what they push.
func (cv *CullVisitor) PushModelViewMatrix(m mgl32.Mat4) {
	cv.modelView = append(cv.modelView, m)
	cv.frustums = append(cv.frustums, scene.FrustumFromMatrix(cv.ProjectionMatrix().Mul4(m)))
}

func (cv *CullVisitor) PopModelViewMatrix() {
	cv.modelView = cv.modelView[:len(cv.modelView)-1]
	cv.frustums = cv.frustums[:len(cv.frustums)-1]
}

// PushProjectionMatrix makes m current along with the model-view mv.
func (cv *CullVisitor) PushProjectionMatrix(m, mv mgl32.Mat4) {
	cv.projection = append(cv.projection, m)
	cv.PushModelViewMatrix(mv)
}

func (cv *CullVisitor) PopProjectionMatrix() {
	cv.PopModelViewMatrix()
	cv.projection = cv.projection[:len(cv.projection)-1]
}

// PushStateSet enters ss, moving the state graph cursor to its child.
func (cv *CullVisitor) PushStateSet(ss *gpu.StateSet) {
	cv.stateSets = append(cv.stateSets, ss)
	cv.stateGraph = cv.stateGraph.FindOrInsert(ss)
}

func (cv *CullVisitor) PopStateSet() {
	cv.stateSets = cv.stateSets[:len(cv.stateSets)-1]
	cv.stateGraph = cv.stateGraph.Parent()
}

type stackDepth struct{ states, modelViews, projections int }

func (cv *CullVisitor) depth() stackDepth {
	return stackDepth{len(cv.stateSets), len(cv.modelView), len(cv.projection)}
}

// checkDepth asserts every stack is back to want after visiting n. Release
// builds log and repair the stacks.
func (cv *CullVisitor) checkDepth(want stackDepth, n scene.Node) {
	got := cv.depth()
	if got == want {
		return
	}
	if debugAssertions {
		panic(fmt.Sprintf("cull: stack depth %+v after %q, want %+v", got, n.AsNode().Name(), want))
	}
	logger.Log.Error("cull: unbalanced stacks, repairing",
		zap.String("node", n.AsNode().Name()),
		zap.Ints("got", []int{got.states, got.modelViews, got.projections}),
		zap.Ints("want", []int{want.states, want.modelViews, want.projections}))
	for len(cv.stateSets) > want.states {
		cv.PopStateSet()
	}
	for len(cv.projection) > want.projections {
		cv.projection = cv.projection[:len(cv.projection)-1]
	}
	for len(cv.modelView) > want.modelViews {
		cv.PopModelViewMatrix()
	}
}

// Apply culls n and its subtree.
func (cv *CullVisitor) Apply(n scene.Node) {
	defer cv.checkDepth(cv.depth(), n)

	nb := n.AsNode()
	if cv.isCulled(n) {
		cv.stats.Culled++
		return
	}
	for _, cb := range nb.CullCallbacks() {
		if !cb.Cull(n, cv) {
			return
		}
	}

	if ss := nb.StateSet(); ss != nil {
		cv.PushStateSet(ss)
		defer cv.PopStateSet()
	}

	switch t := n.(type) {
	case *scene.Camera:
		cv.applyCamera(t)
	case *scene.Transform:
		cv.PushModelViewMatrix(t.ComputeLocalToWorld(cv.ModelViewMatrix()))
		t.Traverse(cv)
		cv.PopModelViewMatrix()
	case *scene.Geometry:
		cv.addLeaf(t)
		t.Traverse(cv)
	default:
		nb.Traverse(cv)
	}
}

func (cv *CullVisitor) isCulled(n scene.Node) bool {
	if !cv.cullingEnabled {
		return false
	}
	// cameras bring their own projection
	if _, ok := n.(*scene.Camera); ok {
		return false
	}
	bs := n.AsNode().Bound()
	if !bs.Valid() {
		return false
	}
	f := &cv.frustums[len(cv.frustums)-1]
	if t, ok := n.(*scene.Transform); ok && t.ReferenceFrame() == scene.AbsoluteRF {
		abs := scene.FrustumFromMatrix(cv.ProjectionMatrix())
		f = &abs
	}
	return !f.ContainsSphere(bs)
}

func (cv *CullVisitor) addLeaf(g *scene.Geometry) {
	mv := cv.ModelViewMatrix()
	var depth float32
	if bs := g.Bound(); bs.Valid() {
		depth = -mgl32.TransformCoordinate(bs.Center(), mv).Z()
	}
	leaf := &RenderLeaf{
		Geometry:   g,
		ModelView:  mv,
		Projection: cv.ProjectionMatrix(),
		Depth:      depth,
	}
	cv.binFor().AddLeaf(cv.stateGraph, leaf)
	cv.stats.Leaves++
}

// binFor returns the bin named by the innermost state set with a bin hint,
// or the current bin.
func (cv *CullVisitor) binFor() *RenderBin {
	for i := len(cv.stateSets) - 1; i >= 0; i-- {
		if n, ok := cv.stateSets[i].RenderBin(); ok {
			return cv.currentStage.Bin(n)
		}
	}
	return cv.currentBin
}

func (cv *CullVisitor) applyCamera(c *scene.Camera) {
	mv := c.ComputeLocalToWorld(cv.ModelViewMatrix())
	order, num := c.RenderOrder()
	if order == scene.NestedRender {
		cv.PushProjectionMatrix(c.ProjectionMatrix(), mv)
		c.Traverse(cv)
		cv.PopProjectionMatrix()
		return
	}

	stage := NewRenderStage()
	if vp := c.Viewport(); vp != nil {
		stage.SetViewport(vp)
	} else {
		stage.SetViewport(cv.currentStage.Viewport())
	}
	stage.SetClearColor(c.ClearColor())
	stage.SetClearMask(c.ClearMask())
	if order == scene.PreRender {
		cv.currentStage.AddPreRenderStage(stage, num)
	} else {
		cv.currentStage.AddPostRenderStage(stage, num)
	}

	// the new stage draws under the same inherited state
	prevStage, prevBin, prevGraph := cv.currentStage, cv.currentBin, cv.stateGraph
	cv.currentStage = stage
	cv.currentBin = stage.Bin(gpu.OpaqueBin)
	cv.stateGraph = stage.StateGraph()
	for _, ss := range cv.stateSets {
		cv.stateGraph = cv.stateGraph.FindOrInsert(ss)
	}

	cv.PushProjectionMatrix(c.ProjectionMatrix(), mv)
	c.Traverse(cv)
	cv.PopProjectionMatrix()

	cv.currentStage, cv.currentBin, cv.stateGraph = prevStage, prevBin, prevGraph
}
