// Package renderer turns a scene graph into draw calls: the cull visitor
// sorts drawables into state graphs and render bins, a render stage submits
// them, and the Viewer runs the update, cull and draw passes each frame.
package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"scenegraph/gpu"
	"scenegraph/scene"
)

// RenderLeaf is one geometry to draw with the matrices it was culled under.
type RenderLeaf struct {
	Geometry   *scene.Geometry
	ModelView  mgl32.Mat4
	Projection mgl32.Mat4
	// Depth is the eye-space distance of the bound centre along the view
	// direction.
	Depth float32

	parent *StateGraph
}

// StateGraph returns the state graph node the leaf was recorded under.
func (l *RenderLeaf) StateGraph() *StateGraph { return l.parent }

func (l *RenderLeaf) draw(state *gpu.State) {
	state.ApplyTransforms(l.ModelView, l.Projection)
	l.Geometry.DrawImplementation(state)
}

// StateGraph mirrors the nesting of state sets met during culling. Each node
// stands for the accumulated state from the root down to it and collects the
// leaves culled under exactly that state.
type StateGraph struct {
	parent   *StateGraph
	stateSet *gpu.StateSet
	depth    int

	children map[*gpu.StateSet]*StateGraph
	order    []*StateGraph
	leaves   []*RenderLeaf
}

// NewStateGraph returns an empty root.
func NewStateGraph() *StateGraph { return &StateGraph{} }

func (sg *StateGraph) Parent() *StateGraph     { return sg.parent }
func (sg *StateGraph) StateSet() *gpu.StateSet { return sg.stateSet }
func (sg *StateGraph) Depth() int              { return sg.depth }
func (sg *StateGraph) Leaves() []*RenderLeaf   { return sg.leaves }
func (sg *StateGraph) Children() []*StateGraph { return sg.order }

// FindOrInsert returns the child for ss, creating it on first use.
func (sg *StateGraph) FindOrInsert(ss *gpu.StateSet) *StateGraph {
	if c, ok := sg.children[ss]; ok {
		return c
	}
	if sg.children == nil {
		sg.children = make(map[*gpu.StateSet]*StateGraph)
	}
	c := &StateGraph{parent: sg, stateSet: ss, depth: sg.depth + 1}
	sg.children[ss] = c
	sg.order = append(sg.order, c)
	return c
}

// AddLeaf records l under this state.
func (sg *StateGraph) AddLeaf(l *RenderLeaf) {
	l.parent = sg
	sg.leaves = append(sg.leaves, l)
}

// Reset drops every child and leaf.
func (sg *StateGraph) Reset() {
	sg.children = nil
	sg.order = nil
	sg.leaves = nil
}

// moveStateGraph changes the state stack from the path of from to the path
// of to, popping up to their common ancestor and pushing back down. A nil
// from means the stack is empty.
func moveStateGraph(state *gpu.State, from, to *StateGraph) {
	if from == to {
		return
	}
	var down []*gpu.StateSet
	for from != nil && (to == nil || from.depth > to.depth) {
		if from.stateSet != nil {
			state.PopStateSet()
		}
		from = from.parent
	}
	for to != nil && (from == nil || to.depth > from.depth) {
		down = append(down, to.stateSet)
		to = to.parent
	}
	for from != to {
		if from.stateSet != nil {
			state.PopStateSet()
		}
		down = append(down, to.stateSet)
		from, to = from.parent, to.parent
	}
	for i := len(down) - 1; i >= 0; i-- {
		if down[i] != nil {
			state.PushStateSet(down[i])
		}
	}
}
