package scene

import "slices"

// Visitor is a pass over the graph. Nodes hand themselves to Apply from
// Accept; Apply decides whether to recurse, usually by calling
// n.AsNode().Traverse(v).
type Visitor interface {
	Apply(n Node)
	TraversalMask() uint32
}

type pathTracker interface {
	PushOntoNodePath(n Node)
	PopFromNodePath()
}

// NodeVisitor is embedded by visitors to carry the traversal mask and the
// path from the root to the node being applied. The zero value visits every
// node.
type NodeVisitor struct {
	// stored inverted so the zero value matches every mask
	clearedBits uint32
	nodePath    []Node
}

func (nv *NodeVisitor) TraversalMask() uint32     { return ^nv.clearedBits }
func (nv *NodeVisitor) SetTraversalMask(m uint32) { nv.clearedBits = ^m }

func (nv *NodeVisitor) PushOntoNodePath(n Node) { nv.nodePath = append(nv.nodePath, n) }

func (nv *NodeVisitor) PopFromNodePath() {
	if len(nv.nodePath) > 0 {
		nv.nodePath = nv.nodePath[:len(nv.nodePath)-1]
	}
}

// NodePath returns the current path. The slice is reused; clone it to keep it.
func (nv *NodeVisitor) NodePath() []Node { return nv.nodePath }

// ── Update ───────────────────────────────────────────────────────────────────

// FrameStamp identifies the frame an update pass belongs to.
type FrameStamp struct {
	FrameNumber    uint64
	SimulationTime float64 // seconds since the viewer started
	DeltaTime      float64 // seconds since the previous frame
}

// UpdateVisitor runs update callbacks top-down.
type UpdateVisitor struct {
	NodeVisitor
	frameStamp FrameStamp
}

func NewUpdateVisitor() *UpdateVisitor { return &UpdateVisitor{} }

func (uv *UpdateVisitor) FrameStamp() FrameStamp      { return uv.frameStamp }
func (uv *UpdateVisitor) SetFrameStamp(fs FrameStamp) { uv.frameStamp = fs }

// Apply runs the node's callbacks in order. A callback returning false stops
// recursion into this node; it may have traversed the children itself.
func (uv *UpdateVisitor) Apply(n Node) {
	nb := n.AsNode()
	for _, cb := range nb.updateCallbacks {
		if !cb.Update(n, uv) {
			return
		}
	}
	nb.Traverse(uv)
}

// ── Search ───────────────────────────────────────────────────────────────────

// SearchVisitor collects nodes matching a predicate.
type SearchVisitor struct {
	NodeVisitor
	match func(Node) bool
	first bool
	Found []Node
}

// NewSearchVisitor returns a visitor collecting every node match accepts.
func NewSearchVisitor(match func(Node) bool) *SearchVisitor {
	return &SearchVisitor{match: match}
}

func (sv *SearchVisitor) Apply(n Node) {
	if sv.first && len(sv.Found) > 0 {
		return
	}
	if sv.match(n) && !slices.Contains(sv.Found, n) {
		sv.Found = append(sv.Found, n)
	}
	n.AsNode().Traverse(sv)
}

// FindAll returns the visible nodes under root (root included) accepted by
// match, in traversal order. Shared nodes appear once.
func FindAll(root Node, match func(Node) bool) []Node {
	sv := NewSearchVisitor(match)
	root.AsNode().Accept(sv)
	return sv.Found
}

// FindByName returns the first node called name, or nil.
func FindByName(root Node, name string) Node {
	sv := NewSearchVisitor(func(n Node) bool { return n.AsNode().Name() == name })
	sv.first = true
	root.AsNode().Accept(sv)
	if len(sv.Found) == 0 {
		return nil
	}
	return sv.Found[0]
}
