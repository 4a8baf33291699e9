package scene

import (
	"reflect"
	"slices"
	"weak"

	"scenegraph/gpu"
)

// Node is anything that can sit in the graph. Concrete kinds embed NodeBase
// as their first field and override ComputeBound as needed.
type Node interface {
	AsNode() *NodeBase
	ComputeBound() BoundingSphere
}

// NodeBase holds the state every node shares: children (owned), parents
// (weak), mask, state set, callbacks and the cached bound.
type NodeBase struct {
	// This is the embedding node, used so base methods dispatch to overrides.
	This Node

	name     string
	children []Node
	parents  []weak.Pointer[NodeBase]
	nodeMask uint32
	stateSet *gpu.StateSet

	updateCallbacks []UpdateCallback
	cullCallbacks   []CullCallback

	boundingSphere         BoundingSphere
	boundingSphereComputed bool
}

// NewNode returns a plain grouping node.
func NewNode() *NodeBase {
	n := &NodeBase{}
	n.init(n)
	return n
}

func (n *NodeBase) init(this Node) {
	n.This = this
	n.nodeMask = ^uint32(0)
}

func (n *NodeBase) AsNode() *NodeBase { return n }

func (n *NodeBase) Name() string        { return n.name }
func (n *NodeBase) SetName(name string) { n.name = name }

func (n *NodeBase) NodeMask() uint32 { return n.nodeMask }

// SetNodeMask sets the traversal mask. A node with mask 0 drops out of its
// parents' bounds, so switching to or from 0 dirties them.
func (n *NodeBase) SetNodeMask(mask uint32) {
	hiddenChanged := (n.nodeMask == 0) != (mask == 0)
	n.nodeMask = mask
	if hiddenChanged {
		n.dirtyParents()
	}
}

func (n *NodeBase) StateSet() *gpu.StateSet      { return n.stateSet }
func (n *NodeBase) SetStateSet(ss *gpu.StateSet) { n.stateSet = ss }

// GetOrCreateStateSet returns the node's state set, creating an empty one.
func (n *NodeBase) GetOrCreateStateSet() *gpu.StateSet {
	if n.stateSet == nil {
		n.stateSet = gpu.NewStateSet()
	}
	return n.stateSet
}

// ── Hierarchy ────────────────────────────────────────────────────────────────

// AddChild appends child. Adding the same child twice makes two edges.
func (n *NodeBase) AddChild(child Node) {
	n.children = append(n.children, child)
	c := child.AsNode()
	c.parents = append(c.parents, weak.Make(n))
	n.DirtyBound()
}

// RemoveChild removes the first edge to child and reports whether one existed.
func (n *NodeBase) RemoveChild(child Node) bool {
	i := slices.Index(n.children, child)
	if i < 0 {
		return false
	}
	n.children = slices.Delete(n.children, i, i+1)
	child.AsNode().removeParent(n)
	n.DirtyBound()
	return true
}

// RemoveChildren detaches every child.
func (n *NodeBase) RemoveChildren() {
	if len(n.children) == 0 {
		return
	}
	for _, c := range n.children {
		c.AsNode().removeParent(n)
	}
	n.children = nil
	n.DirtyBound()
}

func (n *NodeBase) removeParent(p *NodeBase) {
	wp := weak.Make(p)
	if i := slices.Index(n.parents, wp); i >= 0 {
		n.parents = slices.Delete(n.parents, i, i+1)
	}
}

func (n *NodeBase) Children() []Node     { return n.children }
func (n *NodeBase) Child(i int) Node     { return n.children[i] }
func (n *NodeBase) NumChildren() int     { return len(n.children) }
func (n *NodeBase) HasChild(c Node) bool { return slices.Contains(n.children, c) }

// Parents returns the live parents, one entry per edge.
func (n *NodeBase) Parents() []Node {
	out := make([]Node, 0, len(n.parents))
	for _, wp := range n.parents {
		if p := wp.Value(); p != nil {
			out = append(out, p.This)
		}
	}
	return out
}

// ── Callbacks ────────────────────────────────────────────────────────────────

// UpdateCallback runs during the update pass. Returning false stops the
// visitor from recursing into the node's children for this pass.
type UpdateCallback interface {
	Update(n Node, uv *UpdateVisitor) bool
}

// UpdateFunc adapts a function to UpdateCallback.
type UpdateFunc func(n Node, uv *UpdateVisitor) bool

func (f UpdateFunc) Update(n Node, uv *UpdateVisitor) bool { return f(n, uv) }

// CullCallback runs during the cull pass before the node is processed.
// Returning false culls the node.
type CullCallback interface {
	Cull(n Node, v Visitor) bool
}

// CullFunc adapts a function to CullCallback.
type CullFunc func(n Node, v Visitor) bool

func (f CullFunc) Cull(n Node, v Visitor) bool { return f(n, v) }

func (n *NodeBase) AddUpdateCallback(cb UpdateCallback) {
	n.updateCallbacks = append(n.updateCallbacks, cb)
}

// RemoveUpdateCallback removes cb. Function adapters are not comparable and
// can only be dropped with ClearUpdateCallbacks.
func (n *NodeBase) RemoveUpdateCallback(cb UpdateCallback) bool {
	if cb == nil || !reflect.TypeOf(cb).Comparable() {
		return false
	}
	for i, c := range n.updateCallbacks {
		if reflect.TypeOf(c) == reflect.TypeOf(cb) && c == cb {
			n.updateCallbacks = slices.Delete(n.updateCallbacks, i, i+1)
			return true
		}
	}
	return false
}

func (n *NodeBase) ClearUpdateCallbacks()             { n.updateCallbacks = nil }
func (n *NodeBase) UpdateCallbacks() []UpdateCallback { return n.updateCallbacks }

func (n *NodeBase) AddCullCallback(cb CullCallback) {
	n.cullCallbacks = append(n.cullCallbacks, cb)
}

func (n *NodeBase) ClearCullCallbacks()           { n.cullCallbacks = nil }
func (n *NodeBase) CullCallbacks() []CullCallback { return n.cullCallbacks }

// ── Bounds ───────────────────────────────────────────────────────────────────

// DirtyBound invalidates the cached bound here and in every ancestor,
// stopping at an ancestor that is already dirty.
func (n *NodeBase) DirtyBound() {
	if !n.boundingSphereComputed {
		return
	}
	n.boundingSphereComputed = false
	n.dirtyParents()
}

func (n *NodeBase) dirtyParents() {
	for _, wp := range n.parents {
		if p := wp.Value(); p != nil {
			p.DirtyBound()
		}
	}
}

// BoundingSphereComputed reports whether the cached bound is current.
func (n *NodeBase) BoundingSphereComputed() bool { return n.boundingSphereComputed }

// Bound returns the cached bound, recomputing it when dirty.
func (n *NodeBase) Bound() BoundingSphere {
	if !n.boundingSphereComputed {
		n.boundingSphere = n.This.ComputeBound()
		n.boundingSphereComputed = true
	}
	return n.boundingSphere
}

type referenceFramer interface {
	ReferenceFrame() ReferenceFrame
}

// ComputeBound merges the children's bounds. Children with mask 0 or
// positioned in an absolute reference frame do not contribute.
func (n *NodeBase) ComputeBound() BoundingSphere {
	var bs BoundingSphere
	for _, c := range n.children {
		if c.AsNode().nodeMask == 0 {
			continue
		}
		if rf, ok := c.(referenceFramer); ok && rf.ReferenceFrame() == AbsoluteRF {
			continue
		}
		bs.ExpandBySphere(c.AsNode().Bound())
	}
	return bs
}

// ── Traversal ────────────────────────────────────────────────────────────────

// Accept hands the node to v unless the masks share no bit.
func (n *NodeBase) Accept(v Visitor) {
	if v.TraversalMask()&n.nodeMask == 0 {
		return
	}
	if pt, ok := v.(pathTracker); ok {
		pt.PushOntoNodePath(n.This)
		v.Apply(n.This)
		pt.PopFromNodePath()
		return
	}
	v.Apply(n.This)
}

// Traverse accepts v on every child in order.
func (n *NodeBase) Traverse(v Visitor) {
	for _, c := range n.children {
		c.AsNode().Accept(v)
	}
}

// AcceptChildren calls fn for every child in order, ignoring masks.
func (n *NodeBase) AcceptChildren(fn func(Node)) {
	for _, c := range n.children {
		fn(c)
	}
}
