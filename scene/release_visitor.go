package scene

import "scenegraph/gpu"

// ReleaseVisitor frees the GPU objects of a subgraph: geometry buffers and
// vertex arrays, and every state set's program and textures. It ignores node
// masks so hidden subtrees are released too, and visits shared nodes once.
type ReleaseVisitor struct {
	NodeVisitor
	device gpu.Device
	seen   map[*NodeBase]bool
}

func NewReleaseVisitor(dev gpu.Device) *ReleaseVisitor {
	return &ReleaseVisitor{device: dev, seen: make(map[*NodeBase]bool)}
}

func (rv *ReleaseVisitor) Apply(n Node) {
	nb := n.AsNode()
	if rv.seen[nb] {
		return
	}
	rv.seen[nb] = true

	if g, ok := n.(*Geometry); ok {
		g.ReleaseGPUObjects(rv.device)
	} else if ss := nb.StateSet(); ss != nil {
		ss.Release(rv.device)
	}
	nb.AcceptChildren(rv.Apply)
}

// ReleaseGPUObjects releases everything under root on dev. Call it with the
// context current, before the context is destroyed.
func ReleaseGPUObjects(root Node, dev gpu.Device) {
	NewReleaseVisitor(dev).Apply(root)
}
