package scene

import "github.com/go-gl/mathgl/mgl32"

// ReferenceFrame says whether a transform composes with its parents.
type ReferenceFrame int

const (
	// RelativeRF multiplies the parent's matrix by the local one.
	RelativeRF ReferenceFrame = iota
	// AbsoluteRF replaces the accumulated matrix. Absolute subtrees are left
	// out of their parent's bound.
	AbsoluteRF
)

// Transform is a node positioning its children with a matrix.
type Transform struct {
	NodeBase
	matrix         mgl32.Mat4
	referenceFrame ReferenceFrame
}

// NewTransform returns an identity transform.
func NewTransform() *Transform {
	t := &Transform{matrix: mgl32.Ident4()}
	t.init(t)
	return t
}

func (t *Transform) Matrix() mgl32.Mat4 { return t.matrix }

// SetMatrix replaces the local matrix and dirties the bound.
func (t *Transform) SetMatrix(m mgl32.Mat4) {
	t.matrix = m
	t.DirtyBound()
}

func (t *Transform) ReferenceFrame() ReferenceFrame { return t.referenceFrame }

func (t *Transform) SetReferenceFrame(rf ReferenceFrame) {
	if t.referenceFrame == rf {
		return
	}
	t.referenceFrame = rf
	// the parent's aggregation depends on the frame
	t.DirtyBound()
	for _, p := range t.Parents() {
		p.AsNode().DirtyBound()
	}
}

// ComputeLocalToWorld composes the local matrix onto parent.
func (t *Transform) ComputeLocalToWorld(parent mgl32.Mat4) mgl32.Mat4 {
	if t.referenceFrame == AbsoluteRF {
		return t.matrix
	}
	return parent.Mul4(t.matrix)
}

// ComputeBound returns the children's bound mapped through the matrix.
func (t *Transform) ComputeBound() BoundingSphere {
	return t.NodeBase.ComputeBound().Transform(t.matrix)
}
