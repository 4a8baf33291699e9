package scene

import "github.com/go-gl/mathgl/mgl32"

// Plane represents a half-space: ax + by + cz + d = 0
// Normal (a, b, c) points into the "inside" of the frustum.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// DistanceTo returns the signed distance from a point to the plane.
// Positive means on the "inside" (same side as Normal).
func (p Plane) DistanceTo(pt mgl32.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Frustum holds the six clip planes of a view frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumFromMatrix extracts the six planes of m, usually projection times
// model-view. Planes are normalized so DistanceTo returns a true distance in
// the space m maps from.
//
// mgl32 matrices are column-major and multiply column vectors, so the rows
// Gribb/Hartmann extraction needs come straight from Mat4.Row.
func FrustumFromMatrix(m mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)

	var f Frustum
	f.Planes[0] = normalizePlane(r3.Add(r0)) // left
	f.Planes[1] = normalizePlane(r3.Sub(r0)) // right
	f.Planes[2] = normalizePlane(r3.Add(r1)) // bottom
	f.Planes[3] = normalizePlane(r3.Sub(r1)) // top
	f.Planes[4] = normalizePlane(r3.Add(r2)) // near
	f.Planes[5] = normalizePlane(r3.Sub(r2)) // far
	return f
}

func normalizePlane(v mgl32.Vec4) Plane {
	n := v.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Mul(1 / l), D: v[3] / l}
}

// ContainsSphere returns false if bs lies completely outside the frustum.
// Invalid spheres are never culled.
func (f *Frustum) ContainsSphere(bs BoundingSphere) bool {
	if !bs.Valid() {
		return true
	}
	c, r := bs.Center(), bs.Radius()
	for i := range f.Planes {
		if f.Planes[i].DistanceTo(c) < -r {
			return false
		}
	}
	return true
}

// IntersectsBox returns false if box is completely outside the frustum.
// Uses the "n-vertex" test: for each plane, check if the "positive vertex"
// (the corner most aligned with the plane normal) is on the outside.
func (f *Frustum) IntersectsBox(box BoundingBox) bool {
	if !box.Valid() {
		return true
	}
	for i := range f.Planes {
		p := f.Planes[i]
		pv := box.Max
		for axis := range 3 {
			if p.Normal[axis] < 0 {
				pv[axis] = box.Min[axis]
			}
		}
		if p.DistanceTo(pv) < 0 {
			return false
		}
	}
	return true
}

// TransformBox returns the axis-aligned box enclosing the eight corners of
// local mapped through m.
func TransformBox(local BoundingBox, m mgl32.Mat4) BoundingBox {
	if !local.Valid() {
		return local
	}
	out := NewBoundingBox()
	for i := range 8 {
		out.ExpandByVec3(mgl32.TransformCoordinate(local.Corner(i), m))
	}
	return out
}
