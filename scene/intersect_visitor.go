package scene

import (
	"slices"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"scenegraph/gpu"
)

// Ray represents a ray in 3D space
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// At returns the point at distance t.
func (r Ray) At(t float32) mgl32.Vec3 { return r.Origin.Add(r.Direction.Mul(t)) }

// ScreenToRay converts a window position (origin top-left) to a world ray
// through a camera with the given view and projection.
func ScreenToRay(mouseX, mouseY, screenWidth, screenHeight float32, view, projection mgl32.Mat4) Ray {
	// normalized device coordinates, y flipped
	ndcX := (2.0*mouseX)/screenWidth - 1.0
	ndcY := 1.0 - (2.0*mouseY)/screenHeight

	inv := projection.Mul4(view).Inv()
	near := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
	n := near.Vec3().Mul(1 / near[3])
	f := far.Vec3().Mul(1 / far[3])

	return Ray{Origin: n, Direction: f.Sub(n).Normalize()}
}

// Hit is one geometry the ray passes through.
type Hit struct {
	Geometry *Geometry
	NodePath []Node
	Distance float32
	Point    mgl32.Vec3
	Normal   mgl32.Vec3
	FaceIdx  int // triangle index, -1 when only the box was hit
}

// IntersectVisitor picks geometries along a world-space ray. Subtrees whose
// bound the ray misses are skipped.
type IntersectVisitor struct {
	NodeVisitor
	ray      Ray
	matrices []mgl32.Mat4
	hits     []Hit
}

func NewIntersectVisitor(ray Ray) *IntersectVisitor {
	ray.Direction = ray.Direction.Normalize()
	return &IntersectVisitor{ray: ray, matrices: []mgl32.Mat4{mgl32.Ident4()}}
}

// Hits returns the hits sorted nearest first.
func (iv *IntersectVisitor) Hits() []Hit {
	slices.SortStableFunc(iv.hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	return iv.hits
}

type localToWorlder interface {
	ComputeLocalToWorld(parent mgl32.Mat4) mgl32.Mat4
	ReferenceFrame() ReferenceFrame
}

func (iv *IntersectVisitor) Apply(n Node) {
	nb := n.AsNode()
	parent := iv.matrices[len(iv.matrices)-1]

	boundSpace := parent
	if rf, ok := n.(referenceFramer); ok && rf.ReferenceFrame() == AbsoluteRF {
		boundSpace = mgl32.Ident4()
	}
	if _, hit := nb.Bound().Transform(boundSpace).IntersectRay(iv.ray.Origin, iv.ray.Direction); !hit {
		return
	}

	if g, ok := n.(*Geometry); ok {
		iv.intersectGeometry(g, parent)
	}

	if t, ok := n.(localToWorlder); ok {
		iv.matrices = append(iv.matrices, t.ComputeLocalToWorld(parent))
		nb.Traverse(iv)
		iv.matrices = iv.matrices[:len(iv.matrices)-1]
		return
	}
	nb.Traverse(iv)
}

func (iv *IntersectVisitor) intersectGeometry(g *Geometry, world mgl32.Mat4) {
	// broad phase
	t, hit := rayBoxIntersect(iv.ray, TransformBox(g.BoundingBox(), world))
	if !hit {
		return
	}
	h := Hit{
		Geometry: g,
		NodePath: slices.Clone(iv.NodePath()),
		Distance: t,
		Point:    iv.ray.At(t),
		FaceIdx:  -1,
	}

	// narrow phase
	tris := triangles(g)
	if tris == nil {
		iv.hits = append(iv.hits, h)
		return
	}
	v := g.VertexAttribArray(VertexAttribute).BufferArray()
	pos, stride := v.Float32s(), int(v.ItemSize())
	vertex := func(i uint32) mgl32.Vec3 {
		o := int(i) * stride
		return mgl32.TransformCoordinate(mgl32.Vec3{pos[o], pos[o+1], pos[o+2]}, world)
	}
	best := float32(math32.MaxFloat32)
	for i := 0; i+2 < len(tris); i += 3 {
		v0, v1, v2 := vertex(tris[i]), vertex(tris[i+1]), vertex(tris[i+2])
		d, ok := mollerTrumbore(iv.ray, v0, v1, v2)
		if ok && d > 0 && d < best {
			best = d
			h.Distance = d
			h.Point = iv.ray.At(d)
			h.Normal = v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
			h.FaceIdx = i / 3
		}
	}
	if h.FaceIdx >= 0 {
		iv.hits = append(iv.hits, h)
	}
}

// triangles returns the vertex indices of g's triangle-list primitives, or
// nil when g has none or its vertices are not 3D floats.
func triangles(g *Geometry) []uint32 {
	src := g.VertexAttribArray(VertexAttribute)
	if src == nil {
		return nil
	}
	v := src.BufferArray()
	if v == nil || v.ItemSize() < 3 || v.Float32s() == nil {
		return nil
	}
	nverts := uint32(v.NumItems())
	var out []uint32
	for _, p := range g.PrimitiveSetList() {
		if p.Mode() != gpu.Triangles {
			continue
		}
		switch p := p.(type) {
		case *gpu.DrawArrays:
			for i := p.First; i < p.First+p.Count && uint32(i) < nverts; i++ {
				out = append(out, uint32(i))
			}
		case *gpu.DrawElements:
			idx := p.Indices()
			if idx == nil {
				continue
			}
			for i := range idx.NumElements() {
				if x := idx.Index(i); x < nverts {
					out = append(out, x)
				}
			}
		}
	}
	return out
}

// rayBoxIntersect tests ray-AABB intersection (slab method).
func rayBoxIntersect(ray Ray, box BoundingBox) (float32, bool) {
	if !box.Valid() {
		return 0, false
	}
	var tmin, tmax float32 = -math32.MaxFloat32, math32.MaxFloat32
	for axis := range 3 {
		inv := 1 / ray.Direction[axis]
		t1 := (box.Min[axis] - ray.Origin[axis]) * inv
		t2 := (box.Max[axis] - ray.Origin[axis]) * inv
		tmin = math32.Max(tmin, math32.Min(t1, t2))
		tmax = math32.Min(tmax, math32.Max(t1, t2))
	}
	if tmax < 0 || tmin > tmax {
		return 0, false
	}
	return math32.Max(tmin, 0), true
}

// mollerTrumbore implements the Möller–Trumbore ray-triangle intersection algorithm
func mollerTrumbore(ray Ray, v0, v1, v2 mgl32.Vec3) (float32, bool) {
	const epsilon = 0.0000001

	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)

	if a > -epsilon && a < epsilon {
		return 0, false // parallel
	}

	f := 1.0 / a
	s := ray.Origin.Sub(v0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return 0, false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return 0, false
	}

	return f * edge2.Dot(q), true
}

// Intersect returns the geometries under root hit by ray, nearest first.
func Intersect(root Node, ray Ray) []Hit {
	iv := NewIntersectVisitor(ray)
	root.AsNode().Accept(iv)
	return iv.Hits()
}
