package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// containEpsilon is the relative slack of the sphere containment shortcut.
// Two spheres whose radii differ by less than this fraction are treated as
// one containing the other instead of being merged.
const containEpsilon = 1e-6

// BoundingSphere is a center and radius. The zero value is invalid (empty),
// which is distinct from a valid sphere of radius zero.
type BoundingSphere struct {
	center mgl32.Vec3
	radius float32
	valid  bool
}

// NewBoundingSphere returns a valid sphere.
func NewBoundingSphere(center mgl32.Vec3, radius float32) BoundingSphere {
	return BoundingSphere{center: center, radius: radius, valid: radius >= 0}
}

func (bs BoundingSphere) Valid() bool        { return bs.valid }
func (bs BoundingSphere) Center() mgl32.Vec3 { return bs.center }

// Radius returns the radius, or -1 when invalid.
func (bs BoundingSphere) Radius() float32 {
	if !bs.valid {
		return -1
	}
	return bs.radius
}

// Init makes the sphere invalid.
func (bs *BoundingSphere) Init() { *bs = BoundingSphere{} }

// ExpandByVec3 grows the sphere to include v, moving the center toward v by
// half the overshoot. An invalid sphere becomes a zero-radius sphere at v.
func (bs *BoundingSphere) ExpandByVec3(v mgl32.Vec3) {
	if !bs.valid {
		bs.center = v
		bs.radius = 0
		bs.valid = true
		return
	}
	dv := v.Sub(bs.center)
	r := dv.Len()
	if r <= bs.radius {
		return
	}
	dr := (r - bs.radius) * 0.5
	bs.center = bs.center.Add(dv.Mul(dr / r))
	bs.radius += dr
}

// ExpandBySphere grows the sphere to the minimal sphere enclosing both. An
// invalid o is ignored; an invalid receiver copies o.
func (bs *BoundingSphere) ExpandBySphere(o BoundingSphere) {
	if !o.valid {
		return
	}
	if !bs.valid {
		*bs = o
		return
	}

	d := o.center.Sub(bs.center).Len()
	slack := containEpsilon * math32.Max(bs.radius, o.radius)

	// o inside bs
	if d+o.radius <= bs.radius+slack {
		return
	}
	// bs inside o
	if d+bs.radius <= o.radius+slack {
		*bs = o
		return
	}

	newRadius := (d + bs.radius + o.radius) * 0.5
	ratio := (newRadius - bs.radius) / d
	bs.center = bs.center.Add(o.center.Sub(bs.center).Mul(ratio))
	bs.radius = newRadius
}

// ExpandByBox grows the sphere to include bb's enclosing sphere.
func (bs *BoundingSphere) ExpandByBox(bb BoundingBox) {
	if !bb.Valid() {
		return
	}
	bs.ExpandBySphere(NewBoundingSphere(bb.Center(), bb.Radius()))
}

// Contains reports whether v lies inside the sphere.
func (bs BoundingSphere) Contains(v mgl32.Vec3) bool {
	return bs.valid && v.Sub(bs.center).LenSqr() <= bs.radius*bs.radius
}

// Transform returns the sphere mapped through m. The radius is the largest
// image of the three axis radii, so non-uniform scale stays conservative.
func (bs BoundingSphere) Transform(m mgl32.Mat4) BoundingSphere {
	if !bs.valid {
		return bs
	}
	c := mgl32.TransformCoordinate(bs.center, m)
	x := mgl32.TransformCoordinate(bs.center.Add(mgl32.Vec3{bs.radius, 0, 0}), m).Sub(c).LenSqr()
	y := mgl32.TransformCoordinate(bs.center.Add(mgl32.Vec3{0, bs.radius, 0}), m).Sub(c).LenSqr()
	z := mgl32.TransformCoordinate(bs.center.Add(mgl32.Vec3{0, 0, bs.radius}), m).Sub(c).LenSqr()
	return NewBoundingSphere(c, math32.Sqrt(math32.Max(x, math32.Max(y, z))))
}

// IntersectRay returns the distance along dir (unit length) to the first
// point of the sphere, zero when origin is inside.
func (bs BoundingSphere) IntersectRay(origin, dir mgl32.Vec3) (float32, bool) {
	if !bs.valid {
		return 0, false
	}
	oc := origin.Sub(bs.center)
	b := oc.Dot(dir)
	c := oc.LenSqr() - bs.radius*bs.radius
	if c <= 0 {
		return 0, true
	}
	if b > 0 {
		return 0, false
	}
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	return -b - math32.Sqrt(disc), true
}

// BoundingBox is an axis-aligned box. Build one with NewBoundingBox; it is
// invalid until expanded. The zero value is a valid point box at the origin.
type BoundingBox struct {
	Min, Max mgl32.Vec3
}

// NewBoundingBox returns an empty (invalid) box.
func NewBoundingBox() BoundingBox {
	var bb BoundingBox
	bb.Init()
	return bb
}

// Init empties the box.
func (bb *BoundingBox) Init() {
	inf := math32.Inf(1)
	bb.Min = mgl32.Vec3{inf, inf, inf}
	bb.Max = mgl32.Vec3{-inf, -inf, -inf}
}

func (bb BoundingBox) Valid() bool {
	return bb.Max[0] >= bb.Min[0] && bb.Max[1] >= bb.Min[1] && bb.Max[2] >= bb.Min[2]
}

func (bb *BoundingBox) ExpandByVec3(v mgl32.Vec3) {
	for i := range 3 {
		if v[i] < bb.Min[i] {
			bb.Min[i] = v[i]
		}
		if v[i] > bb.Max[i] {
			bb.Max[i] = v[i]
		}
	}
}

func (bb *BoundingBox) ExpandByBox(o BoundingBox) {
	if !o.Valid() {
		return
	}
	bb.ExpandByVec3(o.Min)
	bb.ExpandByVec3(o.Max)
}

func (bb BoundingBox) Center() mgl32.Vec3 {
	return bb.Min.Add(bb.Max).Mul(0.5)
}

// Radius is half the diagonal.
func (bb BoundingBox) Radius() float32 {
	return bb.Max.Sub(bb.Min).Len() * 0.5
}

// Corner returns corner i in 0..7; bit 0 selects max x, bit 1 max y, bit 2 max z.
func (bb BoundingBox) Corner(i int) mgl32.Vec3 {
	c := bb.Min
	if i&1 != 0 {
		c[0] = bb.Max[0]
	}
	if i&2 != 0 {
		c[1] = bb.Max[1]
	}
	if i&4 != 0 {
		c[2] = bb.Max[2]
	}
	return c
}
