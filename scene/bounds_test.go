package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-4

func assertVec3Near(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], tolerance, "component %d of %v", i, got)
	}
}

func sphereFromPoints(pts ...mgl32.Vec3) BoundingSphere {
	var bs BoundingSphere
	for _, p := range pts {
		bs.ExpandByVec3(p)
	}
	return bs
}

func TestBoundingSphereZeroValueIsInvalid(t *testing.T) {
	var bs BoundingSphere
	assert.False(t, bs.Valid())
	assert.Equal(t, float32(-1), bs.Radius())

	bs.ExpandByVec3(mgl32.Vec3{1, 2, 3})
	assert.True(t, bs.Valid(), "zero radius is valid")
	assert.Zero(t, bs.Radius())
	assertVec3Near(t, mgl32.Vec3{1, 2, 3}, bs.Center())

	bs.Init()
	assert.False(t, bs.Valid())
}

func TestBoundingSphereExpandByVec3(t *testing.T) {
	bs0 := sphereFromPoints(
		mgl32.Vec3{1, 4, 0}, mgl32.Vec3{2, 3, 0}, mgl32.Vec3{3, 2, 0}, mgl32.Vec3{4, 1, 0})
	assertVec3Near(t, mgl32.Vec3{2.5, 2.5, 0}, bs0.Center())
	assert.InDelta(t, 2.12132, bs0.Radius(), tolerance)

	bs1 := sphereFromPoints(
		mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{2, -3, 2}, mgl32.Vec3{3, 3, 1}, mgl32.Vec3{5, 5, 0})
	assertVec3Near(t, mgl32.Vec3{2.00438, 0.862774, 0.784302}, bs1.Center())
	assert.InDelta(t, 5.16774, bs1.Radius(), tolerance)

	// expanding by spheres reproduces the same results
	var merged BoundingSphere
	merged.ExpandBySphere(bs0)
	assertVec3Near(t, bs0.Center(), merged.Center())
	assert.InDelta(t, bs0.Radius(), merged.Radius(), tolerance)

	merged.ExpandBySphere(bs1)
	assertVec3Near(t, bs1.Center(), merged.Center())
	assert.InDelta(t, bs1.Radius(), merged.Radius(), tolerance)
}

func TestBoundingSphereContainsExpandedPoints(t *testing.T) {
	pts := []mgl32.Vec3{{-3, 1, 7}, {0, 0, 0}, {12, -4, 2}, {5, 5, 5}, {-8, -8, 1}}
	bs := sphereFromPoints(pts...)
	for _, p := range pts {
		d := p.Sub(bs.Center()).Len()
		assert.LessOrEqual(t, d, bs.Radius()*(1+1e-5), "point %v", p)
	}
}

func TestBoundingSphereMergeInvalidIsIdentity(t *testing.T) {
	a := NewBoundingSphere(mgl32.Vec3{1, 2, 3}, 4)
	a.ExpandBySphere(BoundingSphere{})
	assert.Equal(t, NewBoundingSphere(mgl32.Vec3{1, 2, 3}, 4), a)

	var b BoundingSphere
	b.ExpandBySphere(NewBoundingSphere(mgl32.Vec3{1, 2, 3}, 4))
	assert.Equal(t, NewBoundingSphere(mgl32.Vec3{1, 2, 3}, 4), b)
}

func TestBoundingSphereMergeCommutative(t *testing.T) {
	a := NewBoundingSphere(mgl32.Vec3{0, 0, 0}, 1)
	b := NewBoundingSphere(mgl32.Vec3{4, 3, 0}, 2)

	ab := a
	ab.ExpandBySphere(b)
	ba := b
	ba.ExpandBySphere(a)

	assertVec3Near(t, ab.Center(), ba.Center())
	assert.InDelta(t, ab.Radius(), ba.Radius(), tolerance)
	assert.InDelta(t, 4, ab.Radius(), tolerance) // (5 + 1 + 2) / 2
}

func TestBoundingSphereMergeAssociative(t *testing.T) {
	a := NewBoundingSphere(mgl32.Vec3{0, 0, 0}, 1)
	b := NewBoundingSphere(mgl32.Vec3{5, 0, 0}, 1)
	c := NewBoundingSphere(mgl32.Vec3{-3, 0, 0}, 2)

	left := a
	left.ExpandBySphere(b)
	left.ExpandBySphere(c)

	bc := b
	bc.ExpandBySphere(c)
	right := a
	right.ExpandBySphere(bc)

	assertVec3Near(t, left.Center(), right.Center())
	assert.InDelta(t, left.Radius(), right.Radius(), tolerance)
	assert.InDelta(t, 5.5, left.Radius(), tolerance)
}

func TestBoundingSphereMergeContainment(t *testing.T) {
	big := NewBoundingSphere(mgl32.Vec3{0, 0, 0}, 10)
	small := NewBoundingSphere(mgl32.Vec3{1, 1, 1}, 1)

	got := big
	got.ExpandBySphere(small)
	assert.Equal(t, big, got)

	got = small
	got.ExpandBySphere(big)
	assert.Equal(t, big, got)

	// nearly identical spheres do not drift
	twin := NewBoundingSphere(mgl32.Vec3{0, 0, 0}, 10*(1+1e-7))
	got = big
	got.ExpandBySphere(twin)
	assert.Equal(t, big, got)
}

func TestBoundingSphereTransform(t *testing.T) {
	bs := NewBoundingSphere(mgl32.Vec3{1, 0, 0}, 2)

	moved := bs.Transform(mgl32.Translate3D(100, 0, 0))
	assertVec3Near(t, mgl32.Vec3{101, 0, 0}, moved.Center())
	assert.InDelta(t, 2, moved.Radius(), tolerance)

	scaled := bs.Transform(mgl32.Scale3D(1, 3, 1))
	assert.InDelta(t, 6, scaled.Radius(), tolerance, "largest axis wins")

	assert.False(t, BoundingSphere{}.Transform(mgl32.Translate3D(1, 1, 1)).Valid())
}

func TestBoundingSphereIntersectRay(t *testing.T) {
	bs := NewBoundingSphere(mgl32.Vec3{0, 0, -10}, 2)

	d, hit := bs.IntersectRay(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})
	assert.True(t, hit)
	assert.InDelta(t, 8, d, tolerance)

	_, hit = bs.IntersectRay(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1})
	assert.False(t, hit, "sphere behind the ray")

	_, hit = bs.IntersectRay(mgl32.Vec3{5, 0, 0}, mgl32.Vec3{0, 0, -1})
	assert.False(t, hit)
}

func TestBoundingBoxExpand(t *testing.T) {
	bb := NewBoundingBox()
	assert.False(t, bb.Valid())

	bb.ExpandByVec3(mgl32.Vec3{-.5, 0, -2})
	bb.ExpandByVec3(mgl32.Vec3{1, 0, -1})
	bb.ExpandByVec3(mgl32.Vec3{0, 1, -.5})
	bb.ExpandByVec3(mgl32.Vec3{1, 2, -.8})

	assert.Equal(t, mgl32.Vec3{-.5, 0, -2}, bb.Min)
	assert.Equal(t, mgl32.Vec3{1, 2, -.5}, bb.Max)
	assert.True(t, bb.Valid())

	other := NewBoundingBox()
	other.ExpandByVec3(mgl32.Vec3{3, 3, 3})
	bb.ExpandByBox(other)
	assert.Equal(t, mgl32.Vec3{3, 3, 3}, bb.Max)

	bb.ExpandByBox(NewBoundingBox())
	assert.Equal(t, mgl32.Vec3{3, 3, 3}, bb.Max, "invalid box is ignored")
}

func TestBoundingBoxSphere(t *testing.T) {
	bb := NewBoundingBox()
	bb.ExpandByVec3(mgl32.Vec3{-1, -1, -1})
	bb.ExpandByVec3(mgl32.Vec3{1, 1, 1})

	var bs BoundingSphere
	bs.ExpandByBox(bb)
	assertVec3Near(t, mgl32.Vec3{}, bs.Center())
	assert.InDelta(t, 1.7320508, bs.Radius(), tolerance)

	assert.Equal(t, mgl32.Vec3{1, -1, 1}, bb.Corner(5))
}

func TestFrustumCulling(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	f := FrustumFromMatrix(proj.Mul4(view))

	assert.True(t, f.ContainsSphere(NewBoundingSphere(mgl32.Vec3{}, 1)))
	assert.False(t, f.ContainsSphere(NewBoundingSphere(mgl32.Vec3{0, 0, 20}, 1)), "behind the eye")
	assert.False(t, f.ContainsSphere(NewBoundingSphere(mgl32.Vec3{100, 0, 0}, 1)), "far to the right")
	assert.True(t, f.ContainsSphere(NewBoundingSphere(mgl32.Vec3{0, 0, 20}, 15)), "straddles the near plane")
	assert.True(t, f.ContainsSphere(BoundingSphere{}), "invalid bounds are never culled")

	box := NewBoundingBox()
	box.ExpandByVec3(mgl32.Vec3{-1, -1, -1})
	box.ExpandByVec3(mgl32.Vec3{1, 1, 1})
	assert.True(t, f.IntersectsBox(box))
	assert.False(t, f.IntersectsBox(TransformBox(box, mgl32.Translate3D(0, 0, 50))))
}
