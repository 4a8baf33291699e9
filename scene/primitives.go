package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"scenegraph/gpu"
)

// meshBuilder accumulates interleaved-by-attribute vertex data.
type meshBuilder struct {
	positions []float32
	normals   []float32
	uvs       []float32
	indices   []uint16
}

func (b *meshBuilder) vertex(p, n mgl32.Vec3, u, v float32) uint16 {
	i := uint16(len(b.positions) / 3)
	b.positions = append(b.positions, p[0], p[1], p[2])
	b.normals = append(b.normals, n[0], n[1], n[2])
	b.uvs = append(b.uvs, u, v)
	return i
}

func (b *meshBuilder) geometry(name string) *Geometry {
	g := NewGeometry()
	g.SetName(name)
	g.SetVertexAttribArray(VertexAttribute, gpu.NewFloatArray(b.positions, 3))
	g.SetVertexAttribArray(NormalAttribute, gpu.NewFloatArray(b.normals, 3))
	g.SetVertexAttribArray(TexCoord0Attribute, gpu.NewFloatArray(b.uvs, 2))
	g.AddPrimitiveSet(gpu.NewDrawElements(gpu.Triangles, gpu.NewUint16IndexArray(b.indices)))
	return g
}

// CreateTexturedQuad builds a quad spanning corner, corner+width and
// corner+height, with texture coordinates from (l,b) to (r,t).
func CreateTexturedQuad(corner, width, height mgl32.Vec3, l, b, r, t float32) *Geometry {
	n := width.Cross(height).Normalize()
	var mb meshBuilder
	mb.vertex(corner.Add(height), n, l, t)
	mb.vertex(corner, n, l, b)
	mb.vertex(corner.Add(width), n, r, b)
	mb.vertex(corner.Add(width).Add(height), n, r, t)
	mb.indices = []uint16{0, 1, 2, 0, 2, 3}
	return mb.geometry("Quad")
}

// CreateBox builds a box centred on center with the given edge lengths and
// one quad per face.
func CreateBox(center mgl32.Vec3, sx, sy, sz float32) *Geometry {
	h := mgl32.Vec3{sx / 2, sy / 2, sz / 2}
	faces := [6]struct{ n, u, v mgl32.Vec3 }{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},   // front
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}}, // back
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},  // right
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},  // left
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},  // top
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},  // bottom
	}
	scale := func(v mgl32.Vec3) mgl32.Vec3 { return mgl32.Vec3{v[0] * h[0], v[1] * h[1], v[2] * h[2]} }

	var mb meshBuilder
	for _, f := range faces {
		c := center.Add(scale(f.n))
		u, v := scale(f.u), scale(f.v)
		i0 := mb.vertex(c.Sub(u).Sub(v), f.n, 0, 0)
		i1 := mb.vertex(c.Add(u).Sub(v), f.n, 1, 0)
		i2 := mb.vertex(c.Add(u).Add(v), f.n, 1, 1)
		i3 := mb.vertex(c.Sub(u).Add(v), f.n, 0, 1)
		mb.indices = append(mb.indices, i0, i1, i2, i0, i2, i3)
	}
	return mb.geometry("Box")
}

// CreateSphere generates a UV-sphere
func CreateSphere(radius float32, segments, rings int) *Geometry {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}

	var mb meshBuilder
	for ring := 0; ring <= rings; ring++ {
		phi := float32(ring) * math32.Pi / float32(rings)
		sinPhi, cosPhi := math32.Sincos(phi)

		for seg := 0; seg <= segments; seg++ {
			theta := float32(seg) * 2 * math32.Pi / float32(segments)
			sinTheta, cosTheta := math32.Sincos(theta)

			normal := mgl32.Vec3{sinPhi * cosTheta, cosPhi, sinPhi * sinTheta}
			mb.vertex(normal.Mul(radius), normal, float32(seg)/float32(segments), float32(ring)/float32(rings))
		}
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := uint16(ring*(segments+1) + seg)
			next := current + uint16(segments+1)

			mb.indices = append(mb.indices, current, next, current+1)
			mb.indices = append(mb.indices, current+1, next, next+1)
		}
	}
	return mb.geometry("Sphere")
}
