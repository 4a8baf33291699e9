package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"scenegraph/gpu"
)

var (
	gridGray = mgl32.Vec4{0.35, 0.35, 0.35, 1}
	gridRed  = mgl32.Vec4{0.8, 0.15, 0.15, 1} // X axis
	gridBlue = mgl32.Vec4{0.15, 0.35, 0.9, 1} // Z axis
)

// CreateGrid builds a flat grid on the y=0 plane drawn as line segments.
//
// size is the total extent (-size/2 to +size/2) and divisions the number of
// cells along each axis. The line through the origin along X is red, the one
// along Z blue, and every other line gray. Colors are carried in the Color
// attribute.
func CreateGrid(size float32, divisions int) *Geometry {
	if divisions < 1 {
		divisions = 1
	}
	half := size / 2
	step := size / float32(divisions)

	var positions, normals, colors []float32
	addLine := func(a, b mgl32.Vec3, c mgl32.Vec4) {
		for _, p := range [2]mgl32.Vec3{a, b} {
			positions = append(positions, p[0], p[1], p[2])
			normals = append(normals, 0, 1, 0)
			colors = append(colors, c[0], c[1], c[2], c[3])
		}
	}

	// lines parallel to Z
	for i := 0; i <= divisions; i++ {
		x := -half + float32(i)*step
		c := gridGray
		if 2*i == divisions {
			c = gridBlue
		}
		addLine(mgl32.Vec3{x, 0, -half}, mgl32.Vec3{x, 0, half}, c)
	}
	// lines parallel to X
	for i := 0; i <= divisions; i++ {
		z := -half + float32(i)*step
		c := gridGray
		if 2*i == divisions {
			c = gridRed
		}
		addLine(mgl32.Vec3{-half, 0, z}, mgl32.Vec3{half, 0, z}, c)
	}

	g := NewGeometry()
	g.SetName("Grid")
	g.SetVertexAttribArray(VertexAttribute, gpu.NewFloatArray(positions, 3))
	g.SetVertexAttribArray(NormalAttribute, gpu.NewFloatArray(normals, 3))
	g.SetVertexAttribArray(ColorAttribute, gpu.NewFloatArray(colors, 4))
	g.AddPrimitiveSet(gpu.NewDrawArrays(gpu.Lines, 0, int32(len(positions)/3)))
	return g
}
