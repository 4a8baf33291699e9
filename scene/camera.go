package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"scenegraph/gpu"
)

// RenderOrder places a camera's subgraph relative to the enclosing stage.
type RenderOrder int

const (
	// NestedRender draws the subgraph inline in the current stage.
	NestedRender RenderOrder = iota
	// PreRender draws it in its own stage before the enclosing one.
	PreRender
	// PostRender draws it in its own stage after the enclosing one.
	PostRender
)

func (o RenderOrder) String() string {
	switch o {
	case PreRender:
		return "pre"
	case PostRender:
		return "post"
	default:
		return "nested"
	}
}

// Viewport is a window rectangle in pixels.
type Viewport struct {
	X, Y, Width, Height int32
}

// AspectRatio returns width over height, or 1 for an empty viewport.
func (vp Viewport) AspectRatio() float32 {
	if vp.Height <= 0 {
		return 1
	}
	return float32(vp.Width) / float32(vp.Height)
}

// Camera is a transform whose matrix is the view matrix, with the
// projection and framebuffer setup its subgraph renders with.
type Camera struct {
	Transform

	projection  mgl32.Mat4
	viewport    *Viewport
	clearColor  mgl32.Vec4
	clearMask   gpu.ClearMask
	renderOrder RenderOrder
	orderNum    int

	// perspective parameters kept so UpdateAspectRatio can rebuild the projection
	fovY, near, far float32
	perspective     bool
}

// NewCamera returns a camera with identity view and projection that clears
// color and depth to opaque black.
func NewCamera() *Camera {
	c := &Camera{
		projection: mgl32.Ident4(),
		clearColor: mgl32.Vec4{0, 0, 0, 1},
		clearMask:  gpu.ColorBufferBit | gpu.DepthBufferBit,
	}
	c.matrix = mgl32.Ident4()
	c.init(c)
	return c
}

func (c *Camera) ViewMatrix() mgl32.Mat4     { return c.matrix }
func (c *Camera) SetViewMatrix(m mgl32.Mat4) { c.SetMatrix(m) }

// SetLookAt sets the view matrix from an eye position, a target and up.
func (c *Camera) SetLookAt(eye, center, up mgl32.Vec3) {
	c.SetMatrix(mgl32.LookAtV(eye, center, up))
}

// Eye returns the world position of the eye.
func (c *Camera) Eye() mgl32.Vec3 {
	return mgl32.TransformCoordinate(mgl32.Vec3{}, c.matrix.Inv())
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 { return c.projection }

func (c *Camera) SetProjectionMatrix(m mgl32.Mat4) {
	c.projection = m
	c.perspective = false
}

// SetPerspective sets a perspective projection; fovY is in degrees.
func (c *Camera) SetPerspective(fovY, aspect, near, far float32) {
	c.projection = mgl32.Perspective(mgl32.DegToRad(fovY), aspect, near, far)
	c.fovY, c.near, c.far = fovY, near, far
	c.perspective = true
}

// UpdateAspectRatio rebuilds a perspective projection for a new window size.
func (c *Camera) UpdateAspectRatio(width, height float32) {
	if height > 0 && c.perspective {
		c.SetPerspective(c.fovY, width/height, c.near, c.far)
	}
}

// Viewport returns the camera viewport, or nil to inherit the enclosing one.
func (c *Camera) Viewport() *Viewport { return c.viewport }

func (c *Camera) SetViewport(vp Viewport) { c.viewport = &vp }

func (c *Camera) ClearColor() mgl32.Vec4     { return c.clearColor }
func (c *Camera) SetClearColor(v mgl32.Vec4) { c.clearColor = v }

func (c *Camera) ClearMask() gpu.ClearMask     { return c.clearMask }
func (c *Camera) SetClearMask(m gpu.ClearMask) { c.clearMask = m }

// RenderOrder returns the order and its number; lower numbers draw first
// among stages of the same order.
func (c *Camera) RenderOrder() (RenderOrder, int) { return c.renderOrder, c.orderNum }

func (c *Camera) SetRenderOrder(o RenderOrder, num int) {
	c.renderOrder = o
	c.orderNum = num
}
