// Package gpu is the engine's view of the graphics driver: an opaque Device
// plus the CPU-side objects that own GPU resources (buffer arrays, programs,
// textures) and the per-frame State that tracks what is currently bound.
//
// Nothing here knows about the scene graph. Geometry and the render stage
// drive a State; the State drives a Device.
package gpu

import (
	"errors"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// BufferTarget selects the binding point of a buffer object.
type BufferTarget uint32

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
)

// DataType is the scalar type of buffer contents.
type DataType uint32

const (
	Float DataType = iota
	UnsignedByte
	UnsignedShort
	UnsignedInt
)

// Size returns the byte size of one scalar of type t.
func (t DataType) Size() int {
	switch t {
	case UnsignedByte:
		return 1
	case UnsignedShort:
		return 2
	default:
		return 4
	}
}

// Usage is the buffer upload hint.
type Usage uint32

const (
	StaticDraw Usage = iota
	DynamicDraw
	StreamDraw
)

// PrimitiveMode is how vertices assemble into primitives.
type PrimitiveMode uint32

const (
	Points PrimitiveMode = iota
	Lines
	LineStrip
	LineLoop
	Triangles
	TriangleStrip
	TriangleFan
)

// ClearMask selects framebuffer planes for Clear.
type ClearMask uint32

const (
	ColorBufferBit ClearMask = 1 << iota
	DepthBufferBit
	StencilBufferBit
)

// ErrNoVertexArray is returned by a Device that cannot allocate a vertex
// array object, either because the capability is missing or the driver ran
// out of names.
var ErrNoVertexArray = errors.New("gpu: vertex array object unavailable")

// DefaultVertexArrayer is implemented by devices whose context has no usable
// vertex array object zero, such as OpenGL core profiles. State binds the
// returned object wherever it would otherwise unbind.
type DefaultVertexArrayer interface {
	DefaultVertexArray() uint32
}

// Device is the binding layer the engine issues GPU commands through.
// Handles are driver names; zero is never a valid object.
//
// All methods must be called from the goroutine that owns the context.
type Device interface {
	// HasVertexArrayObject reports whether vertex array objects are supported.
	HasVertexArrayObject() bool

	CreateBuffer() (uint32, error)
	BindBuffer(target BufferTarget, buffer uint32)
	BufferData(target BufferTarget, data []byte, usage Usage)
	DeleteBuffer(buffer uint32)

	CreateVertexArray() (uint32, error)
	BindVertexArray(vao uint32)
	DeleteVertexArray(vao uint32)

	EnableVertexAttribArray(location uint32)
	DisableVertexAttribArray(location uint32)
	VertexAttribPointer(location uint32, size int32, typ DataType, normalized bool, stride int32, offset int)

	CreateProgram(vertexSrc, fragmentSrc string) (uint32, error)
	UseProgram(program uint32)
	DeleteProgram(program uint32)
	AttribLocation(program uint32, name string) int32
	UniformLocation(program uint32, name string) int32
	Uniform1i(location int32, v int32)
	UniformFloats(location int32, v []float32)
	UniformMatrix4(location int32, m mgl32.Mat4)

	CreateTexture(img *image.RGBA) (uint32, error)
	BindTexture(unit uint32, texture uint32)
	DeleteTexture(texture uint32)

	Viewport(x, y, width, height int32)
	ClearColor(c mgl32.Vec4)
	Clear(mask ClearMask)

	DrawArrays(mode PrimitiveMode, first, count int32)
	DrawElements(mode PrimitiveMode, count int32, typ DataType, offset int)
}
