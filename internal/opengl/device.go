// Package opengl implements gpu.Device on an OpenGL 4.1 core context.
package opengl

import (
	"fmt"
	"image"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"scenegraph/gpu"
	"scenegraph/internal/logger"
)

// Device issues gpu commands to the current OpenGL context.
type Device struct {
	version    string
	wireframe  bool
	defaultVAO uint32
}

// NewDevice loads the GL entry points and sets the fixed pipeline state the
// engine assumes: depth testing and alpha blending. Core profiles reject
// attribute setup and draws on vertex array object zero, so a default object
// is created and bound for the non-VAO draw path.
// Must be called after the GLFW window context is made current.
func NewDevice() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	d := &Device{version: gl.GoStr(gl.GetString(gl.VERSION))}
	logger.Log.Info("opengl: context ready",
		zap.String("version", d.version),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	gl.GenVertexArrays(1, &d.defaultVAO)
	if d.defaultVAO == 0 {
		return nil, fmt.Errorf("opengl: default vertex array: %w", gpu.ErrNoVertexArray)
	}
	gl.BindVertexArray(d.defaultVAO)
	return d, nil
}

// Version is the driver's GL_VERSION string.
func (d *Device) Version() string { return d.version }

// SetWireframe toggles wireframe rasterisation.
func (d *Device) SetWireframe(enabled bool) {
	d.wireframe = enabled
	if enabled {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
}

// Wireframe returns whether wireframe mode is active.
func (d *Device) Wireframe() bool { return d.wireframe }

// Core profiles always have vertex array objects.
func (d *Device) HasVertexArrayObject() bool { return true }

// ── Buffers ───────────────────────────────────────────────────────────────────

func (d *Device) CreateBuffer() (uint32, error) {
	var b uint32
	gl.GenBuffers(1, &b)
	if b == 0 {
		return 0, fmt.Errorf("opengl: glGenBuffers returned 0 (error 0x%x)", gl.GetError())
	}
	return b, nil
}

func (d *Device) BindBuffer(target gpu.BufferTarget, buffer uint32) {
	gl.BindBuffer(bufferTarget(target), buffer)
}

func (d *Device) BufferData(target gpu.BufferTarget, data []byte, usage gpu.Usage) {
	if len(data) == 0 {
		gl.BufferData(bufferTarget(target), 0, nil, bufferUsage(usage))
		return
	}
	gl.BufferData(bufferTarget(target), len(data), gl.Ptr(data), bufferUsage(usage))
}

func (d *Device) DeleteBuffer(buffer uint32) { gl.DeleteBuffers(1, &buffer) }

// ── Vertex arrays ─────────────────────────────────────────────────────────────

func (d *Device) CreateVertexArray() (uint32, error) {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	if vao == 0 {
		return 0, gpu.ErrNoVertexArray
	}
	return vao, nil
}

// DefaultVertexArray is the object bound in place of zero.
func (d *Device) DefaultVertexArray() uint32 { return d.defaultVAO }

func (d *Device) BindVertexArray(vao uint32) {
	if vao == 0 {
		vao = d.defaultVAO
	}
	gl.BindVertexArray(vao)
}

func (d *Device) DeleteVertexArray(vao uint32) {
	if vao == d.defaultVAO {
		return
	}
	gl.DeleteVertexArrays(1, &vao)
}

func (d *Device) EnableVertexAttribArray(location uint32)  { gl.EnableVertexAttribArray(location) }
func (d *Device) DisableVertexAttribArray(location uint32) { gl.DisableVertexAttribArray(location) }

func (d *Device) VertexAttribPointer(location uint32, size int32, typ gpu.DataType, normalized bool, stride int32, offset int) {
	gl.VertexAttribPointer(location, size, dataType(typ), normalized, stride, gl.PtrOffset(offset))
}

// ── Programs ──────────────────────────────────────────────────────────────────

func (d *Device) CreateProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	return newProgram(vertexSrc, fragmentSrc)
}

func (d *Device) UseProgram(program uint32)    { gl.UseProgram(program) }
func (d *Device) DeleteProgram(program uint32) { gl.DeleteProgram(program) }

func (d *Device) AttribLocation(program uint32, name string) int32 {
	return gl.GetAttribLocation(program, gl.Str(cstr(name)))
}

func (d *Device) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(cstr(name)))
}

func (d *Device) Uniform1i(location int32, v int32) { gl.Uniform1i(location, v) }

// UniformFloats uploads v as a float, vec2, vec3, vec4 or mat4 by length.
// Other lengths upload a float array.
func (d *Device) UniformFloats(location int32, v []float32) {
	if len(v) == 0 {
		return
	}
	switch len(v) {
	case 2:
		gl.Uniform2fv(location, 1, &v[0])
	case 3:
		gl.Uniform3fv(location, 1, &v[0])
	case 4:
		gl.Uniform4fv(location, 1, &v[0])
	case 16:
		gl.UniformMatrix4fv(location, 1, false, &v[0])
	default:
		gl.Uniform1fv(location, int32(len(v)), &v[0])
	}
}

func (d *Device) UniformMatrix4(location int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

// ── Textures ──────────────────────────────────────────────────────────────────

func (d *Device) CreateTexture(img *image.RGBA) (uint32, error) { return uploadTexture(img) }

func (d *Device) BindTexture(unit uint32, texture uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, texture)
}

func (d *Device) DeleteTexture(texture uint32) { gl.DeleteTextures(1, &texture) }

// ── Framebuffer ───────────────────────────────────────────────────────────────

func (d *Device) Viewport(x, y, width, height int32) { gl.Viewport(x, y, width, height) }

func (d *Device) ClearColor(c mgl32.Vec4) { gl.ClearColor(c[0], c[1], c[2], c[3]) }

func (d *Device) Clear(mask gpu.ClearMask) {
	var bits uint32
	if mask&gpu.ColorBufferBit != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&gpu.DepthBufferBit != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	if mask&gpu.StencilBufferBit != 0 {
		bits |= gl.STENCIL_BUFFER_BIT
	}
	gl.Clear(bits)
}

// ── Draw ──────────────────────────────────────────────────────────────────────

func (d *Device) DrawArrays(mode gpu.PrimitiveMode, first, count int32) {
	gl.DrawArrays(primitiveMode(mode), first, count)
}

func (d *Device) DrawElements(mode gpu.PrimitiveMode, count int32, typ gpu.DataType, offset int) {
	gl.DrawElements(primitiveMode(mode), count, dataType(typ), gl.PtrOffset(offset))
}

var (
	_ gpu.Device               = (*Device)(nil)
	_ gpu.DefaultVertexArrayer = (*Device)(nil)
)
