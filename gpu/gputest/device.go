// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"scenegraph/gpu"
)

// Call is one recorded device command.
type Call struct {
	Name string
	Args []any
}

func (c Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = fmt.Sprint(a)
	}
	return c.Name + "(" + strings.Join(parts, ",") + ")"
}

// Device records every call and hands out increasing handles. Programs
// report attribute locations from Attribs (missing names are inactive) and
// uniform locations from Uniforms.
type Device struct {
	VAOSupported bool
	FailVAO      bool
	DefaultVAO   uint32
	FailProgram  error
	Attribs      map[string]int32
	Uniforms     map[string]int32

	Calls []Call

	next      uint32
	LiveVAOs  map[uint32]bool
	LiveBufs  map[uint32]bool
	LiveProgs map[uint32]bool
	LiveTex   map[uint32]bool
}

// NewDevice returns a device supporting vertex array objects, with the
// usual attribute locations bound.
func NewDevice() *Device {
	return &Device{
		VAOSupported: true,
		Attribs: map[string]int32{
			"Vertex":    0,
			"Normal":    1,
			"TexCoord0": 2,
			"Color":     3,
		},
		Uniforms: map[string]int32{
			gpu.ModelViewMatrixUniform:   0,
			gpu.ProjectionMatrixUniform:  1,
			gpu.ArrayColorEnabledUniform: 2,
		},
		LiveVAOs:  make(map[uint32]bool),
		LiveBufs:  make(map[uint32]bool),
		LiveProgs: make(map[uint32]bool),
		LiveTex:   make(map[uint32]bool),
	}
}

func (d *Device) record(name string, args ...any) {
	d.Calls = append(d.Calls, Call{Name: name, Args: args})
}

func (d *Device) handle() uint32 {
	d.next++
	return d.next
}

// Count returns how many calls named name were recorded.
func (d *Device) Count(name string) int {
	n := 0
	for _, c := range d.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Named returns the recorded calls named name, in order.
func (d *Device) Named(name string) []Call {
	var out []Call
	for _, c := range d.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls but keeps live objects.
func (d *Device) Reset() { d.Calls = nil }

func (d *Device) HasVertexArrayObject() bool { return d.VAOSupported }

func (d *Device) CreateBuffer() (uint32, error) {
	h := d.handle()
	d.LiveBufs[h] = true
	d.record("CreateBuffer", h)
	return h, nil
}

func (d *Device) BindBuffer(target gpu.BufferTarget, buffer uint32) {
	d.record("BindBuffer", target, buffer)
}

func (d *Device) BufferData(target gpu.BufferTarget, data []byte, usage gpu.Usage) {
	d.record("BufferData", target, len(data))
}

func (d *Device) DeleteBuffer(buffer uint32) {
	delete(d.LiveBufs, buffer)
	d.record("DeleteBuffer", buffer)
}

func (d *Device) CreateVertexArray() (uint32, error) {
	if !d.VAOSupported || d.FailVAO {
		d.record("CreateVertexArray", 0)
		return 0, gpu.ErrNoVertexArray
	}
	h := d.handle()
	d.LiveVAOs[h] = true
	d.record("CreateVertexArray", h)
	return h, nil
}

func (d *Device) BindVertexArray(vao uint32) { d.record("BindVertexArray", vao) }

// DefaultVertexArray returns DefaultVAO; zero behaves like a compatibility
// context.
func (d *Device) DefaultVertexArray() uint32 { return d.DefaultVAO }

func (d *Device) DeleteVertexArray(vao uint32) {
	delete(d.LiveVAOs, vao)
	d.record("DeleteVertexArray", vao)
}

func (d *Device) EnableVertexAttribArray(location uint32) {
	d.record("EnableVertexAttribArray", location)
}

func (d *Device) DisableVertexAttribArray(location uint32) {
	d.record("DisableVertexAttribArray", location)
}

func (d *Device) VertexAttribPointer(location uint32, size int32, typ gpu.DataType, normalized bool, stride int32, offset int) {
	d.record("VertexAttribPointer", location, size)
}

func (d *Device) CreateProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	if d.FailProgram != nil {
		return 0, d.FailProgram
	}
	h := d.handle()
	d.LiveProgs[h] = true
	d.record("CreateProgram", h)
	return h, nil
}

func (d *Device) UseProgram(program uint32) { d.record("UseProgram", program) }

func (d *Device) DeleteProgram(program uint32) {
	delete(d.LiveProgs, program)
	d.record("DeleteProgram", program)
}

func (d *Device) AttribLocation(program uint32, name string) int32 {
	if loc, ok := d.Attribs[name]; ok {
		return loc
	}
	return -1
}

func (d *Device) UniformLocation(program uint32, name string) int32 {
	if loc, ok := d.Uniforms[name]; ok {
		return loc
	}
	return -1
}

func (d *Device) Uniform1i(location int32, v int32) { d.record("Uniform1i", location, v) }

func (d *Device) UniformFloats(location int32, v []float32) {
	d.record("UniformFloats", location, len(v))
}

func (d *Device) UniformMatrix4(location int32, m mgl32.Mat4) {
	d.record("UniformMatrix4", location)
}

func (d *Device) CreateTexture(img *image.RGBA) (uint32, error) {
	h := d.handle()
	d.LiveTex[h] = true
	d.record("CreateTexture", h)
	return h, nil
}

func (d *Device) BindTexture(unit uint32, texture uint32) {
	d.record("BindTexture", unit, texture)
}

func (d *Device) DeleteTexture(texture uint32) {
	delete(d.LiveTex, texture)
	d.record("DeleteTexture", texture)
}

func (d *Device) Viewport(x, y, width, height int32) {
	d.record("Viewport", x, y, width, height)
}

func (d *Device) ClearColor(c mgl32.Vec4) { d.record("ClearColor", c) }

func (d *Device) Clear(mask gpu.ClearMask) { d.record("Clear", mask) }

func (d *Device) DrawArrays(mode gpu.PrimitiveMode, first, count int32) {
	d.record("DrawArrays", mode, first, count)
}

func (d *Device) DrawElements(mode gpu.PrimitiveMode, count int32, typ gpu.DataType, offset int) {
	d.record("DrawElements", mode, count)
}

var _ gpu.Device = (*Device)(nil)
