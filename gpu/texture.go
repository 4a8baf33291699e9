package gpu

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// Texture is a 2D RGBA image and its driver texture.
type Texture struct {
	Name   string
	image  *image.RGBA
	handle uint32
	dirty  bool
}

// NewTexture returns a texture that uploads img on first bind.
func NewTexture(name string, img *image.RGBA) *Texture {
	return &Texture{Name: name, image: img, dirty: true}
}

// SetImage replaces the pixels; the next bind re-uploads.
func (t *Texture) SetImage(img *image.RGBA) {
	t.image = img
	t.dirty = true
}

func (t *Texture) Image() *image.RGBA { return t.image }
func (t *Texture) Handle() uint32     { return t.handle }

// Apply binds the texture to unit, uploading if needed.
func (t *Texture) Apply(dev Device, unit uint32) error {
	if t.image == nil {
		return fmt.Errorf("gpu: texture %q has no image", t.Name)
	}
	if t.dirty && t.handle != 0 {
		dev.DeleteTexture(t.handle)
		t.handle = 0
	}
	if t.handle == 0 {
		h, err := dev.CreateTexture(t.image)
		if err != nil {
			return fmt.Errorf("gpu: texture %q: %w", t.Name, err)
		}
		t.handle = h
		t.dirty = false
	}
	dev.BindTexture(unit, t.handle)
	return nil
}

// Release deletes the driver texture.
func (t *Texture) Release(dev Device) {
	if t.handle == 0 {
		return
	}
	dev.DeleteTexture(t.handle)
	t.handle = 0
	t.dirty = true
}

type uniformKind uint8

const (
	uniformInt uniformKind = iota
	uniformFloats
	uniformMat4
)

// Uniform is a named shader constant carried by a StateSet.
type Uniform struct {
	name   string
	kind   uniformKind
	i      int32
	floats []float32
	mat    mgl32.Mat4
}

// NewUniformInt returns an int uniform (also used for sampler units).
func NewUniformInt(name string, v int32) *Uniform {
	return &Uniform{name: name, kind: uniformInt, i: v}
}

// NewUniformFloats returns a float, vec2, vec3 or vec4 uniform.
func NewUniformFloats(name string, v ...float32) *Uniform {
	return &Uniform{name: name, kind: uniformFloats, floats: v}
}

// NewUniformMat4 returns a mat4 uniform.
func NewUniformMat4(name string, m mgl32.Mat4) *Uniform {
	return &Uniform{name: name, kind: uniformMat4, mat: m}
}

func (u *Uniform) Name() string      { return u.name }
func (u *Uniform) Floats() []float32 { return u.floats }

func (u *Uniform) SetInt(v int32)         { u.i = v }
func (u *Uniform) SetFloats(v ...float32) { u.floats = v }
func (u *Uniform) SetMat4(m mgl32.Mat4)   { u.mat = m }

// Apply uploads the value to loc. A negative loc is ignored.
func (u *Uniform) Apply(dev Device, loc int32) {
	if loc < 0 {
		return
	}
	switch u.kind {
	case uniformInt:
		dev.Uniform1i(loc, u.i)
	case uniformFloats:
		dev.UniformFloats(loc, u.floats)
	case uniformMat4:
		dev.UniformMatrix4(loc, u.mat)
	}
}
