package gpu

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxVertexAttribs is the number of attribute locations State tracks.
const MaxVertexAttribs = 16

// Uniform names the engine writes on every draw.
const (
	ModelViewMatrixUniform   = "ModelViewMatrix"
	ProjectionMatrixUniform  = "ProjectionMatrix"
	NormalMatrixUniform      = "NormalMatrix"
	ArrayColorEnabledUniform = "ArrayColorEnabled"
)

// attribCache mirrors the attribute state of one vertex array object.
type attribCache struct {
	enabled   [MaxVertexAttribs]bool
	disabling [MaxVertexAttribs]bool
	bound     [MaxVertexAttribs]*BufferArray
	index     *BufferArray
}

func (c *attribCache) reset() { *c = attribCache{} }

// State is the per-context record of what is bound on the Device. It avoids
// redundant driver calls and gives geometries the currently applied program.
type State struct {
	device Device
	stack  []*StateSet

	program     *Program
	vertexColor bool

	vao            uint32
	defaultVAO     uint32
	defaultAttribs attribCache
	vaoAttribs     attribCache
	attribs        *attribCache

	// Apply scratch, reused across calls.
	textures map[uint32]*Texture
	uniforms map[string]*Uniform
	order    []string
	units    []uint32
}

// NewState returns a State issuing commands on dev.
func NewState(dev Device) *State {
	s := &State{
		device:   dev,
		textures: make(map[uint32]*Texture),
		uniforms: make(map[string]*Uniform),
	}
	s.attribs = &s.defaultAttribs
	if d, ok := dev.(DefaultVertexArrayer); ok {
		s.defaultVAO = d.DefaultVertexArray()
	}
	return s
}

// Device returns the underlying device.
func (s *State) Device() Device { return s.device }

// ── State set stack ──────────────────────────────────────────────────────────

func (s *State) PushStateSet(ss *StateSet) { s.stack = append(s.stack, ss) }

func (s *State) PopStateSet() {
	if len(s.stack) > 0 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

func (s *State) PopAllStateSets()       { s.stack = s.stack[:0] }
func (s *State) StateSetStackSize() int { return len(s.stack) }

// Apply makes the accumulated state current: the innermost program, the
// innermost texture per unit and the innermost uniform per name.
func (s *State) Apply() error {
	var prog *Program
	for i := len(s.stack) - 1; i >= 0; i-- {
		if p := s.stack[i].program; p != nil {
			prog = p
			break
		}
	}
	if prog == nil {
		s.program = nil
		return nil
	}
	if prog != s.program || !prog.IsCompiled() {
		if err := prog.Compile(s.device); err != nil {
			s.program = nil
			return err
		}
		s.device.UseProgram(prog.Handle())
		s.program = prog
	}

	clear(s.textures)
	clear(s.uniforms)
	order := s.order[:0]
	for _, ss := range s.stack {
		for unit, t := range ss.textures {
			s.textures[unit] = t
		}
		for _, u := range ss.uniforms {
			if _, seen := s.uniforms[u.name]; !seen {
				order = append(order, u.name)
			}
			s.uniforms[u.name] = u
		}
	}
	units := s.units[:0]
	for u := range s.textures {
		units = append(units, u)
	}
	slices.Sort(units)
	s.order, s.units = order, units

	for _, unit := range units {
		if err := s.textures[unit].Apply(s.device, unit); err != nil {
			return fmt.Errorf("gpu: apply unit %d: %w", unit, err)
		}
	}
	for _, name := range order {
		s.uniforms[name].Apply(s.device, prog.UniformLocation(s.device, name))
	}
	return nil
}

// LastAppliedProgram returns the program made current by the last Apply.
func (s *State) LastAppliedProgram() *Program { return s.program }

// ApplyTransforms uploads the model-view, projection and normal matrices to
// the current program.
func (s *State) ApplyTransforms(modelView, projection mgl32.Mat4) {
	p := s.program
	if p == nil {
		return
	}
	if loc := p.UniformLocation(s.device, ModelViewMatrixUniform); loc >= 0 {
		s.device.UniformMatrix4(loc, modelView)
	}
	if loc := p.UniformLocation(s.device, ProjectionMatrixUniform); loc >= 0 {
		s.device.UniformMatrix4(loc, projection)
	}
	if loc := p.UniformLocation(s.device, NormalMatrixUniform); loc >= 0 {
		s.device.UniformMatrix4(loc, modelView.Inv().Transpose())
	}
}

// SetVertexColor toggles per-vertex color in the current program.
func (s *State) SetVertexColor(enabled bool) {
	s.vertexColor = enabled
	if s.program == nil {
		return
	}
	var v int32
	if enabled {
		v = 1
	}
	s.device.Uniform1i(s.program.UniformLocation(s.device, ArrayColorEnabledUniform), v)
}

func (s *State) VertexColor() bool { return s.vertexColor }

// ── Vertex arrays ────────────────────────────────────────────────────────────

// SetVertexArrayObject binds vao and reports whether the binding changed.
// Zero selects the default object: the device's own when it provides one.
// Attribute tracking follows the binding: the default object keeps its
// cache, a non-zero object starts from a clean one.
func (s *State) SetVertexArrayObject(vao uint32) bool {
	if s.vao == vao {
		return false
	}
	if vao == 0 {
		s.device.BindVertexArray(s.defaultVAO)
	} else {
		s.device.BindVertexArray(vao)
	}
	s.vao = vao
	if vao == 0 {
		s.attribs = &s.defaultAttribs
	} else {
		s.vaoAttribs.reset()
		s.attribs = &s.vaoAttribs
	}
	return true
}

// VertexArrayObject returns the bound vertex array object.
func (s *State) VertexArrayObject() uint32 { return s.vao }

// ClearVertexAttribCache forgets what is bound in the current vertex array.
func (s *State) ClearVertexAttribCache() { s.attribs.reset() }

// LazyDisablingOfVertexAttributes marks every enabled attribute for
// disabling; SetVertexAttribArray unmarks the ones still in use and
// ApplyDisablingOfVertexAttributes disables the rest.
func (s *State) LazyDisablingOfVertexAttributes() {
	c := s.attribs
	c.disabling = c.enabled
}

// ApplyDisablingOfVertexAttributes disables attributes left marked.
func (s *State) ApplyDisablingOfVertexAttributes() {
	c := s.attribs
	for loc := range c.disabling {
		if !c.disabling[loc] {
			continue
		}
		s.device.DisableVertexAttribArray(uint32(loc))
		c.enabled[loc] = false
		c.bound[loc] = nil
		c.disabling[loc] = false
	}
}

// SetVertexAttribArray feeds location loc from buf, uploading it if dirty.
func (s *State) SetVertexAttribArray(loc uint32, buf *BufferArray, normalize bool) error {
	if loc >= MaxVertexAttribs {
		return fmt.Errorf("gpu: attribute location %d out of range", loc)
	}
	c := s.attribs
	c.disabling[loc] = false
	if !c.enabled[loc] {
		s.device.EnableVertexAttribArray(loc)
		c.enabled[loc] = true
	}
	if c.bound[loc] == buf && !buf.IsDirty() {
		return nil
	}
	if err := buf.Bind(s.device); err != nil {
		return err
	}
	buf.Compile(s.device)
	s.device.VertexAttribPointer(loc, buf.ItemSize(), buf.Type(), normalize, 0, 0)
	c.bound[loc] = buf
	return nil
}

// SetIndexArray binds buf as the element buffer, uploading it if dirty.
func (s *State) SetIndexArray(buf *BufferArray) error {
	c := s.attribs
	if c.index == buf && !buf.IsDirty() {
		return nil
	}
	if err := buf.Bind(s.device); err != nil {
		return err
	}
	buf.Compile(s.device)
	c.index = buf
	return nil
}

// Reset returns the State to its start-of-frame condition.
func (s *State) Reset() {
	s.stack = s.stack[:0]
	s.SetVertexArrayObject(0)
}
