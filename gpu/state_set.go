package gpu

import "slices"

// Render bin numbers understood by the render stage.
const (
	OpaqueBin      = 0
	TransparentBin = 10
)

// StateSet bundles render state attachable to a node: a program, texture
// units and uniforms. Nested state sets inherit down the tree; the innermost
// value for each slot wins.
type StateSet struct {
	program   *Program
	textures  map[uint32]*Texture
	uniforms  []*Uniform
	binNumber int
	hasBin    bool
}

// NewStateSet returns an empty state set.
func NewStateSet() *StateSet {
	return &StateSet{textures: make(map[uint32]*Texture)}
}

func (ss *StateSet) Program() *Program     { return ss.program }
func (ss *StateSet) SetProgram(p *Program) { ss.program = p }

// SetTexture binds t to unit; nil removes the binding.
func (ss *StateSet) SetTexture(unit uint32, t *Texture) {
	if t == nil {
		delete(ss.textures, unit)
		return
	}
	ss.textures[unit] = t
}

func (ss *StateSet) Texture(unit uint32) *Texture { return ss.textures[unit] }

// TextureUnits returns the bound units in ascending order.
func (ss *StateSet) TextureUnits() []uint32 {
	units := make([]uint32, 0, len(ss.textures))
	for u := range ss.textures {
		units = append(units, u)
	}
	slices.Sort(units)
	return units
}

// AddUniform adds u, replacing any uniform of the same name.
func (ss *StateSet) AddUniform(u *Uniform) {
	for i, cur := range ss.uniforms {
		if cur.name == u.name {
			ss.uniforms[i] = u
			return
		}
	}
	ss.uniforms = append(ss.uniforms, u)
}

// Uniform returns the uniform called name, or nil.
func (ss *StateSet) Uniform(name string) *Uniform {
	for _, u := range ss.uniforms {
		if u.name == name {
			return u
		}
	}
	return nil
}

func (ss *StateSet) Uniforms() []*Uniform { return ss.uniforms }

// SetRenderBin places drawables under this state in bin n.
func (ss *StateSet) SetRenderBin(n int) {
	ss.binNumber = n
	ss.hasBin = true
}

// RenderBin returns the bin number and whether one was set.
func (ss *StateSet) RenderBin() (int, bool) { return ss.binNumber, ss.hasBin }

// Release frees the program and textures owned by this state set.
func (ss *StateSet) Release(dev Device) {
	if ss.program != nil {
		ss.program.Release(dev)
	}
	for _, t := range ss.textures {
		t.Release(dev)
	}
}
