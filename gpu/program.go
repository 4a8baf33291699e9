package gpu

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// ProgramID identifies one Program instance for the lifetime of the process.
// It keys per-program caches; two programs built from identical sources get
// different ids.
type ProgramID uint64

var programCounter atomic.Uint64

// AttributeBinding is one vertex attribute a program reads.
type AttributeBinding struct {
	Name     string
	Location uint32
}

// Program is a linked vertex + fragment shader pair. Sources are opaque to
// the engine; the declared attribute names are matched against geometry
// attribute keys ("Vertex", "Normal", "Color", "TexCoord0", ...).
type Program struct {
	id           ProgramID
	vertexSrc    string
	fragmentSrc  string
	declared     []string
	attributes   []AttributeBinding
	uniformLocs  map[string]int32
	handle       uint32
	compileError error
}

// NewProgram returns an uncompiled program reading the given attributes.
func NewProgram(vertexSrc, fragmentSrc string, attributes ...string) *Program {
	return &Program{
		id:          ProgramID(programCounter.Add(1)),
		vertexSrc:   vertexSrc,
		fragmentSrc: fragmentSrc,
		declared:    attributes,
		uniformLocs: make(map[string]int32),
	}
}

// ID returns the instance identity.
func (p *Program) ID() ProgramID { return p.id }

// Handle returns the driver name, zero before Compile succeeds.
func (p *Program) Handle() uint32 { return p.handle }

// IsCompiled reports whether the program linked.
func (p *Program) IsCompiled() bool { return p.handle != 0 }

// Compile links the program and resolves attribute locations. Attributes
// the linker optimised away are dropped. A failed link is remembered and not
// retried until Release.
func (p *Program) Compile(dev Device) error {
	if p.handle != 0 {
		return nil
	}
	if p.compileError != nil {
		return p.compileError
	}
	h, err := dev.CreateProgram(p.vertexSrc, p.fragmentSrc)
	if err != nil {
		p.compileError = fmt.Errorf("gpu: program %d: %w", p.id, err)
		return p.compileError
	}
	p.handle = h

	p.attributes = p.attributes[:0]
	for _, name := range p.declared {
		loc := dev.AttribLocation(h, name)
		if loc < 0 {
			continue
		}
		p.attributes = append(p.attributes, AttributeBinding{Name: name, Location: uint32(loc)})
	}
	sort.SliceStable(p.attributes, func(i, j int) bool {
		return p.attributes[i].Location < p.attributes[j].Location
	})
	return nil
}

// Attributes returns the active attributes ordered by location.
func (p *Program) Attributes() []AttributeBinding { return p.attributes }

// UniformLocation returns the cached location of name, -1 when inactive.
func (p *Program) UniformLocation(dev Device, name string) int32 {
	if loc, ok := p.uniformLocs[name]; ok {
		return loc
	}
	loc := int32(-1)
	if p.handle != 0 {
		loc = dev.UniformLocation(p.handle, name)
	}
	p.uniformLocs[name] = loc
	return loc
}

// Release deletes the driver program. The id is kept.
func (p *Program) Release(dev Device) {
	if p.handle != 0 {
		dev.DeleteProgram(p.handle)
	}
	p.handle = 0
	p.compileError = nil
	p.attributes = nil
	clear(p.uniformLocs)
}
