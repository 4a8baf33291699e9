package scene

import (
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"scenegraph/gpu"
	"scenegraph/internal/logger"
)

// Conventional attribute keys. A program's declared attribute names are
// matched against these.
const (
	VertexAttribute    = "Vertex"
	NormalAttribute    = "Normal"
	ColorAttribute     = "Color"
	TexCoord0Attribute = "TexCoord0"
)

// EnableVAO lets geometries record vertex array objects when the device
// supports them. It is read the first time each geometry draws.
var EnableVAO = true

// Geometry is a drawable node: named vertex attributes plus primitive sets.
// Draw routines are compiled per program on first use and cached until the
// attributes or primitives change.
type Geometry struct {
	NodeBase

	attributes map[string]gpu.AttributeSource
	primitives []gpu.PrimitiveSet

	drawCache  map[gpu.ProgramID]*drawCommand
	vaos       map[gpu.ProgramID]uint32
	vaoBuffers map[gpu.ProgramID][]*gpu.BufferArray
	vaoChecked bool
	useVAO     bool
	device     gpu.Device

	boundingBox         BoundingBox
	boundingBoxComputed bool
}

// NewGeometry returns an empty geometry.
func NewGeometry() *Geometry {
	g := &Geometry{
		attributes: make(map[string]gpu.AttributeSource),
		drawCache:  make(map[gpu.ProgramID]*drawCommand),
		vaos:       make(map[gpu.ProgramID]uint32),
		vaoBuffers: make(map[gpu.ProgramID][]*gpu.BufferArray),
	}
	g.init(g)
	return g
}

// ── Attributes & primitives ──────────────────────────────────────────────────

// SetVertexAttribArray binds src to key; nil removes it. Changing a binding
// drops every compiled routine. Changing "Vertex" also dirties the bound.
func (g *Geometry) SetVertexAttribArray(key string, src gpu.AttributeSource) {
	cur, ok := g.attributes[key]
	if ok && cur == src {
		return
	}
	if !ok && src == nil {
		return
	}
	if src == nil {
		delete(g.attributes, key)
	} else {
		g.attributes[key] = src
	}
	g.Dirty()
	if key == VertexAttribute {
		g.DirtyBoundingBox()
	}
}

// VertexAttribArray returns the source bound to key, or nil.
func (g *Geometry) VertexAttribArray(key string) gpu.AttributeSource {
	return g.attributes[key]
}

// AttributeNames returns the bound keys in sorted order.
func (g *Geometry) AttributeNames() []string {
	return slices.Sorted(maps.Keys(g.attributes))
}

func (g *Geometry) AddPrimitiveSet(p gpu.PrimitiveSet) {
	g.primitives = append(g.primitives, p)
	g.Dirty()
}

// RemovePrimitiveSet removes the primitive set at index i.
func (g *Geometry) RemovePrimitiveSet(i int) {
	if i < 0 || i >= len(g.primitives) {
		return
	}
	g.primitives = slices.Delete(g.primitives, i, i+1)
	g.Dirty()
}

func (g *Geometry) SetPrimitiveSetList(list []gpu.PrimitiveSet) {
	g.primitives = list
	g.Dirty()
}

// PrimitiveSetList returns the primitive sets. Call Dirty after changing
// the slice in place.
func (g *Geometry) PrimitiveSetList() []gpu.PrimitiveSet { return g.primitives }

// ── Draw cache ───────────────────────────────────────────────────────────────

// Dirty drops every compiled routine and deletes every vertex array object.
func (g *Geometry) Dirty() {
	clear(g.drawCache)
	g.releaseVAOs()
}

func (g *Geometry) releaseVAOs() {
	if g.device != nil {
		for _, vao := range g.vaos {
			g.device.DeleteVertexArray(vao)
		}
	}
	clear(g.vaos)
	clear(g.vaoBuffers)
}

// HasDrawCommand reports whether a routine is cached for id.
func (g *Geometry) HasDrawCommand(id gpu.ProgramID) bool {
	_, ok := g.drawCache[id]
	return ok
}

// VertexArrayObject returns the VAO recorded for id, zero if none.
func (g *Geometry) VertexArrayObject(id gpu.ProgramID) uint32 { return g.vaos[id] }

// DrawImplementation draws with the program last applied on state,
// compiling a routine for it on first use.
func (g *Geometry) DrawImplementation(state *gpu.State) {
	prog := state.LastAppliedProgram()
	if prog == nil {
		return
	}
	id := prog.ID()

	// another geometry's VAO may still be bound
	if g.vaos[id] == 0 {
		state.SetVertexArrayObject(0)
	}

	if cmd, ok := g.drawCache[id]; ok {
		cmd.run(state)
		return
	}

	if len(g.primitives) == 0 {
		return
	}

	if !g.vaoChecked {
		g.vaoChecked = true
		g.device = state.Device()
		g.useVAO = EnableVAO && g.device.HasVertexArrayObject()
	}

	cmd := g.compile(state, prog)
	if cmd == nil {
		return
	}
	g.drawCache[id] = cmd
	cmd.run(state)
	if cmd.vao != 0 {
		state.SetVertexArrayObject(0)
	}
}

// compile builds the routine for prog, or returns nil when an attribute
// buffer is not ready so the next draw tries again.
func (g *Geometry) compile(state *gpu.State, prog *gpu.Program) *drawCommand {
	useVAO := g.useVAO
	vertexColor := false
	var (
		binds   []instruction
		buffers []*gpu.BufferArray
	)
	for _, attr := range prog.Attributes() {
		src, ok := g.attributes[attr.Name]
		if !ok {
			continue
		}
		buf := src.BufferArray()
		if buf == nil || !buf.IsValid() {
			logger.Log.Debug("geometry: attribute not ready",
				zap.String("geometry", g.Name()), zap.String("attribute", attr.Name))
			return nil
		}
		in := instruction{op: opBindAttribute, location: attr.Location, normalize: buf.Normalize()}
		if _, proxy := src.(*gpu.BufferArrayProxy); proxy {
			in.source = src
			useVAO = false
		} else {
			in.buffer = buf
		}
		binds = append(binds, in)
		buffers = append(buffers, buf)
		if attr.Name == ColorAttribute {
			vertexColor = true
		}
	}

	if useVAO {
		if cmd := g.compileVAO(state, prog.ID(), binds, buffers, vertexColor); cmd != nil {
			return cmd
		}
	}

	code := emitAttributeSetup(binds, nil)
	code = emitPrimitives(code, g.primitives, vertexColor, false)
	return &drawCommand{code: code}
}

// compileVAO records the attribute setup into a new vertex array object and
// returns a routine that only binds it, refreshes dirty buffers and draws.
// It returns nil if the object could not be created.
func (g *Geometry) compileVAO(state *gpu.State, id gpu.ProgramID, binds []instruction, buffers []*gpu.BufferArray, vertexColor bool) *drawCommand {
	var folded *gpu.DrawElements
	if len(g.primitives) == 1 {
		if de, ok := g.primitives[0].(*gpu.DrawElements); ok && de.Indices() != nil && de.Indices().IsValid() {
			folded = de
		}
	}

	dev := state.Device()
	vao, err := dev.CreateVertexArray()
	if err != nil || vao == 0 {
		logger.Log.Warn("geometry: vertex array unavailable, drawing without",
			zap.String("geometry", g.Name()), zap.Error(err))
		return nil
	}

	var index *gpu.BufferArray
	if folded != nil {
		index = folded.Indices()
	}
	state.SetVertexArrayObject(vao)
	setup := drawCommand{code: emitAttributeSetup(binds, index)}
	if !setup.run(state) {
		state.SetVertexArrayObject(0)
		dev.DeleteVertexArray(vao)
		return nil
	}
	g.vaos[id] = vao
	g.vaoBuffers[id] = buffers

	code := make([]instruction, 0, len(buffers)+len(g.primitives)+2)
	code = append(code, instruction{op: opBindVertexArray, vao: vao})
	for _, b := range buffers {
		code = append(code, instruction{op: opUploadBuffer, buffer: b})
	}
	code = emitPrimitives(code, g.primitives, vertexColor, folded != nil)
	return &drawCommand{vao: vao, code: code}
}

// ReleaseGPUObjects frees the driver buffers and vertex arrays this geometry
// uses, and its state set's program and textures. CPU data is kept.
func (g *Geometry) ReleaseGPUObjects(dev gpu.Device) {
	if g.device == nil {
		g.device = dev
	}
	for _, src := range g.attributes {
		if buf := src.BufferArray(); buf != nil {
			buf.Release(dev)
		}
	}
	for _, p := range g.primitives {
		if de, ok := p.(*gpu.DrawElements); ok && de.Indices() != nil {
			de.Indices().Release(dev)
		}
	}
	g.Dirty()
	if ss := g.StateSet(); ss != nil {
		ss.Release(dev)
	}
}

// ── Bounds ───────────────────────────────────────────────────────────────────

// DirtyBoundingBox forces the box, and with it the bound, to be recomputed.
func (g *Geometry) DirtyBoundingBox() {
	g.boundingBoxComputed = false
	g.DirtyBound()
}

// BoundingBox returns the box around the "Vertex" array.
func (g *Geometry) BoundingBox() BoundingBox {
	if !g.boundingBoxComputed {
		g.boundingBox = g.ComputeBoundingBox()
		g.boundingBoxComputed = true
	}
	return g.boundingBox
}

// ComputeBoundingBox scans the "Vertex" array. Arrays with fewer than three
// components per vertex yield an invalid box.
func (g *Geometry) ComputeBoundingBox() BoundingBox {
	bb := NewBoundingBox()
	src, ok := g.attributes[VertexAttribute]
	if !ok {
		return bb
	}
	buf := src.BufferArray()
	if buf == nil || buf.ItemSize() < 3 {
		return bb
	}
	v, stride := buf.Float32s(), int(buf.ItemSize())
	for i := 0; i+2 < len(v); i += stride {
		bb.ExpandByVec3(mgl32.Vec3{v[i], v[i+1], v[i+2]})
	}
	return bb
}

// ComputeBound is the sphere around the vertices merged with any children.
func (g *Geometry) ComputeBound() BoundingSphere {
	var bs BoundingSphere
	bs.ExpandByBox(g.BoundingBox())
	bs.ExpandBySphere(g.NodeBase.ComputeBound())
	return bs
}
