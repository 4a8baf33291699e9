package gpu

import (
	"go.uber.org/zap"

	"scenegraph/internal/logger"
)

// PrimitiveSet describes how a geometry's vertices assemble into primitives.
type PrimitiveSet interface {
	Mode() PrimitiveMode
	// Draw issues the draw call. Vertex attributes must already be bound.
	Draw(s *State)
}

// DrawArrays draws Count consecutive vertices starting at First.
type DrawArrays struct {
	mode  PrimitiveMode
	First int32
	Count int32
}

// NewDrawArrays returns a non-indexed primitive set.
func NewDrawArrays(mode PrimitiveMode, first, count int32) *DrawArrays {
	return &DrawArrays{mode: mode, First: first, Count: count}
}

func (d *DrawArrays) Mode() PrimitiveMode { return d.mode }

func (d *DrawArrays) Draw(s *State) {
	if d.Count <= 0 {
		return
	}
	s.Device().DrawArrays(d.mode, d.First, d.Count)
}

// DrawElements draws through an index buffer.
type DrawElements struct {
	mode    PrimitiveMode
	indices *BufferArray
}

// NewDrawElements returns an indexed primitive set.
func NewDrawElements(mode PrimitiveMode, indices *BufferArray) *DrawElements {
	return &DrawElements{mode: mode, indices: indices}
}

func (d *DrawElements) Mode() PrimitiveMode   { return d.mode }
func (d *DrawElements) Indices() *BufferArray { return d.indices }

// Draw binds the index buffer and draws.
func (d *DrawElements) Draw(s *State) {
	if d.indices == nil || !d.indices.IsValid() {
		return
	}
	if err := s.SetIndexArray(d.indices); err != nil {
		logger.Log.Warn("draw elements: index buffer", zap.Error(err))
		return
	}
	d.DrawIndexed(s)
}

// DrawIndexed draws assuming the index buffer is already bound, as it is
// when recorded into a vertex array object.
func (d *DrawElements) DrawIndexed(s *State) {
	if d.indices == nil || !d.indices.IsValid() {
		return
	}
	s.Device().DrawElements(d.mode, int32(d.indices.NumElements()), d.indices.Type(), 0)
}
