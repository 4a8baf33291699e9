package scene

import (
	"go.uber.org/zap"

	"scenegraph/gpu"
	"scenegraph/internal/logger"
)

type opCode uint8

const (
	opBeginAttributes opCode = iota // mark enabled attributes for lazy disabling
	opBindAttribute                 // feed a location from a buffer or proxy
	opEndAttributes                 // disable attributes no longer fed
	opBindIndex                     // bind the element buffer
	opBindVertexArray               // bind a recorded vertex array object
	opUploadBuffer                  // re-upload a VAO-held buffer if dirty
	opVertexColor                   // toggle per-vertex color
	opDrawPrimitive                 // primitive set binds what it needs and draws
	opDrawIndexed                   // element buffer already in the VAO
)

type instruction struct {
	op        opCode
	location  uint32
	normalize bool
	enabled   bool
	vao       uint32
	buffer    *gpu.BufferArray
	source    gpu.AttributeSource
	primitive gpu.PrimitiveSet
}

// drawCommand is a draw routine compiled for one program: a flat list of
// state commands run in order against a State.
type drawCommand struct {
	vao  uint32
	code []instruction
}

// run executes the routine and reports whether it completed. It stops at an
// attribute whose buffer is not ready.
func (c *drawCommand) run(s *gpu.State) bool {
	for i := range c.code {
		if !c.code[i].exec(s) {
			return false
		}
	}
	return true
}

func (in *instruction) exec(s *gpu.State) bool {
	switch in.op {
	case opBeginAttributes:
		s.LazyDisablingOfVertexAttributes()

	case opBindAttribute:
		buf := in.buffer
		if in.source != nil {
			buf = in.source.BufferArray()
		}
		if buf == nil || !buf.IsValid() {
			return false
		}
		if err := s.SetVertexAttribArray(in.location, buf, in.normalize); err != nil {
			logger.Log.Warn("draw: bind attribute", zap.Uint32("location", in.location), zap.Error(err))
			return false
		}

	case opEndAttributes:
		s.ApplyDisablingOfVertexAttributes()

	case opBindIndex:
		if err := s.SetIndexArray(in.buffer); err != nil {
			logger.Log.Warn("draw: bind index buffer", zap.Error(err))
			return false
		}

	case opBindVertexArray:
		s.SetVertexArrayObject(in.vao)

	case opUploadBuffer:
		if in.buffer.IsDirty() {
			if err := uploadBuffer(s.Device(), in.buffer); err != nil {
				logger.Log.Warn("draw: upload buffer", zap.Error(err))
				return false
			}
		}

	case opVertexColor:
		s.SetVertexColor(in.enabled)

	case opDrawPrimitive:
		in.primitive.Draw(s)

	case opDrawIndexed:
		de := in.primitive.(*gpu.DrawElements)
		if idx := de.Indices(); idx.IsDirty() {
			if err := uploadBuffer(s.Device(), idx); err != nil {
				logger.Log.Warn("draw: upload index buffer", zap.Error(err))
				return false
			}
		}
		de.DrawIndexed(s)
	}
	return true
}

func uploadBuffer(dev gpu.Device, b *gpu.BufferArray) error {
	if err := b.Bind(dev); err != nil {
		return err
	}
	b.Compile(dev)
	return nil
}

// ── Emission ─────────────────────────────────────────────────────────────────

func emitAttributeSetup(binds []instruction, index *gpu.BufferArray) []instruction {
	code := make([]instruction, 0, len(binds)+3)
	code = append(code, instruction{op: opBeginAttributes})
	code = append(code, binds...)
	code = append(code, instruction{op: opEndAttributes})
	if index != nil {
		code = append(code, instruction{op: opBindIndex, buffer: index})
	}
	return code
}

func emitPrimitives(code []instruction, prims []gpu.PrimitiveSet, vertexColor, indexed bool) []instruction {
	code = append(code, instruction{op: opVertexColor, enabled: vertexColor})
	if indexed {
		return append(code, instruction{op: opDrawIndexed, primitive: prims[0]})
	}
	for _, p := range prims {
		code = append(code, instruction{op: opDrawPrimitive, primitive: p})
	}
	return code
}
