package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"

	"scenegraph/gpu"
)

func bufferTarget(t gpu.BufferTarget) uint32 {
	if t == gpu.ElementArrayBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func bufferUsage(u gpu.Usage) uint32 {
	switch u {
	case gpu.DynamicDraw:
		return gl.DYNAMIC_DRAW
	case gpu.StreamDraw:
		return gl.STREAM_DRAW
	default:
		return gl.STATIC_DRAW
	}
}

func dataType(t gpu.DataType) uint32 {
	switch t {
	case gpu.UnsignedByte:
		return gl.UNSIGNED_BYTE
	case gpu.UnsignedShort:
		return gl.UNSIGNED_SHORT
	case gpu.UnsignedInt:
		return gl.UNSIGNED_INT
	default:
		return gl.FLOAT
	}
}

func primitiveMode(m gpu.PrimitiveMode) uint32 {
	switch m {
	case gpu.Points:
		return gl.POINTS
	case gpu.Lines:
		return gl.LINES
	case gpu.LineStrip:
		return gl.LINE_STRIP
	case gpu.LineLoop:
		return gl.LINE_LOOP
	case gpu.TriangleStrip:
		return gl.TRIANGLE_STRIP
	case gpu.TriangleFan:
		return gl.TRIANGLE_FAN
	default:
		return gl.TRIANGLES
	}
}
