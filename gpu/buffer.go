package gpu

import (
	"fmt"
	"unsafe"
)

// AttributeSource yields the buffer that currently feeds a vertex attribute.
// A plain *BufferArray returns itself; a *BufferArrayProxy returns whatever
// array it points at right now.
type AttributeSource interface {
	BufferArray() *BufferArray
}

// BufferArray is a CPU copy of vertex or index data plus the driver buffer it
// uploads to. The upload is lazy: SetXxx marks the array dirty and the next
// Compile pushes the bytes.
type BufferArray struct {
	target    BufferTarget
	typ       DataType
	itemSize  int32
	normalize bool
	usage     Usage

	data   []byte
	floats []float32
	count  int

	buffer uint32
	dirty  bool
}

// NewFloatArray returns an ArrayBuffer holding v, itemSize floats per vertex.
// A nil v yields an array that stays invalid until SetFloat32s is called.
func NewFloatArray(v []float32, itemSize int) *BufferArray {
	b := &BufferArray{target: ArrayBuffer, typ: Float, itemSize: int32(itemSize), usage: StaticDraw}
	b.SetFloat32s(v)
	return b
}

// NewUint16IndexArray returns an ElementArrayBuffer of 16-bit indices.
func NewUint16IndexArray(v []uint16) *BufferArray {
	b := &BufferArray{target: ElementArrayBuffer, typ: UnsignedShort, itemSize: 1, usage: StaticDraw}
	b.SetUint16s(v)
	return b
}

// NewUint32IndexArray returns an ElementArrayBuffer of 32-bit indices.
func NewUint32IndexArray(v []uint32) *BufferArray {
	b := &BufferArray{target: ElementArrayBuffer, typ: UnsignedInt, itemSize: 1, usage: StaticDraw}
	b.SetUint32s(v)
	return b
}

// BufferArray implements AttributeSource.
func (b *BufferArray) BufferArray() *BufferArray { return b }

// SetFloat32s replaces the contents with float data.
func (b *BufferArray) SetFloat32s(v []float32) {
	b.typ = Float
	b.floats = v
	b.count = len(v)
	b.data = nil
	if len(v) > 0 {
		b.data = unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
	}
	b.dirty = true
}

// SetUint16s replaces the contents with 16-bit integers.
func (b *BufferArray) SetUint16s(v []uint16) {
	b.typ = UnsignedShort
	b.floats = nil
	b.count = len(v)
	b.data = nil
	if len(v) > 0 {
		b.data = unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*2)
	}
	b.dirty = true
}

// SetUint32s replaces the contents with 32-bit integers.
func (b *BufferArray) SetUint32s(v []uint32) {
	b.typ = UnsignedInt
	b.floats = nil
	b.count = len(v)
	b.data = nil
	if len(v) > 0 {
		b.data = unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
	}
	b.dirty = true
}

// Float32s returns the float contents, or nil for integer arrays.
func (b *BufferArray) Float32s() []float32 { return b.floats }

// Index returns element i of an integer array widened to uint32.
func (b *BufferArray) Index(i int) uint32 {
	switch b.typ {
	case UnsignedShort:
		return uint32(unsafe.Slice((*uint16)(unsafe.Pointer(&b.data[0])), b.count)[i])
	case UnsignedInt:
		return unsafe.Slice((*uint32)(unsafe.Pointer(&b.data[0])), b.count)[i]
	case UnsignedByte:
		return uint32(b.data[i])
	}
	return uint32(b.floats[i])
}

func (b *BufferArray) Target() BufferTarget { return b.target }
func (b *BufferArray) Type() DataType       { return b.typ }
func (b *BufferArray) ItemSize() int32      { return b.itemSize }

// NumElements is the scalar count; NumItems the count of itemSize groups.
func (b *BufferArray) NumElements() int { return b.count }
func (b *BufferArray) NumItems() int {
	if b.itemSize <= 0 {
		return 0
	}
	return b.count / int(b.itemSize)
}

func (b *BufferArray) Normalize() bool     { return b.normalize }
func (b *BufferArray) SetNormalize(n bool) { b.normalize = n }
func (b *BufferArray) SetUsage(u Usage)    { b.usage = u }
func (b *BufferArray) Handle() uint32      { return b.buffer }
func (b *BufferArray) IsDirty() bool       { return b.dirty }
func (b *BufferArray) Dirty()              { b.dirty = true }

// IsValid reports whether the array holds data that can be drawn. An array
// whose contents have not arrived yet is invalid.
func (b *BufferArray) IsValid() bool { return b.count > 0 }

// Bind binds the driver buffer, creating it on first use.
func (b *BufferArray) Bind(dev Device) error {
	if b.buffer == 0 {
		id, err := dev.CreateBuffer()
		if err != nil {
			return fmt.Errorf("gpu: create buffer: %w", err)
		}
		b.buffer = id
		b.dirty = true
	}
	dev.BindBuffer(b.target, b.buffer)
	return nil
}

// Compile uploads the contents if they changed since the last upload.
// The buffer must be bound.
func (b *BufferArray) Compile(dev Device) {
	if !b.dirty {
		return
	}
	dev.BufferData(b.target, b.data, b.usage)
	b.dirty = false
}

// Release deletes the driver buffer. The CPU data is kept, so a later Bind
// re-creates and re-uploads it.
func (b *BufferArray) Release(dev Device) {
	if b.buffer == 0 {
		return
	}
	dev.DeleteBuffer(b.buffer)
	b.buffer = 0
	b.dirty = true
}

// BufferArrayProxy is an indirection whose target may change every frame,
// for example a morph result written into a different array each update.
// Geometries holding a proxy re-resolve it on every draw and never record it
// into a vertex array object.
type BufferArrayProxy struct {
	current *BufferArray
}

// NewBufferArrayProxy returns a proxy pointing at b.
func NewBufferArrayProxy(b *BufferArray) *BufferArrayProxy {
	return &BufferArrayProxy{current: b}
}

// BufferArray implements AttributeSource.
func (p *BufferArrayProxy) BufferArray() *BufferArray { return p.current }

// SetBufferArray retargets the proxy.
func (p *BufferArrayProxy) SetBufferArray(b *BufferArray) { p.current = b }
