package scene

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Component types, identical to the glTF enumeration.
const (
	Byte          = 5120
	UnsignedByte  = 5121
	Short         = 5122
	UnsignedShort = 5123
	UnsignedInt   = 5125
	Float         = 5126
)

var typeComponents = map[string]int{
	"SCALAR": 1,
	"VEC2":   2,
	"VEC3":   3,
	"VEC4":   4,
	"MAT2":   4,
	"MAT3":   9,
	"MAT4":   16,
}

// Accessor is a typed array of elements stored tightly packed in little-endian order.
type Accessor struct {
	Name          string
	Type          string
	ComponentType int
	Normalized    bool
	Count         int
	Data          []byte
	// Min and Max are carried through unchanged when present.
	Min, Max []float64
}

// NewFloatAccessor creates a float accessor of the given type holding values.
func NewFloatAccessor(typ string, values []float32) (*Accessor, error) {
	n, ok := typeComponents[typ]
	if !ok {
		return nil, fmt.Errorf("unknown accessor type %q", typ)
	}
	if len(values)%n != 0 {
		return nil, fmt.Errorf("%d values do not divide into %s elements", len(values), typ)
	}
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return &Accessor{Type: typ, ComponentType: Float, Count: len(values) / n, Data: data}, nil
}

// Components returns the number of components per element.
func (a *Accessor) Components() int {
	return typeComponents[a.Type]
}

// ComponentSize returns the byte size of one component.
func ComponentSize(componentType int) int {
	switch componentType {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort:
		return 2
	case UnsignedInt, Float:
		return 4
	}
	return 0
}

// ElementSize returns the tightly packed byte size of one element.
func (a *Accessor) ElementSize() int {
	return a.Components() * ComponentSize(a.ComponentType)
}

// Element decodes element i into dst, applying normalization for integer types.
func (a *Accessor) Element(i int, dst []float32) []float32 {
	n := a.Components()
	cs := ComponentSize(a.ComponentType)
	dst = dst[:0]
	off := i * n * cs
	for c := 0; c < n; c++ {
		b := a.Data[off+c*cs:]
		var v float32
		switch a.ComponentType {
		case Float:
			v = math.Float32frombits(binary.LittleEndian.Uint32(b))
		case UnsignedByte:
			v = float32(b[0])
			if a.Normalized {
				v /= 255
			}
		case Byte:
			v = float32(int8(b[0]))
			if a.Normalized {
				v = max(v/127, -1)
			}
		case UnsignedShort:
			v = float32(binary.LittleEndian.Uint16(b))
			if a.Normalized {
				v /= 65535
			}
		case Short:
			v = float32(int16(binary.LittleEndian.Uint16(b)))
			if a.Normalized {
				v = max(v/32767, -1)
			}
		case UnsignedInt:
			v = float32(binary.LittleEndian.Uint32(b))
		}
		dst = append(dst, v)
	}
	return dst
}

// SetElement writes element i of a float accessor.
func (a *Accessor) SetElement(i int, v []float32) error {
	if a.ComponentType != Float {
		return fmt.Errorf("accessor %q: SetElement requires float components", a.Name)
	}
	n := a.Components()
	if len(v) != n {
		return fmt.Errorf("accessor %q: expected %d components, got %d", a.Name, n, len(v))
	}
	off := i * n * 4
	for c, x := range v {
		binary.LittleEndian.PutUint32(a.Data[off+4*c:], math.Float32bits(x))
	}
	return nil
}
