package tensor

import (
	"fmt"
	"strings"
)

// Shape describes the dimensions of a tensor.
//
// Shapes follow the NCHW convention for image data:
//
//	Shape{32, 1, 28, 28} // batch of 32 single-channel 28x28 images
//	Shape{32, 10}        // batch of 32 class-score vectors
type Shape []int

// NumElements returns the total number of elements a tensor of this
// shape holds. The empty shape has one element (a scalar).
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Equal reports whether two shapes have identical dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// String returns a compact representation like [32 1 28 28].
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = fmt.Sprintf("%d", dim)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
