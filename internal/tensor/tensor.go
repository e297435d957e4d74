// Package tensor provides the dense float32 tensor type used throughout
// digitnet.
//
// The harness runs a fixed pair of convolutional architectures on the CPU,
// so a single concrete dtype with a flat backing slice is all the layers
// need. Data is stored in row-major order; for 4D tensors the layout is
// NCHW.
package tensor

import "fmt"

// Tensor is a dense float32 tensor.
//
// The zero value is not usable; construct tensors with New, FromSlice or
// Full. The backing slice is exposed through Data so layers and optimizers
// can operate in place without per-element accessor overhead.
type Tensor struct {
	shape Shape
	data  []float32
}

// New creates a zero-filled tensor with the given shape.
func New(shape Shape) *Tensor {
	return &Tensor{
		shape: shape.Clone(),
		data:  make([]float32, shape.NumElements()),
	}
}

// FromSlice creates a tensor backed by a copy of data.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("tensor: shape %v requires %d elements, got %d",
			shape, shape.NumElements(), len(data))
	}
	t := New(shape)
	copy(t.data, data)
	return t, nil
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, value float32) *Tensor {
	t := New(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// Shape returns the tensor's shape. Callers must not modify it.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Data returns the flat backing slice in row-major order.
func (t *Tensor) Data() []float32 {
	return t.data
}

// NumElements returns the number of elements in the tensor.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	out := New(t.shape)
	copy(out.data, t.data)
	return out
}

// Reshape returns a tensor sharing this tensor's storage with a new shape.
// The element count must match.
func (t *Tensor) Reshape(dims ...int) *Tensor {
	shape := Shape(dims)
	if shape.NumElements() != len(t.data) {
		panic(fmt.Sprintf("tensor: cannot reshape %v to %v", t.shape, shape))
	}
	return &Tensor{shape: shape.Clone(), data: t.data}
}

// Zero resets every element to zero in place.
func (t *Tensor) Zero() {
	for i := range t.data {
		t.data[i] = 0
	}
}

// String returns a short description like Tensor[32 1 28 28].
func (t *Tensor) String() string {
	return "Tensor" + t.shape.String()
}
