package nn

import (
	"math"

	"github.com/digitnet-ml/digitnet/internal/tensor"
)

// ReLU applies max(0, x) element-wise.
type ReLU struct {
	input *tensor.Tensor
}

// NewReLU creates a ReLU activation.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward computes max(0, x).
func (r *ReLU) Forward(input *tensor.Tensor) *tensor.Tensor {
	r.input = input
	output := tensor.New(input.Shape().Clone())
	x := input.Data()
	y := output.Data()
	for i, v := range x {
		if v > 0 {
			y[i] = v
		}
	}
	return output
}

// Backward passes the gradient through where the input was positive.
func (r *ReLU) Backward(grad *tensor.Tensor) *tensor.Tensor {
	if r.input == nil {
		panic("relu: Backward called before Forward")
	}
	inputGrad := tensor.New(grad.Shape().Clone())
	x := r.input.Data()
	g := grad.Data()
	gx := inputGrad.Data()
	for i, v := range x {
		if v > 0 {
			gx[i] = g[i]
		}
	}
	return inputGrad
}

// Parameters returns an empty slice.
func (r *ReLU) Parameters() []*Parameter {
	return nil
}

// String returns "ReLU()".
func (r *ReLU) String() string {
	return "ReLU()"
}

// Tanh applies tanh(x) element-wise.
//
// Kept for the classic LeNet-5 variant; the default models use ReLU.
type Tanh struct {
	output *tensor.Tensor
}

// NewTanh creates a Tanh activation.
func NewTanh() *Tanh {
	return &Tanh{}
}

// Forward computes tanh(x).
func (t *Tanh) Forward(input *tensor.Tensor) *tensor.Tensor {
	output := tensor.New(input.Shape().Clone())
	x := input.Data()
	y := output.Data()
	for i, v := range x {
		y[i] = float32(math.Tanh(float64(v)))
	}
	t.output = output
	return output
}

// Backward computes grad * (1 - tanh(x)^2) using the cached output.
func (t *Tanh) Backward(grad *tensor.Tensor) *tensor.Tensor {
	if t.output == nil {
		panic("tanh: Backward called before Forward")
	}
	inputGrad := tensor.New(grad.Shape().Clone())
	y := t.output.Data()
	g := grad.Data()
	gx := inputGrad.Data()
	for i, v := range y {
		gx[i] = g[i] * (1 - v*v)
	}
	return inputGrad
}

// Parameters returns an empty slice.
func (t *Tanh) Parameters() []*Parameter {
	return nil
}

// String returns "Tanh()".
func (t *Tanh) String() string {
	return "Tanh()"
}
