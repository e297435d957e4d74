package nn

import (
	"fmt"
	"math/rand"

	"github.com/digitnet-ml/digitnet/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W.T + b.
//
// Shapes:
//   - input:  [batch, inFeatures]
//   - weight: [outFeatures, inFeatures]
//   - bias:   [outFeatures]
//   - output: [batch, outFeatures]
//
// Weights use Xavier initialization, biases start at zero.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter
	bias        *Parameter

	input *tensor.Tensor // cached by Forward for the backward pass
}

// NewLinear creates a fully connected layer.
//
// The name prefixes the parameter names, e.g. name "fc1" yields
// "fc1.weight" and "fc1.bias".
func NewLinear(name string, inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("linear: invalid features in=%d, out=%d", inFeatures, outFeatures))
	}

	weight := Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, rng)
	bias := Zeros(tensor.Shape{outFeatures})

	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter(name+".weight", weight),
		bias:        NewParameter(name+".bias", bias),
	}
}

// Forward computes y = x @ W.T + b.
func (l *Linear) Forward(input *tensor.Tensor) *tensor.Tensor {
	shape := input.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("linear: expected 2D input [batch, features], got %v", shape))
	}
	if shape[1] != l.inFeatures {
		panic(fmt.Sprintf("linear: expected %d input features, got %d", l.inFeatures, shape[1]))
	}

	l.input = input
	batch := shape[0]

	output := tensor.New(tensor.Shape{batch, l.outFeatures})
	x := input.Data()
	w := l.weight.value.Data()
	b := l.bias.value.Data()
	y := output.Data()

	for n := 0; n < batch; n++ {
		xRow := x[n*l.inFeatures : (n+1)*l.inFeatures]
		yRow := y[n*l.outFeatures : (n+1)*l.outFeatures]
		for o := 0; o < l.outFeatures; o++ {
			wRow := w[o*l.inFeatures : (o+1)*l.inFeatures]
			sum := b[o]
			for i, xi := range xRow {
				sum += xi * wRow[i]
			}
			yRow[o] = sum
		}
	}

	return output
}

// Backward accumulates parameter gradients and returns dL/dx.
//
//	dL/dx = grad @ W
//	dL/dW = grad.T @ x
//	dL/db = column sums of grad
func (l *Linear) Backward(grad *tensor.Tensor) *tensor.Tensor {
	if l.input == nil {
		panic("linear: Backward called before Forward")
	}
	shape := grad.Shape()
	if len(shape) != 2 || shape[1] != l.outFeatures {
		panic(fmt.Sprintf("linear: bad gradient shape %v", shape))
	}

	batch := shape[0]
	x := l.input.Data()
	w := l.weight.value.Data()
	g := grad.Data()
	gw := l.weight.grad.Data()
	gb := l.bias.grad.Data()

	inputGrad := tensor.New(tensor.Shape{batch, l.inFeatures})
	gx := inputGrad.Data()

	for n := 0; n < batch; n++ {
		xRow := x[n*l.inFeatures : (n+1)*l.inFeatures]
		gRow := g[n*l.outFeatures : (n+1)*l.outFeatures]
		gxRow := gx[n*l.inFeatures : (n+1)*l.inFeatures]
		for o := 0; o < l.outFeatures; o++ {
			gv := gRow[o]
			if gv == 0 {
				continue
			}
			wRow := w[o*l.inFeatures : (o+1)*l.inFeatures]
			gwRow := gw[o*l.inFeatures : (o+1)*l.inFeatures]
			gb[o] += gv
			for i, xi := range xRow {
				gxRow[i] += gv * wRow[i]
				gwRow[i] += gv * xi
			}
		}
	}

	return inputGrad
}

// Parameters returns [weight, bias].
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear) Bias() *Parameter {
	return l.bias
}

// String returns a description of the layer.
func (l *Linear) String() string {
	return fmt.Sprintf("Linear(in=%d, out=%d)", l.inFeatures, l.outFeatures)
}
