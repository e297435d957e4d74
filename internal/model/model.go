// Package model defines the digit classification network architectures.
package model

import (
	"fmt"
	"math/rand"

	"github.com/digitnet-ml/digitnet/internal/nn"
	"github.com/digitnet-ml/digitnet/internal/tensor"
)

// Model is a trainable digit classifier.
//
// Forward maps a batch of images to class logits [batch, 10]. Backward
// takes dL/dlogits and accumulates gradients into the model parameters;
// the gradient with respect to the input pixels is discarded.
type Model interface {
	Forward(input *tensor.Tensor) *tensor.Tensor
	Backward(grad *tensor.Tensor)
	Parameters() []*nn.Parameter
	String() string
}

// New constructs a model by name ("simple" or "lenet5") with weights
// initialized from rng.
func New(name string, rng *rand.Rand) (Model, error) {
	switch name {
	case "simple":
		return NewSimpleCNN(rng), nil
	case "lenet5":
		return NewLeNet5(rng), nil
	default:
		return nil, fmt.Errorf("model: unknown architecture %q (want simple or lenet5)", name)
	}
}

// CountParameters returns the total number of trainable scalars.
func CountParameters(m Model) int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.Value().NumElements()
	}
	return total
}

// asImageBatch reshapes [batch, 784] input to [batch, 1, 28, 28],
// passing 4D input through unchanged.
func asImageBatch(input *tensor.Tensor) *tensor.Tensor {
	shape := input.Shape()
	switch len(shape) {
	case 2:
		return input.Reshape(shape[0], 1, 28, 28)
	case 4:
		return input
	default:
		panic(fmt.Sprintf("model: expected 2D [batch, 784] or 4D [batch, 1, 28, 28] input, got %v", shape))
	}
}
