package model

import (
	"fmt"
	"math/rand"

	"github.com/digitnet-ml/digitnet/internal/nn"
	"github.com/digitnet-ml/digitnet/internal/tensor"
)

// SimpleCNN is a small single-block convolutional classifier.
//
// Architecture:
//
//	Input:   [batch, 1, 28, 28]
//	Conv:    1 -> 8 channels, 3x3 kernel -> [batch, 8, 26, 26]
//	ReLU
//	MaxPool: 2x2 -> [batch, 8, 13, 13]
//	Flatten -> [batch, 1352]
//	FC:      1352 -> 10 (class logits)
type SimpleCNN struct {
	conv *nn.Conv2D
	relu *nn.ReLU
	pool *nn.MaxPool2D
	fc   *nn.Linear

	poolShape tensor.Shape // shape before flattening, for the backward reshape
}

const simpleFlat = 8 * 13 * 13

// NewSimpleCNN creates the network with Xavier-initialized weights.
func NewSimpleCNN(rng *rand.Rand) *SimpleCNN {
	return &SimpleCNN{
		conv: nn.NewConv2D("conv", 1, 8, 3, 1, 0, rng),
		relu: nn.NewReLU(),
		pool: nn.NewMaxPool2D(2, 2),
		fc:   nn.NewLinear("fc", simpleFlat, 10, rng),
	}
}

// Forward computes class logits for a batch of images.
func (m *SimpleCNN) Forward(input *tensor.Tensor) *tensor.Tensor {
	x := asImageBatch(input)

	x = m.conv.Forward(x) // [batch, 8, 26, 26]
	x = m.relu.Forward(x)
	x = m.pool.Forward(x) // [batch, 8, 13, 13]

	m.poolShape = x.Shape().Clone()
	x = x.Reshape(m.poolShape[0], simpleFlat)

	return m.fc.Forward(x) // [batch, 10]
}

// Backward propagates dL/dlogits through the network, accumulating
// parameter gradients.
func (m *SimpleCNN) Backward(grad *tensor.Tensor) {
	g := m.fc.Backward(grad)
	g = g.Reshape(m.poolShape...)
	g = m.pool.Backward(g)
	g = m.relu.Backward(g)
	m.conv.Backward(g)
}

// Parameters returns all trainable parameters.
func (m *SimpleCNN) Parameters() []*nn.Parameter {
	params := make([]*nn.Parameter, 0, 4)
	params = append(params, m.conv.Parameters()...)
	params = append(params, m.fc.Parameters()...)
	return params
}

// String describes the architecture.
func (m *SimpleCNN) String() string {
	return fmt.Sprintf("SimpleCNN(\n  %s\n  ReLU()\n  %s\n  %s\n)",
		m.conv.String(), m.pool.String(), m.fc.String())
}
