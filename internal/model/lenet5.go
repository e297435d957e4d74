package model

import (
	"fmt"
	"math/rand"

	"github.com/digitnet-ml/digitnet/internal/nn"
	"github.com/digitnet-ml/digitnet/internal/tensor"
)

// LeNet5 is a LeNet-5 style convolutional network adapted for 28x28
// MNIST images, with ReLU activations in place of the original sigmoids.
//
// Architecture:
//
//	Input:   [batch, 1, 28, 28]
//	Conv1:   1 -> 6 channels, 5x5 kernel -> [batch, 6, 24, 24]
//	ReLU
//	MaxPool: 2x2 -> [batch, 6, 12, 12]
//	Conv2:   6 -> 16 channels, 5x5 kernel -> [batch, 16, 8, 8]
//	ReLU
//	MaxPool: 2x2 -> [batch, 16, 4, 4]
//	Flatten -> [batch, 256]
//	FC1:     256 -> 120, ReLU
//	FC2:     120 -> 84, ReLU
//	FC3:     84 -> 10 (class logits)
//
// 44,426 trainable parameters. Reference: "Gradient-Based Learning
// Applied to Document Recognition" (LeCun et al., 1998).
type LeNet5 struct {
	conv1 *nn.Conv2D
	relu1 *nn.ReLU
	pool1 *nn.MaxPool2D
	conv2 *nn.Conv2D
	relu2 *nn.ReLU
	pool2 *nn.MaxPool2D
	fc1   *nn.Linear
	relu3 *nn.ReLU
	fc2   *nn.Linear
	relu4 *nn.ReLU
	fc3   *nn.Linear

	poolShape tensor.Shape // shape before flattening, for the backward reshape
}

const lenetFlat = 16 * 4 * 4

// NewLeNet5 creates the network with Xavier-initialized weights.
func NewLeNet5(rng *rand.Rand) *LeNet5 {
	return &LeNet5{
		conv1: nn.NewConv2D("conv1", 1, 6, 5, 1, 0, rng),
		relu1: nn.NewReLU(),
		pool1: nn.NewMaxPool2D(2, 2),
		conv2: nn.NewConv2D("conv2", 6, 16, 5, 1, 0, rng),
		relu2: nn.NewReLU(),
		pool2: nn.NewMaxPool2D(2, 2),
		fc1:   nn.NewLinear("fc1", lenetFlat, 120, rng),
		relu3: nn.NewReLU(),
		fc2:   nn.NewLinear("fc2", 120, 84, rng),
		relu4: nn.NewReLU(),
		fc3:   nn.NewLinear("fc3", 84, 10, rng),
	}
}

// Forward computes class logits for a batch of images.
func (m *LeNet5) Forward(input *tensor.Tensor) *tensor.Tensor {
	x := asImageBatch(input)

	x = m.conv1.Forward(x) // [batch, 6, 24, 24]
	x = m.relu1.Forward(x)
	x = m.pool1.Forward(x) // [batch, 6, 12, 12]

	x = m.conv2.Forward(x) // [batch, 16, 8, 8]
	x = m.relu2.Forward(x)
	x = m.pool2.Forward(x) // [batch, 16, 4, 4]

	m.poolShape = x.Shape().Clone()
	x = x.Reshape(m.poolShape[0], lenetFlat)

	x = m.fc1.Forward(x) // [batch, 120]
	x = m.relu3.Forward(x)
	x = m.fc2.Forward(x) // [batch, 84]
	x = m.relu4.Forward(x)
	return m.fc3.Forward(x) // [batch, 10]
}

// Backward propagates dL/dlogits through the network, accumulating
// parameter gradients.
func (m *LeNet5) Backward(grad *tensor.Tensor) {
	g := m.fc3.Backward(grad)
	g = m.relu4.Backward(g)
	g = m.fc2.Backward(g)
	g = m.relu3.Backward(g)
	g = m.fc1.Backward(g)

	g = g.Reshape(m.poolShape...)
	g = m.pool2.Backward(g)
	g = m.relu2.Backward(g)
	g = m.conv2.Backward(g)
	g = m.pool1.Backward(g)
	g = m.relu1.Backward(g)
	m.conv1.Backward(g)
}

// Parameters returns all trainable parameters in layer order.
func (m *LeNet5) Parameters() []*nn.Parameter {
	params := make([]*nn.Parameter, 0, 10)
	params = append(params, m.conv1.Parameters()...)
	params = append(params, m.conv2.Parameters()...)
	params = append(params, m.fc1.Parameters()...)
	params = append(params, m.fc2.Parameters()...)
	params = append(params, m.fc3.Parameters()...)
	return params
}

// String describes the architecture.
func (m *LeNet5) String() string {
	return fmt.Sprintf("LeNet5(\n  %s\n  ReLU()\n  %s\n  %s\n  ReLU()\n  %s\n  %s\n  ReLU()\n  %s\n  ReLU()\n  %s\n)",
		m.conv1.String(), m.pool1.String(),
		m.conv2.String(), m.pool2.String(),
		m.fc1.String(), m.fc2.String(), m.fc3.String())
}
