// Package nn implements the neural network layers used by the digitnet
// models.
//
// This package provides:
//   - Layer interface: forward/backward contract shared by all layers
//   - Parameter: trainable tensors with gradient buffers
//   - Linear: fully connected layer
//   - Conv2D: 2D convolution
//   - MaxPool2D: 2D max pooling
//   - Activations: ReLU, Tanh
//   - CrossEntropyLoss and classification Accuracy
//
// Layers carry their own backward pass. Each Forward call caches whatever
// the matching Backward needs, so a layer instance must not be shared
// between concurrent training steps.
package nn

import "github.com/digitnet-ml/digitnet/internal/tensor"

// Layer is the interface implemented by every network building block.
//
// Forward computes the layer output for a batch. Backward takes the
// gradient of the loss with respect to the layer output, accumulates
// gradients into the layer's parameters, and returns the gradient with
// respect to the layer input. Backward must be called after Forward on
// the same batch.
type Layer interface {
	Forward(input *tensor.Tensor) *tensor.Tensor
	Backward(grad *tensor.Tensor) *tensor.Tensor
	Parameters() []*Parameter
	String() string
}
