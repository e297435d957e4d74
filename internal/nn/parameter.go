package nn

import "github.com/digitnet-ml/digitnet/internal/tensor"

// Parameter is a trainable tensor together with its gradient buffer.
//
// Gradients are accumulated by Layer.Backward and consumed by the
// optimizers in internal/optim. The gradient buffer always has the same
// shape as the value and is allocated up front.
type Parameter struct {
	name  string
	value *tensor.Tensor
	grad  *tensor.Tensor
}

// NewParameter creates a parameter around an initialized value tensor.
//
// The name is descriptive ("conv1.weight", "fc2.bias") and shows up in
// checkpoint state dicts.
func NewParameter(name string, value *tensor.Tensor) *Parameter {
	return &Parameter{
		name:  name,
		value: value,
		grad:  tensor.New(value.Shape()),
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the parameter tensor.
func (p *Parameter) Value() *tensor.Tensor {
	return p.value
}

// Grad returns the gradient tensor accumulated by the last backward pass.
func (p *Parameter) Grad() *tensor.Tensor {
	return p.grad
}

// ZeroGrad clears the gradient buffer.
//
// Call before each backward pass to avoid accumulating gradients across
// training steps.
func (p *Parameter) ZeroGrad() {
	p.grad.Zero()
}
