// Package optim implements the optimization algorithms used to train the
// digitnet models.
//
// This package provides:
//   - Optimizer interface shared by all algorithms
//   - SGD: stochastic gradient descent with optional momentum
//   - Adam: adaptive moment estimation with bias correction
//
// Optimizers read the gradients accumulated in each nn.Parameter by the
// backward pass and update the parameter values in place.
package optim

// Optimizer is the interface implemented by all optimization algorithms.
type Optimizer interface {
	// Step applies one update to every parameter using the gradients
	// currently held in their gradient buffers.
	Step()

	// ZeroGrad clears all parameter gradients. Call before each
	// backward pass to prevent accumulation across steps.
	ZeroGrad()

	// LR returns the current learning rate.
	LR() float32
}
