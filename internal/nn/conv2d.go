package nn

import (
	"fmt"
	"math/rand"

	"github.com/digitnet-ml/digitnet/internal/tensor"
)

// Conv2D is a 2D convolutional layer.
//
// Shapes:
//   - input:  [batch, inChannels, height, width]
//   - weight: [outChannels, inChannels, kernel, kernel]
//   - bias:   [outChannels]
//   - output: [batch, outChannels, outH, outW]
//
// where
//
//	outH = (height + 2*padding - kernel)/stride + 1
//	outW = (width  + 2*padding - kernel)/stride + 1
//
// The forward pass is a direct convolution; the backward pass distributes
// the output gradient to the input, kernel and bias in a single fused
// loop nest.
type Conv2D struct {
	inChannels  int
	outChannels int
	kernelSize  int
	stride      int
	padding     int

	weight *Parameter
	bias   *Parameter

	input *tensor.Tensor // cached by Forward for the backward pass
}

// NewConv2D creates a convolutional layer with a square kernel, Xavier
// initialized weights and zero biases.
func NewConv2D(name string, inChannels, outChannels, kernelSize, stride, padding int, rng *rand.Rand) *Conv2D {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	if kernelSize <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %d", padding))
	}

	fanIn := inChannels * kernelSize * kernelSize
	fanOut := outChannels * kernelSize * kernelSize
	weightShape := tensor.Shape{outChannels, inChannels, kernelSize, kernelSize}
	weight := Xavier(fanIn, fanOut, weightShape, rng)
	bias := Zeros(tensor.Shape{outChannels})

	return &Conv2D{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		stride:      stride,
		padding:     padding,
		weight:      NewParameter(name+".weight", weight),
		bias:        NewParameter(name+".bias", bias),
	}
}

// OutputSize returns the spatial output dimensions for an input of the
// given height and width.
func (c *Conv2D) OutputSize(inputH, inputW int) (int, int) {
	outH := (inputH+2*c.padding-c.kernelSize)/c.stride + 1
	outW := (inputW+2*c.padding-c.kernelSize)/c.stride + 1
	return outH, outW
}

// Forward performs the convolution.
func (c *Conv2D) Forward(input *tensor.Tensor) *tensor.Tensor {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input [N,C,H,W], got %v", shape))
	}
	if shape[1] != c.inChannels {
		panic(fmt.Sprintf("conv2d: input channels %d != expected %d", shape[1], c.inChannels))
	}

	batch, h, w := shape[0], shape[2], shape[3]
	outH, outW := c.OutputSize(h, w)
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output size %dx%d (check stride/padding)", outH, outW))
	}

	c.input = input
	output := tensor.New(tensor.Shape{batch, c.outChannels, outH, outW})

	x := input.Data()
	wt := c.weight.value.Data()
	b := c.bias.value.Data()
	y := output.Data()

	k := c.kernelSize
	for n := 0; n < batch; n++ {
		xBatch := x[n*c.inChannels*h*w:]
		yBatch := y[n*c.outChannels*outH*outW:]
		for co := 0; co < c.outChannels; co++ {
			wOut := wt[co*c.inChannels*k*k:]
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					sum := b[co]
					for ci := 0; ci < c.inChannels; ci++ {
						xChan := xBatch[ci*h*w:]
						wChan := wOut[ci*k*k:]
						for kh := 0; kh < k; kh++ {
							ih := oh*c.stride - c.padding + kh
							if ih < 0 || ih >= h {
								continue
							}
							for kw := 0; kw < k; kw++ {
								iw := ow*c.stride - c.padding + kw
								if iw < 0 || iw >= w {
									continue
								}
								sum += xChan[ih*w+iw] * wChan[kh*k+kw]
							}
						}
					}
					yBatch[co*outH*outW+oh*outW+ow] = sum
				}
			}
		}
	}

	return output
}

// Backward accumulates kernel and bias gradients and returns dL/dinput.
//
// For every output position the gradient value is scattered back to the
// input positions and kernel taps that produced it, mirroring the forward
// loop exactly.
func (c *Conv2D) Backward(grad *tensor.Tensor) *tensor.Tensor {
	if c.input == nil {
		panic("conv2d: Backward called before Forward")
	}
	inShape := c.input.Shape()
	gShape := grad.Shape()
	batch, h, w := inShape[0], inShape[2], inShape[3]
	outH, outW := gShape[2], gShape[3]

	inputGrad := tensor.New(inShape.Clone())

	x := c.input.Data()
	wt := c.weight.value.Data()
	g := grad.Data()
	gx := inputGrad.Data()
	gw := c.weight.grad.Data()
	gb := c.bias.grad.Data()

	k := c.kernelSize
	for n := 0; n < batch; n++ {
		xBatch := x[n*c.inChannels*h*w:]
		gxBatch := gx[n*c.inChannels*h*w:]
		gBatch := g[n*c.outChannels*outH*outW:]
		for co := 0; co < c.outChannels; co++ {
			wOut := wt[co*c.inChannels*k*k:]
			gwOut := gw[co*c.inChannels*k*k:]
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					gv := gBatch[co*outH*outW+oh*outW+ow]
					if gv == 0 {
						continue
					}
					gb[co] += gv
					for ci := 0; ci < c.inChannels; ci++ {
						xChan := xBatch[ci*h*w:]
						gxChan := gxBatch[ci*h*w:]
						wChan := wOut[ci*k*k:]
						gwChan := gwOut[ci*k*k:]
						for kh := 0; kh < k; kh++ {
							ih := oh*c.stride - c.padding + kh
							if ih < 0 || ih >= h {
								continue
							}
							for kw := 0; kw < k; kw++ {
								iw := ow*c.stride - c.padding + kw
								if iw < 0 || iw >= w {
									continue
								}
								gxChan[ih*w+iw] += gv * wChan[kh*k+kw]
								gwChan[kh*k+kw] += gv * xChan[ih*w+iw]
							}
						}
					}
				}
			}
		}
	}

	return inputGrad
}

// Parameters returns [weight, bias].
func (c *Conv2D) Parameters() []*Parameter {
	return []*Parameter{c.weight, c.bias}
}

// Weight returns the kernel parameter.
func (c *Conv2D) Weight() *Parameter {
	return c.weight
}

// String returns a description of the layer.
func (c *Conv2D) String() string {
	return fmt.Sprintf("Conv2D(in=%d, out=%d, kernel=%d, stride=%d, padding=%d)",
		c.inChannels, c.outChannels, c.kernelSize, c.stride, c.padding)
}
