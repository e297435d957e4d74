package nn

import (
	"fmt"

	"github.com/digitnet-ml/digitnet/internal/tensor"
)

// MaxPool2D is a 2D max pooling layer with a square window.
//
// Pooling reduces spatial dimensions by taking the maximum of each
// window. The layer has no trainable parameters. The forward pass records
// which input element won each window so the backward pass can route the
// gradient to it.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, (height-kernel)/stride+1, (width-kernel)/stride+1]
type MaxPool2D struct {
	kernelSize int
	stride     int

	inShape tensor.Shape
	argmax  []int // flat input index of the max for each output element
}

// NewMaxPool2D creates a max pooling layer. The common configuration is
// kernelSize=2, stride=2 (non-overlapping, halves each spatial dim).
func NewMaxPool2D(kernelSize, stride int) *MaxPool2D {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}
	return &MaxPool2D{kernelSize: kernelSize, stride: stride}
}

// Forward performs max pooling.
func (m *MaxPool2D) Forward(input *tensor.Tensor) *tensor.Tensor {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("maxpool2d: expected 4D input [N,C,H,W], got %v", shape))
	}

	batch, channels, h, w := shape[0], shape[1], shape[2], shape[3]
	outH := (h-m.kernelSize)/m.stride + 1
	outW := (w-m.kernelSize)/m.stride + 1
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid output size %dx%d", outH, outW))
	}

	m.inShape = shape.Clone()
	output := tensor.New(tensor.Shape{batch, channels, outH, outW})
	m.argmax = make([]int, output.NumElements())

	x := input.Data()
	y := output.Data()

	out := 0
	for n := 0; n < batch; n++ {
		for c := 0; c < channels; c++ {
			plane := (n*channels + c) * h * w
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					h0 := oh * m.stride
					w0 := ow * m.stride
					best := plane + h0*w + w0
					bestVal := x[best]
					for kh := 0; kh < m.kernelSize; kh++ {
						row := plane + (h0+kh)*w
						for kw := 0; kw < m.kernelSize; kw++ {
							idx := row + w0 + kw
							if x[idx] > bestVal {
								bestVal = x[idx]
								best = idx
							}
						}
					}
					y[out] = bestVal
					m.argmax[out] = best
					out++
				}
			}
		}
	}

	return output
}

// Backward routes each output gradient to the input element that won its
// pooling window.
func (m *MaxPool2D) Backward(grad *tensor.Tensor) *tensor.Tensor {
	if m.argmax == nil {
		panic("maxpool2d: Backward called before Forward")
	}
	if grad.NumElements() != len(m.argmax) {
		panic(fmt.Sprintf("maxpool2d: bad gradient shape %v", grad.Shape()))
	}

	inputGrad := tensor.New(m.inShape.Clone())
	gx := inputGrad.Data()
	for out, idx := range m.argmax {
		gx[idx] += grad.Data()[out]
	}
	return inputGrad
}

// Parameters returns an empty slice; pooling has no trainable parameters.
func (m *MaxPool2D) Parameters() []*Parameter {
	return nil
}

// String returns a description of the layer.
func (m *MaxPool2D) String() string {
	return fmt.Sprintf("MaxPool2D(kernel=%d, stride=%d)", m.kernelSize, m.stride)
}
