package nn

import (
	"fmt"
	"math"

	"github.com/digitnet-ml/digitnet/internal/tensor"
)

// CrossEntropyLoss computes cross-entropy for multi-class classification
// from raw logits.
//
// The forward pass uses the LogSoftmax + NLL decomposition with the
// log-sum-exp trick for numerical stability:
//
//	loss = -mean_b(logSoftmax(logits[b])[target[b]])
//
// The backward pass is the classic closed form, already averaged over the
// batch:
//
//	dL/dlogits[b] = (softmax(logits[b]) - onehot(target[b])) / batch
type CrossEntropyLoss struct {
	probs   *tensor.Tensor // softmax probabilities cached by Forward
	targets []int32
}

// NewCrossEntropyLoss creates a cross-entropy criterion.
func NewCrossEntropyLoss() *CrossEntropyLoss {
	return &CrossEntropyLoss{}
}

// Forward returns the mean loss over the batch.
//
// logits must be [batch, numClasses]; targets holds one class index in
// [0, numClasses) per example.
func (c *CrossEntropyLoss) Forward(logits *tensor.Tensor, targets []int32) float32 {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("cross entropy: logits must be 2D [batch, classes], got %v", shape))
	}
	batch, classes := shape[0], shape[1]
	if len(targets) != batch {
		panic(fmt.Sprintf("cross entropy: %d targets for batch of %d", len(targets), batch))
	}

	c.probs = tensor.New(shape.Clone())
	c.targets = targets

	data := logits.Data()
	probs := c.probs.Data()

	total := float32(0)
	for b := 0; b < batch; b++ {
		row := data[b*classes : (b+1)*classes]
		logProbs := logSoftmax(row)

		target := int(targets[b])
		if target < 0 || target >= classes {
			panic(fmt.Sprintf("cross entropy: target %d out of range [0, %d)", target, classes))
		}
		total += -logProbs[target]

		pRow := probs[b*classes : (b+1)*classes]
		for i, lp := range logProbs {
			pRow[i] = float32(math.Exp(float64(lp)))
		}
	}

	return total / float32(batch)
}

// Backward returns dL/dlogits for the last Forward call.
func (c *CrossEntropyLoss) Backward() *tensor.Tensor {
	if c.probs == nil {
		panic("cross entropy: Backward called before Forward")
	}

	shape := c.probs.Shape()
	batch, classes := shape[0], shape[1]
	grad := c.probs.Clone()
	data := grad.Data()

	inv := 1.0 / float32(batch)
	for b := 0; b < batch; b++ {
		row := data[b*classes : (b+1)*classes]
		row[c.targets[b]] -= 1.0
		for i := range row {
			row[i] *= inv
		}
	}

	return grad
}

// logSoftmax computes log(softmax(z)) via the log-sum-exp trick:
//
//	logSoftmax(z)[i] = z[i] - (max(z) + log(sum(exp(z - max(z)))))
func logSoftmax(z []float32) []float32 {
	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}

	sumExp := float32(0)
	for _, v := range z {
		sumExp += float32(math.Exp(float64(v - maxZ)))
	}
	logSumExp := maxZ + float32(math.Log(float64(sumExp)))

	out := make([]float32, len(z))
	for i, v := range z {
		out[i] = v - logSumExp
	}
	return out
}

// argmax returns the index of the maximum value.
func argmax(z []float32) int {
	best := 0
	for i, v := range z[1:] {
		if v > z[best] {
			best = i + 1
		}
	}
	return best
}

// Accuracy returns the fraction of examples whose argmax prediction
// matches the target, in [0, 1].
func Accuracy(logits *tensor.Tensor, targets []int32) float32 {
	shape := logits.Shape()
	batch, classes := shape[0], shape[1]
	data := logits.Data()

	correct := 0
	for b := 0; b < batch; b++ {
		row := data[b*classes : (b+1)*classes]
		if argmax(row) == int(targets[b]) {
			correct++
		}
	}
	return float32(correct) / float32(batch)
}
