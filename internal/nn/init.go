package nn

import (
	"math"
	"math/rand"

	"github.com/digitnet-ml/digitnet/internal/tensor"
)

// Xavier returns a tensor initialized with Xavier/Glorot uniform values:
// U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
//
// This keeps activation variance roughly constant across layers. The
// random source is injected so model construction is reproducible under a
// fixed seed.
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t := tensor.New(shape)
	data := t.Data()
	for i := range data {
		data[i] = float32((rng.Float64()*2.0 - 1.0) * bound)
	}
	return t
}

// Zeros returns a zero-filled tensor. Used for bias initialization.
func Zeros(shape tensor.Shape) *tensor.Tensor {
	return tensor.New(shape)
}
