package dataset

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrInvalidArgument is returned by NewCycler when the dataset slices are
// misaligned or the batch size is out of range.
var ErrInvalidArgument = errors.New("dataset: invalid argument")

// Cycler yields an endless stream of fixed-size training minibatches from
// a finite dataset.
//
// At the start of every pass the cycler draws a fresh uniform permutation
// of the example indices and partitions it into consecutive chunks of
// batchSize. Chunks are yielded in order; a remainder smaller than
// batchSize at the end of a pass is dropped, then the next permutation is
// drawn. The stream never terminates on its own — the training loop
// consumes it for a fixed number of steps.
//
// The cycler is pull-based and single-threaded: one caller drives it via
// Next. It never mutates the slices it was constructed with; batches are
// views into the original per-example slices in permuted order.
type Cycler struct {
	features  [][]float32
	labels    []int32
	batchSize int
	rng       *rand.Rand

	perm   []int // current pass permutation; nil means awaiting reshuffle
	cursor int   // next unconsumed position in perm
}

// CyclerOption customizes a Cycler.
type CyclerOption func(*Cycler)

// WithSeed makes the cycler's shuffle order deterministic. Two cyclers
// constructed over the same dataset with the same seed yield identical
// batch sequences.
func WithSeed(seed int64) CyclerOption {
	return func(c *Cycler) {
		c.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRand injects an explicit random source, overriding the default
// time-seeded one.
func WithRand(rng *rand.Rand) CyclerOption {
	return func(c *Cycler) {
		c.rng = rng
	}
}

// NewCycler creates a minibatch cycler over aligned feature and label
// slices.
//
// It fails with ErrInvalidArgument when the slices have different
// lengths, batchSize is not positive, or batchSize exceeds the dataset
// size. Without a seed option the shuffle order is time-seeded.
func NewCycler(features [][]float32, labels []int32, batchSize int, opts ...CyclerOption) (*Cycler, error) {
	if len(features) != len(labels) {
		return nil, fmt.Errorf("%w: %d features vs %d labels", ErrInvalidArgument, len(features), len(labels))
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d must be positive", ErrInvalidArgument, batchSize)
	}
	if batchSize > len(features) {
		return nil, fmt.Errorf("%w: batch size %d exceeds dataset size %d", ErrInvalidArgument, batchSize, len(features))
	}

	c := &Cycler{
		features:  features,
		labels:    labels,
		batchSize: batchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c, nil
}

// Next returns the next minibatch.
//
// The returned slices are freshly allocated per call; their elements
// alias the per-example feature slices of the underlying dataset.
// batchFeatures[i] and batchLabels[i] always refer to the same original
// example.
func (c *Cycler) Next() (batchFeatures [][]float32, batchLabels []int32) {
	if c.perm == nil || c.cursor+c.batchSize > len(c.perm) {
		// Pass exhausted (or first call): reshuffle and drop the
		// remainder of the previous pass.
		c.perm = c.rng.Perm(len(c.features))
		c.cursor = 0
	}

	batchFeatures = make([][]float32, c.batchSize)
	batchLabels = make([]int32, c.batchSize)
	for i := 0; i < c.batchSize; i++ {
		idx := c.perm[c.cursor+i]
		batchFeatures[i] = c.features[idx]
		batchLabels[i] = c.labels[idx]
	}
	c.cursor += c.batchSize

	return batchFeatures, batchLabels
}

// BatchSize returns the configured batch size.
func (c *Cycler) BatchSize() int {
	return c.batchSize
}

// NumExamples returns the dataset size.
func (c *Cycler) NumExamples() int {
	return len(c.features)
}

// BatchesPerPass returns how many full batches one pass over the dataset
// yields before the remainder is dropped and a reshuffle occurs.
func (c *Cycler) BatchesPerPass() int {
	return len(c.features) / c.batchSize
}
