package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAlignedData builds n examples where feature i is a one-element
// slice holding float32(i) and label i matches, so alignment between
// batch features and labels is directly checkable.
func newAlignedData(n int) ([][]float32, []int32) {
	features := make([][]float32, n)
	labels := make([]int32, n)
	for i := 0; i < n; i++ {
		features[i] = []float32{float32(i)}
		labels[i] = int32(i)
	}
	return features, labels
}

func TestCycler_InvalidArguments(t *testing.T) {
	features, labels := newAlignedData(10)

	_, err := NewCycler(features, labels[:9], 3)
	assert.ErrorIs(t, err, ErrInvalidArgument, "length mismatch")

	_, err = NewCycler(features, labels, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument, "zero batch size")

	_, err = NewCycler(features, labels, -2)
	assert.ErrorIs(t, err, ErrInvalidArgument, "negative batch size")

	_, err = NewCycler(features, labels, 11)
	assert.ErrorIs(t, err, ErrInvalidArgument, "batch size > dataset size")

	_, err = NewCycler(features, labels, 10)
	assert.NoError(t, err, "batch size == dataset size is valid")
}

func TestCycler_BatchShapeAndAlignment(t *testing.T) {
	features, labels := newAlignedData(10)
	cycler, err := NewCycler(features, labels, 3, WithSeed(1))
	require.NoError(t, err)

	for step := 0; step < 20; step++ {
		batchFeatures, batchLabels := cycler.Next()
		require.Len(t, batchFeatures, 3)
		require.Len(t, batchLabels, 3)
		for i := range batchFeatures {
			// Feature value and label always refer to the same example.
			assert.Equal(t, float32(batchLabels[i]), batchFeatures[i][0])
		}
	}
}

func TestCycler_NoDuplicateWithinPass(t *testing.T) {
	features, labels := newAlignedData(10)
	cycler, err := NewCycler(features, labels, 3, WithSeed(7))
	require.NoError(t, err)
	require.Equal(t, 3, cycler.BatchesPerPass())

	// Several consecutive passes: within each, 3 batches of 3 must use
	// 9 distinct indices out of [0, 10); the 10th is dropped.
	for pass := 0; pass < 5; pass++ {
		seen := make(map[int32]bool)
		for b := 0; b < cycler.BatchesPerPass(); b++ {
			_, batchLabels := cycler.Next()
			for _, label := range batchLabels {
				require.GreaterOrEqual(t, label, int32(0))
				require.Less(t, label, int32(10))
				require.False(t, seen[label], "pass %d: index %d yielded twice", pass, label)
				seen[label] = true
			}
		}
		assert.Len(t, seen, 9, "pass %d: one remainder example should be dropped", pass)
	}
}

func TestCycler_SeedDeterminism(t *testing.T) {
	features, labels := newAlignedData(50)

	a, err := NewCycler(features, labels, 8, WithSeed(42))
	require.NoError(t, err)
	b, err := NewCycler(features, labels, 8, WithSeed(42))
	require.NoError(t, err)

	for step := 0; step < 30; step++ {
		_, labelsA := a.Next()
		_, labelsB := b.Next()
		require.Equal(t, labelsA, labelsB, "step %d", step)
	}
}

func TestCycler_FullDatasetBatch(t *testing.T) {
	features, labels := newAlignedData(10)
	cycler, err := NewCycler(features, labels, 10, WithSeed(3))
	require.NoError(t, err)
	require.Equal(t, 1, cycler.BatchesPerPass())

	// Every pass is a single batch containing all N examples in some
	// shuffled order.
	for pass := 0; pass < 3; pass++ {
		_, batchLabels := cycler.Next()
		require.Len(t, batchLabels, 10)
		seen := make(map[int32]bool)
		for _, label := range batchLabels {
			seen[label] = true
		}
		assert.Len(t, seen, 10, "pass %d: all examples used exactly once", pass)
	}
}

func TestCycler_DoesNotMutateDataset(t *testing.T) {
	features, labels := newAlignedData(10)
	cycler, err := NewCycler(features, labels, 4, WithSeed(9))
	require.NoError(t, err)

	for step := 0; step < 10; step++ {
		cycler.Next()
	}

	for i := 0; i < 10; i++ {
		assert.Equal(t, float32(i), features[i][0])
		assert.Equal(t, int32(i), labels[i])
	}
}

func TestCycler_ErrorWrapping(t *testing.T) {
	_, err := NewCycler(nil, []int32{1}, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Contains(t, err.Error(), "features")
}
