package trainer

import (
	"context"
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitnet-ml/digitnet/internal/checkpoint"
	"github.com/digitnet-ml/digitnet/internal/dataset"
	"github.com/digitnet-ml/digitnet/internal/model"
	"github.com/digitnet-ml/digitnet/internal/nn"
	"github.com/digitnet-ml/digitnet/internal/optim"
)

func TestRun_Synthetic(t *testing.T) {
	dir := t.TempDir()
	ckptPath := filepath.Join(dir, "best.ckpt")
	histPath := filepath.Join(dir, "history.csv")

	cfg := RunConfig{
		Synthetic:  true,
		Model:      "simple",
		Optimizer:  "sgd",
		Steps:      20,
		BatchSize:  16,
		LR:         0.01,
		ValRatio:   0.2,
		Seed:       1,
		LogEvery:   10,
		EvalEvery:  10,
		Checkpoint: ckptPath,
		History:    histPath,
	}

	require.NoError(t, Run(context.Background(), cfg))

	// The history file carries a header plus train and val rows.
	file, err := os.Open(histPath)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(rows), 1)
	assert.Equal(t, []string{"step", "split", "loss", "accuracy"}, rows[0])

	splits := map[string]bool{}
	for _, row := range rows[1:] {
		require.Len(t, row, 4)
		splits[row[1]] = true
	}
	assert.True(t, splits["train"])
	assert.True(t, splits["val"])

	// The best checkpoint must restore into a fresh model.
	fresh, err := model.New("simple", rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	assert.NoError(t, checkpoint.Load(ckptPath, fresh.Parameters()))
}

func TestRun_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	err := Run(ctx, RunConfig{Synthetic: true, Model: "simple", Optimizer: "sgd", BatchSize: 8})
	assert.Error(t, err, "zero steps")

	err = Run(ctx, RunConfig{Synthetic: true, Model: "simple", Optimizer: "sgd", Steps: 10})
	assert.Error(t, err, "zero batch size")

	err = Run(ctx, RunConfig{
		Synthetic: true, Model: "simple", Optimizer: "rmsprop",
		Steps: 10, BatchSize: 8, LR: 0.01, Seed: 1,
	})
	assert.Error(t, err, "unknown optimizer")

	err = Run(ctx, RunConfig{
		Synthetic: true, Model: "transformer", Optimizer: "sgd",
		Steps: 10, BatchSize: 8, LR: 0.01, Seed: 1,
	})
	assert.Error(t, err, "unknown model")
}

func TestRun_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, RunConfig{
		Synthetic: true, Model: "simple", Optimizer: "sgd",
		Steps: 100, BatchSize: 8, LR: 0.01, Seed: 1,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestTraining_ReducesLoss drives the same components Run wires together
// and checks that optimization makes progress on the synthetic patterns.
func TestTraining_ReducesLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := dataset.Synthetic(200)

	cycler, err := dataset.NewCycler(data.Images, data.Labels, 20, dataset.WithRand(rng))
	require.NoError(t, err)

	mdl := model.NewSimpleCNN(rng)
	opt := optim.NewAdam(mdl.Parameters(), optim.AdamConfig{LR: 0.005})
	criterion := nn.NewCrossEntropyLoss()

	const steps = 60
	losses := make([]float64, 0, steps)
	for step := 0; step < steps; step++ {
		features, labels := cycler.Next()
		input := packBatch(features)

		opt.ZeroGrad()
		logits := mdl.Forward(input)
		loss := criterion.Forward(logits, labels)
		mdl.Backward(criterion.Backward())
		opt.Step()

		losses = append(losses, float64(loss))
	}

	first := mean(losses[:10])
	last := mean(losses[steps-10:])
	assert.Less(t, last, first, "loss did not decrease: first=%.4f last=%.4f", first, last)
}

func TestEvaluate_EmptyDataset(t *testing.T) {
	mdl := model.NewSimpleCNN(rand.New(rand.NewSource(1)))
	loss, acc := Evaluate(mdl, &dataset.Dataset{})
	assert.Zero(t, loss)
	assert.Zero(t, acc)
}

func TestEvaluate_PerfectModel(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := dataset.Synthetic(50)

	mdl := model.NewSimpleCNN(rng)
	opt := optim.NewAdam(mdl.Parameters(), optim.AdamConfig{LR: 0.01})
	criterion := nn.NewCrossEntropyLoss()

	cycler, err := dataset.NewCycler(data.Images, data.Labels, 25, dataset.WithRand(rng))
	require.NoError(t, err)

	// The ten banded patterns are trivially separable, so a short fit
	// reaches full accuracy on them.
	for step := 0; step < 100; step++ {
		features, labels := cycler.Next()
		input := packBatch(features)

		opt.ZeroGrad()
		logits := mdl.Forward(input)
		criterion.Forward(logits, labels)
		mdl.Backward(criterion.Backward())
		opt.Step()
	}

	_, acc := Evaluate(mdl, data)
	assert.Greater(t, float64(acc), 0.9)
}

func TestPackBatch(t *testing.T) {
	features := [][]float32{
		make([]float32, dataset.ImageSize),
		make([]float32, dataset.ImageSize),
	}
	features[0][0] = 0.5
	features[1][dataset.ImageSize-1] = 0.25

	input := packBatch(features)
	require.True(t, input.Shape().Equal([]int{2, 1, dataset.ImageRows, dataset.ImageCols}))

	data := input.Data()
	assert.Equal(t, float32(0.5), data[0])
	assert.Equal(t, float32(0.25), data[2*dataset.ImageSize-1])
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
