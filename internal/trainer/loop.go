// Package trainer drives the counted training loop: it pulls minibatches
// from the dataset cycler, runs the forward/backward pass, steps the
// optimizer, and periodically validates and checkpoints the model.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/digitnet-ml/digitnet/internal/checkpoint"
	"github.com/digitnet-ml/digitnet/internal/dataset"
	"github.com/digitnet-ml/digitnet/internal/metrics"
	"github.com/digitnet-ml/digitnet/internal/model"
	"github.com/digitnet-ml/digitnet/internal/nn"
	"github.com/digitnet-ml/digitnet/internal/optim"
	"github.com/digitnet-ml/digitnet/internal/tensor"
)

// Batch size used when sweeping the validation set. Larger than the
// training batch because no gradients are kept.
const evalBatchSize = 256

// Synthetic dataset size when no MNIST files are used.
const syntheticSamples = 500

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	DataDir    string
	Synthetic  bool
	Model      string // "simple" or "lenet5"
	Optimizer  string // "sgd" or "adam"
	Steps      int
	BatchSize  int
	LR         float64
	Momentum   float64
	ValRatio   float64
	MaxSamples int
	Seed       int64
	LogEvery   int
	EvalEvery  int
	Checkpoint string // path for the best-validation checkpoint, "" disables
	History    string // path for the CSV metric history, "" disables
}

// Run executes the training workload.
//
// The loop is step-counted: it consumes exactly cfg.Steps batches from
// the cycler's infinite stream, regardless of epoch boundaries. Any
// failure from the model or I/O is fatal and propagates unchanged.
func Run(ctx context.Context, cfg RunConfig) error {
	if cfg.Steps <= 0 {
		return errors.New("trainer: steps must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return errors.New("trainer: batch size must be > 0")
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 50
	}
	if cfg.EvalEvery <= 0 {
		cfg.EvalEvery = 200
	}

	runID := uuid.NewString()[:8]

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	trainData, valData, err := loadData(cfg)
	if err != nil {
		return err
	}
	log.Printf("run=%s train_samples=%d val_samples=%d seed=%d",
		runID, trainData.NumSamples(), valData.NumSamples(), seed)

	cycler, err := dataset.NewCycler(trainData.Images, trainData.Labels, cfg.BatchSize,
		dataset.WithRand(rng))
	if err != nil {
		return fmt.Errorf("trainer: %w", err)
	}

	mdl, err := model.New(cfg.Model, rng)
	if err != nil {
		return err
	}
	log.Printf("run=%s model=%s parameters=%d", runID, cfg.Model, model.CountParameters(mdl))

	opt, err := newOptimizer(cfg, mdl.Parameters())
	if err != nil {
		return err
	}

	var history *historyWriter
	if cfg.History != "" {
		history, err = newHistoryWriter(cfg.History)
		if err != nil {
			return err
		}
		defer history.Close()
	}

	criterion := nn.NewCrossEntropyLoss()
	var window metrics.Window
	bestValAcc := float32(-1)

	for step := 1; step <= cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		startData := time.Now()
		batchFeatures, batchLabels := cycler.Next()
		input := packBatch(batchFeatures)
		dataTime := time.Since(startData)

		startCompute := time.Now()
		opt.ZeroGrad()
		logits := mdl.Forward(input)
		loss := criterion.Forward(logits, batchLabels)
		mdl.Backward(criterion.Backward())
		opt.Step()
		computeTime := time.Since(startCompute)

		if math.IsNaN(float64(loss)) || math.IsInf(float64(loss), 0) {
			return fmt.Errorf("trainer: loss diverged at step %d (loss=%g)", step, loss)
		}

		acc := nn.Accuracy(logits, batchLabels)
		window.Record(cfg.BatchSize, dataTime, computeTime, float64(loss), float64(acc))

		if step%cfg.LogEvery == 0 {
			snap := window.Snapshot()
			log.Printf("run=%s step=%d loss=%.4f acc=%.4f images_per_sec=%.1f data_ms=%.2f compute_ms=%.2f",
				runID, step, snap.AvgLoss, snap.Accuracy,
				snap.ImagesPerSec, snap.AvgDataMS, snap.AvgComputeMS)
			if history != nil {
				if err := history.Write(step, "train", snap.AvgLoss, snap.Accuracy); err != nil {
					return err
				}
			}
		}

		if step%cfg.EvalEvery == 0 || step == cfg.Steps {
			valLoss, valAcc := Evaluate(mdl, valData)
			log.Printf("run=%s step=%d val_loss=%.4f val_acc=%.4f", runID, step, valLoss, valAcc)
			if history != nil {
				if err := history.Write(step, "val", float64(valLoss), float64(valAcc)); err != nil {
					return err
				}
			}
			if cfg.Checkpoint != "" && valAcc > bestValAcc {
				bestValAcc = valAcc
				if err := checkpoint.Save(cfg.Checkpoint, mdl.Parameters()); err != nil {
					return err
				}
				log.Printf("run=%s step=%d checkpoint=%s val_acc=%.4f", runID, step, cfg.Checkpoint, valAcc)
			}
		}
	}

	return nil
}

// Evaluate sweeps the dataset once in fixed, unshuffled batches and
// returns the mean loss and accuracy.
func Evaluate(mdl model.Model, data *dataset.Dataset) (loss, accuracy float32) {
	criterion := nn.NewCrossEntropyLoss()

	n := data.NumSamples()
	if n == 0 {
		return 0, 0
	}
	totalLoss := float32(0)
	totalCorrect := 0

	for start := 0; start < n; start += evalBatchSize {
		end := start + evalBatchSize
		if end > n {
			end = n
		}
		input := packBatch(data.Images[start:end])
		labels := data.Labels[start:end]

		logits := mdl.Forward(input)
		batchLoss := criterion.Forward(logits, labels)
		batchAcc := nn.Accuracy(logits, labels)

		size := end - start
		totalLoss += batchLoss * float32(size)
		totalCorrect += int(batchAcc*float32(size) + 0.5)
	}

	return totalLoss / float32(n), float32(totalCorrect) / float32(n)
}

// packBatch copies a batch of flattened images into an NCHW input tensor.
func packBatch(features [][]float32) *tensor.Tensor {
	batch := len(features)
	input := tensor.New(tensor.Shape{batch, 1, dataset.ImageRows, dataset.ImageCols})
	data := input.Data()
	for i, img := range features {
		copy(data[i*dataset.ImageSize:(i+1)*dataset.ImageSize], img)
	}
	return input
}

func loadData(cfg RunConfig) (train, val *dataset.Dataset, err error) {
	if cfg.Synthetic {
		train, val = dataset.Synthetic(syntheticSamples).Split(cfg.ValRatio)
		return train, val, nil
	}
	all, err := dataset.Load(cfg.DataDir, true, cfg.MaxSamples)
	if err != nil {
		return nil, nil, fmt.Errorf("trainer: load dataset: %w", err)
	}
	train, val = all.Split(cfg.ValRatio)
	return train, val, nil
}

func newOptimizer(cfg RunConfig, params []*nn.Parameter) (optim.Optimizer, error) {
	switch cfg.Optimizer {
	case "sgd":
		return optim.NewSGD(params, optim.SGDConfig{
			LR:       float32(cfg.LR),
			Momentum: float32(cfg.Momentum),
		}), nil
	case "adam":
		return optim.NewAdam(params, optim.AdamConfig{
			LR: float32(cfg.LR),
		}), nil
	default:
		return nil, fmt.Errorf("trainer: unknown optimizer %q (want sgd or adam)", cfg.Optimizer)
	}
}
