// Command digitnet trains a convolutional digit classifier on MNIST.
//
// Usage:
//
//	digitnet -data ./data -model lenet5 -steps 2000 -batch 32
//	digitnet -synthetic -model simple -steps 200
//
// Configuration can also come from a YAML file (-config); flags override
// file values.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/digitnet-ml/digitnet/internal/config"
	"github.com/digitnet-ml/digitnet/internal/trainer"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	dataDir := flag.String("data", "", "Directory containing MNIST IDX files")
	synthetic := flag.Bool("synthetic", false, "Use synthetic data instead of MNIST files")
	modelName := flag.String("model", "", "Model architecture: simple or lenet5")
	optimizer := flag.String("optimizer", "", "Optimizer: sgd or adam")
	steps := flag.Int("steps", 0, "Number of training steps")
	batchSize := flag.Int("batch", 0, "Batch size")
	lr := flag.Float64("lr", 0, "Learning rate")
	seed := flag.Int64("seed", 0, "PRNG seed (0 = config default)")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	cfg.ApplyOverrides(config.Overrides{
		DataDir:   *dataDir,
		Synthetic: *synthetic,
		Model:     *modelName,
		Optimizer: *optimizer,
		Steps:     *steps,
		BatchSize: *batchSize,
		LR:        *lr,
		Seed:      *seed,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCfg := trainer.RunConfig{
		DataDir:    cfg.DataDir,
		Synthetic:  cfg.Synthetic,
		Model:      cfg.Model,
		Optimizer:  cfg.Optimizer,
		Steps:      cfg.Steps,
		BatchSize:  cfg.BatchSize,
		LR:         cfg.LR,
		Momentum:   cfg.Momentum,
		ValRatio:   cfg.ValRatio,
		MaxSamples: cfg.MaxSamples,
		Seed:       cfg.Seed,
		LogEvery:   cfg.LogEvery,
		EvalEvery:  cfg.EvalEvery,
		Checkpoint: cfg.Checkpoint,
		History:    cfg.History,
	}

	if err := trainer.Run(ctx, runCfg); err != nil {
		log.Fatalf("training failed: %v", err)
	}
}
