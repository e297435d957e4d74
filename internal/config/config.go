// Package config loads and validates the training run configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	DataDir    string  `yaml:"data_dir"`
	Synthetic  bool    `yaml:"synthetic"`
	Model      string  `yaml:"model"`     // "simple" or "lenet5"
	Optimizer  string  `yaml:"optimizer"` // "sgd" or "adam"
	Steps      int     `yaml:"steps"`
	BatchSize  int     `yaml:"batch_size"`
	LR         float64 `yaml:"lr"`
	Momentum   float64 `yaml:"momentum"`
	ValRatio   float64 `yaml:"val_ratio"`
	MaxSamples int     `yaml:"max_samples"`
	Seed       int64   `yaml:"seed"`
	LogEvery   int     `yaml:"log_every"`
	EvalEvery  int     `yaml:"eval_every"`
	Checkpoint string  `yaml:"checkpoint"`
	History    string  `yaml:"history"`
}

// Overrides captures CLI-supplied values; zero values leave the config
// untouched.
type Overrides struct {
	DataDir   string
	Synthetic bool
	Model     string
	Optimizer string
	Steps     int
	BatchSize int
	LR        float64
	Seed      int64
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DataDir:   "./data",
		Model:     "lenet5",
		Optimizer: "adam",
		Steps:     1000,
		BatchSize: 32,
		LR:        0.001,
		Momentum:  0.9,
		ValRatio:  0.2,
		Seed:      42,
		LogEvery:  50,
		EvalEvery: 200,
	}
}

// Load reads a Config from a YAML file, filling unset fields from
// Default.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.Synthetic {
		c.Synthetic = true
	}
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.Optimizer != "" {
		c.Optimizer = o.Optimizer
	}
	if o.Steps > 0 {
		c.Steps = o.Steps
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.LR > 0 {
		c.LR = o.LR
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if !c.Synthetic && c.DataDir == "" {
		return errors.New("data_dir must be set unless synthetic is enabled")
	}
	if c.Model != "simple" && c.Model != "lenet5" {
		return fmt.Errorf("model must be simple or lenet5 (got %q)", c.Model)
	}
	if c.Optimizer != "sgd" && c.Optimizer != "adam" {
		return fmt.Errorf("optimizer must be sgd or adam (got %q)", c.Optimizer)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be > 0 (got %d)", c.Steps)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.LR <= 0 {
		return fmt.Errorf("lr must be > 0 (got %g)", c.LR)
	}
	if c.ValRatio < 0 || c.ValRatio >= 1 {
		return fmt.Errorf("val_ratio must be in [0, 1) (got %g)", c.ValRatio)
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 50
	}
	if c.EvalEvery <= 0 {
		c.EvalEvery = 200
	}
	return nil
}
