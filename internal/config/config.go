// Package config loads rapgen settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix marks environment variables read by EnvOverlay.
const EnvPrefix = "RAPGEN_"

// Config is the full set of settings.
type Config struct {
	DataDir  string   `yaml:"data_dir"`
	DB       string   `yaml:"db"`
	Model    string   `yaml:"model"`
	Train    Train    `yaml:"train"`
	Generate Generate `yaml:"generate"`
	Evaluate Evaluate `yaml:"evaluate"`
}

// Train holds perceptron training settings.
type Train struct {
	Epochs      int     `yaml:"epochs"`
	Capacity    int     `yaml:"capacity"`
	DefaultCost float64 `yaml:"default_cost"`
	Shuffle     bool    `yaml:"shuffle"`
	Seed        uint64  `yaml:"seed"`
}

// Generate holds decoding settings.
type Generate struct {
	BeamWidth   int    `yaml:"beam_width"`
	NBest       int    `yaml:"n_best"`
	CacheSize   int    `yaml:"cache_size"`
	Concurrency int    `yaml:"concurrency"`
	Seed        uint64 `yaml:"seed"`
}

// Evaluate holds cross validation settings.
type Evaluate struct {
	Folds int `yaml:"folds"`
}

// Defaults returns a Config with every field set.
func Defaults() Config {
	return Config{
		DataDir: "data",
		DB:      "rapgen.db",
		Train: Train{
			Epochs:      20,
			Capacity:    1 << 20,
			DefaultCost: 10,
			Seed:        1,
		},
		Generate: Generate{
			BeamWidth:   16,
			NBest:       1,
			CacheSize:   1024,
			Concurrency: 4,
			Seed:        1,
		},
		Evaluate: Evaluate{
			Folds: 5,
		},
	}
}

// Load reads YAML from path, or from raw when it is not empty, on top of
// Defaults. Unknown keys are rejected.
func Load(path string, raw []byte) (Config, error) {
	cfg := Defaults()
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("config: no source provided")
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// EnvOverlay applies RAPGEN_* variables from environ to cfg. Supported
// keys: DATA_DIR, DB, MODEL, EPOCHS, BEAM_WIDTH, CONCURRENCY.
func EnvOverlay(cfg Config, environ []string) (Config, error) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		key, val, ok := strings.Cut(strings.TrimPrefix(kv, EnvPrefix), "=")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		var err error
		switch key {
		case "DATA_DIR":
			cfg.DataDir = val
		case "DB":
			cfg.DB = val
		case "MODEL":
			cfg.Model = val
		case "EPOCHS":
			cfg.Train.Epochs, err = strconv.Atoi(val)
		case "BEAM_WIDTH":
			cfg.Generate.BeamWidth, err = strconv.Atoi(val)
		case "CONCURRENCY":
			cfg.Generate.Concurrency, err = strconv.Atoi(val)
		}
		if err != nil {
			return cfg, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Train.Epochs < 1 {
		return errors.New("config: train.epochs must be >= 1")
	}
	if c.Train.Capacity < 1 {
		return errors.New("config: train.capacity must be >= 1")
	}
	if c.Train.DefaultCost < 0 {
		return errors.New("config: train.default_cost must be >= 0")
	}
	if c.Generate.BeamWidth < 1 {
		return errors.New("config: generate.beam_width must be >= 1")
	}
	if c.Generate.NBest < 1 {
		return errors.New("config: generate.n_best must be >= 1")
	}
	if c.Generate.CacheSize < 1 {
		return errors.New("config: generate.cache_size must be >= 1")
	}
	if c.Generate.Concurrency < 1 {
		return errors.New("config: generate.concurrency must be >= 1")
	}
	if c.Evaluate.Folds < 2 {
		return errors.New("config: evaluate.folds must be >= 2")
	}
	return nil
}
