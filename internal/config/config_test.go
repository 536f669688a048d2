package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults() invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	raw := []byte(`
data_dir: corpus
train:
  epochs: 50
  shuffle: true
generate:
  beam_width: 8
`)
	cfg, err := Load("", raw)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != "corpus" || cfg.Train.Epochs != 50 || !cfg.Train.Shuffle || cfg.Generate.BeamWidth != 8 {
		t.Errorf("fields not mapped: %+v", cfg)
	}
	// Unset keys keep their defaults.
	if cfg.DB != "rapgen.db" || cfg.Generate.NBest != 1 || cfg.Train.DefaultCost != 10 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rapgen.yaml")
	if err := os.WriteFile(path, []byte("evaluate:\n  folds: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Evaluate.Folds != 3 {
		t.Errorf("folds = %d, want 3", cfg.Evaluate.Folds)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown top-level key", "unknown: 1\n"},
		{"unknown nested key", "train:\n  rate: 0.1\n"},
		{"wrong type", "train:\n  epochs: many\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load("", []byte(tt.raw)); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := Load("", nil); err == nil {
		t.Error("expected error without source")
	}
}

func TestEnvOverlay(t *testing.T) {
	env := []string{
		"HOME=/root",
		"RAPGEN_DATA_DIR=/tmp/data",
		"RAPGEN_EPOCHS=7",
		"RAPGEN_BEAM_WIDTH=3",
		"RAPGEN_UNKNOWN=1",
	}
	cfg, err := EnvOverlay(Defaults(), env)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != "/tmp/data" || cfg.Train.Epochs != 7 || cfg.Generate.BeamWidth != 3 {
		t.Errorf("overlay not applied: %+v", cfg)
	}

	if _, err := EnvOverlay(Defaults(), []string{"RAPGEN_EPOCHS=x"}); err == nil {
		t.Error("expected error for non-numeric epochs")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"epochs", func(c *Config) { c.Train.Epochs = 0 }},
		{"capacity", func(c *Config) { c.Train.Capacity = 0 }},
		{"default cost", func(c *Config) { c.Train.DefaultCost = -1 }},
		{"beam width", func(c *Config) { c.Generate.BeamWidth = 0 }},
		{"n best", func(c *Config) { c.Generate.NBest = 0 }},
		{"cache size", func(c *Config) { c.Generate.CacheSize = 0 }},
		{"concurrency", func(c *Config) { c.Generate.Concurrency = 0 }},
		{"folds", func(c *Config) { c.Evaluate.Folds = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
