package train

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.TaskID != 1 || cfg.TrainingSetSize != "10k" {
		t.Errorf("default data selection: task %d, size %q", cfg.TaskID, cfg.TrainingSetSize)
	}
	if cfg.Epochs != 100 || cfg.LearningRate != 0.003 || cfg.BatchSizePerReplica != 128 {
		t.Errorf("default optimization knobs changed: %+v", cfg)
	}
	if cfg.Hops != 3 || cfg.MemorySize != 100 || cfg.EmbeddingsSize != 80 {
		t.Errorf("default model knobs changed: %+v", cfg)
	}
	if cfg.EncodingsType != "learned_encoding" {
		t.Errorf("default encoding %q", cfg.EncodingsType)
	}
}

func TestLoadOverridesSubset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	body := "task_id: 3\nepochs: 5\nread_before_write: true\nencodings_type: position_encoding\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TaskID != 3 || cfg.Epochs != 5 || !cfg.ReadBeforeWrite || cfg.EncodingsType != "position_encoding" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	// Everything the file does not mention keeps its default.
	if cfg.LearningRate != 0.003 || cfg.MemorySize != 100 || cfg.TrainingSetSize != "10k" {
		t.Errorf("defaults lost under partial override: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("missing config file accepted")
	}
}
