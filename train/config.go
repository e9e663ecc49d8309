package train

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config covers the whole run: data selection, optimization and the
// model knobs. Zero values fall back to Default(); a YAML file can set
// any subset and CLI flags override on top.
type Config struct {
	TaskID          int     `yaml:"task_id"`
	DataDir         string  `yaml:"data_dir"`
	TrainingSetSize string  `yaml:"training_set_size"`
	MaxNumSentences int     `yaml:"max_num_sentences"` // -1 = corpus maximum

	Epochs              int     `yaml:"epochs"`
	LearningRate        float64 `yaml:"learning_rate"`
	BatchSizePerReplica int     `yaml:"batch_size_per_replica"`
	Replicas            int     `yaml:"replicas"`
	MaxGradNorm         float64 `yaml:"max_grad_norm"`
	L2Penalty           float64 `yaml:"l2_penalty"`
	ValidationSplit     float64 `yaml:"validation_split"`
	RandomState         int64   `yaml:"random_state"`

	Hops            int     `yaml:"hops"`
	MemorySize      int     `yaml:"memory_size"`
	EmbeddingsSize  int     `yaml:"embeddings_size"`
	ReadBeforeWrite bool    `yaml:"read_before_write"`
	GammaPos        float64 `yaml:"gamma_pos"`
	GammaNeg        float64 `yaml:"gamma_neg"`
	WAssocMax       float64 `yaml:"w_assoc_max"`
	EncodingsType   string  `yaml:"encodings_type"`

	ResultsDB string `yaml:"results_db"`
	Verbose   bool   `yaml:"verbose"`
}

// Default returns the canonical bAbI configuration.
func Default() Config {
	return Config{
		TaskID:              1,
		DataDir:             "data/tasks_1-20_v1-2",
		TrainingSetSize:     "10k",
		MaxNumSentences:     -1,
		Epochs:              100,
		LearningRate:        0.003,
		BatchSizePerReplica: 128,
		Replicas:            1,
		MaxGradNorm:         20.0,
		L2Penalty:           1e-3,
		ValidationSplit:     0.1,
		RandomState:         42,
		Hops:                3,
		MemorySize:          100,
		EmbeddingsSize:      80,
		GammaPos:            0.01,
		GammaNeg:            0.01,
		WAssocMax:           1.0,
		EncodingsType:       "learned_encoding",
		Verbose:             true,
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
