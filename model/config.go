package model

import "github.com/VV-869/H-Mem/layers"

// Encoding type names as they appear on the configuration surface.
const (
	IdentityEncoding = "identity_encoding"
	PositionEncoding = "position_encoding"
	LearnedEncoding  = "learned_encoding"
)

// Config is the full construction-time surface of the model.
type Config struct {
	MaxNumSentences int     `yaml:"max_num_sentences"`
	MaxWords        int     `yaml:"max_words"`
	MemorySize      int     `yaml:"memory_size"`
	EmbeddingsSize  int     `yaml:"embeddings_size"`
	VocabSize       int     `yaml:"vocab_size"`
	Hops            int     `yaml:"hops"`
	EncodingsType   string  `yaml:"encodings_type"`
	ReadBeforeWrite bool    `yaml:"read_before_write"`
	GammaPos        float64 `yaml:"gamma_pos"`
	GammaNeg        float64 `yaml:"gamma_neg"`
	WAssocMax       float64 `yaml:"w_assoc_max"`
}

// EncodingKind maps the configured name onto the closed variant set.
func (c Config) EncodingKind() (layers.EncodingKind, error) {
	switch c.EncodingsType {
	case IdentityEncoding:
		return layers.IdentityEncoding, nil
	case PositionEncoding:
		return layers.PositionEncoding, nil
	case LearnedEncoding:
		return layers.LearnedEncoding, nil
	default:
		return 0, &ConfigError{Option: "encodings_type", Reason: "must be identity_encoding, position_encoding or learned_encoding"}
	}
}

// Validate checks every option. The first violation is returned as a
// *ConfigError.
func (c Config) Validate() error {
	if _, err := c.EncodingKind(); err != nil {
		return err
	}
	if c.MaxNumSentences < 1 {
		return &ConfigError{Option: "max_num_sentences", Reason: "must be >= 1"}
	}
	if c.MaxWords < 1 {
		return &ConfigError{Option: "max_words", Reason: "must be >= 1"}
	}
	if c.MemorySize < 1 {
		return &ConfigError{Option: "memory_size", Reason: "must be >= 1"}
	}
	if c.EmbeddingsSize < 1 {
		return &ConfigError{Option: "embeddings_size", Reason: "must be >= 1"}
	}
	if c.VocabSize < 2 {
		return &ConfigError{Option: "vocab_size", Reason: "must be >= 2 (nil word plus at least one real word)"}
	}
	if c.Hops < 1 {
		return &ConfigError{Option: "hops", Reason: "must be >= 1"}
	}
	if c.WAssocMax <= 0 {
		return &ConfigError{Option: "w_assoc_max", Reason: "must be > 0"}
	}
	return nil
}
