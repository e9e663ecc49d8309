package model

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/VV-869/H-Mem/autograd"
)

func validConfig() Config {
	return Config{
		MaxNumSentences: 5,
		MaxWords:        3,
		MemorySize:      5,
		EmbeddingsSize:  4,
		VocabSize:       8,
		Hops:            1,
		EncodingsType:   LearnedEncoding,
		ReadBeforeWrite: true,
		GammaPos:        0.01,
		GammaNeg:        0.01,
		WAssocMax:       1.0,
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		option string
	}{
		{"bad encoding", func(c *Config) { c.EncodingsType = "one_hot" }, "encodings_type"},
		{"zero sentences", func(c *Config) { c.MaxNumSentences = 0 }, "max_num_sentences"},
		{"zero words", func(c *Config) { c.MaxWords = 0 }, "max_words"},
		{"zero memory", func(c *Config) { c.MemorySize = 0 }, "memory_size"},
		{"zero embeddings", func(c *Config) { c.EmbeddingsSize = 0 }, "embeddings_size"},
		{"vocab too small", func(c *Config) { c.VocabSize = 1 }, "vocab_size"},
		{"zero hops", func(c *Config) { c.Hops = 0 }, "hops"},
		{"non-positive bound", func(c *Config) { c.WAssocMax = 0 }, "w_assoc_max"},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		var cerr *ConfigError
		if !errors.As(err, &cerr) {
			t.Errorf("%s: got %v, want *ConfigError", tc.name, err)
			continue
		}
		if cerr.Option != tc.option {
			t.Errorf("%s: flagged option %q, want %q", tc.name, cerr.Option, tc.option)
		}
	}
	if err := validConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Hops = 0
	if _, err := New(cfg, rand.New(rand.NewSource(1))); err == nil {
		t.Fatalf("New accepted an invalid config")
	}
}

func sampleFor(cfg Config) (story, query [][]int) {
	story = [][]int{
		{1, 2, 7},
		{3, 4, 6},
	}
	query = make([][]int, cfg.Hops)
	for h := range query {
		query[h] = []int{5, 2, 0}
	}
	return story, query
}

func TestForwardShapeErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Hops = 2
	m, err := New(cfg, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	goodStory, goodQuery := sampleFor(cfg)

	cases := []struct {
		name  string
		story [][]int
		query [][]int
	}{
		{"empty story", nil, goodQuery},
		{"too many sentences", [][]int{{1, 2, 0}, {1, 2, 0}, {1, 2, 0}, {1, 2, 0}, {1, 2, 0}, {1, 2, 0}}, goodQuery},
		{"short sentence", [][]int{{1, 2}}, goodQuery},
		{"wrong hop rows", goodStory, [][]int{{5, 2, 0}}},
		{"short query row", goodStory, [][]int{{5, 2}, {5, 2, 0}}},
		{"story index out of range", [][]int{{1, 2, 8}}, goodQuery},
		{"negative query index", goodStory, [][]int{{5, 2, 0}, {-1, 2, 0}}},
	}
	for _, tc := range cases {
		_, err := m.Forward(tc.story, tc.query)
		var serr *ShapeError
		if !errors.As(err, &serr) {
			t.Errorf("%s: got %v, want *ShapeError", tc.name, err)
		}
	}

	if _, err := m.Forward(goodStory, goodQuery); err != nil {
		t.Errorf("valid sample rejected: %v", err)
	}
}

func TestForwardLogits(t *testing.T) {
	for _, enc := range []string{IdentityEncoding, PositionEncoding, LearnedEncoding} {
		cfg := validConfig()
		cfg.EncodingsType = enc
		m, err := New(cfg, rand.New(rand.NewSource(3)))
		if err != nil {
			t.Fatalf("%s: New: %v", enc, err)
		}
		story, query := sampleFor(cfg)
		logits, err := m.Forward(story, query)
		if err != nil {
			t.Fatalf("%s: Forward: %v", enc, err)
		}
		if logits.Len() != cfg.VocabSize {
			t.Errorf("%s: logits length %d, want %d", enc, logits.Len(), cfg.VocabSize)
		}
		for i, x := range logits.Data {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				t.Errorf("%s: logit %d is %g", enc, i, x)
			}
		}
	}
}

func TestForwardDeterministicForSeed(t *testing.T) {
	cfg := validConfig()
	build := func() []float64 {
		m, err := New(cfg, rand.New(rand.NewSource(42)))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		story, query := sampleFor(cfg)
		logits, err := m.Forward(story, query)
		if err != nil {
			t.Fatalf("Forward: %v", err)
		}
		return logits.Data
	}
	a, b := build(), build()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at logit %d: %g vs %g", i, a[i], b[i])
		}
	}
}

func TestEndToEndGradients(t *testing.T) {
	cfg := validConfig()
	cfg.Hops = 2
	m, err := New(cfg, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	story, query := sampleFor(cfg)
	logits, err := m.Forward(story, query)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	autograd.Backward(autograd.CrossEntropyLoss(logits, 3))

	flow := 0.0
	for _, p := range m.Params() {
		for _, g := range p.Grad {
			flow += math.Abs(g)
		}
	}
	if flow == 0 {
		t.Fatalf("no gradient reached any parameter")
	}
	if got, want := len(m.Params()), paramCount(m); got != want {
		t.Fatalf("param count %d, want %d", got, want)
	}
}

func paramCount(m *HMem) int {
	cfg := m.Config()
	n := (cfg.VocabSize - 1) // embedding rows, nil word excluded
	if cfg.EncodingsType == LearnedEncoding {
		n += cfg.MaxWords
	}
	n += cfg.MemorySize     // extracting kernel rows
	n += cfg.EmbeddingsSize // writing value kernel rows
	n += 2 * cfg.EmbeddingsSize
	n += cfg.VocabSize // output rows
	return n
}

func TestPaddingSentenceIsInert(t *testing.T) {
	// Index 0 embeds to a constant zero, so an all-padding sentence is a
	// zero entity and the write recurrence leaves the memory untouched.
	// Appending one must not change the logits.
	cfg := validConfig()
	m, err := New(cfg, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	query := [][]int{{5, 2, 0}}
	a, err := m.Forward([][]int{{1, 2, 0}}, query)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	b, err := m.Forward([][]int{{1, 2, 0}, {0, 0, 0}}, query)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Errorf("pad-only sentence not inert at logit %d: %g vs %g", i, a.Data[i], b.Data[i])
		}
	}
}
