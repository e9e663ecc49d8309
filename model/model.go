// Package model composes the H-Mem layers into one differentiable
// function per sample: (story, query) -> logits over the vocabulary.
// Embedding, encoding, entity extraction, the write scan over sentences,
// the read scan over hops and the output projection live here; training
// mechanics stay outside.
package model

import (
	"fmt"
	"math/rand"

	"github.com/VV-869/H-Mem/autograd"
	"github.com/VV-869/H-Mem/layers"
)

// HMem is the full memory network.
type HMem struct {
	cfg Config

	embedding  *autograd.MatrixParam // vocab x E; row 0 is the nil word, never used
	encoding   *layers.Encoding
	extracting *layers.Extracting
	writing    *layers.WritingCell
	reading    *layers.ReadingCell
	output     *autograd.MatrixParam // vocab x E
}

// New validates cfg and builds the model. All weight initialization draws
// from the supplied rng; the package touches no global random state.
func New(cfg Config, rng *rand.Rand) (*HMem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kind, err := cfg.EncodingKind()
	if err != nil {
		return nil, err
	}
	enc, err := layers.NewEncoding(kind, cfg.MaxWords, cfg.EmbeddingsSize, rng)
	if err != nil {
		return nil, &ConfigError{Option: "encodings_type", Reason: err.Error()}
	}

	return &HMem{
		cfg:        cfg,
		embedding:  autograd.NewMatrixParam(cfg.VocabSize, cfg.EmbeddingsSize, rng),
		encoding:   enc,
		extracting: layers.NewExtracting(cfg.MemorySize, cfg.EmbeddingsSize, rng),
		writing: layers.NewWritingCell(cfg.MemorySize, cfg.EmbeddingsSize,
			cfg.ReadBeforeWrite, cfg.GammaPos, cfg.GammaNeg, cfg.WAssocMax, rng),
		reading: layers.NewReadingCell(cfg.MemorySize, cfg.EmbeddingsSize, rng),
		output:  autograd.NewMatrixParam(cfg.VocabSize, cfg.EmbeddingsSize, rng),
	}, nil
}

// Config returns the construction configuration.
func (m *HMem) Config() Config { return m.cfg }

// embed looks up one word index. The nil word (index 0) embeds to a
// constant zero vector outside the parameter set, which masks padding out
// of every downstream sum.
func (m *HMem) embed(id int) *autograd.Vec {
	if id == 0 {
		return autograd.NewVecZero(m.cfg.EmbeddingsSize)
	}
	return m.embedding.Rows[id]
}

// encodeSentence embeds and encodes one padded word-index sequence into a
// normalized sentence vector. When the identity encoding leaves the
// per-word sequence intact, the words are summed here; padding words are
// zero vectors either way.
func (m *HMem) encodeSentence(ids []int) *autograd.Vec {
	words := make([]*autograd.Vec, len(ids))
	for i, id := range ids {
		words[i] = m.embed(id)
	}
	encoded := m.encoding.Apply(words)
	sent := encoded[0]
	for _, w := range encoded[1:] {
		sent = sent.Add(w)
	}
	return autograd.RMSNorm(sent)
}

// checkShapes validates one sample against the configured shapes before
// any graph construction.
func (m *HMem) checkShapes(story [][]int, query [][]int) error {
	if len(story) == 0 || len(story) > m.cfg.MaxNumSentences {
		return &ShapeError{
			Input: "story",
			Want:  fmt.Sprintf("1..%d sentences", m.cfg.MaxNumSentences),
			Got:   fmt.Sprintf("%d sentences", len(story)),
		}
	}
	for i, s := range story {
		if len(s) != m.cfg.MaxWords {
			return &ShapeError{
				Input: fmt.Sprintf("story sentence %d", i),
				Want:  fmt.Sprintf("%d words", m.cfg.MaxWords),
				Got:   fmt.Sprintf("%d words", len(s)),
			}
		}
	}
	if len(query) != m.cfg.Hops {
		return &ShapeError{
			Input: "query",
			Want:  fmt.Sprintf("%d hop rows", m.cfg.Hops),
			Got:   fmt.Sprintf("%d hop rows", len(query)),
		}
	}
	for h, q := range query {
		if len(q) != m.cfg.MaxWords {
			return &ShapeError{
				Input: fmt.Sprintf("query hop %d", h),
				Want:  fmt.Sprintf("%d words", m.cfg.MaxWords),
				Got:   fmt.Sprintf("%d words", len(q)),
			}
		}
	}
	for i, s := range story {
		for j, id := range s {
			if id < 0 || id >= m.cfg.VocabSize {
				return &ShapeError{
					Input: fmt.Sprintf("story word [%d][%d]", i, j),
					Want:  fmt.Sprintf("index in [0,%d)", m.cfg.VocabSize),
					Got:   fmt.Sprintf("%d", id),
				}
			}
		}
	}
	for h, q := range query {
		for j, id := range q {
			if id < 0 || id >= m.cfg.VocabSize {
				return &ShapeError{
					Input: fmt.Sprintf("query word [%d][%d]", h, j),
					Want:  fmt.Sprintf("index in [0,%d)", m.cfg.VocabSize),
					Got:   fmt.Sprintf("%d", id),
				}
			}
		}
	}
	return nil
}

// Forward maps one (story, query) pair to logits over the vocabulary.
// story is (sentences, MaxWords) word indices, query is (Hops, MaxWords)
// with the same query content repeated per hop. The write recurrence runs
// once per sentence on a zero-initialized memory matrix; the read
// recurrence then runs once per hop against the finalized matrix.
func (m *HMem) Forward(story [][]int, query [][]int) (*autograd.Vec, error) {
	if err := m.checkShapes(story, query); err != nil {
		return nil, err
	}

	entities := make([]*autograd.Vec, len(story))
	for i, sentence := range story {
		entities[i] = m.extracting.Apply(m.encodeSentence(sentence))
	}
	memory := layers.Scan(m.writing.InitState(), entities, m.writing.Step)

	queries := make([]*autograd.Vec, len(query))
	for h, q := range query {
		queries[h] = m.encodeSentence(q)
	}
	queried := layers.Scan(m.reading.InitState(), queries,
		func(state, input *autograd.Vec) *autograd.Vec {
			return m.reading.Step(state, input, memory)
		})

	return m.output.Matvec(queried), nil
}

// Params returns every trainable vector. Embedding row 0 stays out: the
// nil word is a constant zero.
func (m *HMem) Params() []*autograd.Vec {
	out := append([]*autograd.Vec{}, m.embedding.Rows[1:]...)
	out = append(out, m.encoding.Params()...)
	out = append(out, m.extracting.Params()...)
	out = append(out, m.writing.Params()...)
	out = append(out, m.reading.Params()...)
	out = append(out, m.output.Params()...)
	return out
}

// RegularizedParams returns the kernels under the L2 weight penalty:
// extraction, writing and reading. Embeddings and the output projection
// stay unpenalized.
func (m *HMem) RegularizedParams() []*autograd.Vec {
	out := append([]*autograd.Vec{}, m.extracting.RegularizedParams()...)
	out = append(out, m.writing.RegularizedParams()...)
	out = append(out, m.reading.RegularizedParams()...)
	return out
}
