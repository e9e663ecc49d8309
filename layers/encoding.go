// Package layers holds the H-Mem core: sentence encoding, entity
// extraction, and the two recurrent memory cells. Everything here is a
// pure transformation over autograd values; the model package owns the
// wiring and the trainer owns the optimizer.
package layers

import (
	"errors"
	"math/rand"

	"github.com/VV-869/H-Mem/autograd"
)

// EncodingKind selects how an embedded sentence collapses into a single
// vector. A closed set, dispatched once at construction.
type EncodingKind int

const (
	// IdentityEncoding passes the per-word sequence through unchanged.
	IdentityEncoding EncodingKind = iota
	// PositionEncoding applies the fixed positional weighting of
	// Sukhbaatar et al. before summing over words. No parameters.
	PositionEncoding
	// LearnedEncoding applies a trainable elementwise weight per word
	// position before summing over words.
	LearnedEncoding
)

// ErrUnknownEncoding is returned for an EncodingKind outside the closed set.
var ErrUnknownEncoding = errors.New("unknown encoding kind")

// Encoding turns a sequence of word embeddings (length L, dim E) into a
// sentence representation of dim E, except for the identity variant which
// leaves the sequence to the caller. Output is not normalized here.
type Encoding struct {
	kind     EncodingKind
	maxWords int
	embSize  int

	pos     [][]float64            // PositionEncoding: fixed weights[l][k]
	learned *autograd.MatrixParam  // LearnedEncoding: maxWords x embSize
}

// NewEncoding builds an encoding for sentences of up to maxWords words.
func NewEncoding(kind EncodingKind, maxWords, embSize int, rng *rand.Rand) (*Encoding, error) {
	e := &Encoding{kind: kind, maxWords: maxWords, embSize: embSize}
	switch kind {
	case IdentityEncoding:
	case PositionEncoding:
		e.pos = positionWeights(maxWords, embSize)
	case LearnedEncoding:
		e.learned = autograd.NewMatrixParam(maxWords, embSize, rng)
	default:
		return nil, ErrUnknownEncoding
	}
	return e, nil
}

// positionWeights returns the deterministic weights
// w[j][k] = (1 - (j+1)/J) - ((k+1)/d) * (1 - 2*(j+1)/J).
func positionWeights(maxWords, embSize int) [][]float64 {
	J := float64(maxWords)
	d := float64(embSize)
	w := make([][]float64, maxWords)
	for j := 0; j < maxWords; j++ {
		w[j] = make([]float64, embSize)
		lj := float64(j + 1)
		for k := 0; k < embSize; k++ {
			lk := float64(k + 1)
			w[j][k] = (1.0 - lj/J) - (lk/d)*(1.0-2.0*lj/J)
		}
	}
	return w
}

// Kind returns the configured variant.
func (e *Encoding) Kind() EncodingKind { return e.kind }

// Apply encodes one embedded sentence. For IdentityEncoding the input
// slice is returned as is; the other variants return a single sentence
// vector.
func (e *Encoding) Apply(words []*autograd.Vec) []*autograd.Vec {
	switch e.kind {
	case IdentityEncoding:
		return words
	case PositionEncoding:
		sum := autograd.NewVecZero(e.embSize)
		for j, w := range words {
			weighted := w.MulVec(autograd.NewVec(append([]float64(nil), e.pos[j]...)))
			sum = sum.Add(weighted)
		}
		return []*autograd.Vec{sum}
	default: // LearnedEncoding
		sum := autograd.NewVecZero(e.embSize)
		for j, w := range words {
			sum = sum.Add(w.MulVec(e.learned.Rows[j]))
		}
		return []*autograd.Vec{sum}
	}
}

// Params returns trainable parameters (empty for identity and position).
func (e *Encoding) Params() []*autograd.Vec {
	if e.learned == nil {
		return nil
	}
	return e.learned.Params()
}
