package layers

import (
	"math/rand"

	"github.com/VV-869/H-Mem/autograd"
)

// ReadingCell performs iterative attention-based retrieval over a fixed
// memory matrix. Its state is the hop working vector (dim E), zero before
// the first hop; the memory matrix is a constant during reading.
type ReadingCell struct {
	memorySize int
	embSize    int

	attnKernel *autograd.MatrixParam // embSize x embSize, bilinear score
	outKernel  *autograd.MatrixParam // embSize x embSize, hop update
}

// NewReadingCell builds the multi-hop reader.
func NewReadingCell(memorySize, embSize int, rng *rand.Rand) *ReadingCell {
	return &ReadingCell{
		memorySize: memorySize,
		embSize:    embSize,
		attnKernel: autograd.NewMatrixParam(embSize, embSize, rng),
		outKernel:  autograd.NewMatrixParam(embSize, embSize, rng),
	}
}

// InitState returns the zero hop vector.
func (c *ReadingCell) InitState() *autograd.Vec {
	return autograd.NewVecZero(c.embSize)
}

// Step performs one hop: score every memory row against the current query
// representation (bilinear, softmax over the rows), retrieve the weighted
// row combination, and refine the working vector through the output
// kernel. The query embedding is the same every hop; only the state
// changes between hops.
func (c *ReadingCell) Step(state, query, mem *autograd.Vec) *autograd.Vec {
	q := query.Add(state)
	scores := autograd.MatVec(mem, c.attnKernel.Matvec(q), c.memorySize, c.embSize)
	attn := autograd.Softmax(scores)
	retrieved := autograd.MatVecT(mem, attn, c.memorySize, c.embSize)
	return c.outKernel.Matvec(q.Add(retrieved)).ReLU()
}

// Params returns both kernels' rows.
func (c *ReadingCell) Params() []*autograd.Vec {
	out := append([]*autograd.Vec{}, c.attnKernel.Params()...)
	return append(out, c.outKernel.Params()...)
}

// RegularizedParams returns the rows subject to the L2 weight penalty.
func (c *ReadingCell) RegularizedParams() []*autograd.Vec { return c.Params() }
