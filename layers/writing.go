package layers

import (
	"math/rand"

	"github.com/VV-869/H-Mem/autograd"
)

// WritingCell maintains the associative memory matrix (memorySize x
// embSize, flattened) across the sentences of one story. Each step binds
// the sentence's entity vector to a learned target value with a Hebbian
// outer-product update under soft association bounds, then hard-clips the
// matrix to [-wAssocMax, +wAssocMax].
type WritingCell struct {
	memorySize      int
	embSize         int
	readBeforeWrite bool
	gammaPos        float64
	gammaNeg        float64
	wAssocMax       float64

	valueKernel *autograd.MatrixParam // embSize x memorySize
}

// NewWritingCell builds the memory writer.
func NewWritingCell(memorySize, embSize int, readBeforeWrite bool, gammaPos, gammaNeg, wAssocMax float64, rng *rand.Rand) *WritingCell {
	return &WritingCell{
		memorySize:      memorySize,
		embSize:         embSize,
		readBeforeWrite: readBeforeWrite,
		gammaPos:        gammaPos,
		gammaNeg:        gammaNeg,
		wAssocMax:       wAssocMax,
		valueKernel:     autograd.NewMatrixParam(embSize, memorySize, rng),
	}
}

// InitState returns the zero memory matrix for a fresh story.
func (c *WritingCell) InitState() *autograd.Vec {
	return autograd.NewVecZero(c.memorySize * c.embSize)
}

// Step writes one entity vector into the memory matrix and returns the
// updated matrix.
//
// The target value is v = ReLU(Wv k). With readBeforeWrite the cell first
// retrieves what the memory already predicts for k and binds only the
// residual novelty v - Mᵀk. The update
//
//	M' = M + γ⁺(wmax - M)⊙[k⊗v]₊ - γ⁻(wmax + M)⊙[k⊗v]₋
//
// saturates as existing associations approach ±wmax, so correlated
// content suppresses further writes instead of running away. The final
// clamp makes the bound structural for arbitrary inputs and gammas.
func (c *WritingCell) Step(mem, entity *autograd.Vec) *autograd.Vec {
	v := c.valueKernel.Matvec(entity).ReLU()
	if c.readBeforeWrite {
		predicted := autograd.MatVecT(mem, entity, c.memorySize, c.embSize)
		v = v.Sub(predicted)
	}

	hebb := autograd.Outer(entity, v)
	pos := hebb.ReLU()
	neg := hebb.Neg().ReLU()

	drive := pos.Scale(c.gammaPos * c.wAssocMax).Sub(neg.Scale(c.gammaNeg * c.wAssocMax))
	decay := pos.Scale(c.gammaPos).Add(neg.Scale(c.gammaNeg))

	next := mem.Add(drive).Sub(mem.MulVec(decay))
	return autograd.ClampSym(next, c.wAssocMax)
}

// Params returns the value kernel rows.
func (c *WritingCell) Params() []*autograd.Vec { return c.valueKernel.Params() }

// RegularizedParams returns the rows subject to the L2 weight penalty.
func (c *WritingCell) RegularizedParams() []*autograd.Vec { return c.valueKernel.Params() }
