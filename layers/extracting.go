package layers

import (
	"math/rand"

	"github.com/VV-869/H-Mem/autograd"
)

// Extracting projects a sentence representation (dim E) onto memorySize
// candidate entity activations through a single dense kernel with ReLU,
// no bias. Shared across all sentence positions; no internal state.
type Extracting struct {
	kernel *autograd.MatrixParam // memorySize x embSize
}

// NewExtracting builds the entity extraction layer.
func NewExtracting(memorySize, embSize int, rng *rand.Rand) *Extracting {
	return &Extracting{kernel: autograd.NewMatrixParam(memorySize, embSize, rng)}
}

// Apply maps one encoded sentence to its entity vector.
func (x *Extracting) Apply(sentence *autograd.Vec) *autograd.Vec {
	return x.kernel.Matvec(sentence).ReLU()
}

// Params returns the kernel rows.
func (x *Extracting) Params() []*autograd.Vec { return x.kernel.Params() }

// RegularizedParams returns the rows subject to the L2 weight penalty.
func (x *Extracting) RegularizedParams() []*autograd.Vec { return x.kernel.Params() }
