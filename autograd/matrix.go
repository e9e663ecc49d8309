package autograd

import (
	"math"
	"math/rand"
)

// MatrixParam is a trainable weight matrix stored as rows of Vecs,
// shape (nout, nin).
type MatrixParam struct {
	Rows []*Vec
	Nout int
	Nin  int
}

// NewMatrixParam creates a matrix with He-uniform initialization,
// limit sqrt(6/fan_in). The rng is explicit; there is no global seed.
func NewMatrixParam(nout, nin int, rng *rand.Rand) *MatrixParam {
	limit := math.Sqrt(6.0 / float64(nin))
	rows := make([]*Vec, nout)
	for i := 0; i < nout; i++ {
		d := make([]float64, nin)
		for j := 0; j < nin; j++ {
			d[j] = (rng.Float64()*2.0 - 1.0) * limit
		}
		rows[i] = NewVec(d)
	}
	return &MatrixParam{Rows: rows, Nout: nout, Nin: nin}
}

// Matvec computes matrix @ x.
func (m *MatrixParam) Matvec(x *Vec) *Vec {
	nout := m.Nout
	nin := len(x.Data)
	outData := make([]float64, nout)
	for i := 0; i < nout; i++ {
		sum := 0.0
		row := m.Rows[i].Data
		for j := 0; j < nin; j++ {
			sum += row[j] * x.Data[j]
		}
		outData[i] = sum
	}
	out := NewVec(outData)
	if gradEnabled.Load() {
		kids := make([]Node, nout+1)
		for i := 0; i < nout; i++ {
			kids[i] = m.Rows[i]
		}
		kids[nout] = x
		out.children = kids
		rows := m.Rows
		out.backFn = func() {
			for i := 0; i < nout; i++ {
				g := out.Grad[i]
				for j := 0; j < nin; j++ {
					rows[i].Grad[j] += g * x.Data[j]
					x.Grad[j] += g * rows[i].Data[j]
				}
			}
		}
	}
	return out
}

// Params returns all row vectors for the optimizer.
func (m *MatrixParam) Params() []*Vec { return m.Rows }
