package autograd

// Ops on a flattened memory matrix. A matrix with `rows` rows of length
// `cols` is stored row-major in a single Vec of length rows*cols, so the
// whole matrix moves through the graph as one differentiable state value.

// Outer returns the flattened outer product a ⊗ b, shape (len(a), len(b)).
func Outer(a, b *Vec) *Vec {
	na, nb := len(a.Data), len(b.Data)
	d := make([]float64, na*nb)
	for i := 0; i < na; i++ {
		ai := a.Data[i]
		for j := 0; j < nb; j++ {
			d[i*nb+j] = ai * b.Data[j]
		}
	}
	out := NewVec(d)
	if gradEnabled.Load() {
		out.children = []Node{a, b}
		aData, bData := a.Data, b.Data
		out.backFn = func() {
			for i := 0; i < na; i++ {
				for j := 0; j < nb; j++ {
					g := out.Grad[i*nb+j]
					a.Grad[i] += g * bData[j]
					b.Grad[j] += g * aData[i]
				}
			}
		}
	}
	return out
}

// MatVec computes W @ x over a flattened (rows, cols) matrix:
// out_i = sum_j W[i,j] * x[j]. Used for row-similarity scores.
func MatVec(w, x *Vec, rows, cols int) *Vec {
	d := make([]float64, rows)
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			sum += w.Data[i*cols+j] * x.Data[j]
		}
		d[i] = sum
	}
	out := NewVec(d)
	if gradEnabled.Load() {
		out.children = []Node{w, x}
		out.backFn = func() {
			for i := 0; i < rows; i++ {
				g := out.Grad[i]
				for j := 0; j < cols; j++ {
					w.Grad[i*cols+j] += g * x.Data[j]
					x.Grad[j] += g * w.Data[i*cols+j]
				}
			}
		}
	}
	return out
}

// MatVecT computes Wᵀ @ x over a flattened (rows, cols) matrix:
// out_j = sum_i x[i] * W[i,j]. This is both the key-based retrieval
// (x = key) and the attention-weighted row combination (x = weights).
func MatVecT(w, x *Vec, rows, cols int) *Vec {
	d := make([]float64, cols)
	for i := 0; i < rows; i++ {
		xi := x.Data[i]
		if xi == 0 {
			continue
		}
		for j := 0; j < cols; j++ {
			d[j] += xi * w.Data[i*cols+j]
		}
	}
	out := NewVec(d)
	if gradEnabled.Load() {
		out.children = []Node{w, x}
		out.backFn = func() {
			for i := 0; i < rows; i++ {
				acc := 0.0
				for j := 0; j < cols; j++ {
					g := out.Grad[j]
					w.Grad[i*cols+j] += x.Data[i] * g
					acc += g * w.Data[i*cols+j]
				}
				x.Grad[i] += acc
			}
		}
	}
	return out
}

// ClampSym clips every element to [-bound, +bound]. Gradients pass through
// only where the pre-clamp value is strictly inside the bound.
func ClampSym(x *Vec, bound float64) *Vec {
	n := len(x.Data)
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		v := x.Data[i]
		if v > bound {
			v = bound
		} else if v < -bound {
			v = -bound
		}
		d[i] = v
	}
	out := NewVec(d)
	if gradEnabled.Load() {
		out.children = []Node{x}
		xData := x.Data
		out.backFn = func() {
			for i := 0; i < n; i++ {
				if xData[i] > -bound && xData[i] < bound {
					x.Grad[i] += out.Grad[i]
				}
			}
		}
	}
	return out
}
