// Package autograd is a small reverse-mode autodiff engine built around
// whole vectors rather than scalar graph nodes. One Vec = one embedding,
// one entity vector, or one flattened memory matrix. Every op computes its
// forward value eagerly and records a closure that scatters gradients back
// to its inputs when Backward walks the graph.
package autograd

import (
	"math"
	"sync/atomic"
)

// gradEnabled controls whether ops record backward closures. Evaluation
// passes flip it off to skip graph construction entirely. It is a process
// global; callers serialize training and evaluation phases themselves.
var gradEnabled atomic.Bool

func init() { gradEnabled.Store(true) }

// SetGrad toggles graph recording. Returns the previous setting so callers
// can restore it.
func SetGrad(enabled bool) bool {
	prev := gradEnabled.Load()
	gradEnabled.Store(enabled)
	return prev
}

// GradEnabled reports whether ops currently record backward closures.
func GradEnabled() bool { return gradEnabled.Load() }

// Node is anything in the compute graph.
type Node interface {
	getChildren() []Node
	doBackward()
}

// Vec is a differentiable vector.
type Vec struct {
	Data     []float64
	Grad     []float64
	children []Node
	backFn   func()
}

// NewVec wraps data in a graph node. The slice is owned by the Vec.
func NewVec(data []float64) *Vec {
	return &Vec{Data: data, Grad: make([]float64, len(data))}
}

// NewVecZero returns an all-zero vector of length n.
func NewVecZero(n int) *Vec {
	return NewVec(make([]float64, n))
}

func (v *Vec) getChildren() []Node { return v.children }
func (v *Vec) doBackward() {
	if v.backFn != nil {
		v.backFn()
	}
}

// Len returns the vector length.
func (v *Vec) Len() int { return len(v.Data) }

// Add returns self + other element-wise.
func (v *Vec) Add(other *Vec) *Vec {
	n := len(v.Data)
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = v.Data[i] + other.Data[i]
	}
	out := NewVec(d)
	if gradEnabled.Load() {
		out.children = []Node{v, other}
		out.backFn = func() {
			for i := 0; i < n; i++ {
				v.Grad[i] += out.Grad[i]
				other.Grad[i] += out.Grad[i]
			}
		}
	}
	return out
}

// Sub returns self - other element-wise.
func (v *Vec) Sub(other *Vec) *Vec {
	n := len(v.Data)
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = v.Data[i] - other.Data[i]
	}
	out := NewVec(d)
	if gradEnabled.Load() {
		out.children = []Node{v, other}
		out.backFn = func() {
			for i := 0; i < n; i++ {
				v.Grad[i] += out.Grad[i]
				other.Grad[i] -= out.Grad[i]
			}
		}
	}
	return out
}

// Neg returns -self.
func (v *Vec) Neg() *Vec {
	n := len(v.Data)
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = -v.Data[i]
	}
	out := NewVec(d)
	if gradEnabled.Load() {
		out.children = []Node{v}
		out.backFn = func() {
			for i := 0; i < n; i++ {
				v.Grad[i] -= out.Grad[i]
			}
		}
	}
	return out
}

// MulVec returns the element-wise product self * other.
func (v *Vec) MulVec(other *Vec) *Vec {
	n := len(v.Data)
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = v.Data[i] * other.Data[i]
	}
	out := NewVec(d)
	if gradEnabled.Load() {
		out.children = []Node{v, other}
		vData, oData := v.Data, other.Data
		out.backFn = func() {
			for i := 0; i < n; i++ {
				v.Grad[i] += oData[i] * out.Grad[i]
				other.Grad[i] += vData[i] * out.Grad[i]
			}
		}
	}
	return out
}

// Scale returns self * s.
func (v *Vec) Scale(s float64) *Vec {
	n := len(v.Data)
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = v.Data[i] * s
	}
	out := NewVec(d)
	if gradEnabled.Load() {
		out.children = []Node{v}
		out.backFn = func() {
			for i := 0; i < n; i++ {
				v.Grad[i] += s * out.Grad[i]
			}
		}
	}
	return out
}

// ReLU applies max(0, x) element-wise.
func (v *Vec) ReLU() *Vec {
	n := len(v.Data)
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		if v.Data[i] > 0 {
			d[i] = v.Data[i]
		}
	}
	out := NewVec(d)
	if gradEnabled.Load() {
		out.children = []Node{v}
		vData := v.Data
		out.backFn = func() {
			for i := 0; i < n; i++ {
				if vData[i] > 0 {
					v.Grad[i] += out.Grad[i]
				}
			}
		}
	}
	return out
}

// Dot returns the scalar dot product of two vectors.
func (v *Vec) Dot(other *Vec) *Scalar {
	n := len(v.Data)
	val := 0.0
	for i := 0; i < n; i++ {
		val += v.Data[i] * other.Data[i]
	}
	out := &Scalar{Data: val}
	if gradEnabled.Load() {
		out.children = []Node{v, other}
		vData, oData := v.Data, other.Data
		out.backFn = func() {
			for i := 0; i < n; i++ {
				v.Grad[i] += oData[i] * out.Grad
				other.Grad[i] += vData[i] * out.Grad
			}
		}
	}
	return out
}

// MeanSq returns the mean of squared elements.
func (v *Vec) MeanSq() *Scalar {
	n := len(v.Data)
	nf := float64(n)
	val := 0.0
	for i := 0; i < n; i++ {
		val += v.Data[i] * v.Data[i]
	}
	val /= nf
	out := &Scalar{Data: val}
	if gradEnabled.Load() {
		out.children = []Node{v}
		vData := v.Data
		out.backFn = func() {
			for i := 0; i < n; i++ {
				v.Grad[i] += (2.0 * vData[i] / nf) * out.Grad
			}
		}
	}
	return out
}

// Scalar is a differentiable scalar (loss values, gate values).
type Scalar struct {
	Data     float64
	Grad     float64
	children []Node
	backFn   func()
}

// NewScalar wraps a value in a graph node.
func NewScalar(data float64) *Scalar { return &Scalar{Data: data} }

func (s *Scalar) getChildren() []Node { return s.children }
func (s *Scalar) doBackward() {
	if s.backFn != nil {
		s.backFn()
	}
}

// AddS returns self + other.
func (s *Scalar) AddS(other *Scalar) *Scalar {
	out := &Scalar{Data: s.Data + other.Data}
	if gradEnabled.Load() {
		out.children = []Node{s, other}
		out.backFn = func() {
			s.Grad += out.Grad
			other.Grad += out.Grad
		}
	}
	return out
}

// MulF returns self * f.
func (s *Scalar) MulF(f float64) *Scalar {
	out := &Scalar{Data: s.Data * f}
	if gradEnabled.Load() {
		out.children = []Node{s}
		out.backFn = func() {
			s.Grad += f * out.Grad
		}
	}
	return out
}

// RMSNorm normalizes a vector by its root mean square. Zero input stays
// zero. Used in place of batch statistics so the forward pass is a pure
// per-sample function.
func RMSNorm(x *Vec) *Vec {
	ms := x.MeanSq()
	scaleVal := math.Pow(ms.Data+1e-5, -0.5)
	n := len(x.Data)
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = x.Data[i] * scaleVal
	}
	out := NewVec(d)
	if gradEnabled.Load() {
		out.children = []Node{x, ms}
		xData := x.Data
		out.backFn = func() {
			dsDms := -0.5 * math.Pow(ms.Data+1e-5, -1.5)
			cross := 0.0
			for j := 0; j < n; j++ {
				cross += out.Grad[j] * xData[j]
			}
			for i := 0; i < n; i++ {
				x.Grad[i] += scaleVal * out.Grad[i]
				x.Grad[i] += cross * dsDms * (2.0 * xData[i] / float64(n))
			}
		}
	}
	return out
}

// Softmax normalizes a vector of scores into a probability distribution.
func Softmax(x *Vec) *Vec {
	n := len(x.Data)
	maxVal := x.Data[0]
	for _, v := range x.Data[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	d := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		d[i] = math.Exp(x.Data[i] - maxVal)
		total += d[i]
	}
	for i := 0; i < n; i++ {
		d[i] /= total
	}
	out := NewVec(d)
	if gradEnabled.Load() {
		out.children = []Node{x}
		probs := d
		out.backFn = func() {
			inner := 0.0
			for j := 0; j < n; j++ {
				inner += out.Grad[j] * probs[j]
			}
			for i := 0; i < n; i++ {
				x.Grad[i] += probs[i] * (out.Grad[i] - inner)
			}
		}
	}
	return out
}

// CrossEntropyLoss computes -log(softmax(logits)[target]).
func CrossEntropyLoss(logits *Vec, target int) *Scalar {
	n := len(logits.Data)
	maxVal := logits.Data[0]
	for _, v := range logits.Data[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	expSum := 0.0
	shifted := make([]float64, n)
	for i := 0; i < n; i++ {
		shifted[i] = logits.Data[i] - maxVal
		expSum += math.Exp(shifted[i])
	}
	logSumExp := math.Log(expSum) + maxVal
	out := &Scalar{Data: logSumExp - logits.Data[target]}
	if gradEnabled.Load() {
		probs := make([]float64, n)
		for i := 0; i < n; i++ {
			probs[i] = math.Exp(shifted[i]) / expSum
		}
		out.children = []Node{logits}
		out.backFn = func() {
			for i := 0; i < n; i++ {
				ind := 0.0
				if i == target {
					ind = 1.0
				}
				logits.Grad[i] += (probs[i] - ind) * out.Grad
			}
		}
	}
	return out
}

// Backward runs reverse-mode autodiff from root: topological sort, seed the
// root gradient with ones, then fire every backward closure in reverse.
func Backward(root Node) {
	topo := make([]Node, 0)
	visited := make(map[Node]bool)

	var build func(n Node)
	build = func(n Node) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, c := range n.getChildren() {
			build(c)
		}
		topo = append(topo, n)
	}
	build(root)

	switch r := root.(type) {
	case *Scalar:
		r.Grad = 1.0
	case *Vec:
		for i := range r.Grad {
			r.Grad[i] = 1.0
		}
	}

	for i := len(topo) - 1; i >= 0; i-- {
		topo[i].doBackward()
	}
}
