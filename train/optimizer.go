package train

import (
	"math"

	"github.com/VV-869/H-Mem/autograd"
)

// Adam is the optimizer with bias-corrected first and second moments.
// One instance owns the moment buffers for a fixed parameter list.
type Adam struct {
	Beta1 float64
	Beta2 float64
	Eps   float64

	m [][]float64
	v [][]float64
	t int
}

// NewAdam allocates moments for params.
func NewAdam(params []*autograd.Vec) *Adam {
	a := &Adam{Beta1: 0.9, Beta2: 0.999, Eps: 1e-7,
		m: make([][]float64, len(params)),
		v: make([][]float64, len(params)),
	}
	for i, p := range params {
		a.m[i] = make([]float64, len(p.Data))
		a.v[i] = make([]float64, len(p.Data))
	}
	return a
}

// Step applies one update with learning rate lr and zeroes the gradients.
func (a *Adam) Step(params []*autograd.Vec, lr float64) {
	a.t++
	b1Corr := 1.0 - math.Pow(a.Beta1, float64(a.t))
	b2Corr := 1.0 - math.Pow(a.Beta2, float64(a.t))
	for i, p := range params {
		mi, vi := a.m[i], a.v[i]
		for j := range p.Data {
			g := p.Grad[j]
			mi[j] = a.Beta1*mi[j] + (1-a.Beta1)*g
			vi[j] = a.Beta2*vi[j] + (1-a.Beta2)*g*g
			p.Data[j] -= lr * (mi[j] / b1Corr) / (math.Sqrt(vi[j]/b2Corr) + a.Eps)
			p.Grad[j] = 0.0
		}
	}
}

// ScaleGrads multiplies every gradient by s (mean over a batch).
func ScaleGrads(params []*autograd.Vec, s float64) {
	for _, p := range params {
		for j := range p.Grad {
			p.Grad[j] *= s
		}
	}
}

// ClipGlobalNorm rescales all gradients so their joint L2 norm does not
// exceed max. clipnorm semantics: a no-op when already inside the bound.
func ClipGlobalNorm(params []*autograd.Vec, max float64) float64 {
	if max <= 0 {
		return 0
	}
	total := 0.0
	for _, p := range params {
		for _, g := range p.Grad {
			total += g * g
		}
	}
	norm := math.Sqrt(total)
	if norm > max {
		s := max / norm
		for _, p := range params {
			for j := range p.Grad {
				p.Grad[j] *= s
			}
		}
	}
	return norm
}

// AddL2Grads folds the decoupled L2 penalty d(lambda*w^2)/dw into the
// gradients of the regularized kernels.
func AddL2Grads(params []*autograd.Vec, lambda float64) {
	if lambda <= 0 {
		return
	}
	for _, p := range params {
		for j := range p.Data {
			p.Grad[j] += 2.0 * lambda * p.Data[j]
		}
	}
}

// Schedule returns the learning rate for an epoch (0-based). The
// read-before-write dynamics are higher variance, so that mode keeps the
// base rate until epoch 150 and then decays exponentially; otherwise the
// rate steps down by 0.85 every 20 epochs.
func Schedule(baseLR float64, readBeforeWrite bool, epoch int) float64 {
	if readBeforeWrite {
		if epoch < 150 {
			return baseLR
		}
		return baseLR * math.Exp(0.01*float64(150-epoch))
	}
	return baseLR * math.Pow(0.85, math.Floor(float64(epoch)/20.0))
}
