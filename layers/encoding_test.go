package layers

import (
	"math"
	"math/rand"
	"testing"

	"github.com/VV-869/H-Mem/autograd"
)

func embeddedSentence(rng *rand.Rand, words, dim int) []*autograd.Vec {
	out := make([]*autograd.Vec, words)
	for i := range out {
		d := make([]float64, dim)
		for j := range d {
			d[j] = rng.NormFloat64()
		}
		out[i] = autograd.NewVec(d)
	}
	return out
}

func TestIdentityEncodingRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	enc, err := NewEncoding(IdentityEncoding, 6, 4, rng)
	if err != nil {
		t.Fatalf("NewEncoding: %v", err)
	}
	in := embeddedSentence(rng, 6, 4)
	out := enc.Apply(in)
	if len(out) != len(in) {
		t.Fatalf("identity changed sequence length: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("identity word %d is not the same value", i)
		}
		for j := range in[i].Data {
			if out[i].Data[j] != in[i].Data[j] {
				t.Errorf("identity word %d dim %d changed: %g vs %g", i, j, out[i].Data[j], in[i].Data[j])
			}
		}
	}
	if len(enc.Params()) != 0 {
		t.Errorf("identity encoding has %d params, want 0", len(enc.Params()))
	}
}

func TestPositionEncodingDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	enc, err := NewEncoding(PositionEncoding, 5, 3, rng)
	if err != nil {
		t.Fatalf("NewEncoding: %v", err)
	}
	in := embeddedSentence(rng, 5, 3)

	first := enc.Apply(in)
	second := enc.Apply(in)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("position encoding must collapse to one vector, got %d and %d", len(first), len(second))
	}
	for j := range first[0].Data {
		if first[0].Data[j] != second[0].Data[j] {
			t.Errorf("position encoding not deterministic at dim %d: %g vs %g", j, first[0].Data[j], second[0].Data[j])
		}
	}
	if len(enc.Params()) != 0 {
		t.Errorf("position encoding has %d params, want 0", len(enc.Params()))
	}
}

func TestPositionEncodingFormula(t *testing.T) {
	// One-hot words expose individual weights:
	// w[j][k] = (1-(j+1)/J) - ((k+1)/d)*(1-2(j+1)/J).
	rng := rand.New(rand.NewSource(3))
	const J, d = 4, 2
	enc, err := NewEncoding(PositionEncoding, J, d, rng)
	if err != nil {
		t.Fatalf("NewEncoding: %v", err)
	}
	for j := 0; j < J; j++ {
		in := make([]*autograd.Vec, J)
		for i := range in {
			in[i] = autograd.NewVecZero(d)
		}
		in[j] = autograd.NewVec([]float64{1, 1})
		out := enc.Apply(in)[0]
		for k := 0; k < d; k++ {
			lj, lk := float64(j+1), float64(k+1)
			want := (1.0 - lj/J) - (lk/d)*(1.0-2.0*lj/J)
			if math.Abs(out.Data[k]-want) > 1e-12 {
				t.Errorf("pos weight[%d][%d]: got %g, want %g", j, k, out.Data[k], want)
			}
		}
	}
}

func TestLearnedEncodingShapeAndParams(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	enc, err := NewEncoding(LearnedEncoding, 7, 5, rng)
	if err != nil {
		t.Fatalf("NewEncoding: %v", err)
	}
	out := enc.Apply(embeddedSentence(rng, 7, 5))
	if len(out) != 1 {
		t.Fatalf("learned encoding must collapse to one vector, got %d", len(out))
	}
	if out[0].Len() != 5 {
		t.Errorf("learned encoding output dim: got %d, want 5", out[0].Len())
	}
	if len(enc.Params()) != 7 {
		t.Errorf("learned encoding params: got %d rows, want 7", len(enc.Params()))
	}
}

func TestUnknownEncodingKind(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	if _, err := NewEncoding(EncodingKind(99), 3, 3, rng); err == nil {
		t.Fatalf("unknown encoding kind accepted")
	}
}
