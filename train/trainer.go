// Package train owns everything the H-Mem core deliberately leaves
// outside: the epoch loop, Adam, learning-rate schedules, gradient-norm
// clipping, data-parallel batch sharding and metrics persistence.
package train

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/VV-869/H-Mem/autograd"
	"github.com/VV-869/H-Mem/data"
	"github.com/VV-869/H-Mem/model"
)

// Dataset is a vectorized split: aligned stories, unreplicated queries
// and answer class indices.
type Dataset struct {
	Stories [][][]int
	Queries [][]int
	Answers []int
}

// Len returns the sample count.
func (d Dataset) Len() int { return len(d.Answers) }

func (d Dataset) slice(lo, hi int) Dataset {
	return Dataset{Stories: d.Stories[lo:hi], Queries: d.Queries[lo:hi], Answers: d.Answers[lo:hi]}
}

// Metrics is a loss/accuracy pair over one pass.
type Metrics struct {
	Loss float64
	Acc  float64
}

// Trainer drives optimization of one model. Replicas forward disjoint
// batch shards in parallel; gradient accumulation into the shared
// parameters is serialized, so every Adam step sees the synchronously
// aggregated batch gradient.
type Trainer struct {
	Model *model.HMem
	Cfg   Config

	params    []*autograd.Vec
	regParams []*autograd.Vec
	opt       *Adam
	rng       *rand.Rand
	gradMu    sync.Mutex
	results   *Results
	logf      func(format string, args ...interface{})
}

// New builds a trainer. results may be nil (no persistence); logf may be
// nil (no output).
func New(m *model.HMem, cfg Config, rng *rand.Rand, results *Results, logf func(string, ...interface{})) *Trainer {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	params := m.Params()
	return &Trainer{
		Model:     m,
		Cfg:       cfg,
		params:    params,
		regParams: m.RegularizedParams(),
		opt:       NewAdam(params),
		rng:       rng,
		results:   results,
		logf:      logf,
	}
}

// Fit trains for Cfg.Epochs epochs. The last ValidationSplit fraction of
// ds is held out for validation; the holdout is taken from the end and
// never shuffled into training.
func (t *Trainer) Fit(ds Dataset) error {
	trainSet, valSet := t.splitValidation(ds)
	batchSize := t.Cfg.BatchSizePerReplica * t.replicas()

	order := make([]int, trainSet.Len())
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < t.Cfg.Epochs; epoch++ {
		lr := Schedule(t.Cfg.LearningRate, t.Cfg.ReadBeforeWrite, epoch)
		t.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		lossSum := 0.0
		correct := 0
		for lo := 0; lo < len(order); lo += batchSize {
			hi := lo + batchSize
			if hi > len(order) {
				hi = len(order)
			}
			bl, bc, err := t.batchStep(trainSet, order[lo:hi], lr)
			if err != nil {
				return fmt.Errorf("epoch %d: %w", epoch, err)
			}
			lossSum += bl
			correct += bc
		}
		trainLoss := lossSum / float64(trainSet.Len())
		trainAcc := float64(correct) / float64(trainSet.Len())

		valLoss, valAcc := 0.0, 0.0
		if valSet.Len() > 0 {
			vm, err := t.Evaluate(valSet)
			if err != nil {
				return fmt.Errorf("epoch %d: validation: %w", epoch, err)
			}
			valLoss, valAcc = vm.Loss, vm.Acc
		}

		t.logf("[train] epoch %d/%d | lr %.5f | loss %.4f acc %.4f | val_loss %.4f val_acc %.4f\n",
			epoch+1, t.Cfg.Epochs, lr, trainLoss, trainAcc, valLoss, valAcc)
		if t.results != nil {
			if err := t.results.LogEpoch(epoch, lr, trainLoss, trainAcc, valLoss, valAcc); err != nil {
				return fmt.Errorf("epoch %d: %w", epoch, err)
			}
		}
	}
	return nil
}

func (t *Trainer) replicas() int {
	if t.Cfg.Replicas < 1 {
		return 1
	}
	return t.Cfg.Replicas
}

func (t *Trainer) splitValidation(ds Dataset) (trainSet, valSet Dataset) {
	n := ds.Len()
	nv := int(float64(n) * t.Cfg.ValidationSplit)
	return ds.slice(0, n-nv), ds.slice(n-nv, n)
}

// batchStep forwards one batch sharded across the replicas, aggregates
// gradients and applies one optimizer step. Returns the summed loss and
// correct count over the batch.
func (t *Trainer) batchStep(ds Dataset, idx []int, lr float64) (float64, int, error) {
	var mu sync.Mutex
	lossSum := 0.0
	correct := 0

	replicas := t.replicas()
	per := (len(idx) + replicas - 1) / replicas
	workers := pool.New().WithMaxGoroutines(replicas).WithErrors()
	for lo := 0; lo < len(idx); lo += per {
		hi := lo + per
		if hi > len(idx) {
			hi = len(idx)
		}
		shard := idx[lo:hi]
		workers.Go(func() error {
			shardLoss := 0.0
			shardCorrect := 0
			for _, i := range shard {
				logits, err := t.Model.Forward(ds.Stories[i], data.RepeatQuery(ds.Queries[i], t.Cfg.Hops))
				if err != nil {
					return err
				}
				loss := autograd.CrossEntropyLoss(logits, ds.Answers[i])
				shardLoss += loss.Data
				if argmax(logits.Data) == ds.Answers[i] {
					shardCorrect++
				}
				// Forward passes run in parallel across shards; the
				// backward scatter writes shared parameter gradients,
				// so it is the synchronization point.
				t.gradMu.Lock()
				autograd.Backward(loss)
				t.gradMu.Unlock()
			}
			mu.Lock()
			lossSum += shardLoss
			correct += shardCorrect
			mu.Unlock()
			return nil
		})
	}
	if err := workers.Wait(); err != nil {
		return 0, 0, err
	}

	ScaleGrads(t.params, 1.0/float64(len(idx)))
	AddL2Grads(t.regParams, t.Cfg.L2Penalty)
	ClipGlobalNorm(t.params, t.Cfg.MaxGradNorm)
	t.opt.Step(t.params, lr)
	return lossSum, correct, nil
}

// Evaluate computes loss and accuracy over ds without touching gradients
// or building graphs.
func (t *Trainer) Evaluate(ds Dataset) (Metrics, error) {
	prev := autograd.SetGrad(false)
	defer autograd.SetGrad(prev)

	var mu sync.Mutex
	lossSum := 0.0
	correct := 0

	replicas := t.replicas()
	per := (ds.Len() + replicas - 1) / replicas
	workers := pool.New().WithMaxGoroutines(replicas).WithErrors()
	for lo := 0; lo < ds.Len(); lo += per {
		hi := lo + per
		if hi > ds.Len() {
			hi = ds.Len()
		}
		workers.Go(func() error {
			shardLoss := 0.0
			shardCorrect := 0
			for i := lo; i < hi; i++ {
				logits, err := t.Model.Forward(ds.Stories[i], data.RepeatQuery(ds.Queries[i], t.Cfg.Hops))
				if err != nil {
					return err
				}
				shardLoss += autograd.CrossEntropyLoss(logits, ds.Answers[i]).Data
				if argmax(logits.Data) == ds.Answers[i] {
					shardCorrect++
				}
			}
			mu.Lock()
			lossSum += shardLoss
			correct += shardCorrect
			mu.Unlock()
			return nil
		})
	}
	if err := workers.Wait(); err != nil {
		return Metrics{}, err
	}
	if ds.Len() == 0 {
		return Metrics{}, nil
	}
	return Metrics{Loss: lossSum / float64(ds.Len()), Acc: float64(correct) / float64(ds.Len())}, nil
}

func argmax(xs []float64) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}
