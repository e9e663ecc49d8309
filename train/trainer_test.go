package train

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/VV-869/H-Mem/autograd"
	"github.com/VV-869/H-Mem/model"
)

func tinyModelConfig() model.Config {
	return model.Config{
		MaxNumSentences: 2,
		MaxWords:        3,
		MemorySize:      6,
		EmbeddingsSize:  8,
		VocabSize:       6,
		Hops:            1,
		EncodingsType:   model.LearnedEncoding,
		GammaPos:        0.1,
		GammaNeg:        0.1,
		WAssocMax:       1.0,
	}
}

func tinyTrainConfig() Config {
	cfg := Default()
	cfg.Epochs = 2
	cfg.LearningRate = 0.01
	cfg.BatchSizePerReplica = 2
	cfg.Replicas = 2
	cfg.ValidationSplit = 0.25
	cfg.Hops = 1
	return cfg
}

// tinyDataset builds samples where the answer word literally appears in
// the story, which is enough signal for a smoke run.
func tinyDataset(n int) Dataset {
	ds := Dataset{}
	for i := 0; i < n; i++ {
		answer := 1 + i%2
		ds.Stories = append(ds.Stories, [][]int{
			{answer, 3, 0},
			{4, 5, 0},
		})
		ds.Queries = append(ds.Queries, []int{4, 5, 0})
		ds.Answers = append(ds.Answers, answer)
	}
	return ds
}

func TestFitSmoke(t *testing.T) {
	m, err := model.New(tinyModelConfig(), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	var logs []string
	logf := func(format string, args ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, args...))
	}
	cfg := tinyTrainConfig()
	tr := New(m, cfg, rand.New(rand.NewSource(2)), nil, logf)

	before := 0.0
	for _, p := range m.Params() {
		for _, x := range p.Data {
			before += x
		}
	}

	if err := tr.Fit(tinyDataset(8)); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	after := 0.0
	for _, p := range m.Params() {
		for _, x := range p.Data {
			after += x
		}
	}
	if before == after {
		t.Errorf("parameters did not move over %d epochs", cfg.Epochs)
	}
	if len(logs) != cfg.Epochs {
		t.Fatalf("logged %d epoch lines, want %d", len(logs), cfg.Epochs)
	}
	for _, line := range logs {
		if !strings.Contains(line, "epoch") || !strings.Contains(line, "val_loss") {
			t.Errorf("unexpected epoch line %q", line)
		}
	}
}

func TestFitPropagatesForwardErrors(t *testing.T) {
	m, err := model.New(tinyModelConfig(), rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	cfg := tinyTrainConfig()
	cfg.ValidationSplit = 0

	ds := tinyDataset(4)
	ds.Stories[2] = [][]int{{1, 2}} // malformed sentence width
	if err := tr(m, cfg).Fit(ds); err == nil {
		t.Fatalf("Fit swallowed a shape error")
	}
}

func tr(m *model.HMem, cfg Config) *Trainer {
	return New(m, cfg, rand.New(rand.NewSource(4)), nil, nil)
}

func TestEvaluate(t *testing.T) {
	m, err := model.New(tinyModelConfig(), rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	trn := tr(m, tinyTrainConfig())

	metrics, err := trn.Evaluate(tinyDataset(6))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if metrics.Loss <= 0 || math.IsNaN(metrics.Loss) {
		t.Errorf("loss %g, want finite > 0", metrics.Loss)
	}
	if metrics.Acc < 0 || metrics.Acc > 1 {
		t.Errorf("accuracy %g outside [0,1]", metrics.Acc)
	}
	if !autograd.GradEnabled() {
		t.Errorf("Evaluate left gradient recording disabled")
	}

	empty, err := trn.Evaluate(Dataset{})
	if err != nil {
		t.Fatalf("Evaluate(empty): %v", err)
	}
	if empty.Loss != 0 || empty.Acc != 0 {
		t.Errorf("empty dataset metrics %+v, want zeros", empty)
	}
}

func TestSplitValidation(t *testing.T) {
	cfg := tinyTrainConfig()
	cfg.ValidationSplit = 0.25
	m, err := model.New(tinyModelConfig(), rand.New(rand.NewSource(6)))
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	trn := tr(m, cfg)

	ds := tinyDataset(8)
	trainSet, valSet := trn.splitValidation(ds)
	if trainSet.Len() != 6 || valSet.Len() != 2 {
		t.Fatalf("split %d/%d, want 6/2", trainSet.Len(), valSet.Len())
	}
	// The holdout is the tail, in order.
	if valSet.Answers[0] != ds.Answers[6] || valSet.Answers[1] != ds.Answers[7] {
		t.Errorf("validation split is not the dataset tail")
	}
}
