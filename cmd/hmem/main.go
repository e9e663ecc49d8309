// Command hmem trains and evaluates the H-Mem memory network on a single
// bAbI task. Defaults come from train.Default(), a YAML file given with
// --config layers on top, and explicit flags win over both.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/VV-869/H-Mem/data"
	"github.com/VV-869/H-Mem/model"
	"github.com/VV-869/H-Mem/train"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "hmem: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadBaseConfig(args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("hmem", flag.ExitOnError)
	fs.String("config", "", "YAML config file applied before flag overrides")
	fs.IntVar(&cfg.TaskID, "task_id", cfg.TaskID, "bAbI task id (1-20)")
	fs.StringVar(&cfg.DataDir, "data_dir", cfg.DataDir, "directory holding the bAbI en/ and en-10k/ subdirectories")
	fs.StringVar(&cfg.TrainingSetSize, "training_set_size", cfg.TrainingSetSize, "`1k` or `10k`")
	fs.IntVar(&cfg.MaxNumSentences, "max_num_sentences", cfg.MaxNumSentences, "story length cap (-1 = corpus maximum)")
	fs.IntVar(&cfg.Epochs, "epochs", cfg.Epochs, "training epochs")
	fs.Float64Var(&cfg.LearningRate, "learning_rate", cfg.LearningRate, "base Adam learning rate")
	fs.IntVar(&cfg.BatchSizePerReplica, "batch_size_per_replica", cfg.BatchSizePerReplica, "samples per replica per batch")
	fs.IntVar(&cfg.Replicas, "replicas", cfg.Replicas, "data-parallel replica count")
	fs.Int64Var(&cfg.RandomState, "random_state", cfg.RandomState, "seed for all randomness")
	fs.Float64Var(&cfg.MaxGradNorm, "max_grad_norm", cfg.MaxGradNorm, "global gradient norm clip")
	fs.Float64Var(&cfg.ValidationSplit, "validation_split", cfg.ValidationSplit, "fraction of training data held out")
	fs.IntVar(&cfg.Hops, "hops", cfg.Hops, "memory read hops")
	fs.IntVar(&cfg.MemorySize, "memory_size", cfg.MemorySize, "memory slots")
	fs.IntVar(&cfg.EmbeddingsSize, "embeddings_size", cfg.EmbeddingsSize, "word embedding size")
	rbw := fs.Int("read_before_write", boolToInt(cfg.ReadBeforeWrite), "1 = retrieve before every write")
	fs.Float64Var(&cfg.GammaPos, "gamma_pos", cfg.GammaPos, "positive reinforcement rate")
	fs.Float64Var(&cfg.GammaNeg, "gamma_neg", cfg.GammaNeg, "negative reinforcement rate")
	fs.Float64Var(&cfg.WAssocMax, "w_assoc_max", cfg.WAssocMax, "association strength bound")
	fs.StringVar(&cfg.EncodingsType, "encodings_type", cfg.EncodingsType, "`identity_encoding`, `position_encoding` or `learned_encoding`")
	fs.StringVar(&cfg.ResultsDB, "results_db", cfg.ResultsDB, "sqlite file for run metrics (empty = no persistence)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "print progress")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.ReadBeforeWrite = *rbw != 0

	logf := func(string, ...interface{}) {}
	if cfg.Verbose {
		logf = func(format string, args ...interface{}) { fmt.Printf(format, args...) }
	}

	logf("extracting stories for the challenge: %d, %s\n", cfg.TaskID, data.Tasks[cfg.TaskID])
	trainSamples, testSamples, err := data.LoadTask(cfg.DataDir, cfg.TaskID, cfg.TrainingSetSize)
	if err != nil {
		return err
	}
	all := append(append([]data.Sample{}, trainSamples...), testSamples...)

	maxStorySize, maxSentenceLen, maxQueryLen := data.MaxShape(all)
	maxNumSentences := maxStorySize
	if cfg.MaxNumSentences > 0 && cfg.MaxNumSentences < maxStorySize {
		maxNumSentences = cfg.MaxNumSentences
	}
	maxWords := maxSentenceLen
	if maxQueryLen > maxWords {
		maxWords = maxQueryLen
	}

	vocab := data.BuildVocab(all, maxNumSentences)
	logf("vocab size: %d unique words (including nil and time words)\n", vocab.Size())
	logf("story max length: %d sentences, %d words (including time word)\n", maxStorySize, maxSentenceLen)
	logf("query max length: %d words\n", maxQueryLen)
	logf("vectorizing the stories...\n")

	trainS, trainQ, trainA := data.Vectorize(trainSamples, vocab, maxNumSentences, maxWords)
	testS, testQ, testA := data.Vectorize(testSamples, vocab, maxNumSentences, maxWords)

	rng := rand.New(rand.NewSource(cfg.RandomState))
	m, err := model.New(model.Config{
		MaxNumSentences: maxNumSentences,
		MaxWords:        maxWords,
		MemorySize:      cfg.MemorySize,
		EmbeddingsSize:  cfg.EmbeddingsSize,
		VocabSize:       vocab.Size(),
		Hops:            cfg.Hops,
		EncodingsType:   cfg.EncodingsType,
		ReadBeforeWrite: cfg.ReadBeforeWrite,
		GammaPos:        cfg.GammaPos,
		GammaNeg:        cfg.GammaNeg,
		WAssocMax:       cfg.WAssocMax,
	}, rng)
	if err != nil {
		return err
	}

	var results *train.Results
	if cfg.ResultsDB != "" {
		results, err = train.OpenResults(cfg.ResultsDB, cfg)
		if err != nil {
			return err
		}
		defer results.Close()
		logf("logging run %s to %s\n", results.RunID(), cfg.ResultsDB)
	}

	trainer := train.New(m, cfg, rng, results, logf)
	logf("training...\n")
	if err := trainer.Fit(train.Dataset{Stories: trainS, Queries: trainQ, Answers: trainA}); err != nil {
		return err
	}

	metrics, err := trainer.Evaluate(train.Dataset{Stories: testS, Queries: testQ, Answers: testA})
	if err != nil {
		return err
	}
	fmt.Printf("test_loss %.4f test_acc %.4f\n", metrics.Loss, metrics.Acc)
	if results != nil {
		if err := results.LogTest(metrics.Loss, metrics.Acc); err != nil {
			return err
		}
	}
	return nil
}

// loadBaseConfig peeks at --config before the full flag parse so the
// YAML file provides defaults and explicit flags win.
func loadBaseConfig(args []string) (train.Config, error) {
	for i, a := range args {
		if a == "--config" || a == "-config" {
			if i+1 < len(args) {
				return train.Load(args[i+1])
			}
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return train.Load(v)
		}
		if v, ok := strings.CutPrefix(a, "-config="); ok {
			return train.Load(v)
		}
	}
	return train.Default(), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
