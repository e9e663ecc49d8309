// Package data loads and vectorizes the bAbI synthetic reasoning corpus:
// numbered story sentences with interleaved tab-separated questions, one
// file per task and split. Obtaining the corpus files is the caller's
// problem; this package starts from a directory on disk.
package data

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Tasks maps the 20 bAbI task ids to their names.
var Tasks = map[int]string{
	1:  "single-supporting-fact",
	2:  "two-supporting-facts",
	3:  "three-supporting-facts",
	4:  "two-arg-relations",
	5:  "three-arg-relations",
	6:  "yes-no-questions",
	7:  "counting",
	8:  "lists-sets",
	9:  "simple-negation",
	10: "indefinite-knowledge",
	11: "basic-coreference",
	12: "conjunction",
	13: "compound-coreference",
	14: "time-reasoning",
	15: "basic-deduction",
	16: "basic-induction",
	17: "positional-reasoning",
	18: "size-reasoning",
	19: "path-finding",
	20: "agents-motivations",
}

// Sample is one (story, query, answer) triple. The story holds the
// supporting sentences seen before the question, oldest first, already
// tokenized.
type Sample struct {
	Story  [][]string
	Query  []string
	Answer string
}

// LoadTask reads the train and test splits of one task. setSize selects
// the corpus variant: "1k" reads from dir/en, "10k" from dir/en-10k.
func LoadTask(dir string, taskID int, setSize string) (train, test []Sample, err error) {
	if _, ok := Tasks[taskID]; !ok {
		return nil, nil, fmt.Errorf("load task: unknown task id %d", taskID)
	}
	var sub string
	switch setSize {
	case "1k":
		sub = "en"
	case "10k":
		sub = "en-10k"
	default:
		return nil, nil, fmt.Errorf("load task: training set size must be 1k or 10k, got %q", setSize)
	}

	base := filepath.Join(dir, sub)
	train, err = loadSplit(base, taskID, "train")
	if err != nil {
		return nil, nil, err
	}
	test, err = loadSplit(base, taskID, "test")
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

func loadSplit(base string, taskID int, split string) ([]Sample, error) {
	pattern := filepath.Join(base, fmt.Sprintf("qa%d_*_%s.txt", taskID, split))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("load task: no %s file matching %s", split, pattern)
	}
	f, err := os.Open(matches[0])
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	defer f.Close()
	return ParseStories(f)
}

// ParseStories parses the bAbI line format from r. A line number of 1
// starts a new story; a line containing tabs is a question
// (question\tanswer\tsupporting-ids) and emits one sample holding the
// story so far.
func ParseStories(r io.Reader) ([]Sample, error) {
	var samples []Sample
	var story [][]string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("parse stories: line %d: no sentence counter", lineNo)
		}
		nid, err := strconv.Atoi(line[:sp])
		if err != nil {
			return nil, fmt.Errorf("parse stories: line %d: bad sentence counter: %w", lineNo, err)
		}
		rest := line[sp+1:]
		if nid == 1 {
			story = story[:0]
		}

		if strings.ContainsRune(rest, '\t') {
			parts := strings.SplitN(rest, "\t", 3)
			q := tokenize(parts[0])
			answer := ""
			if len(parts) > 1 {
				// Multi-word answers (task 8 and 19) stay one label.
				answer = strings.TrimSpace(parts[1])
			}
			samples = append(samples, Sample{
				Story:  append([][]string(nil), story...),
				Query:  q,
				Answer: answer,
			})
		} else {
			story = append(story, tokenize(rest))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse stories: %w", err)
	}
	return samples, nil
}

// tokenize lowercases and splits a sentence, shedding terminal
// punctuation so "kitchen." and "kitchen" are one word.
func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimRight(f, ".?!")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// MaxShape reports the largest sentence count, sentence length and query
// length over samples. Sentence length includes the slot reserved for the
// time word.
func MaxShape(samples []Sample) (maxSentences, maxSentenceLen, maxQueryLen int) {
	for _, s := range samples {
		if len(s.Story) > maxSentences {
			maxSentences = len(s.Story)
		}
		for _, sent := range s.Story {
			if len(sent)+1 > maxSentenceLen {
				maxSentenceLen = len(sent) + 1
			}
		}
		if len(s.Query) > maxQueryLen {
			maxQueryLen = len(s.Query)
		}
	}
	return maxSentences, maxSentenceLen, maxQueryLen
}
