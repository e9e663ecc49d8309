package data

import (
	"sort"
	"strconv"
)

// Vocab maps words to dense indices. Index 0 is the reserved nil word
// used for padding; the synthetic time words time1..timeN (one per
// sentence position, most recent sentence = time1) sit after the base
// vocabulary. Answers come from the base vocabulary only, so OutSize
// bounds the answer classes while Size covers everything embeddable.
type Vocab struct {
	Index     map[string]int
	Words     []string // Words[i] is the word at index i; Words[0] = ""
	OutSize   int      // base vocab size + nil word
	timeBase  int
	timeCount int
}

// BuildVocab collects the sorted vocabulary over all samples and appends
// maxSentences time words.
func BuildVocab(samples []Sample, maxSentences int) *Vocab {
	seen := make(map[string]bool)
	for _, s := range samples {
		for _, sent := range s.Story {
			for _, w := range sent {
				seen[w] = true
			}
		}
		for _, w := range s.Query {
			seen[w] = true
		}
		if s.Answer != "" {
			seen[s.Answer] = true
		}
	}
	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)

	v := &Vocab{
		Index:     make(map[string]int, len(words)+maxSentences),
		Words:     make([]string, 1, len(words)+maxSentences+1),
		timeCount: maxSentences,
	}
	for i, w := range words {
		v.Index[w] = i + 1
		v.Words = append(v.Words, w)
	}
	v.OutSize = len(words) + 1
	v.timeBase = v.OutSize
	for i := 0; i < maxSentences; i++ {
		v.Words = append(v.Words, timeWord(i+1))
	}
	return v
}

func timeWord(n int) string { return "time" + strconv.Itoa(n) }

// Size returns the full vocabulary size including nil and time words.
func (v *Vocab) Size() int { return v.OutSize + v.timeCount }

// TimeIndex returns the index of the time word for recency n (1 = most
// recent sentence).
func (v *Vocab) TimeIndex(n int) int { return v.timeBase + n - 1 }

// Lookup returns the index of a base word, 0 if unknown.
func (v *Vocab) Lookup(w string) int { return v.Index[w] }

// Vectorize pads and indexes samples into fixed-shape integer tensors.
// Per sentence, word indices are zero-padded to maxWords with the last
// slot overwritten by the sentence's time word; stories keep their most
// recent maxSentences sentences and are padded with all-nil sentences at
// the end. Queries are zero-padded to maxWords. Answers are class
// indices into the base vocabulary.
func Vectorize(samples []Sample, v *Vocab, maxSentences, maxWords int) (stories [][][]int, queries [][]int, answers []int) {
	stories = make([][][]int, len(samples))
	queries = make([][]int, len(samples))
	answers = make([]int, len(samples))

	for si, s := range samples {
		story := s.Story
		if len(story) > maxSentences {
			story = story[len(story)-maxSentences:]
		}
		vs := make([][]int, maxSentences)
		for i, sent := range story {
			row := make([]int, maxWords)
			for j, w := range sent {
				if j >= maxWords-1 {
					break
				}
				row[j] = v.Lookup(w)
			}
			// Recency signal: the last sentence gets time1.
			row[maxWords-1] = v.TimeIndex(len(story) - i)
			vs[i] = row
		}
		for i := len(story); i < maxSentences; i++ {
			vs[i] = make([]int, maxWords)
		}
		stories[si] = vs

		q := make([]int, maxWords)
		for j, w := range s.Query {
			if j >= maxWords {
				break
			}
			q[j] = v.Lookup(w)
		}
		queries[si] = q
		answers[si] = v.Lookup(s.Answer)
	}
	return stories, queries, answers
}

// RepeatQuery replicates one padded query across the hop axis, producing
// the (hops, maxWords) input the reading recurrence expects.
func RepeatQuery(query []int, hops int) [][]int {
	out := make([][]int, hops)
	for h := range out {
		out[h] = query
	}
	return out
}
