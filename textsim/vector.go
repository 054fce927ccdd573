package textsim

import (
	"math"
	"sort"
)

// Vector is a sparse, L2-normalized term-weight vector. Terms are sorted, which keeps dot products deterministic.
type Vector struct {
	Terms   []string
	Weights []float64
}

func (v Vector) IsZero() bool {
	return len(v.Terms) == 0
}

// Corpus holds document frequencies for the posts of one run, used to weight term frequencies by inverse document frequency.
type Corpus struct {
	docs int
	df   map[string]int
}

func NewCorpus(docs [][]string) *Corpus {
	c := &Corpus{
		docs: len(docs),
		df:   make(map[string]int),
	}
	for _, toks := range docs {
		seen := make(map[string]bool, len(toks))
		for _, t := range toks {
			if !seen[t] {
				seen[t] = true
				c.df[t]++
			}
		}
	}
	return c
}

// IDF uses the smoothed form ln((1+N)/(1+df)) + 1, so terms present in every document still carry weight.
func (c *Corpus) IDF(term string) float64 {
	return math.Log(float64(1+c.docs)/float64(1+c.df[term])) + 1
}

// Vector builds the tf-idf weighted, L2-normalized vector for one tokenized document.
func (c *Corpus) Vector(tokens []string) Vector {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	terms := make([]string, 0, len(tf))
	for t := range tf {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	weights := make([]float64, len(terms))
	norm := 0.0
	for i, t := range terms {
		w := float64(tf[t]) * c.IDF(t)
		weights[i] = w
		norm += w * w
	}
	if norm == 0 {
		return Vector{}
	}
	norm = math.Sqrt(norm)
	for i := range weights {
		weights[i] /= norm
	}
	return Vector{Terms: terms, Weights: weights}
}

// Cosine similarity of two normalized vectors, clamped to [0,1].
func Cosine(a, b Vector) float64 {
	i, j := 0, 0
	dot := 0.0
	for i < len(a.Terms) && j < len(b.Terms) {
		switch {
		case a.Terms[i] == b.Terms[j]:
			dot += a.Weights[i] * b.Weights[j]
			i++
			j++
		case a.Terms[i] < b.Terms[j]:
			i++
		default:
			j++
		}
	}
	if dot > 1 {
		return 1
	}
	if dot < 0 {
		return 0
	}
	return dot
}
