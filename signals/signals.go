// Coordination signal extractors.
//
// Each extractor looks at one independent kind of evidence (posting time, text, hashtags, links, interaction structure) and emits scored account pairs or sets. Extractors are plain functions registered in a list; the coordination detector runs them concurrently and fuses the results.
package signals

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/dataset"
	"github.com/bluesky-social/starling/netgraph"
	"github.com/bluesky-social/starling/textsim"
)

type Evidence struct {
	Description string    `json:"description"`
	Occurrences int       `json:"occurrences"`
	First       time.Time `json:"first,omitempty"`
	Last        time.Time `json:"last,omitempty"`
}

// Signal links a pair (len(Users) == 2) or set of accounts. When Hub is set the signal is star-shaped: the hub is linked to every other member, but the other members are not linked to each other.
type Signal struct {
	Type     string   `json:"type"`
	Users    []string `json:"users"`
	Hub      string   `json:"hub,omitempty"`
	Strength float64  `json:"strength"`
	Evidence Evidence `json:"evidence"`
}

// Links enumerates the account pairs this signal asserts, each with a < b.
func (s *Signal) Links() [][2]string {
	var out [][2]string
	if s.Hub != "" {
		for _, u := range s.Users {
			if u != s.Hub {
				out = append(out, orderedPair(s.Hub, u))
			}
		}
		return out
	}
	for i := 0; i < len(s.Users); i++ {
		for j := i + 1; j < len(s.Users); j++ {
			out = append(out, orderedPair(s.Users[i], s.Users[j]))
		}
	}
	return out
}

func orderedPair(a, b string) [2]string {
	if b < a {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}

// SortSignals orders signals by type, then member list, for stable output.
func SortSignals(sigs []Signal) {
	sort.Slice(sigs, func(i, j int) bool {
		if sigs[i].Type != sigs[j].Type {
			return sigs[i].Type < sigs[j].Type
		}
		a, b := sigs[i].Users, sigs[j].Users
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
}

// Input is the read-only snapshot shared by all extractors of one run.
type Input struct {
	Graph  *netgraph.MultiLayerGraph
	Posts  []dataset.Post
	Config *config.Config
	Logger *slog.Logger

	textOnce sync.Once
	text     map[string]postText
}

type postText struct {
	vec         textsim.Vector
	fingerprint string
}

func NewInput(g *netgraph.MultiLayerGraph, posts []dataset.Post, cfg *config.Config, logger *slog.Logger) *Input {
	if logger == nil {
		logger = slog.Default()
	}
	return &Input{
		Graph:  g,
		Posts:  posts,
		Config: cfg,
		Logger: logger,
	}
}

// OriginalPosts returns non-retweet posts ordered by timestamp, then id.
func (in *Input) OriginalPosts() []*dataset.Post {
	var out []*dataset.Post
	for i := range in.Posts {
		if !in.Posts[i].IsRetweet {
			out = append(out, &in.Posts[i])
		}
	}
	dataset.SortPosts(out)
	return out
}

// textIndex builds tf-idf vectors and fingerprints for original posts, once per run.
func (in *Input) textIndex() map[string]postText {
	in.textOnce.Do(func() {
		posts := in.OriginalPosts()
		docs := make([][]string, len(posts))
		for i, p := range posts {
			docs[i] = textsim.ContentTokens(p.Text)
		}
		corpus := textsim.NewCorpus(docs)
		in.text = make(map[string]postText, len(posts))
		for i, p := range posts {
			in.text[p.ID] = postText{
				vec:         corpus.Vector(docs[i]),
				fingerprint: textsim.TextFingerprint(p.Text),
			}
		}
	})
	return in.text
}

// TextSimilarity of two original posts. Identical normalized text scores 1.0.
func (in *Input) TextSimilarity(a, b *dataset.Post) float64 {
	idx := in.textIndex()
	ta, ok := idx[a.ID]
	if !ok {
		return 0
	}
	tb, ok := idx[b.ID]
	if !ok {
		return 0
	}
	if ta.fingerprint != "" && ta.fingerprint == tb.fingerprint {
		return 1
	}
	return textsim.Cosine(ta.vec, tb.vec)
}

func (in *Input) workers() int {
	if in.Config.Workers > 0 {
		return in.Config.Workers
	}
	return runtime.GOMAXPROCS(0)
}

type ExtractFunc func(ctx context.Context, in *Input) ([]Signal, error)

type Extractor struct {
	Name    string
	Extract ExtractFunc
}

func DefaultExtractors() []Extractor {
	return []Extractor{
		{Name: config.SignalTemporal, Extract: TemporalSignals},
		{Name: config.SignalContent, Extract: ContentSignals},
		{Name: config.SignalHashtag, Extract: HashtagSignals},
		{Name: config.SignalURL, Extract: URLSignals},
		{Name: config.SignalStructural, Extract: StructuralSignals},
	}
}

// pairAccumulator tracks per-pair statistics while an extractor scans its input.
type pairAccumulator struct {
	best  float64
	count int
	first time.Time
	last  time.Time
}

func (acc *pairAccumulator) observe(score float64, ts ...time.Time) {
	acc.count++
	if score > acc.best {
		acc.best = score
	}
	for _, t := range ts {
		if t.IsZero() {
			continue
		}
		if acc.first.IsZero() || t.Before(acc.first) {
			acc.first = t
		}
		if acc.last.IsZero() || t.After(acc.last) {
			acc.last = t
		}
	}
}

func (acc *pairAccumulator) merge(other *pairAccumulator) {
	total := acc.count + other.count
	acc.observe(other.best, other.first, other.last)
	acc.count = total
}

// sortedPairs returns accumulated pairs in a stable order.
func sortedPairs(m map[[2]string]*pairAccumulator) [][2]string {
	keys := make([][2]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] == keys[j][0] {
			return keys[i][1] < keys[j][1]
		}
		return keys[i][0] < keys[j][0]
	})
	return keys
}
