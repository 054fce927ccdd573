package netgraph

import (
	"fmt"
	"sort"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/dataset"
)

type BuildOptions struct {
	// Strict rejects edges whose endpoints are not known accounts, instead of creating the nodes implicitly.
	Strict bool
	// Records with a weight below this are dropped before aggregation.
	WeightThreshold float64
	Directed        bool
}

// BuildLayer aggregates the interaction records of one layer type into a weighted graph. Every known account is a node, including those with no edges in this layer.
func BuildLayer(name string, users []dataset.User, edges []dataset.InteractionEdge, opts BuildOptions) (*Layer, error) {
	l := NewLayer(name, opts.Directed)
	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u.ID] = true
		l.AcquireNode(u.ID)
	}
	for i, e := range edges {
		if e.Layer != name {
			continue
		}
		if opts.Strict {
			for _, end := range []struct{ field, id string }{{"source", e.Source}, {"target", e.Target}} {
				if !known[end.id] {
					return nil, &dataset.ValidationError{
						Kind:   "edge",
						ID:     fmt.Sprintf("#%d", i),
						Field:  end.field,
						Reason: fmt.Sprintf("unknown user %q in %s layer", end.id, name),
					}
				}
			}
		}
		w := e.Weight
		if w == 0 {
			w = 1
		}
		if w < opts.WeightThreshold {
			continue
		}
		l.AddEdge(e.Source, e.Target, w)
	}
	return l, nil
}

// BuildHashtagLayer links accounts which used the same hashtags. Edge weight is the number of distinct hashtags both accounts used; pairs below minWeight are dropped.
func BuildHashtagLayer(users []dataset.User, posts []dataset.Post, minWeight float64) *Layer {
	l := NewLayer(dataset.LayerHashtag, false)
	for _, u := range users {
		l.AcquireNode(u.ID)
	}

	usersByTag := map[string]map[string]bool{}
	for _, p := range posts {
		if p.AuthorID == "" {
			continue
		}
		l.AcquireNode(p.AuthorID)
		for _, tag := range p.Hashtags {
			if usersByTag[tag] == nil {
				usersByTag[tag] = map[string]bool{}
			}
			usersByTag[tag][p.AuthorID] = true
		}
	}

	type pair struct{ a, b string }
	shared := map[pair]int{}
	for _, set := range usersByTag {
		members := make([]string, 0, len(set))
		for u := range set {
			members = append(members, u)
		}
		sort.Strings(members)
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				shared[pair{members[i], members[j]}]++
			}
		}
	}
	for p, n := range shared {
		if float64(n) >= minWeight {
			l.AddEdge(p.a, p.b, float64(n))
		}
	}
	return l
}

// MultiLayerGraph maps layer names to layers for one analysis run.
type MultiLayerGraph struct {
	Layers map[string]*Layer
}

// Build constructs every enabled layer. Retweet, reply, and mention interactions are derived from post records when the edge records carry none for that layer.
func Build(ds *dataset.Dataset, cfg *config.Config) (*MultiLayerGraph, error) {
	mg := &MultiLayerGraph{Layers: map[string]*Layer{}}

	present := map[string]bool{}
	for _, e := range ds.Edges {
		present[e.Layer] = true
	}
	derived := dataset.DeriveEdges(ds.Posts)

	for _, name := range cfg.EnabledLayers() {
		lc := cfg.Layers[name]
		if name == dataset.LayerHashtag {
			min := cfg.HashtagLayerMinWeight
			if lc.WeightThreshold > min {
				min = lc.WeightThreshold
			}
			mg.Layers[name] = BuildHashtagLayer(ds.Users, ds.Posts, min)
			continue
		}
		edges := ds.Edges
		if !present[name] && name != dataset.LayerFollow {
			edges = derived
		}
		l, err := BuildLayer(name, ds.Users, edges, BuildOptions{
			Strict:          cfg.StrictEdges,
			WeightThreshold: lc.WeightThreshold,
			Directed:        lc.Directed,
		})
		if err != nil {
			return nil, fmt.Errorf("building %s layer: %w", name, err)
		}
		mg.Layers[name] = l
	}
	return mg, nil
}

func (mg *MultiLayerGraph) Layer(name string) (*Layer, bool) {
	l, ok := mg.Layers[name]
	return l, ok
}

// Names lists the layers present, sorted.
func (mg *MultiLayerGraph) Names() []string {
	out := make([]string, 0, len(mg.Layers))
	for n := range mg.Layers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
