package coordination

import (
	"sort"
	"time"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/fusion"
	"github.com/bluesky-social/starling/signals"
)

// FusedEdge is one account pair in the aggregate coordination graph.
type FusedEdge struct {
	A, B string
	// Raw is the weighted sum of per-type strengths; Weight is Raw normalized to [0,1].
	Raw    float64
	Weight float64
	// per signal type, the strongest qualifying signal on this pair
	Strengths map[string]float64
	First     time.Time
	Last      time.Time
}

// Types lists the contributing signal types, sorted.
func (e *FusedEdge) Types() []string {
	out := make([]string, 0, len(e.Strengths))
	for t := range e.Strengths {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Graph is the aggregate coordination graph: an undirected weighted graph over accounts.
type Graph struct {
	edges map[[2]string]*FusedEdge
	adj   map[string]map[string]*FusedEdge
}

func (g *Graph) Edge(a, b string) (*FusedEdge, bool) {
	if b < a {
		a, b = b, a
	}
	e, ok := g.edges[[2]string{a, b}]
	return e, ok
}

// Edges lists every fused edge ordered by endpoints.
func (g *Graph) Edges() []*FusedEdge {
	out := make([]*FusedEdge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A == out[j].A {
			return out[i].B < out[j].B
		}
		return out[i].A < out[j].A
	})
	return out
}

// Accounts lists every account with at least one fused edge, sorted.
func (g *Graph) Accounts() []string {
	out := make([]string, 0, len(g.adj))
	for a := range g.adj {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Fuse combines extractor output into the aggregate coordination graph.
//
// Signals below the threshold for their type (see Config.SignalThreshold) are ignored. For each pair, the strongest signal of each type counts once, weighted by signal_weights; the sum is normalized by the largest configured weight and capped at 1. Star signals contribute hub-to-leaf pairs only.
func Fuse(sigs []signals.Signal, cfg *config.Config) *Graph {
	g := &Graph{
		edges: map[[2]string]*FusedEdge{},
		adj:   map[string]map[string]*FusedEdge{},
	}
	for i := range sigs {
		s := &sigs[i]
		if s.Strength < cfg.SignalThreshold(s.Type) || s.Strength <= 0 {
			continue
		}
		if cfg.SignalWeights[s.Type] == 0 {
			continue
		}
		for _, pair := range s.Links() {
			e, ok := g.edges[pair]
			if !ok {
				e = &FusedEdge{A: pair[0], B: pair[1], Strengths: map[string]float64{}}
				g.edges[pair] = e
				g.link(pair[0], pair[1], e)
				g.link(pair[1], pair[0], e)
			}
			if s.Strength > e.Strengths[s.Type] {
				e.Strengths[s.Type] = fusion.Clamp01(s.Strength)
			}
			observe(e, s.Evidence.First)
			observe(e, s.Evidence.Last)
		}
	}

	maxW := cfg.MaxSignalWeight()
	for _, e := range g.edges {
		raw := 0.0
		for t, str := range e.Strengths {
			raw += str * cfg.SignalWeights[t]
		}
		e.Raw = raw
		if maxW > 0 {
			e.Weight = fusion.Clamp01(raw / maxW)
		}
	}
	return g
}

func (g *Graph) link(a, b string, e *FusedEdge) {
	if g.adj[a] == nil {
		g.adj[a] = map[string]*FusedEdge{}
	}
	g.adj[a][b] = e
}

func observe(e *FusedEdge, t time.Time) {
	if t.IsZero() {
		return
	}
	if e.First.IsZero() || t.Before(e.First) {
		e.First = t
	}
	if e.Last.IsZero() || t.After(e.Last) {
		e.Last = t
	}
}
