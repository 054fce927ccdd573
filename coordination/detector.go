// Coordinated group detection: runs the registered signal extractors, fuses their output in to an aggregate coordination graph, and extracts confidence-scored groups of accounts.
package coordination

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/fusion"
	"github.com/bluesky-social/starling/signals"
	"github.com/bluesky-social/starling/textsim"

	"golang.org/x/sync/errgroup"
)

// Group is a set of accounts linked by fused coordination evidence.
type Group struct {
	ID         string    `json:"id"`
	Members    []string  `json:"members"`
	Signals    []string  `json:"signals"`
	Confidence float64   `json:"confidence"`
	Start      time.Time `json:"start,omitempty"`
	End        time.Time `json:"end,omitempty"`
	// number of fused edges among members
	Links int `json:"links"`
}

func (g *Group) Size() int {
	return len(g.Members)
}

// Detection is the output of one Detect call.
type Detection struct {
	Groups   []Group
	Signals  []signals.Signal
	Graph    *Graph
	Warnings []fusion.Warning
}

// SignalCounts tallies emitted signals by type.
func (d *Detection) SignalCounts() map[string]int {
	out := map[string]int{}
	for _, s := range d.Signals {
		out[s.Type]++
	}
	return out
}

type Detector struct {
	Logger     *slog.Logger
	Config     *config.Config
	Extractors []signals.Extractor
}

func NewDetector(cfg *config.Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		Logger:     logger.With("component", "coordination"),
		Config:     cfg,
		Extractors: signals.DefaultExtractors(),
	}
}

// Detect runs every extractor concurrently, then fuses and extracts groups once all have finished. A failing extractor produces a warning and contributes no evidence; only context cancellation aborts.
func (d *Detector) Detect(ctx context.Context, in *signals.Input) (*Detection, error) {
	results := make([][]signals.Signal, len(d.Extractors))
	warns := make([]*fusion.Warning, len(d.Extractors))
	errs := make([]error, len(d.Extractors))

	var eg errgroup.Group
	for i, ex := range d.Extractors {
		eg.Go(func() error {
			start := time.Now()
			results[i], warns[i], errs[i] = fusion.Isolate(ctx, "signal", ex.Name, func(ctx context.Context) ([]signals.Signal, error) {
				return ex.Extract(ctx, in)
			})
			d.Logger.Debug("extractor finished", "extractor", ex.Name, "signals", len(results[i]), "duration", time.Since(start))
			return nil
		})
	}
	_ = eg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Detection{}
	for i, w := range warns {
		if w != nil {
			d.Logger.Warn("signal extractor failed", "extractor", d.Extractors[i].Name, "err", w.Message)
			out.Warnings = append(out.Warnings, *w)
		}
		out.Signals = append(out.Signals, results[i]...)
	}
	signals.SortSignals(out.Signals)

	out.Graph = Fuse(out.Signals, d.Config)
	out.Groups = ExtractGroups(out.Graph, d.Config)
	return out, nil
}

// ExtractGroups forms groups from connected components of the coordination graph.
//
// A component is kept when it has at least min_group_size members and its confidence (average internal edge weight) exceeds min_group_confidence. Components larger than max_group_size are split by dropping edges below successively stricter weight cuts, stepping by repartition_step; if no cut yields small enough pieces they are rejected.
func ExtractGroups(g *Graph, cfg *config.Config) []Group {
	var out []Group
	var visit func(members []string, cut float64)
	visit = func(members []string, cut float64) {
		for _, comp := range components(g, members, cut) {
			if len(comp) < cfg.MinGroupSize {
				continue
			}
			if len(comp) > cfg.MaxGroupSize {
				next := cut + cfg.RepartitionStep
				if next > 1+1e-9 {
					continue
				}
				visit(comp, next)
				continue
			}
			grp := buildGroup(g, comp)
			if grp.Confidence > cfg.MinGroupConfidence {
				out = append(out, grp)
			}
		}
	}
	visit(g.Accounts(), 0)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Members[0] < out[j].Members[0]
	})
	return out
}

// components among members, considering only edges weighted at least cut (any positive weight at cut 0).
func components(g *Graph, members []string, cut float64) [][]string {
	in := make(map[string]bool, len(members))
	for _, m := range members {
		in[m] = true
	}
	uf := fusion.NewUnionFind()
	for _, m := range members {
		uf.Add(m)
		for nb, e := range g.adj[m] {
			if !in[nb] || e.Weight <= 0 {
				continue
			}
			if cut > 0 && e.Weight < cut {
				continue
			}
			uf.Union(m, nb)
		}
	}
	return uf.Components()
}

func buildGroup(g *Graph, members []string) Group {
	types := map[string]bool{}
	sum := 0.0
	links := 0
	var first, last time.Time
	for i, a := range members {
		for _, b := range members[i+1:] {
			e, ok := g.Edge(a, b)
			if !ok {
				continue
			}
			links++
			sum += e.Weight
			for t := range e.Strengths {
				types[t] = true
			}
			if !e.First.IsZero() && (first.IsZero() || e.First.Before(first)) {
				first = e.First
			}
			if e.Last.After(last) {
				last = e.Last
			}
		}
	}
	conf := 0.0
	if links > 0 {
		conf = sum / float64(links)
	}
	sigTypes := make([]string, 0, len(types))
	for t := range types {
		sigTypes = append(sigTypes, t)
	}
	sort.Strings(sigTypes)

	return Group{
		ID:         GroupID(members),
		Members:    members,
		Signals:    sigTypes,
		Confidence: fusion.RoundScore(conf),
		Start:      first,
		End:        last,
		Links:      links,
	}
}

// GroupID derives a stable identifier from the sorted member list.
func GroupID(members []string) string {
	return "cg-" + textsim.HashOfString(strings.Join(members, ","))
}
