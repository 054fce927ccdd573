// Community partitions of a layer, and the algorithms which produce them.
//
// Detectors consume partitions only through the Partition type. Partitions may be computed here by a registered Partitioner, or supplied externally (eg, loaded from JSON) and wrapped with Static.
package partition

import (
	"context"
	"fmt"
	"sort"

	"github.com/bluesky-social/starling/netgraph"
)

// Partition assigns each account in one layer to a community.
type Partition struct {
	Layer       string         `json:"layer"`
	Algorithm   string         `json:"algorithm"`
	Resolution  float64        `json:"resolution"`
	Assignments map[string]int `json:"assignments"`
}

// Key identifies the partition in results and warnings, eg "retweet/louvain".
func (p *Partition) Key() string {
	return p.Layer + "/" + p.Algorithm
}

// Communities returns member lists (sorted) for every community, ordered by smallest member.
func (p *Partition) Communities() [][]string {
	byID := map[int][]string{}
	for acct, c := range p.Assignments {
		byID[c] = append(byID[c], acct)
	}
	out := make([][]string, 0, len(byID))
	for _, members := range byID {
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i][0] < out[j][0]
	})
	return out
}

// Partitioner computes a partition of one layer. Implementations must be deterministic for a given layer and resolution.
type Partitioner interface {
	Partition(ctx context.Context, layer *netgraph.Layer, resolution float64) (*Partition, error)
}

// FromCommunities builds a partition from member lists, numbering communities by smallest member so that ids are stable.
func FromCommunities(layer, algo string, resolution float64, comms [][]string) *Partition {
	sorted := make([][]string, 0, len(comms))
	for _, c := range comms {
		if len(c) == 0 {
			continue
		}
		members := append([]string(nil), c...)
		sort.Strings(members)
		sorted = append(sorted, members)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i][0] < sorted[j][0]
	})
	p := &Partition{
		Layer:       layer,
		Algorithm:   algo,
		Resolution:  resolution,
		Assignments: map[string]int{},
	}
	for i, members := range sorted {
		for _, m := range members {
			p.Assignments[m] = i
		}
	}
	return p
}

// Static wraps a precomputed assignment map, for partitions supplied by an external community detection service.
func Static(layer, algo string, assignments map[string]int) *Partition {
	cp := make(map[string]int, len(assignments))
	for k, v := range assignments {
		cp[k] = v
	}
	return &Partition{
		Layer:       layer,
		Algorithm:   algo,
		Resolution:  1,
		Assignments: cp,
	}
}

// Registry maps algorithm names to partitioners.
type Registry map[string]Partitioner

func DefaultRegistry() Registry {
	return Registry{
		"louvain": &Louvain{Seed: 1},
		"lpa":     &LabelPropagation{Seed: 1, MaxIterations: 100},
	}
}

// Names lists registered algorithms, sorted.
func (r Registry) Names() []string {
	out := make([]string, 0, len(r))
	for n := range r {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Run partitions each named layer with each named algorithm. Results are ordered by layer, then algorithm.
func (r Registry) Run(ctx context.Context, mg *netgraph.MultiLayerGraph, layers, algos []string, resolution float64) ([]*Partition, error) {
	layers = append([]string(nil), layers...)
	algos = append([]string(nil), algos...)
	sort.Strings(layers)
	sort.Strings(algos)
	var out []*Partition
	for _, ln := range layers {
		l, ok := mg.Layer(ln)
		if !ok {
			return nil, fmt.Errorf("unknown layer: %q", ln)
		}
		for _, an := range algos {
			p, ok := r[an]
			if !ok {
				return nil, fmt.Errorf("unknown partition algorithm: %q", an)
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			part, err := p.Partition(ctx, l, resolution)
			if err != nil {
				return nil, fmt.Errorf("partitioning %s with %s: %w", ln, an, err)
			}
			out = append(out, part)
		}
	}
	return out, nil
}
