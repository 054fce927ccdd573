package partition

import (
	"context"
	"math/rand/v2"

	"github.com/bluesky-social/starling/netgraph"

	"gonum.org/v1/gonum/graph/community"
)

// Louvain maximizes modularity on the undirected view of a layer. A fixed Seed makes it deterministic.
type Louvain struct {
	Seed uint64
}

func (lv *Louvain) Partition(ctx context.Context, layer *netgraph.Layer, resolution float64) (*Partition, error) {
	if resolution <= 0 {
		resolution = 1
	}
	if layer.EdgeCount() == 0 {
		return singletons(layer, "louvain", resolution), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := layer.Undirected()
	reduced := community.Modularize(g, resolution, rand.NewPCG(lv.Seed, lv.Seed))
	var comms [][]string
	for _, c := range reduced.Communities() {
		members := make([]string, 0, len(c))
		for _, n := range c {
			members = append(members, layer.AccountID(n.ID()))
		}
		comms = append(comms, members)
	}
	return FromCommunities(layer.Name, "louvain", resolution, comms), nil
}

func singletons(layer *netgraph.Layer, algo string, resolution float64) *Partition {
	nodes := layer.Nodes()
	comms := make([][]string, len(nodes))
	for i, n := range nodes {
		comms[i] = []string{n}
	}
	return FromCommunities(layer.Name, algo, resolution, comms)
}
