package partition

import (
	"context"
	"math/rand/v2"

	"github.com/bluesky-social/starling/netgraph"
)

// LabelPropagation assigns each account the label carrying the most edge weight among its neighbors, until labels stop changing.
//
// Visit order is shuffled each round with a seeded source, and ties keep the current label or else take the smallest, so results are deterministic. Resolution is recorded but does not affect the algorithm.
type LabelPropagation struct {
	Seed          uint64
	MaxIterations int
}

func (lp *LabelPropagation) Partition(ctx context.Context, layer *netgraph.Layer, resolution float64) (*Partition, error) {
	nodes := layer.Nodes()
	labels := make(map[string]string, len(nodes))
	for _, n := range nodes {
		labels[n] = n
	}

	maxIter := lp.MaxIterations
	if maxIter <= 0 {
		maxIter = 100
	}
	rng := rand.New(rand.NewPCG(lp.Seed, lp.Seed))
	order := append([]string(nil), nodes...)

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		changed := false
		for _, n := range order {
			next := lp.vote(layer, n, labels)
			if next != labels[n] {
				labels[n] = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	byLabel := map[string][]string{}
	for n, l := range labels {
		byLabel[l] = append(byLabel[l], n)
	}
	comms := make([][]string, 0, len(byLabel))
	for _, members := range byLabel {
		comms = append(comms, members)
	}
	return FromCommunities(layer.Name, "lpa", resolution, comms), nil
}

func (lp *LabelPropagation) vote(layer *netgraph.Layer, n string, labels map[string]string) string {
	votes := map[string]float64{}
	for _, nb := range layer.Neighbors(n) {
		w, ok := layer.Weight(n, nb)
		if !ok {
			w, _ = layer.Weight(nb, n)
		}
		votes[labels[nb]] += w
	}
	if len(votes) == 0 {
		// isolated node keeps its own label
		return labels[n]
	}

	cur := labels[n]
	best, bestVotes := cur, votes[cur]
	for l, v := range votes {
		if v > bestVotes || (v == bestVotes && l < best && best != cur) {
			best, bestVotes = l, v
		}
	}
	return best
}
